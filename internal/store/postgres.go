package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func expectAffected(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Users

const userColumns = `id, email, password_hash, full_name, position, committee, role, created_at, updated_at`

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Position, &u.Committee, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, position, committee, role)
		VALUES ($1, LOWER($2), $3, $4, $5, $6, $7)
	`, user.ID, user.Email, user.PasswordHash, user.FullName, user.Position, user.Committee, user.Role)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = LOWER($1)`, email))
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectAffected(result, "update password")
}

func (s *PostgresStore) CreatePasswordReset(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPasswordReset(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM password_resets
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > NOW()
	`, tokenHash).Scan(&userID)
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *PostgresStore) MarkPasswordResetUsed(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE password_resets SET used_at = NOW() WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("mark password reset used: %w", err)
	}
	return nil
}

// Refresh sessions, used when Redis is not configured.

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM refresh_sessions
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > NOW()
	`, tokenHash).Scan(&userID)
	if err != nil {
		return "", err
	}
	return userID, nil
}

// Members

const memberColumns = `id, user_id, name, email, role, created_at, updated_at`

func scanMember(row rowScanner) (Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.UserID, &m.Name, &m.Email, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (s *PostgresStore) ListMembers(ctx context.Context, userID string) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+memberColumns+` FROM members WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	items := make([]Member, 0)
	for rows.Next() {
		item, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetMember(ctx context.Context, userID, memberID string) (Member, error) {
	return scanMember(s.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE user_id = $1 AND id = $2`, userID, memberID))
}

func (s *PostgresStore) CreateMember(ctx context.Context, item Member) (Member, error) {
	created, err := scanMember(s.db.QueryRowContext(ctx, `
		INSERT INTO members (id, user_id, name, email, role)
		VALUES ($1, $2, $3, LOWER($4), $5)
		RETURNING `+memberColumns,
		item.ID, item.UserID, item.Name, item.Email, item.Role))
	if err != nil {
		return Member{}, fmt.Errorf("insert member: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) UpdateMember(ctx context.Context, item Member) (Member, error) {
	return scanMember(s.db.QueryRowContext(ctx, `
		UPDATE members SET name = $3, email = LOWER($4), role = $5, updated_at = NOW()
		WHERE user_id = $1 AND id = $2
		RETURNING `+memberColumns,
		item.UserID, item.ID, item.Name, item.Email, item.Role))
}

func (s *PostgresStore) DeleteMember(ctx context.Context, userID, memberID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE user_id = $1 AND id = $2`, userID, memberID)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return expectAffected(result, "delete member")
}

// Agenda entries

const agendaColumns = `id, user_id, topic, description, planned_meeting, status, created_at, updated_at`

func scanAgendaEntry(row rowScanner) (AgendaEntry, error) {
	var a AgendaEntry
	err := row.Scan(&a.ID, &a.UserID, &a.Topic, &a.Description, &a.PlannedMeeting, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (s *PostgresStore) collectAgenda(rows *sql.Rows) ([]AgendaEntry, error) {
	defer rows.Close()
	items := make([]AgendaEntry, 0)
	for rows.Next() {
		item, err := scanAgendaEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agenda entry: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agenda entries: %w", err)
	}
	return items, nil
}

// ListAgenda returns the user's entries, newest first. An empty status lists
// every entry.
func (s *PostgresStore) ListAgenda(ctx context.Context, userID, status string) ([]AgendaEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+agendaColumns+` FROM agenda_entries
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
	`, userID, status)
	if err != nil {
		return nil, fmt.Errorf("list agenda: %w", err)
	}
	return s.collectAgenda(rows)
}

// GetAgendaEntries returns the requested entries in the order of ids,
// skipping ids that do not exist or belong to someone else.
func (s *PostgresStore) GetAgendaEntries(ctx context.Context, userID string, ids []string) ([]AgendaEntry, error) {
	if len(ids) == 0 {
		return []AgendaEntry{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+agendaColumns+` FROM agenda_entries
		WHERE user_id = $1 AND id = ANY($2)
	`, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("get agenda entries: %w", err)
	}
	found, err := s.collectAgenda(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]AgendaEntry, len(found))
	for _, item := range found {
		byID[item.ID] = item
	}
	ordered := make([]AgendaEntry, 0, len(found))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			ordered = append(ordered, item)
		}
	}
	return ordered, nil
}

func (s *PostgresStore) GetAgendaEntry(ctx context.Context, userID, entryID string) (AgendaEntry, error) {
	return scanAgendaEntry(s.db.QueryRowContext(ctx, `SELECT `+agendaColumns+` FROM agenda_entries WHERE user_id = $1 AND id = $2`, userID, entryID))
}

func (s *PostgresStore) CreateAgendaEntry(ctx context.Context, item AgendaEntry) (AgendaEntry, error) {
	created, err := scanAgendaEntry(s.db.QueryRowContext(ctx, `
		INSERT INTO agenda_entries (id, user_id, topic, description, planned_meeting, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+agendaColumns,
		item.ID, item.UserID, item.Topic, item.Description, item.PlannedMeeting, item.Status))
	if err != nil {
		return AgendaEntry{}, fmt.Errorf("insert agenda entry: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) UpdateAgendaEntry(ctx context.Context, item AgendaEntry) (AgendaEntry, error) {
	return scanAgendaEntry(s.db.QueryRowContext(ctx, `
		UPDATE agenda_entries
		SET topic = $3, description = $4, planned_meeting = $5, status = $6, updated_at = NOW()
		WHERE user_id = $1 AND id = $2
		RETURNING `+agendaColumns,
		item.UserID, item.ID, item.Topic, item.Description, item.PlannedMeeting, item.Status))
}

func (s *PostgresStore) DeleteAgendaEntry(ctx context.Context, userID, entryID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM agenda_entries WHERE user_id = $1 AND id = $2`, userID, entryID)
	if err != nil {
		return fmt.Errorf("delete agenda entry: %w", err)
	}
	return expectAffected(result, "delete agenda entry")
}

// Convocations

const convocationColumns = `id, user_id, title, format, meeting_date, meeting_time, agenda_ids, body, sent_at, created_at`

func scanConvocation(row rowScanner) (Convocation, error) {
	var (
		c         Convocation
		agendaIDs []byte
		sentAt    sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.Format, &c.MeetingDate, &c.MeetingTime, &agendaIDs, &c.Body, &sentAt, &c.CreatedAt); err != nil {
		return Convocation{}, err
	}
	if err := json.Unmarshal(agendaIDs, &c.AgendaIDs); err != nil {
		return Convocation{}, fmt.Errorf("decode convocation agenda ids: %w", err)
	}
	if sentAt.Valid {
		c.SentAt = &sentAt.Time
	}
	return c, nil
}

func (s *PostgresStore) CreateConvocation(ctx context.Context, item Convocation) (Convocation, error) {
	agendaIDs, err := marshalIDs(item.AgendaIDs)
	if err != nil {
		return Convocation{}, err
	}
	created, err := scanConvocation(s.db.QueryRowContext(ctx, `
		INSERT INTO convocations (id, user_id, title, format, meeting_date, meeting_time, agenda_ids, body)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+convocationColumns,
		item.ID, item.UserID, item.Title, item.Format, item.MeetingDate, item.MeetingTime, agendaIDs, item.Body))
	if err != nil {
		return Convocation{}, fmt.Errorf("insert convocation: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) ListConvocations(ctx context.Context, userID string) ([]Convocation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+convocationColumns+` FROM convocations WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list convocations: %w", err)
	}
	defer rows.Close()

	items := make([]Convocation, 0)
	for rows.Next() {
		item, err := scanConvocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan convocation: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate convocations: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetConvocation(ctx context.Context, userID, convocationID string) (Convocation, error) {
	return scanConvocation(s.db.QueryRowContext(ctx, `SELECT `+convocationColumns+` FROM convocations WHERE user_id = $1 AND id = $2`, userID, convocationID))
}

func (s *PostgresStore) MarkConvocationSent(ctx context.Context, userID, convocationID string, sentAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `UPDATE convocations SET sent_at = $3 WHERE user_id = $1 AND id = $2`, userID, convocationID, sentAt)
	if err != nil {
		return fmt.Errorf("mark convocation sent: %w", err)
	}
	return expectAffected(result, "mark convocation sent")
}

// Minutes

const minutesColumns = `id, user_id, session_number, session_type, meeting_date, meeting_time, mode,
	audio_key, agenda_key, agenda_text, transcript, agenda_ids, attendance, wizard_items,
	draft, error_message, status, created_at, updated_at`

func scanMinutes(row rowScanner) (Minutes, error) {
	var (
		m           Minutes
		agendaIDs   []byte
		attendance  []byte
		wizardItems []byte
	)
	err := row.Scan(&m.ID, &m.UserID, &m.SessionNumber, &m.SessionType, &m.MeetingDate, &m.MeetingTime, &m.Mode,
		&m.AudioKey, &m.AgendaKey, &m.AgendaText, &m.Transcript, &agendaIDs, &attendance, &wizardItems,
		&m.Draft, &m.ErrorMessage, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return Minutes{}, err
	}
	if err := json.Unmarshal(agendaIDs, &m.AgendaIDs); err != nil {
		return Minutes{}, fmt.Errorf("decode minutes agenda ids: %w", err)
	}
	if err := json.Unmarshal(attendance, &m.Attendance); err != nil {
		return Minutes{}, fmt.Errorf("decode minutes attendance: %w", err)
	}
	if len(wizardItems) > 0 {
		m.WizardItems = json.RawMessage(wizardItems)
	}
	return m, nil
}

func marshalIDs(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode ids: %w", err)
	}
	return data, nil
}

func marshalAttendance(items []Attendance) ([]byte, error) {
	if items == nil {
		items = []Attendance{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode attendance: %w", err)
	}
	return data, nil
}

// nullableJSON keeps an absent raw message as SQL NULL.
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func (s *PostgresStore) CreateMinutes(ctx context.Context, item Minutes) (Minutes, error) {
	agendaIDs, err := marshalIDs(item.AgendaIDs)
	if err != nil {
		return Minutes{}, err
	}
	attendance, err := marshalAttendance(item.Attendance)
	if err != nil {
		return Minutes{}, err
	}
	if item.Status == "" {
		item.Status = MinutesPending
	}
	created, err := scanMinutes(s.db.QueryRowContext(ctx, `
		INSERT INTO minutes (id, user_id, session_number, session_type, meeting_date, meeting_time, mode,
			audio_key, agenda_key, agenda_text, transcript, agenda_ids, attendance, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+minutesColumns,
		item.ID, item.UserID, item.SessionNumber, item.SessionType, item.MeetingDate, item.MeetingTime, item.Mode,
		item.AudioKey, item.AgendaKey, item.AgendaText, item.Transcript, agendaIDs, attendance, item.Status))
	if err != nil {
		return Minutes{}, fmt.Errorf("insert minutes: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) ListMinutes(ctx context.Context, userID string) ([]Minutes, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+minutesColumns+` FROM minutes WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list minutes: %w", err)
	}
	defer rows.Close()

	items := make([]Minutes, 0)
	for rows.Next() {
		item, err := scanMinutes(rows)
		if err != nil {
			return nil, fmt.Errorf("scan minutes: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate minutes: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetMinutes(ctx context.Context, userID, minutesID string) (Minutes, error) {
	return scanMinutes(s.db.QueryRowContext(ctx, `SELECT `+minutesColumns+` FROM minutes WHERE user_id = $1 AND id = $2`, userID, minutesID))
}

// GetMinutesByID loads a record without owner scoping, for background jobs.
func (s *PostgresStore) GetMinutesByID(ctx context.Context, minutesID string) (Minutes, error) {
	return scanMinutes(s.db.QueryRowContext(ctx, `SELECT `+minutesColumns+` FROM minutes WHERE id = $1`, minutesID))
}

// UpdateMinutesMetadata rewrites the session fields and attendance list.
func (s *PostgresStore) UpdateMinutesMetadata(ctx context.Context, item Minutes) (Minutes, error) {
	attendance, err := marshalAttendance(item.Attendance)
	if err != nil {
		return Minutes{}, err
	}
	return scanMinutes(s.db.QueryRowContext(ctx, `
		UPDATE minutes
		SET session_number = $3, session_type = $4, meeting_date = $5, meeting_time = $6,
			attendance = $7, updated_at = NOW()
		WHERE user_id = $1 AND id = $2
		RETURNING `+minutesColumns,
		item.UserID, item.ID, item.SessionNumber, item.SessionType, item.MeetingDate, item.MeetingTime, attendance))
}

func (s *PostgresStore) SetMinutesStatus(ctx context.Context, minutesID, status, errorMessage string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE minutes SET status = $2, error_message = $3, updated_at = NOW() WHERE id = $1
	`, minutesID, status, errorMessage)
	if err != nil {
		return fmt.Errorf("set minutes status: %w", err)
	}
	return expectAffected(result, "set minutes status")
}

// SaveDraft stores text produced by processing, the wizard or the editor.
// Wizard items are only replaced when the update carries them.
func (s *PostgresStore) SaveDraft(ctx context.Context, minutesID string, update DraftUpdate) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE minutes
		SET draft = $2, wizard_items = COALESCE($3, wizard_items), error_message = $4, status = $5, updated_at = NOW()
		WHERE id = $1
	`, minutesID, update.Draft, nullableJSON(update.WizardItems), update.ErrorMessage, update.Status)
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return expectAffected(result, "save draft")
}

func (s *PostgresStore) DeleteMinutes(ctx context.Context, userID, minutesID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM minutes WHERE user_id = $1 AND id = $2`, userID, minutesID)
	if err != nil {
		return fmt.Errorf("delete minutes: %w", err)
	}
	return expectAffected(result, "delete minutes")
}

// SearchMinutes is the ILIKE fallback used when the search engine is down.
func (s *PostgresStore) SearchMinutes(ctx context.Context, userID, query string, limit, offset int) ([]Minutes, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+minutesColumns+` FROM minutes
		WHERE user_id = $1 AND (session_number ILIKE $2 OR draft ILIKE $2 OR transcript ILIKE $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, userID, pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("search minutes: %w", err)
	}
	defer rows.Close()

	items := make([]Minutes, 0)
	for rows.Next() {
		item, err := scanMinutes(rows)
		if err != nil {
			return nil, fmt.Errorf("scan minutes: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate minutes: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) SearchAgenda(ctx context.Context, userID, query string, limit, offset int) ([]AgendaEntry, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+agendaColumns+` FROM agenda_entries
		WHERE user_id = $1 AND (topic ILIKE $2 OR description ILIKE $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, userID, pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("search agenda: %w", err)
	}
	return s.collectAgenda(rows)
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
