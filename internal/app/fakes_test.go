package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"atas/api/internal/config"
	"atas/api/internal/email"
	"atas/api/internal/export"
	"atas/api/internal/gitrepo"
	"atas/api/internal/session"
	"atas/api/internal/storage"
	"atas/api/internal/store"
)

// memoryData is an in-memory dataStore keyed by record ID.
type memoryData struct {
	mu           sync.Mutex
	users        map[string]store.User
	resets       map[string]string
	members      map[string]store.Member
	agenda       map[string]store.AgendaEntry
	convocations map[string]store.Convocation
	minutes      map[string]store.Minutes
	statuses     []string
	pingErr      error
}

func newMemoryData() *memoryData {
	return &memoryData{
		users:        map[string]store.User{},
		resets:       map[string]string{},
		members:      map[string]store.Member{},
		agenda:       map[string]store.AgendaEntry{},
		convocations: map[string]store.Convocation{},
		minutes:      map[string]store.Minutes{},
	}
}

func (m *memoryData) GetUserByEmail(_ context.Context, addr string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == addr {
			return u, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (m *memoryData) CreateUser(_ context.Context, user store.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *memoryData) UpdateUserPassword(_ context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = hash
	m.users[userID] = u
	return nil
}

func (m *memoryData) CreatePasswordReset(_ context.Context, userID, tokenHash string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[tokenHash] = userID
	return nil
}

func (m *memoryData) GetPasswordReset(_ context.Context, tokenHash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.resets[tokenHash]
	if !ok {
		return "", sql.ErrNoRows
	}
	return userID, nil
}

func (m *memoryData) MarkPasswordResetUsed(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.resets, tokenHash)
	return nil
}

func (m *memoryData) GetUserByID(_ context.Context, id string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (m *memoryData) ListMembers(_ context.Context, userID string) ([]store.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.Member{}
	for _, item := range m.members {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryData) GetMember(_ context.Context, userID, id string) (store.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.members[id]
	if !ok || item.UserID != userID {
		return store.Member{}, sql.ErrNoRows
	}
	return item, nil
}

func (m *memoryData) CreateMember(_ context.Context, item store.Member) (store.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[item.ID] = item
	return item, nil
}

func (m *memoryData) UpdateMember(_ context.Context, item store.Member) (store.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.members[item.ID]; !ok || current.UserID != item.UserID {
		return store.Member{}, sql.ErrNoRows
	}
	m.members[item.ID] = item
	return item, nil
}

func (m *memoryData) DeleteMember(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.members[id]; !ok || current.UserID != userID {
		return sql.ErrNoRows
	}
	delete(m.members, id)
	return nil
}

func (m *memoryData) ListAgenda(_ context.Context, userID, status string) ([]store.AgendaEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.AgendaEntry{}
	for _, item := range m.agenda {
		if item.UserID == userID && (status == "" || item.Status == status) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out, nil
}

func (m *memoryData) GetAgendaEntries(_ context.Context, userID string, ids []string) ([]store.AgendaEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.AgendaEntry{}
	for _, id := range ids {
		if item, ok := m.agenda[id]; ok && item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memoryData) GetAgendaEntry(_ context.Context, userID, id string) (store.AgendaEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.agenda[id]
	if !ok || item.UserID != userID {
		return store.AgendaEntry{}, sql.ErrNoRows
	}
	return item, nil
}

func (m *memoryData) CreateAgendaEntry(_ context.Context, item store.AgendaEntry) (store.AgendaEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agenda[item.ID] = item
	return item, nil
}

func (m *memoryData) UpdateAgendaEntry(_ context.Context, item store.AgendaEntry) (store.AgendaEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.agenda[item.ID]; !ok || current.UserID != item.UserID {
		return store.AgendaEntry{}, sql.ErrNoRows
	}
	m.agenda[item.ID] = item
	return item, nil
}

func (m *memoryData) DeleteAgendaEntry(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.agenda[id]; !ok || current.UserID != userID {
		return sql.ErrNoRows
	}
	delete(m.agenda, id)
	return nil
}

func (m *memoryData) CreateConvocation(_ context.Context, item store.Convocation) (store.Convocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convocations[item.ID] = item
	return item, nil
}

func (m *memoryData) ListConvocations(_ context.Context, userID string) ([]store.Convocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.Convocation{}
	for _, item := range m.convocations {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memoryData) GetConvocation(_ context.Context, userID, id string) (store.Convocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.convocations[id]
	if !ok || item.UserID != userID {
		return store.Convocation{}, sql.ErrNoRows
	}
	return item, nil
}

func (m *memoryData) MarkConvocationSent(_ context.Context, userID, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.convocations[id]
	if !ok || item.UserID != userID {
		return sql.ErrNoRows
	}
	item.SentAt = &at
	m.convocations[id] = item
	return nil
}

func (m *memoryData) CreateMinutes(_ context.Context, item store.Minutes) (store.Minutes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.minutes[item.ID] = item
	return item, nil
}

func (m *memoryData) ListMinutes(_ context.Context, userID string) ([]store.Minutes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.Minutes{}
	for _, item := range m.minutes {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memoryData) GetMinutes(_ context.Context, userID, id string) (store.Minutes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.minutes[id]
	if !ok || item.UserID != userID {
		return store.Minutes{}, sql.ErrNoRows
	}
	return item, nil
}

func (m *memoryData) UpdateMinutesMetadata(_ context.Context, in store.Minutes) (store.Minutes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.minutes[in.ID]
	if !ok || item.UserID != in.UserID {
		return store.Minutes{}, sql.ErrNoRows
	}
	item.SessionNumber = in.SessionNumber
	item.SessionType = in.SessionType
	item.MeetingDate = in.MeetingDate
	item.MeetingTime = in.MeetingTime
	item.Attendance = in.Attendance
	m.minutes[in.ID] = item
	return item, nil
}

func (m *memoryData) SetMinutesStatus(_ context.Context, id, status, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.minutes[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.Status = status
	item.ErrorMessage = message
	m.minutes[id] = item
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *memoryData) SaveDraft(_ context.Context, id string, update store.DraftUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.minutes[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.Draft = update.Draft
	item.Status = update.Status
	item.ErrorMessage = update.ErrorMessage
	if update.WizardItems != nil {
		item.WizardItems = update.WizardItems
	}
	m.minutes[id] = item
	return nil
}

func (m *memoryData) DeleteMinutes(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.minutes[id]; !ok || current.UserID != userID {
		return sql.ErrNoRows
	}
	delete(m.minutes, id)
	return nil
}

func (m *memoryData) Ping(context.Context) error { return m.pingErr }

type recordingQueue struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (q *recordingQueue) Enqueue(_ context.Context, minutesID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, minutesID)
	return nil
}

// mailbox records delivered messages; addresses in reject fail.
type mailbox struct {
	mu     sync.Mutex
	to     []string
	reject map[string]struct{}
}

func (b *mailbox) DialAndSend(messages ...*gomail.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range messages {
		for _, to := range m.GetHeader("To") {
			for addr := range b.reject {
				if strings.Contains(to, addr) {
					return errBoom
				}
			}
			b.to = append(b.to, to)
		}
	}
	return nil
}

type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	pingErr error
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}}
}

func (m *memoryObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryObjects) Ping(context.Context) error { return m.pingErr }

type testEnv struct {
	data     *memoryData
	queue    *recordingQueue
	objects  *memoryObjects
	sessions *session.MemoryStore
	service  *Service
	server   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Config{
		JWTSecret:  "test-secret",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		WizardTTL:  time.Hour,
		AppURL:     "http://localhost:5173",
	}
	env := &testEnv{
		data:     newMemoryData(),
		queue:    &recordingQueue{},
		objects:  newMemoryObjects(),
		sessions: session.NewMemoryStore(),
	}
	env.service = New(cfg, Deps{
		Store:    env.data,
		Sessions: env.sessions,
		Wizards:  env.sessions,
		Git:      gitrepo.New(t.TempDir()),
		Objects:  storage.NewService(env.objects),
		Exporter: export.NewService(time.Minute, nil),
		Mailer:   email.NewService(email.Config{}, nil),
		Queue:    env.queue,
	}, nil)
	env.server = NewHTTPServer(env.service, "*", nil).Handler()
	return env
}

// signUp creates an account through the API and returns its access token.
func (e *testEnv) signUp(t *testing.T, addr string) string {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email":     addr,
		"password":  "segredo-forte",
		"fullName":  "Maria Secretária",
		"committee": "Colegiado de Computação",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	payload := decode(t, rr)
	token, _ := payload["accessToken"].(string)
	require.NotEmpty(t, token)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload), rr.Body.String())
	return payload
}

var errBoom = errors.New("boom")
