package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"atas/api/internal/auth"
	"atas/api/internal/authpw"
	"atas/api/internal/config"
	"atas/api/internal/email"
	"atas/api/internal/export"
	"atas/api/internal/gitrepo"
	"atas/api/internal/search"
	"atas/api/internal/storage"
	"atas/api/internal/store"
	"atas/api/internal/util"
	"atas/api/internal/wizard"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         string
	Committee    string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	authpw.UserStore
	GetUserByID(context.Context, string) (store.User, error)

	ListMembers(context.Context, string) ([]store.Member, error)
	GetMember(context.Context, string, string) (store.Member, error)
	CreateMember(context.Context, store.Member) (store.Member, error)
	UpdateMember(context.Context, store.Member) (store.Member, error)
	DeleteMember(context.Context, string, string) error

	ListAgenda(context.Context, string, string) ([]store.AgendaEntry, error)
	GetAgendaEntries(context.Context, string, []string) ([]store.AgendaEntry, error)
	GetAgendaEntry(context.Context, string, string) (store.AgendaEntry, error)
	CreateAgendaEntry(context.Context, store.AgendaEntry) (store.AgendaEntry, error)
	UpdateAgendaEntry(context.Context, store.AgendaEntry) (store.AgendaEntry, error)
	DeleteAgendaEntry(context.Context, string, string) error

	CreateConvocation(context.Context, store.Convocation) (store.Convocation, error)
	ListConvocations(context.Context, string) ([]store.Convocation, error)
	GetConvocation(context.Context, string, string) (store.Convocation, error)
	MarkConvocationSent(context.Context, string, string, time.Time) error

	CreateMinutes(context.Context, store.Minutes) (store.Minutes, error)
	ListMinutes(context.Context, string) ([]store.Minutes, error)
	GetMinutes(context.Context, string, string) (store.Minutes, error)
	UpdateMinutesMetadata(context.Context, store.Minutes) (store.Minutes, error)
	SetMinutesStatus(context.Context, string, string, string) error
	SaveDraft(context.Context, string, store.DraftUpdate) error
	DeleteMinutes(context.Context, string, string) error

	Ping(context.Context) error
}

// sessionStore holds hashed refresh tokens (Redis, or Postgres without it).
type sessionStore interface {
	SaveRefreshSession(context.Context, string, string, time.Time) error
	LookupRefreshSession(context.Context, string) (string, error)
	RevokeRefreshSession(context.Context, string) error
}

type wizardStore interface {
	SaveWizard(context.Context, string, *wizard.Session, time.Duration) error
	LoadWizard(context.Context, string) (*wizard.Session, error)
	DeleteWizard(context.Context, string) error
}

type gitService interface {
	Commit(string, gitrepo.Content, string, string) (gitrepo.CommitInfo, bool, error)
	History(string, int) ([]gitrepo.CommitInfo, error)
	Revision(string, string) (gitrepo.Content, gitrepo.CommitInfo, string, error)
	Remove(string) error
}

type objectService interface {
	Store(context.Context, storage.Upload, io.Reader) (storage.Object, error)
	Ping(context.Context) error
}

type searchService interface {
	Search(context.Context, search.Query) search.Response
	IndexMinutes(search.MinutesRecord)
	IndexAgenda(search.AgendaRecord)
	DeleteMinutes(string)
	DeleteAgenda(string)
}

type exporter interface {
	Export(context.Context, export.Request, export.Format) (*export.Result, error)
	Invalidate(string)
}

type mailer interface {
	IsConfigured() bool
	SendConvocation([]email.Recipient, string, string) (int, error)
	SendPasswordReset(email.Recipient, string) error
}

type jobQueue interface {
	Enqueue(context.Context, string) error
}

// Deps are the collaborators of Service. Objects, Search, Mailer and Queue
// may be nil; the features behind them then report unavailable.
type Deps struct {
	Store    dataStore
	Sessions sessionStore
	Wizards  wizardStore
	Git      gitService
	Objects  objectService
	Search   searchService
	Exporter exporter
	Mailer   mailer
	Queue    jobQueue
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  sessionStore
	wizards   wizardStore
	git       gitService
	objects   objectService
	search    searchService
	exporter  exporter
	mailer    mailer
	queue     jobQueue
	passwords *authpw.Service
	logger    *zap.Logger
	now       func() time.Time
}

func New(cfg config.Config, deps Deps, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	sessions := deps.Sessions
	if fallback, ok := deps.Store.(sessionStore); ok && sessions == nil {
		sessions = fallback
	}
	return &Service{
		cfg:       cfg,
		store:     deps.Store,
		sessions:  sessions,
		wizards:   deps.Wizards,
		git:       deps.Git,
		objects:   deps.Objects,
		search:    deps.Search,
		exporter:  deps.Exporter,
		mailer:    deps.Mailer,
		queue:     deps.Queue,
		passwords: authpw.NewService(deps.Store, logger),
		logger:    logger.Named("app"),
		now:       time.Now,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// PingStorage reports object storage health; nil when storage is disabled.
func (s *Service) PingStorage(ctx context.Context) (bool, error) {
	if s.objects == nil {
		return false, nil
	}
	return true, s.objects.Ping(ctx)
}

// Sessions

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (Session, error) {
	user, err := s.passwords.SignUp(ctx, req)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("account created", zap.String("user_id", user.ID))
	return s.issueSession(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, emailAddr, password string) (Session, error) {
	user, err := s.passwords.SignIn(ctx, emailAddr, password)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

// RequestPasswordReset mails a reset link when SMTP is configured. The token
// is returned so development setups without SMTP can still reset.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) (string, error) {
	token, err := s.passwords.RequestPasswordReset(ctx, emailAddr)
	if err != nil || token == "" {
		return "", err
	}
	if s.SMTPConfigured() {
		link := strings.TrimRight(s.cfg.AppURL, "/") + "/redefinir-senha?token=" + token
		if err := s.mailer.SendPasswordReset(email.Recipient{Email: emailAddr}, link); err != nil {
			s.logger.Error("send password reset", zap.Error(err))
		}
	}
	return token, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	return s.passwords.ResetPassword(ctx, token, newPassword)
}

func (s *Service) SMTPConfigured() bool {
	return s.mailer != nil && s.mailer.IsConfigured()
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return Session{}, auth.ErrInvalidToken
	}
	tokenHash := auth.HashToken(refreshToken)
	userID, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		s.logger.Debug("refresh lookup failed", zap.Error(err))
		return Session{}, auth.ErrInvalidToken
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.FullName,
		Role: user.Role,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, now.Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.FullName,
		Role:         user.Role,
		Committee:    user.Committee,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.FullName,
		Role:      user.Role,
		Committee: user.Committee,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Me(ctx context.Context, session Session) (store.User, error) {
	return s.store.GetUserByID(ctx, session.UserID)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
}

// Members

func (s *Service) ListMembers(ctx context.Context, userID string) ([]store.Member, error) {
	return s.store.ListMembers(ctx, userID)
}

func (s *Service) GetMember(ctx context.Context, userID, memberID string) (store.Member, error) {
	return s.store.GetMember(ctx, userID, memberID)
}

func (s *Service) CreateMember(ctx context.Context, userID string, in MemberInput) (store.Member, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return store.Member{}, err
	}
	return s.store.CreateMember(ctx, store.Member{
		ID:     util.NewID("mbr"),
		UserID: userID,
		Name:   in.Name,
		Email:  in.Email,
		Role:   in.Role,
	})
}

func (s *Service) UpdateMember(ctx context.Context, userID, memberID string, in MemberInput) (store.Member, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return store.Member{}, err
	}
	return s.store.UpdateMember(ctx, store.Member{
		ID:     memberID,
		UserID: userID,
		Name:   in.Name,
		Email:  in.Email,
		Role:   in.Role,
	})
}

func (s *Service) DeleteMember(ctx context.Context, userID, memberID string) error {
	return s.store.DeleteMember(ctx, userID, memberID)
}

// Agenda

func (s *Service) ListAgenda(ctx context.Context, userID, status string) ([]store.AgendaEntry, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	switch status {
	case "", store.AgendaPending, store.AgendaDiscussed, store.AgendaApproved:
	default:
		return nil, invalid("status", "must be one of PENDENTE, DISCUTIDA, APROVADA")
	}
	return s.store.ListAgenda(ctx, userID, status)
}

func (s *Service) GetAgendaEntry(ctx context.Context, userID, entryID string) (store.AgendaEntry, error) {
	return s.store.GetAgendaEntry(ctx, userID, entryID)
}

func (s *Service) CreateAgendaEntry(ctx context.Context, userID string, in AgendaInput) (store.AgendaEntry, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return store.AgendaEntry{}, err
	}
	created, err := s.store.CreateAgendaEntry(ctx, store.AgendaEntry{
		ID:             util.NewID("pauta"),
		UserID:         userID,
		Topic:          in.Topic,
		Description:    in.Description,
		PlannedMeeting: in.PlannedMeeting,
		Status:         in.Status,
	})
	if err != nil {
		return store.AgendaEntry{}, err
	}
	s.indexAgenda(created)
	return created, nil
}

func (s *Service) UpdateAgendaEntry(ctx context.Context, userID, entryID string, in AgendaInput) (store.AgendaEntry, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return store.AgendaEntry{}, err
	}
	updated, err := s.store.UpdateAgendaEntry(ctx, store.AgendaEntry{
		ID:             entryID,
		UserID:         userID,
		Topic:          in.Topic,
		Description:    in.Description,
		PlannedMeeting: in.PlannedMeeting,
		Status:         in.Status,
	})
	if err != nil {
		return store.AgendaEntry{}, err
	}
	s.indexAgenda(updated)
	return updated, nil
}

func (s *Service) DeleteAgendaEntry(ctx context.Context, userID, entryID string) error {
	if err := s.store.DeleteAgendaEntry(ctx, userID, entryID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteAgenda(entryID)
	}
	return nil
}

func (s *Service) indexAgenda(entry store.AgendaEntry) {
	if s.search != nil {
		s.search.IndexAgenda(search.AgendaRecordFrom(entry))
	}
}

// Search

func (s *Service) Search(ctx context.Context, userID, text, kind string, limit, offset int) (search.Response, error) {
	filter := search.ResultType(strings.ToLower(strings.TrimSpace(kind)))
	switch filter {
	case "", search.ResultMinutes, search.ResultAgenda:
	default:
		return search.Response{}, invalid("type", "must be minutes or agenda")
	}
	text = strings.TrimSpace(text)
	if text == "" || s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text, Engine: "none"}, nil
	}
	return s.search.Search(ctx, search.Query{
		Text:       text,
		UserID:     userID,
		FilterType: filter,
		Limit:      limit,
		Offset:     offset,
	}), nil
}

// Uploads

func (s *Service) Upload(ctx context.Context, userID string, kind storage.Kind, filename string, size int64, body io.Reader) (storage.Object, error) {
	if s.objects == nil {
		return storage.Object{}, domainError(http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Object storage is not configured", nil)
	}
	object, err := s.objects.Store(ctx, storage.Upload{Kind: kind, UserID: userID, Filename: filename, Size: size}, body)
	if err != nil {
		return storage.Object{}, err
	}
	s.logger.Info("file uploaded", zap.String("user_id", userID), zap.String("key", object.Key), zap.Int64("size", object.Size))
	return object, nil
}

func marshalItems(items []wizard.DraftItem) (json.RawMessage, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal wizard items: %w", err)
	}
	return data, nil
}
