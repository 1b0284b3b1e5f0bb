package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"atas/api/internal/authpw"
	"atas/api/internal/metrics"
	"atas/api/internal/minutes"
	"atas/api/internal/rbac"
	"atas/api/internal/storage"
)

const (
	maxJSONBody     = 2 << 20
	multipartMemory = 32 << 20
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     *zap.Logger
}

func NewHTTPServer(service *Service, corsOrigin string, logger *zap.Logger) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPServer{service: service, corsOrigin: corsOrigin, logger: logger.Named("http")}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	isRead := r.Method == http.MethodGet || r.Method == http.MethodHead
	switch {
	case isRead && r.URL.Path == "/api/health":
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	case isRead && r.URL.Path == "/api/ready":
		s.handleReady(w, r)
		return
	case isRead && r.URL.Path == "/metrics":
		metrics.Handler().ServeHTTP(w, r)
		return
	}

	if r.Method == http.MethodPost {
		switch r.URL.Path {
		case "/api/auth/signup":
			s.handleSignUp(w, r)
			return
		case "/api/auth/signin":
			s.handleSignIn(w, r)
			return
		case "/api/auth/reset-password/request":
			s.handleRequestReset(w, r)
			return
		case "/api/auth/reset-password":
			s.handleResetPassword(w, r)
			return
		case "/api/session/refresh":
			s.handleRefresh(w, r)
			return
		case "/api/session/logout":
			s.handleLogout(w, r)
			return
		}
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	switch parts[1] {
	case "me":
		if r.Method == http.MethodGet && len(parts) == 2 {
			s.handleMe(w, r, session)
			return
		}
	case "members":
		s.handleMembers(w, r, session, parts[2:])
		return
	case "agenda":
		s.handleAgenda(w, r, session, parts[2:])
		return
	case "convocations":
		s.handleConvocations(w, r, session, parts[2:])
		return
	case "minutes":
		s.handleMinutes(w, r, session, parts[2:])
		return
	case "uploads":
		if r.Method == http.MethodPost && len(parts) == 3 {
			s.handleUpload(w, r, session, parts[2])
			return
		}
	case "search":
		if r.Method == http.MethodGet && len(parts) == 2 {
			s.handleSearch(w, r, session)
			return
		}
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ready := true
	checks := map[string]any{"database": map[string]any{"status": "ok"}}
	if err := s.service.Ping(ctx); err != nil {
		ready = false
		checks["database"] = map[string]any{"status": "error", "error": err.Error()}
	}
	if enabled, err := s.service.PingStorage(ctx); enabled {
		if err != nil {
			ready = false
			checks["storage"] = map[string]any{"status": "error", "error": err.Error()}
		} else {
			checks["storage"] = map[string]any{"status": "ok"}
		}
	}

	status, statusCode := "ready", http.StatusOK
	if !ready {
		status, statusCode = "not_ready", http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, map[string]any{"ok": ready, "status": status, "checks": checks})
}

// authorize writes a 403 when the session role may not perform action.
func (s *HTTPServer) authorize(w http.ResponseWriter, session Session, action rbac.Action) bool {
	if rbac.Can(rbac.Normalize(session.Role), action) {
		return true
	}
	writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", map[string]string{"action": string(action)})
	return false
}

// actionFor maps a method to the permission it needs.
func actionFor(method string) rbac.Action {
	if method == http.MethodGet || method == http.MethodHead {
		return rbac.ActionRead
	}
	return rbac.ActionWrite
}

// Auth

func (s *HTTPServer) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FullName  string `json:"fullName"`
		Position  string `json:"position"`
		Committee string `json:"committee"`
	}
	if !decodeOrFail(w, r, &body) {
		return
	}
	session, err := s.service.SignUp(r.Context(), authpw.SignUpRequest{
		Email:     body.Email,
		Password:  body.Password,
		FullName:  body.FullName,
		Position:  body.Position,
		Committee: body.Committee,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionView(session))
}

func (s *HTTPServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeOrFail(w, r, &body) {
		return
	}
	session, err := s.service.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(session))
}

func (s *HTTPServer) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !decodeOrFail(w, r, &body) {
		return
	}
	token, err := s.service.RequestPasswordReset(r.Context(), body.Email)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response := map[string]any{"message": "If an account exists, a reset email has been sent"}
	// Without SMTP the token is handed back so local setups can still reset.
	if !s.service.SMTPConfigured() && token != "" {
		response["devResetToken"] = token
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if !decodeOrFail(w, r, &body) {
		return
	}
	if err := s.service.ResetPassword(r.Context(), body.Token, body.NewPassword); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset successfully"})
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeOrFail(w, r, &body) {
		return
	}
	session, err := s.service.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(session))
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = decodeBody(r, &body)
	if err := s.service.Logout(r.Context(), body.RefreshToken); err != nil {
		s.logger.Warn("logout", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request, session Session) {
	user, err := s.service.Me(r.Context(), session)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userView(user))
}

// Members

func (s *HTTPServer) handleMembers(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	if !s.authorize(w, session, actionFor(r.Method)) {
		return
	}
	ctx := r.Context()

	if len(parts) == 0 {
		switch r.Method {
		case http.MethodGet:
			items, err := s.service.ListMembers(ctx, session.UserID)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": listView(items, memberView)})
		case http.MethodPost:
			var in MemberInput
			if !decodeOrFail(w, r, &in) {
				return
			}
			created, err := s.service.CreateMember(ctx, session.UserID, in)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, memberView(created))
		default:
			methodNotAllowed(w)
		}
		return
	}
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}

	memberID := parts[0]
	switch r.Method {
	case http.MethodGet:
		item, err := s.service.GetMember(ctx, session.UserID, memberID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, memberView(item))
	case http.MethodPut:
		var in MemberInput
		if !decodeOrFail(w, r, &in) {
			return
		}
		updated, err := s.service.UpdateMember(ctx, session.UserID, memberID, in)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, memberView(updated))
	case http.MethodDelete:
		if err := s.service.DeleteMember(ctx, session.UserID, memberID); err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

// Agenda

func (s *HTTPServer) handleAgenda(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	if !s.authorize(w, session, actionFor(r.Method)) {
		return
	}
	ctx := r.Context()

	if len(parts) == 0 {
		switch r.Method {
		case http.MethodGet:
			items, err := s.service.ListAgenda(ctx, session.UserID, r.URL.Query().Get("status"))
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": listView(items, agendaView)})
		case http.MethodPost:
			var in AgendaInput
			if !decodeOrFail(w, r, &in) {
				return
			}
			created, err := s.service.CreateAgendaEntry(ctx, session.UserID, in)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, agendaView(created))
		default:
			methodNotAllowed(w)
		}
		return
	}
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}

	entryID := parts[0]
	switch r.Method {
	case http.MethodGet:
		item, err := s.service.GetAgendaEntry(ctx, session.UserID, entryID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, agendaView(item))
	case http.MethodPut:
		var in AgendaInput
		if !decodeOrFail(w, r, &in) {
			return
		}
		updated, err := s.service.UpdateAgendaEntry(ctx, session.UserID, entryID, in)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, agendaView(updated))
	case http.MethodDelete:
		if err := s.service.DeleteAgendaEntry(ctx, session.UserID, entryID); err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

// Convocations

func (s *HTTPServer) handleConvocations(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	ctx := r.Context()
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		if !s.authorize(w, session, rbac.ActionRead) {
			return
		}
		items, err := s.service.ListConvocations(ctx, session.UserID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": listView(items, convocationView)})

	case len(parts) == 0 && r.Method == http.MethodPost:
		if !s.authorize(w, session, rbac.ActionWrite) {
			return
		}
		var in ConvocationInput
		if !decodeOrFail(w, r, &in) {
			return
		}
		created, err := s.service.CreateConvocation(ctx, session.UserID, in)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, convocationView(created))

	case len(parts) == 1 && parts[0] == "preview" && r.Method == http.MethodPost:
		if !s.authorize(w, session, rbac.ActionRead) {
			return
		}
		var in ConvocationInput
		if !decodeOrFail(w, r, &in) {
			return
		}
		text, err := s.service.PreviewConvocation(ctx, session.UserID, in)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"body": text})

	case len(parts) == 2 && parts[1] == "send" && r.Method == http.MethodPost:
		if !s.authorize(w, session, rbac.ActionSend) {
			return
		}
		item, sent, err := s.service.SendConvocation(ctx, session.UserID, parts[0])
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"convocation": convocationView(item), "sent": sent})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

// Search and uploads

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request, session Session) {
	if !s.authorize(w, session, rbac.ActionRead) {
		return
	}
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	response, err := s.service.Search(r.Context(), session.UserID, query.Get("q"), query.Get("type"), limit, offset)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request, session Session, kind string) {
	if !s.authorize(w, session, rbac.ActionWrite) {
		return
	}
	uploadKind := storage.Kind(kind)
	limit, ok := storage.MaxSize(uploadKind)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", "File exceeds the size limit", nil)
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Expected a multipart form with a file field", nil)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Missing file field", nil)
		return
	}
	defer file.Close()

	object, err := s.service.Upload(r.Context(), session.UserID, uploadKind, header.Filename, header.Size, file)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, object)
}

// Minutes

func (s *HTTPServer) handleMinutes(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	ctx := r.Context()

	if len(parts) == 0 {
		if !s.authorize(w, session, actionFor(r.Method)) {
			return
		}
		switch r.Method {
		case http.MethodGet:
			items, err := s.service.ListMinutes(ctx, session.UserID)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": listView(items, minutesSummary)})
		case http.MethodPost:
			if !s.authorize(w, session, rbac.ActionProcess) {
				return
			}
			var in MinutesInput
			if !decodeOrFail(w, r, &in) {
				return
			}
			created, err := s.service.CreateMinutes(ctx, session, in)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, minutesView(created))
		default:
			methodNotAllowed(w)
		}
		return
	}

	if parts[0] == "preview" && len(parts) == 1 {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		var body struct {
			Text string `json:"text"`
		}
		if !decodeOrFail(w, r, &body) {
			return
		}
		writeJSON(w, http.StatusOK, s.service.Preview(body.Text))
		return
	}

	minutesID := parts[0]
	if len(parts) == 1 {
		s.handleMinutesRecord(w, r, session, minutesID)
		return
	}

	switch parts[1] {
	case "document":
		s.handleDocument(w, r, session, minutesID, parts[2:])
	case "history":
		s.handleHistory(w, r, session, minutesID, parts[2:])
	case "export":
		s.handleExport(w, r, session, minutesID, parts[2:])
	case "process":
		if r.Method != http.MethodPost || len(parts) != 2 {
			methodNotAllowed(w)
			return
		}
		if !s.authorize(w, session, rbac.ActionProcess) {
			return
		}
		record, err := s.service.Reprocess(ctx, session.UserID, minutesID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, minutesSummary(record))
	case "wizard":
		s.handleWizard(w, r, session, minutesID, parts[2:])
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) handleMinutesRecord(w http.ResponseWriter, r *http.Request, session Session, minutesID string) {
	if !s.authorize(w, session, actionFor(r.Method)) {
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		record, err := s.service.GetMinutes(ctx, session.UserID, minutesID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, minutesView(record))
	case http.MethodPut:
		var in MinutesUpdate
		if !decodeOrFail(w, r, &in) {
			return
		}
		updated, err := s.service.UpdateMinutes(ctx, session, minutesID, in)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, minutesView(updated))
	case http.MethodDelete:
		if err := s.service.DeleteMinutes(ctx, session.UserID, minutesID); err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (s *HTTPServer) handleDocument(w http.ResponseWriter, r *http.Request, session Session, minutesID string, rest []string) {
	if len(rest) != 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}
	if !s.authorize(w, session, actionFor(r.Method)) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		view, err := s.service.Document(r.Context(), session.UserID, minutesID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case http.MethodPut:
		var doc minutes.Document
		if !decodeOrFail(w, r, &doc) {
			return
		}
		saved, err := s.service.SaveDocument(r.Context(), session, minutesID, doc)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		methodNotAllowed(w)
	}
}

func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request, session Session, minutesID string, rest []string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if !s.authorize(w, session, rbac.ActionRead) {
		return
	}
	switch len(rest) {
	case 0:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		commits, err := s.service.History(r.Context(), session.UserID, minutesID, limit)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"commits": commits})
	case 1:
		view, err := s.service.Revision(r.Context(), session.UserID, minutesID, rest[0])
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, session Session, minutesID string, rest []string) {
	if r.Method != http.MethodGet || len(rest) != 0 {
		methodNotAllowed(w)
		return
	}
	if !s.authorize(w, session, rbac.ActionRead) {
		return
	}
	result, err := s.service.Export(r.Context(), session, minutesID, r.URL.Query().Get("format"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

// Plumbing

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	return session, true
}

// fail maps err to a response; server errors are logged with the request ID.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", requestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", id)

		next.ServeHTTP(writer, r)

		elapsed := time.Since(started)
		route := routeLabel(r.URL.Path)
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(writer.status)).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		s.logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
		)
	})
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// routeLabel replaces record IDs so metrics keep a bounded label set.
func routeLabel(path string) string {
	parts := splitPath(path)
	for i := range parts {
		if i < 2 {
			continue
		}
		switch parts[i-1] {
		case "members", "agenda", "convocations", "minutes", "history", "fragments":
			if parts[i] != "preview" {
				parts[i] = "{id}"
			}
		}
	}
	return "/" + strings.Join(parts, "/")
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBody))
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func decodeOrFail(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeBody(r, target); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
