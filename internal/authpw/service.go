// Package authpw provides email/password accounts for committee secretaries.
package authpw

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"atas/api/internal/auth"
	"atas/api/internal/rbac"
	"atas/api/internal/store"
	"atas/api/internal/util"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

const resetTTL = time.Hour

// UserStore defines the storage interface for auth
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	CreateUser(ctx context.Context, user store.User) error
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
	CreatePasswordReset(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	GetPasswordReset(ctx context.Context, tokenHash string) (string, error)
	MarkPasswordResetUsed(ctx context.Context, tokenHash string) error
}

type Service struct {
	store  UserStore
	logger *zap.Logger
	cost   int
}

func NewService(store UserStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, cost: bcrypt.DefaultCost}
}

type SignUpRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FullName  string `json:"fullName"`
	Position  string `json:"position"`
	Committee string `json:"committee"`
}

func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required, validation.RuneLength(8, 128)),
		validation.Field(&r.FullName, validation.Required, validation.RuneLength(3, 100)),
		validation.Field(&r.Position, validation.RuneLength(0, 100)),
		validation.Field(&r.Committee, validation.RuneLength(0, 200)),
	)
}

// SignUp creates a secretary account and returns it.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (store.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if err := req.Validate(); err != nil {
		return store.User{}, err
	}

	_, err := s.store.GetUserByEmail(ctx, req.Email)
	if err == nil {
		return store.User{}, ErrEmailTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return store.User{}, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := store.User{
		ID:           util.NewID("usr"),
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Position:     strings.TrimSpace(req.Position),
		Committee:    strings.TrimSpace(req.Committee),
		Role:         string(rbac.RoleSecretary),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user signed up", zap.String("user_id", user.ID))
	return user, nil
}

// SignIn checks the credentials. Unknown emails and wrong passwords fail the
// same way.
func (s *Service) SignIn(ctx context.Context, email, password string) (store.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return store.User{}, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return store.User{}, fmt.Errorf("lookup email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// RequestPasswordReset returns a one-hour reset token, or "" when the email
// is unknown so callers cannot probe for accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup email: %w", err)
	}

	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.store.CreatePasswordReset(ctx, user.ID, auth.HashToken(token), time.Now().Add(resetTTL)); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validation.Validate(newPassword, validation.Required, validation.RuneLength(8, 128)); err != nil {
		return validation.Errors{"password": err}
	}
	if strings.TrimSpace(token) == "" {
		return ErrInvalidResetToken
	}

	tokenHash := auth.HashToken(token)
	userID, err := s.store.GetPasswordReset(ctx, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("lookup reset token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdateUserPassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.store.MarkPasswordResetUsed(ctx, tokenHash); err != nil {
		s.logger.Warn("mark password reset used", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
