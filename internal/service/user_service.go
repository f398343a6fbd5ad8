package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/duthaho/trello-clone-sub000/internal/auth"
	dom "github.com/duthaho/trello-clone-sub000/internal/domain"
	"github.com/duthaho/trello-clone-sub000/internal/repo"
)

const (
	minPasswordLen = 8
	// bcrypt refuses longer input.
	maxPasswordBytes = 72
)

// RefreshTokenStore keeps the set of live refresh tokens.
type RefreshTokenStore interface {
	Save(ctx context.Context, userID int64, jti string) error
	Consume(ctx context.Context, jti string) (int64, error)
	Revoke(ctx context.Context, jti string) error
	RevokeAll(ctx context.Context, userID int64) error
}

// UserService handles accounts and token issuing.
type UserService struct {
	repo     repo.UserRepo
	tokens   *auth.TokenManager
	sessions RefreshTokenStore
	log      *zap.SugaredLogger
}

// NewUserService returns a new UserService.
func NewUserService(r repo.UserRepo, tokens *auth.TokenManager, sessions RefreshTokenStore, log *zap.SugaredLogger) *UserService {
	return &UserService{repo: r, tokens: tokens, sessions: sessions, log: log.Named("users")}
}

type RegisterInput struct {
	Email    string
	Username string
	Password string
	FullName string
}

// Register creates an active account and signs it in.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (dom.User, auth.TokenPair, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return dom.User{}, auth.TokenPair{}, err
	}
	username, err := cleanText("username", in.Username, 3, 50)
	if err != nil {
		return dom.User{}, auth.TokenPair{}, err
	}
	fullName, err := cleanText("full_name", in.FullName, 0, 120)
	if err != nil {
		return dom.User{}, auth.TokenPair{}, err
	}
	if err := checkPassword(in.Password); err != nil {
		return dom.User{}, auth.TokenPair{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return dom.User{}, auth.TokenPair{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.repo.Create(ctx, dom.User{
		Email:        email,
		Username:     username,
		FullName:     fullName,
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		return dom.User{}, auth.TokenPair{}, err
	}
	pair, err := s.issue(ctx, u)
	if err != nil {
		return dom.User{}, auth.TokenPair{}, err
	}
	s.log.Infow("user registered", "user_id", u.ID)
	return u, pair, nil
}

// Login checks credentials. Unknown email and wrong password are indistinguishable.
func (s *UserService) Login(ctx context.Context, email, password string) (dom.User, auth.TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return dom.User{}, auth.TokenPair{}, dom.ErrInvalidCredentials
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, dom.ErrNotFound) {
			return dom.User{}, auth.TokenPair{}, dom.ErrInvalidCredentials
		}
		return dom.User{}, auth.TokenPair{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return dom.User{}, auth.TokenPair{}, dom.ErrInvalidCredentials
	}
	if !u.IsActive {
		return dom.User{}, auth.TokenPair{}, dom.ErrInactiveUser
	}
	pair, err := s.issue(ctx, u)
	if err != nil {
		return dom.User{}, auth.TokenPair{}, err
	}
	return u, pair, nil
}

// Refresh trades a refresh token for a new pair. The presented token is
// consumed, so a replay fails.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.TokenRefresh)
	if err != nil {
		return auth.TokenPair{}, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return auth.TokenPair{}, err
	}
	owner, err := s.sessions.Consume(ctx, claims.ID)
	if err != nil {
		return auth.TokenPair{}, err
	}
	if owner != userID {
		return auth.TokenPair{}, fmt.Errorf("%w: refresh token owner mismatch", dom.ErrUnauthorized)
	}
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, dom.ErrNotFound) {
			return auth.TokenPair{}, dom.ErrUnauthorized
		}
		return auth.TokenPair{}, err
	}
	if !u.IsActive {
		return auth.TokenPair{}, dom.ErrInactiveUser
	}
	return s.issue(ctx, u)
}

// Logout revokes the refresh token. Invalid or already revoked tokens are ignored.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.Parse(refreshToken, auth.TokenRefresh)
	if err != nil {
		return nil
	}
	return s.sessions.Revoke(ctx, claims.ID)
}

func (s *UserService) GetByID(ctx context.Context, id int64) (dom.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, id int64, fullName string) (dom.User, error) {
	fullName, err := cleanText("full_name", fullName, 0, 120)
	if err != nil {
		return dom.User{}, err
	}
	return s.repo.UpdateProfile(ctx, id, fullName)
}

// ChangePassword replaces the password and signs out every session.
func (s *UserService) ChangePassword(ctx context.Context, id int64, current, next string) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, current) {
		return dom.ErrInvalidCredentials
	}
	if err := checkPassword(next); err != nil {
		return err
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}
	if err := s.sessions.RevokeAll(ctx, id); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.log.Infow("password changed", "user_id", id)
	return nil
}

func (s *UserService) issue(ctx context.Context, u dom.User) (auth.TokenPair, error) {
	pair, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	if err := s.sessions.Save(ctx, u.ID, pair.RefreshID); err != nil {
		return auth.TokenPair{}, fmt.Errorf("save refresh token: %w", err)
	}
	return pair, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", invalid("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return "", invalid("email is not valid")
	}
	return email, nil
}

func checkPassword(pw string) error {
	if len(pw) < minPasswordLen {
		return invalid("password must be at least %d characters", minPasswordLen)
	}
	if len(pw) > maxPasswordBytes {
		return invalid("password must be at most %d bytes", maxPasswordBytes)
	}
	return nil
}
