package authService

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/KotFed0t/portfolio_tracker/data/repository"
	"github.com/KotFed0t/portfolio_tracker/data/session"
	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/service"
	"github.com/KotFed0t/portfolio_tracker/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type Repository interface {
	InsertUser(ctx context.Context, username, hash string, cash decimal.Decimal) (int64, error)
	FindUserByUsername(ctx context.Context, username string) (model.User, error)
	FindUserByID(ctx context.Context, userID int64) (model.User, error)
	UpdatePasswordHash(ctx context.Context, userID int64, hash string) error
}

type SessionStore interface {
	NewSession(ctx context.Context, s model.Session) (string, error)
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, s model.Session) error
	DeleteSession(ctx context.Context, key string) error
}

type AuthService struct {
	repo        Repository
	sessions    SessionStore
	initialCash decimal.Decimal
	hashCost    int
}

func New(repo Repository, sessions SessionStore, initialCash decimal.Decimal) *AuthService {
	return &AuthService{repo: repo, sessions: sessions, initialCash: initialCash, hashCost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost, tests use bcrypt.MinCost.
func (s *AuthService) WithHashCost(cost int) *AuthService {
	s.hashCost = cost
	return s
}

// Register creates the user with the initial cash balance and returns a fresh session token.
func (s *AuthService) Register(ctx context.Context, username, password, confirmation string) (token string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AuthService.Register"
	username = strings.TrimSpace(username)

	slog.Debug("Register start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	defer func() {
		if err != nil {
			slog.Info("Register rejected", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username), slog.String("err", err.Error()))
		} else {
			slog.Info("Register completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
		}
	}()

	if username == "" || password == "" {
		return "", service.ErrInvalidInput
	}

	if password != confirmation {
		return "", service.ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		// bcrypt rejects passwords longer than 72 bytes
		return "", errors.Join(service.ErrInvalidInput, err)
	}

	userID, err := s.repo.InsertUser(ctx, username, string(hash), s.initialCash)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return "", service.ErrUsernameTaken
		}
		return "", service.StorageFailure(err)
	}

	return s.newSession(ctx, model.Session{UserID: userID, Username: username, Flash: "Registered!"})
}

// Login checks the password and returns a fresh session token. Unknown user and wrong password
// are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (token string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AuthService.Login"
	username = strings.TrimSpace(username)

	slog.Debug("Login start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))

	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", err
	}

	return s.newSession(ctx, model.Session{UserID: user.ID, Username: user.Username})
}

// Authenticate verifies the credentials without creating a session.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (model.User, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AuthService.Authenticate"

	if username == "" || password == "" {
		return model.User{}, service.ErrInvalidInput
	}

	user, err := s.repo.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, service.ErrInvalidCredentials
		}
		slog.Error("got error from repo.FindUserByUsername", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.User{}, service.StorageFailure(err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.Hash), []byte(password)); err != nil {
		slog.Info("wrong password", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
		return model.User{}, service.ErrInvalidCredentials
	}

	return user, nil
}

func (s *AuthService) newSession(ctx context.Context, sess model.Session) (string, error) {
	token, err := s.sessions.NewSession(ctx, sess)
	if err != nil {
		return "", service.StorageFailure(err)
	}
	return token, nil
}

// Logout forgets the token. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, token); err != nil {
		return service.StorageFailure(err)
	}
	return nil
}

// RequireSession resolves a session token to its session, or ErrUnauthenticated.
func (s *AuthService) RequireSession(ctx context.Context, token string) (model.Session, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AuthService.RequireSession"

	if token == "" {
		return model.Session{}, service.ErrUnauthenticated
	}

	sess, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return model.Session{}, service.ErrUnauthenticated
		}
		slog.Error("got error from sessions.GetSession", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Session{}, service.StorageFailure(err)
	}

	if !sess.Authenticated() {
		return model.Session{}, service.ErrUnauthenticated
	}

	return sess, nil
}

// BindSession stores sess under an externally chosen key, e.g. a chat id.
func (s *AuthService) BindSession(ctx context.Context, key string, sess model.Session) error {
	if err := s.sessions.SetSession(ctx, key, sess); err != nil {
		return service.StorageFailure(err)
	}
	return nil
}

// ChangePassword replaces the hash after checking the current password.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, current, password, confirmation string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AuthService.ChangePassword"

	slog.Debug("ChangePassword start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	defer func() {
		if err != nil {
			slog.Info("ChangePassword rejected", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Info("ChangePassword completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
		}
	}()

	if current == "" || password == "" {
		return service.ErrInvalidInput
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.Hash), []byte(current)); err != nil {
		return service.ErrInvalidCredentials
	}

	if password != confirmation {
		return service.ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return errors.Join(service.ErrInvalidInput, err)
	}

	if err = s.repo.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		return service.StorageFailure(err)
	}

	return nil
}

func (s *AuthService) GetUser(ctx context.Context, userID int64) (model.User, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, service.ErrUnauthenticated
		}
		return model.User{}, service.StorageFailure(err)
	}
	return user, nil
}

// AddFlash stores a one-time message shown on the next page.
func (s *AuthService) AddFlash(ctx context.Context, token, message string) error {
	sess, err := s.RequireSession(ctx, token)
	if err != nil {
		return err
	}
	sess.Flash = message
	return s.BindSession(ctx, token, sess)
}

// PopFlash returns the pending flash message of sess and clears it.
func (s *AuthService) PopFlash(ctx context.Context, token string, sess model.Session) string {
	if sess.Flash == "" {
		return ""
	}

	flash := sess.Flash
	sess.Flash = ""
	if err := s.sessions.SetSession(ctx, token, sess); err != nil {
		slog.Warn("can't clear flash", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("op", "AuthService.PopFlash"), slog.String("err", err.Error()))
	}
	return flash
}
