package authService_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/KotFed0t/portfolio_tracker/data/session"
	"github.com/KotFed0t/portfolio_tracker/internal/service"
	"github.com/KotFed0t/portfolio_tracker/internal/service/authService"
	"github.com/KotFed0t/portfolio_tracker/internal/testutils"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func setup(t *testing.T) (*authService.AuthService, *testutils.LedgerStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := testutils.NewLedgerStore()
	sessions := session.NewRedisSession(client, session.WebPrefix, time.Hour)
	s := authService.New(store, sessions, decimal.NewFromInt(10000)).WithHashCost(bcrypt.MinCost)
	return s, store, mr
}

func TestRegisterAndLogin(t *testing.T) {
	s, store, _ := setup(t)
	ctx := context.Background()

	token, err := s.Register(ctx, " alice ", "secret", "secret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	sess, err := s.RequireSession(ctx, token)
	if err != nil {
		t.Fatalf("RequireSession: %v", err)
	}
	if sess.Username != "alice" || sess.UserID == 0 {
		t.Errorf("unexpected session %+v", sess)
	}
	if !store.Cash(sess.UserID).Equal(decimal.NewFromInt(10000)) {
		t.Errorf("initial cash = %s", store.Cash(sess.UserID))
	}

	user, err := store.FindUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("FindUserByUsername: %v", err)
	}
	if user.Hash == "secret" || !strings.HasPrefix(user.Hash, "$2") {
		t.Errorf("password stored without bcrypt: %q", user.Hash)
	}

	loginToken, err := s.Login(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if loginToken == token {
		t.Error("login reused the registration token")
	}
}

func TestRegister_Rejections(t *testing.T) {
	s, _, _ := setup(t)
	ctx := context.Background()

	if _, err := s.Register(ctx, "alice", "secret", "secret"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	cases := []struct {
		name                        string
		username, password, confirm string
		want                        error
	}{
		{"empty username", "  ", "pw", "pw", service.ErrInvalidInput},
		{"empty password", "bob", "", "", service.ErrInvalidInput},
		{"mismatch", "bob", "pw", "wp", service.ErrPasswordMismatch},
		{"taken", "alice", "other", "other", service.ErrUsernameTaken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Register(ctx, tc.username, tc.password, tc.confirm)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}

	// first user unaffected
	if _, err := s.Login(ctx, "alice", "secret"); err != nil {
		t.Errorf("original user can't log in: %v", err)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s, _, _ := setup(t)
	ctx := context.Background()

	if _, err := s.Register(ctx, "alice", "secret", "secret"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := s.Login(ctx, "alice", "wrong"); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := s.Login(ctx, "nobody", "secret"); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("unknown user: got %v", err)
	}
	if _, err := s.Login(ctx, "", ""); !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("empty fields: got %v", err)
	}
}

func TestRequireSession(t *testing.T) {
	s, _, mr := setup(t)
	ctx := context.Background()

	if _, err := s.RequireSession(ctx, ""); !errors.Is(err, service.ErrUnauthenticated) {
		t.Errorf("empty token: got %v", err)
	}
	if _, err := s.RequireSession(ctx, "forged"); !errors.Is(err, service.ErrUnauthenticated) {
		t.Errorf("unknown token: got %v", err)
	}

	token, err := s.Register(ctx, "alice", "secret", "secret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := s.RequireSession(ctx, token); !errors.Is(err, service.ErrUnauthenticated) {
		t.Errorf("expired token: got %v", err)
	}
}

func TestLogout(t *testing.T) {
	s, _, _ := setup(t)
	ctx := context.Background()

	token, err := s.Register(ctx, "alice", "secret", "secret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Logout(ctx, token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := s.RequireSession(ctx, token); !errors.Is(err, service.ErrUnauthenticated) {
		t.Errorf("session survived logout: %v", err)
	}
	if err := s.Logout(ctx, ""); err != nil {
		t.Errorf("Logout without token: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	s, _, _ := setup(t)
	ctx := context.Background()

	token, err := s.Register(ctx, "alice", "secret", "secret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	sess, err := s.RequireSession(ctx, token)
	if err != nil {
		t.Fatalf("RequireSession: %v", err)
	}

	if err := s.ChangePassword(ctx, sess.UserID, "wrong", "new", "new"); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("wrong current password: got %v", err)
	}
	// the current password is checked before the confirmation
	if err := s.ChangePassword(ctx, sess.UserID, "wrong", "new1", "new2"); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("wrong current password with mismatch: got %v", err)
	}
	if err := s.ChangePassword(ctx, sess.UserID, "secret", "new", "old"); !errors.Is(err, service.ErrPasswordMismatch) {
		t.Errorf("mismatch: got %v", err)
	}
	if err := s.ChangePassword(ctx, sess.UserID, "secret", "new", "new"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, err := s.Login(ctx, "alice", "secret"); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("old password still accepted: %v", err)
	}
	if _, err := s.Login(ctx, "alice", "new"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestFlashShownOnce(t *testing.T) {
	s, _, _ := setup(t)
	ctx := context.Background()

	token, err := s.Register(ctx, "alice", "secret", "secret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	sess, _ := s.RequireSession(ctx, token)
	if got := s.PopFlash(ctx, token, sess); got != "Registered!" {
		t.Errorf("first flash = %q", got)
	}

	if err := s.AddFlash(ctx, token, "Bought!"); err != nil {
		t.Fatalf("AddFlash: %v", err)
	}
	sess, _ = s.RequireSession(ctx, token)
	if got := s.PopFlash(ctx, token, sess); got != "Bought!" {
		t.Errorf("flash = %q", got)
	}
	sess, _ = s.RequireSession(ctx, token)
	if got := s.PopFlash(ctx, token, sess); got != "" {
		t.Errorf("flash shown twice: %q", got)
	}
}
