package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setup(t *testing.T, prefix string) (*RedisSession, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisSession(rdb, prefix, time.Hour), mr
}

func TestRedisSession_NewGetDelete(t *testing.T) {
	store, mr := setup(t, WebPrefix)
	ctx := context.Background()

	token, err := store.NewSession(ctx, model.Session{UserID: 7, Username: "alice"})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	if !mr.Exists(WebPrefix + token) {
		t.Fatalf("expected key %s to exist", WebPrefix+token)
	}

	s, err := store.GetSession(ctx, token)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if s.UserID != 7 || s.Username != "alice" {
		t.Errorf("unexpected session %+v", s)
	}

	if err = store.DeleteSession(ctx, token); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}

	_, err = store.GetSession(ctx, token)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRedisSession_ReadExtendsExpiration(t *testing.T) {
	store, mr := setup(t, ChatPrefix)
	ctx := context.Background()

	if err := store.SetSession(ctx, "42", model.Session{UserID: 1}); err != nil {
		t.Fatalf("SetSession: %v", err)
	}

	mr.FastForward(50 * time.Minute)
	if _, err := store.GetSession(ctx, "42"); err != nil {
		t.Fatalf("GetSession: %v", err)
	}

	mr.FastForward(50 * time.Minute)
	if _, err := store.GetSession(ctx, "42"); err != nil {
		t.Errorf("expected session to survive after refresh, got %v", err)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := store.GetSession(ctx, "42"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after expiration, got %v", err)
	}
}
