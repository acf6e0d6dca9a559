package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	WebPrefix  = "session:web:"
	ChatPrefix = "session:tg:"
)

var ErrNotFound = errors.New("error session not found")

// RedisSession stores sessions as JSON under prefix+key. Every read extends the expiration.
type RedisSession struct {
	redis      *redis.Client
	prefix     string
	expiration time.Duration
}

func NewRedisSession(redisClient *redis.Client, prefix string, expiration time.Duration) *RedisSession {
	return &RedisSession{redis: redisClient, prefix: prefix, expiration: expiration}
}

// NewSession stores s under a fresh random token and returns the token.
func (r *RedisSession) NewSession(ctx context.Context, s model.Session) (token string, err error) {
	token = uuid.NewString()
	if err = r.SetSession(ctx, token, s); err != nil {
		return "", err
	}
	return token, nil
}

func (r *RedisSession) GetSession(ctx context.Context, key string) (model.Session, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisSession.GetSession"

	res, err := r.redis.GetEx(ctx, r.prefix+key, r.expiration).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Session{}, ErrNotFound
		}
		slog.Error("failed on redis.GetEx", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Session{}, err
	}

	s := model.Session{}
	if err = json.Unmarshal([]byte(res), &s); err != nil {
		slog.Error("can't unmarshall session", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Session{}, fmt.Errorf("can't unmarshall session: %w", err)
	}

	return s, nil
}

func (r *RedisSession) SetSession(ctx context.Context, key string, s model.Session) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisSession.SetSession"

	sessionJson, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("can't marshall session: %w", err)
	}

	err = r.redis.Set(ctx, r.prefix+key, sessionJson, r.expiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (r *RedisSession) DeleteSession(ctx context.Context, key string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisSession.DeleteSession"

	err := r.redis.Del(ctx, r.prefix+key).Err()
	if err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}
