package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

func setup(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisCache(rdb, time.Minute), mr
}

func TestRedisCache_SetAndGetQuote(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()

	quote := model.Quote{Symbol: "SBER", Name: "Сбербанк", Price: decimal.RequireFromString("301.15"), Currency: "RUB", Active: true}
	if err := c.SetQuote(ctx, quote); err != nil {
		t.Fatalf("SetQuote: %v", err)
	}

	got, err := c.GetQuote(ctx, "SBER")
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}

	if got.Symbol != "SBER" || got.Name != quote.Name || !got.Price.Equal(quote.Price) || !got.Active {
		t.Errorf("unexpected quote %+v", got)
	}
}

func TestRedisCache_Expiration(t *testing.T) {
	c, mr := setup(t)
	ctx := context.Background()

	err := c.SetQuotes(ctx, []model.Quote{
		{Symbol: "GAZP", Price: decimal.NewFromInt(160), Active: true},
		{Symbol: "LKOH", Price: decimal.NewFromInt(7000), Active: true},
	})
	if err != nil {
		t.Fatalf("SetQuotes: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	_, err = c.GetQuote(ctx, "GAZP")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after expiration, got %v", err)
	}
}

func TestRedisCache_Miss(t *testing.T) {
	c, _ := setup(t)

	_, err := c.GetQuote(context.Background(), "NOPE")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
