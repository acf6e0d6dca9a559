package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KotFed0t/portfolio_tracker/utils"
)

func TestWrapTask_RecoversPanic(t *testing.T) {
	task := wrapTask(func(ctx context.Context) error {
		panic("boom")
	}, "panicky")

	// must not propagate
	task(context.Background())
}

func TestWrapTask_SetsRequestID(t *testing.T) {
	var rqID string
	task := wrapTask(func(ctx context.Context) error {
		rqID = utils.GetRequestIDFromCtx(ctx)
		return errors.New("failed")
	}, "failing")

	task(context.Background())

	if rqID == "" {
		t.Error("job context has no request id")
	}
}

func TestIntervalJobRuns(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan struct{}, 1)
	err = s.NewIntervalJob("tick", func(ctx context.Context) error {
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	}, time.Hour, true)
	if err != nil {
		t.Fatalf("NewIntervalJob: %v", err)
	}

	s.Start()
	defer func() { _ = s.Stop() }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
}
