package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

var errService = errors.New("service error")

func fail() error    { return errService }
func succeed() error { return nil }

func trip(t *testing.T, cb *CircuitBreaker, failures int) {
	t.Helper()
	for i := 0; i < failures; i++ {
		if err := cb.Execute(fail); !errors.Is(err, errService) {
			t.Fatalf("expected service error, got %v", err)
		}
	}
	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("expected open after threshold, got %v", cb.State())
	}
}

func TestStateTransitions(t *testing.T) {
	cb := New("test", 2, 50*time.Millisecond)

	if cb.State() != gobreaker.StateClosed {
		t.Fatalf("initial state must be closed, got %v", cb.State())
	}

	trip(t, cb, 2)

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrOpen) || called {
		t.Fatalf("open circuit must reject without calling action, err=%v called=%v", err, called)
	}

	time.Sleep(80 * time.Millisecond)
	if err = cb.Execute(succeed); err != nil {
		t.Fatalf("expected half-open trial to pass, got %v", err)
	}

	if cb.State() != gobreaker.StateClosed {
		t.Errorf("expected closed after successful trial, got %v", cb.State())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := New("test", 3, 50*time.Millisecond)
	trip(t, cb, 3)

	time.Sleep(80 * time.Millisecond)
	_ = cb.Execute(fail)

	if cb.State() != gobreaker.StateOpen {
		t.Errorf("expected failure in half-open to reopen, got %v", cb.State())
	}
}

func TestHalfOpenAdmitsSingleTrial(t *testing.T) {
	cb := New("test", 1, 50*time.Millisecond)
	trip(t, cb, 1)
	time.Sleep(80 * time.Millisecond)

	var admitted atomic.Int32
	release := make(chan struct{})
	results := make(chan error, 10)

	for i := 0; i < 10; i++ {
		go func() {
			results <- cb.Execute(func() error {
				admitted.Add(1)
				<-release
				return nil
			})
		}()
	}

	for i := 0; i < 9; i++ {
		select {
		case err := <-results:
			if !errors.Is(err, ErrOpen) {
				t.Errorf("extra half-open call got %v, want ErrOpen", err)
			}
		case <-time.After(2 * time.Second):
			close(release)
			t.Fatalf("half-open let %d calls through", admitted.Load())
		}
	}

	close(release)
	if err := <-results; err != nil {
		t.Errorf("trial call: %v", err)
	}
	if admitted.Load() != 1 {
		t.Errorf("admitted = %d, want 1", admitted.Load())
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("expected closed after the trial, got %v", cb.State())
	}
}

func TestCallerCancellationIsNotAFailure(t *testing.T) {
	cb := New("test", 1, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Execute(func() error { return fmt.Errorf("get quote: %w", ctx.Err()) })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the cancellation back, got %v", err)
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("caller cancellation opened the circuit: %v", cb.State())
	}

	if err = cb.Execute(succeed); err != nil {
		t.Errorf("next caller rejected: %v", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := New("test", 2, time.Minute)

	_ = cb.Execute(fail)
	_ = cb.Execute(succeed)
	_ = cb.Execute(fail)

	if cb.State() != gobreaker.StateClosed {
		t.Errorf("non-consecutive failures must not open the circuit, got %v", cb.State())
	}
}
