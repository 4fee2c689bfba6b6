package runner

import (
	"context"
	"testing"
	"time"

	"github.com/ngoclaw/agentcore/pkg/apperr"
)

func TestRegistryRejectsConcurrentStart(t *testing.T) {
	reg := NewRegistry()
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	if _, err := reg.Start("s1", cancel); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Start("s1", cancel); !apperr.Is(err, apperr.CodeAlreadyRunning) {
		t.Fatalf("expected AlreadyRunning, got %v", err)
	}
}

func TestStartAfterCompleteSucceeds(t *testing.T) {
	reg := NewRegistry()
	_, cancel := context.WithCancel(context.Background())
	r, _ := reg.Start("s1", cancel)
	r.Complete()
	if _, err := reg.Start("s1", cancel); err != nil {
		t.Fatalf("expected new start to succeed after completion, got %v", err)
	}
}

func TestCancelReachesCancelledWithinGracePeriod(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New("s1", cancel)

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(done)
	}()

	r.Cancel()
	select {
	case <-done:
	case <-time.After(GracePeriod):
		t.Fatal("context was not cancelled within grace period")
	}
	if r.Status() != StatusCancelled {
		t.Fatalf("expected StatusCancelled, got %v", r.Status())
	}
}

func TestCompleteAfterCancelDoesNotOverrideStatus(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	r := New("s1", cancel)
	r.Cancel()
	r.Complete()
	if r.Status() != StatusCancelled {
		t.Fatalf("expected status to remain Cancelled, got %v", r.Status())
	}
}
