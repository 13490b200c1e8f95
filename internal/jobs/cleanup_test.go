package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"volunteerhub/internal/config"
)

type fakeCleaner struct {
	calls atomic.Int32
	err   error
}

func (f *fakeCleaner) Cleanup(context.Context) (int64, error) {
	f.calls.Add(1)
	return 3, f.err
}

type fakeExpirer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeExpirer) ExpireBans(context.Context) (int, error) {
	f.calls.Add(1)
	return 1, f.err
}

func TestRunCleanupRunsBothSteps(t *testing.T) {
	tokens := &fakeCleaner{err: errors.New("db down")}
	bans := &fakeExpirer{}

	err := RunCleanup(context.Background(), tokens, bans)
	if err == nil {
		t.Fatalf("expected token error to surface")
	}
	if tokens.calls.Load() != 1 || bans.calls.Load() != 1 {
		t.Fatalf("expected both steps to run, got %d and %d", tokens.calls.Load(), bans.calls.Load())
	}

	if err := RunCleanup(context.Background(), &fakeCleaner{}, &fakeExpirer{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStartCleanupJobTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tokens := &fakeCleaner{}
	bans := &fakeExpirer{}

	StartCleanupJob(ctx, config.Config{
		CleanupEnabled:  true,
		CleanupInterval: 10 * time.Millisecond,
		CleanupTimeout:  time.Second,
	}, tokens, bans)

	deadline := time.Now().Add(2 * time.Second)
	for tokens.calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected the job to tick, got %d calls", tokens.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if bans.calls.Load() == 0 {
		t.Fatalf("expected ban expiry to run")
	}
}

func TestStartCleanupJobDisabled(t *testing.T) {
	tokens := &fakeCleaner{}
	StartCleanupJob(context.Background(), config.Config{CleanupInterval: time.Millisecond}, tokens, &fakeExpirer{})
	time.Sleep(20 * time.Millisecond)
	if tokens.calls.Load() != 0 {
		t.Fatalf("expected disabled job not to run")
	}
}
