package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubCleaner struct {
	mu    sync.Mutex
	calls []time.Duration
	err   error
}

func (s *stubCleaner) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, olderThan)
	return 3, s.err
}

func (s *stubCleaner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestRetentionJobRun(t *testing.T) {
	cleaner := &stubCleaner{}
	job := NewRetentionJob(cleaner, 30*24*time.Hour)

	job.Run(context.Background())
	if cleaner.count() != 1 || cleaner.calls[0] != 30*24*time.Hour {
		t.Fatalf("unexpected cleanup calls: %v", cleaner.calls)
	}

	// failures are swallowed
	cleaner.err = errors.New("db down")
	job.Run(context.Background())
	if cleaner.count() != 2 {
		t.Errorf("expected a second attempt, got %d", cleaner.count())
	}
}

func TestRetentionJobScheduled(t *testing.T) {
	sched, err := NewScheduler(time.Second)
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	cleaner := &stubCleaner{}

	if err := NewRetentionJob(cleaner, time.Hour).Schedule(sched, 20*time.Millisecond); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	sched.Start()

	deadline := time.Now().Add(2 * time.Second)
	for cleaner.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if err := sched.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if cleaner.count() < 2 {
		t.Errorf("expected at least 2 scheduled runs, got %d", cleaner.count())
	}
}
