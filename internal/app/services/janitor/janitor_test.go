package janitor

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"github.com/dabbahouse/foodorder/pkg/logger"
)

type countingPurger struct {
	calls int32
	err   error
}

func (p *countingPurger) PurgeExpired(context.Context) (int, error) {
	atomic.AddInt32(&p.calls, 1)
	return 3, p.err
}

type countingCleaner struct{ calls int32 }

func (c *countingCleaner) Cleanup() { atomic.AddInt32(&c.calls, 1) }

func quiet() *logger.Logger {
	log := logger.NewDefault("janitor-test")
	log.SetOutput(io.Discard)
	return log
}

func TestRunOnce(t *testing.T) {
	purger := &countingPurger{}
	cleaner := &countingCleaner{}
	j := New("", purger, quiet(), cleaner)

	j.RunOnce(context.Background())
	if purger.calls != 1 || cleaner.calls != 1 {
		t.Fatalf("purger=%d cleaner=%d", purger.calls, cleaner.calls)
	}

	// Cleaners still run when the purge fails.
	purger.err = errors.New("db down")
	j.RunOnce(context.Background())
	if cleaner.calls != 2 {
		t.Fatalf("cleaner calls = %d", cleaner.calls)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	j := New("every now and then", &countingPurger{}, quiet())
	if err := j.Start(context.Background()); err == nil {
		t.Fatalf("expected schedule error")
	}
}

func TestStartStop(t *testing.T) {
	j := New("@every 1h", &countingPurger{}, quiet())
	if j.Name() != "janitor" {
		t.Fatalf("name = %s", j.Name())
	}
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := j.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := j.Stop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
