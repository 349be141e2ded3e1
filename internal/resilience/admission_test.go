package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmcrae/fetchgate/internal/config"
	"github.com/jmcrae/fetchgate/internal/types"
)

func TestAdmissionSerializes(t *testing.T) {
	a := NewAdmission(config.AdmissionConfig{MaxConcurrent: 1, MaxQueue: 8})

	if err := a.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := a.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("second Acquire() error = %v, want deadline exceeded", err)
	}

	a.Release()
	if err := a.Acquire(context.Background()); err != nil {
		t.Errorf("Acquire() after Release() error = %v", err)
	}
	a.Release()
}

func TestAdmissionAcquireTimeout(t *testing.T) {
	a := NewAdmission(config.AdmissionConfig{
		MaxConcurrent:  1,
		MaxQueue:       8,
		AcquireTimeout: 20 * time.Millisecond,
	})

	if err := a.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer a.Release()

	err := a.Acquire(context.Background())
	if !errors.Is(err, types.ErrAdmissionTimeout) {
		t.Errorf("Acquire() error = %v, want ErrAdmissionTimeout", err)
	}

	if got := a.Stats().Timeouts; got != 1 {
		t.Errorf("Timeouts = %d, want 1", got)
	}
}

func TestAdmissionQueueBound(t *testing.T) {
	a := NewAdmission(config.AdmissionConfig{MaxConcurrent: 1, MaxQueue: 1})

	if err := a.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer a.Release()

	// One waiter occupies the single queue slot; the next caller is rejected
	// outright.
	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		done <- a.Acquire(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	err := a.Acquire(context.Background())
	if !errors.Is(err, types.ErrAdmissionTimeout) {
		t.Errorf("over-queue Acquire() error = %v, want ErrAdmissionTimeout", err)
	}

	<-done
}

func TestAdmissionReleaseWithoutAcquire(t *testing.T) {
	a := NewAdmission(config.AdmissionConfig{MaxConcurrent: 1, MaxQueue: 8})

	// Must not panic or corrupt the slot count.
	a.Release()

	if err := a.Acquire(context.Background()); err != nil {
		t.Errorf("Acquire() error = %v", err)
	}
}

func TestDisabledAdmission(t *testing.T) {
	a := NewDisabledAdmission()

	for i := 0; i < 10; i++ {
		if err := a.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
	}
	a.Release()
}
