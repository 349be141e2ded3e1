package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BackgroundPublisher ships tracker snapshots to a publisher at a fixed
// interval, with context-based cancellation.
type BackgroundPublisher struct {
	publisher   Publisher
	logger      *slog.Logger
	getSnapshot func() Snapshot
	cancel      context.CancelFunc
	ctx         context.Context
	wg          sync.WaitGroup
	interval    time.Duration
}

// NewBackgroundPublisher creates a background publisher. snapshotFn is called
// on each tick to obtain the current snapshot.
func NewBackgroundPublisher(publisher Publisher, interval time.Duration,
	snapshotFn func() Snapshot, logger *slog.Logger) *BackgroundPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &BackgroundPublisher{
		publisher:   publisher,
		interval:    interval,
		logger:      logger.With("component", "metrics-background"),
		getSnapshot: snapshotFn,
	}
}

// Start begins the publishing loop. The provided context controls the
// lifecycle of the background goroutine.
func (b *BackgroundPublisher) Start(ctx context.Context) {
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.wg.Add(1)
	go b.run()
	b.logger.Info("Background metrics publisher started", "interval", b.interval)
}

// Stop cancels the background context and waits for shutdown.
func (b *BackgroundPublisher) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	b.logger.Info("Background metrics publisher stopped")
}

func (b *BackgroundPublisher) run() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			// Final publish before stopping.
			b.publish()
			return
		case <-ticker.C:
			b.publish()
		}
	}
}

func (b *BackgroundPublisher) publish() {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in metrics publisher", "panic", r)
		}
	}()

	if b.getSnapshot == nil {
		return
	}

	snapshot := b.getSnapshot()
	b.publisher.PublishSnapshot(&snapshot)
}

// PublishNow triggers an immediate publish.
func (b *BackgroundPublisher) PublishNow() {
	b.publish()
}
