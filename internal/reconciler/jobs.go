package reconciler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fredrickBO/TwendeBus/pkg/logger"
)

// JobProcessor runs the reconciler on a fixed interval
type JobProcessor struct {
	reconciler *Reconciler
	config     *JobConfig
	log        *logger.Logger
	done       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup

	mu      sync.Mutex
	lastRun time.Time
	last    *RunResult
}

// JobConfig contains configuration for background jobs
type JobConfig struct {
	Interval time.Duration
}

// DefaultJobConfig sweeps every five minutes
func DefaultJobConfig() *JobConfig {
	return &JobConfig{Interval: 5 * time.Minute}
}

func NewJobProcessor(reconciler *Reconciler, config *JobConfig) *JobProcessor {
	if config == nil || config.Interval <= 0 {
		config = DefaultJobConfig()
	}
	return &JobProcessor{
		reconciler: reconciler,
		config:     config,
		log:        logger.GetDefault(),
		done:       make(chan struct{}),
	}
}

// Start runs one pass immediately and then one per interval until Stop is
// called or ctx is done.
func (jp *JobProcessor) Start(ctx context.Context) {
	jp.wg.Add(1)
	go func() {
		defer jp.wg.Done()
		jp.loop(ctx)
	}()
	jp.log.Info("expiry reconciler started", slog.Duration("interval", jp.config.Interval))
}

// Stop ends the loop and waits for an in-flight pass to finish
func (jp *JobProcessor) Stop() {
	jp.stopOnce.Do(func() { close(jp.done) })
	jp.wg.Wait()
	jp.log.Info("expiry reconciler stopped")
}

func (jp *JobProcessor) loop(ctx context.Context) {
	ticker := time.NewTicker(jp.config.Interval)
	defer ticker.Stop()

	jp.runOnce(ctx)
	for {
		select {
		case <-ticker.C:
			jp.runOnce(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (jp *JobProcessor) runOnce(ctx context.Context) {
	result, err := jp.reconciler.RunOnce(ctx)
	if err != nil {
		jp.log.Error("expiry sweep failed", slog.String("error", err.Error()))
		return
	}

	jp.mu.Lock()
	jp.lastRun = time.Now()
	jp.last = result
	jp.mu.Unlock()
}

// GetJobStatus reports the schedule and the outcome of the last pass
func (jp *JobProcessor) GetJobStatus() map[string]interface{} {
	jp.mu.Lock()
	defer jp.mu.Unlock()

	status := map[string]interface{}{
		"interval":    jp.config.Interval.String(),
		"batch_size":  jp.reconciler.batchSize,
		"pending_ttl": jp.reconciler.pendingTTL.String(),
	}
	if jp.last != nil {
		status["last_run"] = jp.lastRun.UTC().Format(time.RFC3339)
		status["last_result"] = jp.last
	}
	return status
}
