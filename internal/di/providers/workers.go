package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/eventsphere/eventsphere-server/internal/config"
	"github.com/eventsphere/eventsphere-server/internal/logger"
	"github.com/eventsphere/eventsphere-server/internal/service"
)

// SweepJob runs the lifecycle sweep on a ticker.
type SweepJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable. It waits for an in-flight sweep.
func (j *SweepJob) Shutdown() error {
	j.cancel()
	select {
	case <-j.done:
	case <-time.After(shutdownTimeout):
	}
	return nil
}

// ProvideSweepJob starts the periodic sweep that advances events past
// their fixed start and end.
func ProvideSweepJob(i do.Injector) (*SweepJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	events := do.MustInvoke[*service.EventService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	run := func() {
		if _, err := events.RunSweep(ctx); err != nil && ctx.Err() == nil {
			log.Warn("Lifecycle sweep failed", "error", err)
		}
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(cfg.Scheduler.Interval)
		defer ticker.Stop()

		// Catch up on anything that came due while the server was down.
		run()

		for {
			select {
			case <-ticker.C:
				run()
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Lifecycle sweep job started", "interval", cfg.Scheduler.Interval)

	return &SweepJob{cancel: cancel, done: done}, nil
}
