package services

import (
	"context"
	"time"

	"contestsphere-server/pkg/logger"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// StartReconcileScheduler runs counter reconciliation every interval. The
// caller owns the returned scheduler and must Shutdown it.
func StartReconcileScheduler(ctx context.Context, clock clockwork.Clock, counters *CounterService, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if _, err := counters.Reconcile(ctx); err != nil {
				logger.L().Error("scheduled reconciliation failed", zap.Error(err))
			}
		}),
		gocron.WithName("reconcile-counters"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	logger.L().Info("reconcile scheduler started", zap.Duration("interval", interval))
	return sched, nil
}
