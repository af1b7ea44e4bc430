package workers

import (
	"context"
	"time"

	"contestsphere-server/pkg/logger"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// StalePaymentExpirer is implemented by services.PaymentService.
type StalePaymentExpirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// PollStalePayments marks abandoned payment intents failed on every tick
// until ctx is cancelled.
func PollStalePayments(ctx context.Context, clock clockwork.Clock, svc StalePaymentExpirer, interval time.Duration) {
	log := logger.L().With(zap.String("worker", "payment-sweeper"))
	log.Info("starting stale payment sweeper", zap.Duration("interval", interval))

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("stale payment sweeper stopped")
			return
		case <-ticker.Chan():
			n, err := svc.ExpireStale(ctx)
			if err != nil {
				log.Error("sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("expired stale payments", zap.Int64("count", n))
			}
		}
	}
}
