package watchdog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/watchdog/entity"
)

// LogSubscriber writes one info line per event.
func LogSubscriber(logger *zap.SugaredLogger) func(entity.Event) {
	return func(e entity.Event) {
		logger.Infow("new trophies earned",
			"event_id", e.ID,
			"account_id", e.AccountID,
			"previous", e.Previous,
			"current", e.Current,
			"delta", e.Delta,
		)
	}
}

// MetricsSubscriber adds each event's delta to the new-trophies counter.
func MetricsSubscriber() func(entity.Event) {
	return func(e entity.Event) {
		metrics.NewTrophies.Add(float64(e.Delta))
	}
}

// EventWriter persists an event.
type EventWriter interface {
	Insert(ctx context.Context, e entity.Event) error
}

// PersistSubscriber stores each event; failures are logged and dropped.
func PersistSubscriber(repo EventWriter, logger *zap.SugaredLogger) func(entity.Event) {
	return func(e entity.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.Insert(ctx, e); err != nil {
			logger.Warnw("persist trophy event failed", "event_id", e.ID, "err", err)
		}
	}
}
