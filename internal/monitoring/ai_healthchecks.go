package monitoring

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ClaudioL888/empathia/internal/pipeline"
)

const HEALTHCHECK_TIMER = 15

// MonitorClassifierHealth pings the external classifier on a fixed interval
// and records the result. The pipeline keeps working through its local
// scorers while the flag is false.
func MonitorClassifierHealth(ctx context.Context, classifier *pipeline.Classifier, healthy *atomic.Bool) {
	ticker := time.NewTicker(time.Second * HEALTHCHECK_TIMER)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := classifier.Ping(ctx)
			healthy.Store(err == nil)
			if err != nil {
				slog.Warn("[HealthCheck] Classifier is unhealthy, using local scorers",
					slog.String("error", err.Error()))
			}
		}
	}
}
