package monitoring

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/spacesedan/marketbrief/internal/clients"
)

const HEALTHCHECK_TIMER = 15

// MonitorCacheHealth pings Valkey on a fixed interval. An unhealthy cache is
// survivable (the seen-set degrades to false and the store's conditional
// insert still holds), so this only flips the flag and logs.
func MonitorCacheHealth(ctx context.Context, valkeyClient *clients.ValkeyClient, healthy *atomic.Bool) {
	ticker := time.NewTicker(time.Second * HEALTHCHECK_TIMER)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := valkeyClient.Ping(ctx)
			healthy.Store(err == nil)
			if err != nil {
				slog.Warn("[HealthCheck] Valkey is unhealthy",
					slog.String("error", err.Error()))
			}
		}
	}
}
