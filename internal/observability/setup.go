package observability

import (
	"context"

	"github.com/honeynil/spriteshop/internal/infrastructure/observability"
)

// Setup initializes logging, metrics and tracing. The /metrics endpoint is
// mounted by the router, not here.
func Setup(serviceName string) func(context.Context) error {
	observability.InitLogger()
	observability.InitMetrics()
	return observability.InitTracing(serviceName)
}
