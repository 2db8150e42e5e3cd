package app

import (
	"github.com/ghuser/prodvault/pkg/database"
	"github.com/ghuser/prodvault/pkg/events"
	"github.com/ghuser/prodvault/pkg/logger"
	"github.com/ghuser/prodvault/pkg/metrics"
)

// Application holds shared infrastructure dependencies constructed once at
// process start and passed explicitly to every component. There are no
// package-level singletons; lifecycle is owned by main.
//
// Logging: use the context-aware slog methods for per-request work and plain
// Info/Error only for startup and shutdown messages.
type Application struct {
	Db       *database.Database
	Logger   logger.Logger
	EventBus *events.EventBus
	Metrics  *metrics.Metrics
}
