package di

import (
	"sync"

	"github.com/ctxwin/ctxwin/pkg/ctx"
	"github.com/ctxwin/ctxwin/pkg/events"
	"github.com/ctxwin/ctxwin/pkg/logging"
)

// Shared event bus instance: collaborators and the engine must see the
// same bus or file-change invalidation never reaches the cache.
var (
	eventBus     *events.InMemoryBus
	eventBusOnce sync.Once
)

// ProvideEventBus provides the shared event bus.
func ProvideEventBus() events.EventBus {
	eventBusOnce.Do(func() {
		eventBus = events.NewEventBus()
	})
	return eventBus
}

// ProvideLogger provides the default logger.
func ProvideLogger() logging.Logger {
	return logging.NewDefaultLogger()
}

// ProvideStrategyStore provides a store with the default presets.
func ProvideStrategyStore() *ctx.Store {
	return ctx.NewStore()
}

// ProvideManager wires a context manager with the shared bus.
func ProvideManager(bus events.EventBus, logger logging.Logger, store *ctx.Store) (*ctx.Manager, error) {
	return ctx.NewManager(bus,
		ctx.WithLogger(logger),
		ctx.WithStore(store),
	)
}
