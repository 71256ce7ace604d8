//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/ctxwin/ctxwin/pkg/ctx"
)

// InjectManager assembles a fully wired context manager.
func InjectManager() (*ctx.Manager, error) {
	wire.Build(
		ProvideEventBus,
		ProvideLogger,
		ProvideStrategyStore,
		ProvideManager,
	)
	return nil, nil
}
