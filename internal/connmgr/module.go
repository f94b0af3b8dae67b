package connmgr

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
)

// Module wires Config, a comm.Comm, and a clock.Clock (all supplied
// elsewhere in the fx graph) into a *Manager and registers its retry
// worker's lifecycle: one fx.Provide per constructor, one fx.Invoke per
// long-running goroutine the package owns.
func Module() fx.Option {
	return fx.Module("connmgr",
		fx.Provide(New),
		fx.Invoke(registerLifecycle),
	)
}

type lifecycleParams struct {
	fx.In

	LC  fx.Lifecycle
	Mgr *Manager
}

func registerLifecycle(p lifecycleParams) {
	p.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Mgr.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return p.Mgr.Shutdown(ctx)
		},
	})
}

// defaultClock provides the real wall clock as the fx-graph default for
// clock.Clock; a test fx.App can override this provider with a
// clock.Mock.
func defaultClock() clock.Clock {
	return clock.New()
}

// DefaultModule is Module plus the default (non-mock) clock provider. Most
// programs embedding connmgr want this; tests that need a mock clock use
// Module() and supply their own clock.Clock provider instead.
func DefaultModule() fx.Option {
	return fx.Options(
		fx.Provide(defaultClock, DefaultConfig),
		Module(),
	)
}
