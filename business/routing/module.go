// Package routing implements the route optimizer pipeline bounded context:
// an ordered sequence of pure transforms applied to the pricing
// coordinator's output, configured by name (spec.md §4.8). It never picks
// a "best" route.
package routing

import (
	"context"

	"github.com/kbaldwin/dexquote/business/routing/app"
	routingDI "github.com/kbaldwin/dexquote/business/routing/di"
	"github.com/kbaldwin/dexquote/internal/config"
	"github.com/kbaldwin/dexquote/internal/di"
	"github.com/kbaldwin/dexquote/internal/monolith"
)

// Module implements the routing bounded context.
type Module struct{}

// RegisterServices registers the configured Pipeline with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, routingDI.Pipeline, func(sr di.ServiceRegistry) app.Pipeline {
		cfg := sr.Get("config").(*config.Config)
		pipeline, err := app.Build(cfg.Routing.Steps)
		if err != nil {
			panic("routing: " + err.Error())
		}
		return pipeline
	})
	return nil
}

// Startup is a no-op: the pipeline has no connections to establish.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	return nil
}
