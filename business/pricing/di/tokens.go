// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/kbaldwin/dexquote/business/pricing/app"
	"github.com/kbaldwin/dexquote/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Coordinator = di.NewToken[*app.Coordinator]("pricing.Coordinator")
)

// Private dependency tokens - internal to pricing module
var (
	Registry = di.NewToken[*app.Registry]("pricing:registry")
	Lifecycle = di.NewToken[*app.LifecycleManager]("pricing:lifecycleManager")
)

// Helper functions for type-safe access
func GetCoordinator(c di.ServiceRegistry) *app.Coordinator {
	return di.GetToken(c, Coordinator)
}

func GetRegistry(c di.ServiceRegistry) *app.Registry {
	return di.GetToken(c, Registry)
}

func GetLifecycle(c di.ServiceRegistry) *app.LifecycleManager {
	return di.GetToken(c, Lifecycle)
}
