// Package di contains dependency injection tokens for the routing context.
package di

import (
	"github.com/kbaldwin/dexquote/business/routing/app"
	"github.com/kbaldwin/dexquote/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Pipeline = di.NewToken[app.Pipeline]("routing.Pipeline")
)

// GetPipeline resolves the configured route optimizer pipeline.
func GetPipeline(c di.ServiceRegistry) app.Pipeline {
	return di.GetToken(c, Pipeline)
}
