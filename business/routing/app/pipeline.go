// Package app implements the route optimizer pipeline (C8): an ordered
// sequence of pure transforms over an UnoptimizedRate, composed by
// left-fold, and the registry of named steps that builds one from
// configuration.
package app

import (
	routingdomain "github.com/kbaldwin/dexquote/business/routing/domain"
)

// Transform is one pure pipeline step (spec.md §4.8). It reshapes the
// candidate set it is given and returns a new one; it never picks a
// "best" route, and it must not retain or mutate its argument.
type Transform func(routingdomain.UnoptimizedRate) routingdomain.UnoptimizedRate

// Pipeline is an ordered sequence of Transforms composed by left-fold. The
// zero value is the identity pipeline.
type Pipeline struct {
	transforms []Transform
}

// NewPipeline builds a Pipeline from an ordered list of transforms.
func NewPipeline(transforms ...Transform) Pipeline {
	return Pipeline{transforms: transforms}
}

// Apply left-folds every transform over rate, in order. An empty Pipeline
// returns rate unchanged.
func (p Pipeline) Apply(rate routingdomain.UnoptimizedRate) routingdomain.UnoptimizedRate {
	for _, t := range p.transforms {
		rate = t(rate)
	}
	return rate
}
