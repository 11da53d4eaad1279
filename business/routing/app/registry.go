package app

import "fmt"

// Steps maps configured pipeline step names (Routing.Steps) to the pure
// transform they run.
var Steps = map[string]Transform{
	"sort-by-dex-key":       SortByDexKey,
	"drop-diagnostics":      DropDiagnostics,
	"annotate-gas-cost-usd": AnnotateGasCostUSD,
}

// Build composes a Pipeline from an ordered list of step names. An
// unrecognized name is an error, not a silent skip: the order of
// Routing.Steps is load-bearing.
func Build(names []string) (Pipeline, error) {
	transforms := make([]Transform, 0, len(names))
	for _, name := range names {
		t, ok := Steps[name]
		if !ok {
			return Pipeline{}, fmt.Errorf("routing: unknown pipeline step %q", name)
		}
		transforms = append(transforms, t)
	}
	return NewPipeline(transforms...), nil
}
