package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	routingdomain "github.com/kbaldwin/dexquote/business/routing/domain"
)

func TestPipeline_Apply_EmptyIsIdentity(t *testing.T) {
	rate := routingdomain.UnoptimizedRate{
		Envelopes: []routingdomain.Envelope{priced("uniswapv2", "uniswapv2_0xa", 1)},
	}

	got := Pipeline{}.Apply(rate)
	require.Len(t, got.Envelopes, 1)
	assert.Equal(t, "uniswapv2", got.Envelopes[0].Quote.DexKey)
}

func TestPipeline_Apply_ComposesInOrder(t *testing.T) {
	rate := routingdomain.UnoptimizedRate{
		Envelopes: []routingdomain.Envelope{
			priced("sushiswap", "sushiswap_0xb", 1),
			priced("uniswapv2", "uniswapv2_0xa", 1),
			diagnostic("sushiswap", "Timeout"),
		},
	}

	p := NewPipeline(SortByDexKey, DropDiagnostics)
	got := p.Apply(rate)

	require.Len(t, got.Envelopes, 2, "diagnostics must be dropped")
	assert.Equal(t, "sushiswap", got.Envelopes[0].Quote.DexKey)
	assert.Equal(t, "uniswapv2", got.Envelopes[1].Quote.DexKey)
}

func TestBuild_UnknownStepNameErrors(t *testing.T) {
	_, err := Build([]string{"sort-by-dex-key", "does-not-exist"})
	assert.Error(t, err)
}

func TestBuild_KnownStepsInOrder(t *testing.T) {
	p, err := Build([]string{"drop-diagnostics", "sort-by-dex-key"})
	require.NoError(t, err)

	rate := routingdomain.UnoptimizedRate{
		Envelopes: []routingdomain.Envelope{
			priced("uniswapv2", "uniswapv2_0xa", 1),
			diagnostic("sushiswap", "Timeout"),
		},
	}
	got := p.Apply(rate)
	require.Len(t, got.Envelopes, 1)
	assert.Equal(t, "uniswapv2", got.Envelopes[0].Quote.DexKey)
}

func TestBuild_EmptyStepsYieldsIdentityPipeline(t *testing.T) {
	p, err := Build(nil)
	require.NoError(t, err)

	rate := routingdomain.UnoptimizedRate{Envelopes: []routingdomain.Envelope{priced("uniswapv2", "uniswapv2_0xa", 1)}}
	got := p.Apply(rate)
	assert.Len(t, got.Envelopes, 1)
}
