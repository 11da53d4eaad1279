package app

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pricingdomain "github.com/kbaldwin/dexquote/business/pricing/domain"
)

func TestFromCoordinatorOutput(t *testing.T) {
	from := pricingdomain.NewToken("0x0000000000000000000000000000000000000001", 18)
	to := pricingdomain.NewToken("0x0000000000000000000000000000000000000002", 6)
	envelopes := []pricingdomain.ImprovedPoolPrice[any]{
		{DexKey: "uniswapv2", PoolID: "uniswapv2_0xa"},
	}

	rate := FromCoordinatorOutput(from, to, pricingdomain.SideSell, 123, big.NewInt(1), decimal.NewFromInt(3000), envelopes)

	assert.True(t, rate.From.Equals(from))
	assert.True(t, rate.To.Equals(to))
	assert.Equal(t, pricingdomain.SideSell, rate.Side)
	assert.EqualValues(t, 123, rate.Block)

	require.Len(t, rate.Envelopes, 1)
	assert.Equal(t, "uniswapv2", rate.Envelopes[0].Quote.DexKey)
	assert.Nil(t, rate.Envelopes[0].Cost, "a freshly converted envelope must carry no Cost annotation yet")
}
