package domain

import (
	"math/big"
	"testing"
)

func TestValidatePoolPrices(t *testing.T) {
	amounts := []*big.Int{big.NewInt(0), big.NewInt(100), big.NewInt(200)}

	tests := []struct {
		name    string
		pp      PoolPrices[any]
		wantOK  bool
		wantWhy ValidationFailure
	}{
		{
			name: "well_formed",
			pp: PoolPrices[any]{
				Prices:  []*big.Int{big.NewInt(0), big.NewInt(10), big.NewInt(20)},
				GasCost: NewScalarGasCost(big.NewInt(120000)),
			},
			wantOK: true,
		},
		{
			name: "length_mismatch",
			pp: PoolPrices[any]{
				Prices:  []*big.Int{big.NewInt(10), big.NewInt(20)},
				GasCost: NewScalarGasCost(big.NewInt(1)),
			},
			wantOK:  false,
			wantWhy: FailureLengthMismatch,
		},
		{
			name: "gas_sequence_length_mismatch",
			pp: PoolPrices[any]{
				Prices:  []*big.Int{big.NewInt(0), big.NewInt(10), big.NewInt(20)},
				GasCost: NewSequenceGasCost([]*big.Int{big.NewInt(1), big.NewInt(2)}),
			},
			wantOK:  false,
			wantWhy: FailureGasLengthMismatch,
		},
		{
			name: "nonzero_price_at_zero_amount",
			pp: PoolPrices[any]{
				Prices:  []*big.Int{big.NewInt(5), big.NewInt(10), big.NewInt(20)},
				GasCost: NewScalarGasCost(big.NewInt(1)),
			},
			wantOK:  false,
			wantWhy: FailureZeroAmountNonzero,
		},
		{
			name: "nonzero_gas_at_zero_amount",
			pp: PoolPrices[any]{
				Prices:  []*big.Int{big.NewInt(0), big.NewInt(10), big.NewInt(20)},
				GasCost: NewSequenceGasCost([]*big.Int{big.NewInt(1), big.NewInt(0), big.NewInt(0)}),
			},
			wantOK:  false,
			wantWhy: FailureZeroAmountNonzero,
		},
		{
			name: "all_zero_prices",
			pp: PoolPrices[any]{
				Prices:  []*big.Int{big.NewInt(0), big.NewInt(0), big.NewInt(0)},
				GasCost: NewScalarGasCost(big.NewInt(1)),
			},
			wantOK:  false,
			wantWhy: FailureAllZeroPrices,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ok := ValidatePoolPrices(tt.pp, amounts)
			if ok != tt.wantOK {
				t.Fatalf("ValidatePoolPrices() ok = %v, want %v (reason=%q)", ok, tt.wantOK, reason)
			}
			if !ok && reason != tt.wantWhy {
				t.Errorf("ValidatePoolPrices() reason = %q, want %q", reason, tt.wantWhy)
			}
		})
	}
}
