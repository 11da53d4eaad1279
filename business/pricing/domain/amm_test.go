package domain

import (
	"math/big"
	"testing"
)

func bi(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad big.Int literal: " + s)
	}
	return v
}

func TestGetAmountOut(t *testing.T) {
	tests := []struct {
		name string
		x    *big.Int
		rIn  *big.Int
		rOut *big.Int
		fee  int
		want *big.Int
	}{
		{
			name: "uniswap_v2_30bps_fee",
			x:    bi("1000000000000000000"),
			rIn:  bi("10000000000000000000"),
			rOut: bi("20000000000000000000"),
			fee:  30,
			want: bi("1813221787760298263"),
		},
		{
			name: "zero_input_returns_zero",
			x:    big.NewInt(0),
			rIn:  bi("10000000000000000000"),
			rOut: bi("20000000000000000000"),
			fee:  30,
			want: big.NewInt(0),
		},
		{
			name: "negative_input_returns_zero",
			x:    big.NewInt(-1),
			rIn:  bi("10000000000000000000"),
			rOut: bi("20000000000000000000"),
			fee:  30,
			want: big.NewInt(0),
		},
		{
			name: "nil_input_returns_zero",
			x:    nil,
			rIn:  bi("10000000000000000000"),
			rOut: bi("20000000000000000000"),
			fee:  30,
			want: big.NewInt(0),
		},
		{
			name: "input_past_reserve_limit_returns_zero",
			x:    ReserveLimit(),
			rIn:  bi("1"),
			rOut: bi("20000000000000000000"),
			fee:  30,
			want: big.NewInt(0),
		},
		{
			name: "zero_fee",
			x:    bi("1000"),
			rIn:  bi("10000"),
			rOut: bi("20000"),
			fee:  0,
			want: bi("1818"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetAmountOut(tt.x, tt.rIn, tt.rOut, tt.fee)
			if got.Cmp(tt.want) != 0 {
				t.Errorf("GetAmountOut() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGetAmountIn_RoundsInMakersFavor(t *testing.T) {
	// GetAmountIn(GetAmountOut(x)) must be >= x, never less, by the "1 +"
	// ceiling spec.md §4.1 calls out explicitly.
	x := bi("1000000000000000000")
	rIn := bi("10000000000000000000")
	rOut := bi("20000000000000000000")
	fee := 30

	y := GetAmountOut(x, rIn, rOut, fee)
	got := GetAmountIn(y, rIn, rOut, fee)
	if got.Cmp(x) < 0 {
		t.Errorf("GetAmountIn(GetAmountOut(x)) = %s, want >= %s", got, x)
	}
}

func TestGetAmountIn(t *testing.T) {
	tests := []struct {
		name string
		y    *big.Int
		rIn  *big.Int
		rOut *big.Int
		fee  int
		want *big.Int
	}{
		{
			name: "zero_output_returns_zero",
			y:    big.NewInt(0),
			rIn:  bi("10000"),
			rOut: bi("20000"),
			fee:  30,
			want: big.NewInt(0),
		},
		{
			name: "output_equals_reserve_returns_zero",
			y:    bi("20000"),
			rIn:  bi("10000"),
			rOut: bi("20000"),
			fee:  30,
			want: big.NewInt(0),
		},
		{
			name: "output_exceeds_reserve_returns_zero",
			y:    bi("30000"),
			rIn:  bi("10000"),
			rOut: bi("20000"),
			fee:  30,
			want: big.NewInt(0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetAmountIn(tt.y, tt.rIn, tt.rOut, tt.fee)
			if got.Cmp(tt.want) != 0 {
				t.Errorf("GetAmountIn() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestComposeSellPath(t *testing.T) {
	legs := []PoolLeg{
		{ReserveIn: bi("10000000000000000000"), ReserveOut: bi("20000000000000000000"), Fee: 30},
		{ReserveIn: bi("20000000000000000000"), ReserveOut: bi("5000000000000000000"), Fee: 30},
	}

	hop1 := GetAmountOut(bi("1000000000000000000"), legs[0].ReserveIn, legs[0].ReserveOut, legs[0].Fee)
	want := GetAmountOut(hop1, legs[1].ReserveIn, legs[1].ReserveOut, legs[1].Fee)

	got := ComposeSellPath(bi("1000000000000000000"), legs)
	if got.Cmp(want) != 0 {
		t.Errorf("ComposeSellPath() = %s, want %s", got, want)
	}
}

func TestComposeSellPath_ZeroOutputShortCircuits(t *testing.T) {
	legs := []PoolLeg{
		{ReserveIn: bi("1"), ReserveOut: bi("1"), Fee: 10000}, // fee == F forces a zero quote
		{ReserveIn: bi("10000000000000000000"), ReserveOut: bi("20000000000000000000"), Fee: 30},
	}
	got := ComposeSellPath(bi("1000000000000000000"), legs)
	if got.Sign() != 0 {
		t.Errorf("ComposeSellPath() = %s, want 0 after a zero-output hop", got)
	}
}

func TestComposeBuyPath(t *testing.T) {
	legs := []PoolLeg{
		{ReserveIn: bi("10000000000000000000"), ReserveOut: bi("20000000000000000000"), Fee: 30},
		{ReserveIn: bi("20000000000000000000"), ReserveOut: bi("5000000000000000000"), Fee: 30},
	}

	hop2 := GetAmountIn(bi("1000000000000000000"), legs[1].ReserveIn, legs[1].ReserveOut, legs[1].Fee)
	want := GetAmountIn(hop2, legs[0].ReserveIn, legs[0].ReserveOut, legs[0].Fee)

	got := ComposeBuyPath(bi("1000000000000000000"), legs)
	if got.Cmp(want) != 0 {
		t.Errorf("ComposeBuyPath() = %s, want %s", got, want)
	}
}
