package domain

import (
	"math/big"
	"testing"
)

func TestGasCost_ScalarAndSequence(t *testing.T) {
	scalar := NewScalarGasCost(big.NewInt(120000))
	if !scalar.IsScalar() || scalar.IsSequence() {
		t.Fatalf("NewScalarGasCost() shape wrong: isScalar=%v isSequence=%v", scalar.IsScalar(), scalar.IsSequence())
	}
	if scalar.Scalar().Cmp(big.NewInt(120000)) != 0 {
		t.Errorf("Scalar() = %s, want 120000", scalar.Scalar())
	}

	seq := NewSequenceGasCost([]*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)})
	if !seq.IsSequence() || seq.IsScalar() {
		t.Fatalf("NewSequenceGasCost() shape wrong: isScalar=%v isSequence=%v", seq.IsScalar(), seq.IsSequence())
	}
	if seq.Len() != 3 {
		t.Errorf("Len() = %d, want 3", seq.Len())
	}
}

func TestToImprovedPoolPrices_EmptyYieldsOneDiagnosticEnvelope(t *testing.T) {
	out := ToImprovedPoolPrices[any]("uniswapv2", nil)
	if len(out) != 1 {
		t.Fatalf("ToImprovedPoolPrices() len = %d, want 1", len(out))
	}
	if out[0].Prices != nil {
		t.Errorf("ToImprovedPoolPrices() Prices = %+v, want nil", out[0].Prices)
	}
	if out[0].DexKey != "uniswapv2" {
		t.Errorf("ToImprovedPoolPrices() DexKey = %q, want uniswapv2", out[0].DexKey)
	}
}

func TestToImprovedPoolPrices_OneEnvelopePerPool(t *testing.T) {
	pps := []PoolPrices[any]{
		{PoolIdentifier: NewPoolIdentifier("uniswapv2", "0xa_0xb")},
		{PoolIdentifier: NewPoolIdentifier("uniswapv2", "0xc_0xd")},
	}
	out := ToImprovedPoolPrices("uniswapv2", pps)
	if len(out) != 2 {
		t.Fatalf("ToImprovedPoolPrices() len = %d, want 2", len(out))
	}
	for i, env := range out {
		if env.Prices == nil {
			t.Fatalf("envelope %d: Prices = nil, want non-nil", i)
		}
		if env.PoolID != pps[i].PoolIdentifier {
			t.Errorf("envelope %d: PoolID = %q, want %q", i, env.PoolID, pps[i].PoolIdentifier)
		}
	}
}

func TestErrorEnvelope(t *testing.T) {
	env := ErrorEnvelope[any]("uniswapv2", "Timeout")
	if env.Prices != nil {
		t.Errorf("ErrorEnvelope() Prices = %+v, want nil", env.Prices)
	}
	if env.PoolID != "Timeout" {
		t.Errorf("ErrorEnvelope() PoolID = %q, want %q", env.PoolID, "Timeout")
	}
}

func TestFeeOnTransferSkipEnvelope(t *testing.T) {
	env := FeeOnTransferSkipEnvelope[any]("uniswapv2")
	if env.Prices != nil {
		t.Errorf("FeeOnTransferSkipEnvelope() Prices = %+v, want nil", env.Prices)
	}
	if env.PoolID != DiagnosticPoolID {
		t.Errorf("FeeOnTransferSkipEnvelope() PoolID = %q, want %q", env.PoolID, DiagnosticPoolID)
	}
}
