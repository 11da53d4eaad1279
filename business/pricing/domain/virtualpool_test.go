package domain

import (
	"math/big"
	"testing"
)

func TestDeriveVirtualPool(t *testing.T) {
	// jk pair: token j is token0, common token k is token1.
	jk := NewPoolState(bi("5000000000000000000"), bi("10000000000000000000"), 30)
	// ik pair: common token k is token0, token i is token1.
	ik := NewPoolState(bi("20000000000000000000"), bi("8000000000000000000"), 25)

	jkLeg := NewLegCommonToken(jk, false) // k is token1 of jk
	ikLeg := NewLegCommonToken(ik, true)  // k is token0 of ik

	vp, ok := DeriveVirtualPool(jkLeg, ikLeg)
	if !ok {
		t.Fatalf("DeriveVirtualPool() ok = false, want true")
	}

	// reserveJ is jk's non-common leg, unscaled.
	if vp.ReserveJ.Cmp(jk.Reserve0) != 0 {
		t.Errorf("ReserveJ = %s, want %s", vp.ReserveJ, jk.Reserve0)
	}

	// reserveI = ik's non-common leg * reserveKFromJK / reserveKFromIK
	wantI := new(big.Int).Mul(ik.Reserve1, jk.Reserve1)
	wantI.Div(wantI, ik.Reserve0)
	if vp.ReserveI.Cmp(wantI) != 0 {
		t.Errorf("ReserveI = %s, want %s", vp.ReserveI, wantI)
	}

	if vp.Fee != 30 {
		t.Errorf("Fee = %d, want max(30,25) = 30", vp.Fee)
	}
}

func TestDeriveVirtualPool_ZeroCommonReserve(t *testing.T) {
	jk := NewPoolState(bi("5000000000000000000"), big.NewInt(0), 30)
	ik := NewPoolState(bi("20000000000000000000"), bi("8000000000000000000"), 25)

	jkLeg := NewLegCommonToken(jk, false)
	ikLeg := NewLegCommonToken(ik, true)

	_, ok := DeriveVirtualPool(jkLeg, ikLeg)
	if ok {
		t.Fatalf("DeriveVirtualPool() ok = true, want false for a zero common-token reserve")
	}
}

func TestVirtualPool_Quote(t *testing.T) {
	vp := VirtualPool{ReserveI: bi("10000000000000000000"), ReserveJ: bi("20000000000000000000"), Fee: 30}

	sellIToJ := vp.Quote(bi("1000000000000000000"), true, true)
	want := GetAmountOut(bi("1000000000000000000"), vp.ReserveI, vp.ReserveJ, vp.Fee)
	if sellIToJ.Cmp(want) != 0 {
		t.Errorf("Quote(sell, i->j) = %s, want %s", sellIToJ, want)
	}

	buyJToI := vp.Quote(bi("1000000000000000000"), false, false)
	wantBuy := GetAmountIn(bi("1000000000000000000"), vp.ReserveJ, vp.ReserveI, vp.Fee)
	if buyJToI.Cmp(wantBuy) != 0 {
		t.Errorf("Quote(buy, j->i) = %s, want %s", buyJToI, wantBuy)
	}
}
