package exchange

import (
	"testing"

	"sniper/pkg/types"
)

func TestPriceToAmountsBuy(t *testing.T) {
	t.Parallel()

	maker, taker := PriceToAmounts(0.65, 20, types.BUY)
	if maker.Int64() != 13_000_000 {
		t.Errorf("makerAmt = %v, want 13000000 (20*0.65 USDC scaled)", maker)
	}
	if taker.Int64() != 20_000_000 {
		t.Errorf("takerAmt = %v, want 20000000 (20 tokens scaled)", taker)
	}
}

func TestPriceToAmountsSell(t *testing.T) {
	t.Parallel()

	maker, taker := PriceToAmounts(0.40, 10, types.SELL)
	if maker.Int64() != 10_000_000 {
		t.Errorf("makerAmt = %v, want 10000000 (10 tokens scaled)", maker)
	}
	if taker.Int64() != 4_000_000 {
		t.Errorf("takerAmt = %v, want 4000000 (10*0.40 USDC scaled)", taker)
	}
}

func TestPriceToAmountsTruncatesFractionalScale(t *testing.T) {
	t.Parallel()

	maker, _ := PriceToAmounts(0.333333, 1, types.BUY)
	if maker.Int64() != 333_333 {
		t.Errorf("makerAmt = %v, want truncated 333333", maker)
	}
}
