package market

import (
	"testing"

	"sniper/pkg/types"
)

func TestParseBitcoinComplex(t *testing.T) {
	t.Parallel()

	p := NewParser()
	asset, strike, ok := p.Parse("Will Bitcoin be above $98,123.45 at 12:00 UTC?")
	if !ok {
		t.Fatal("Parse() should succeed")
	}
	if asset != types.BTC {
		t.Errorf("asset = %v, want BTC", asset)
	}
	if strike != 98123.45 {
		t.Errorf("strike = %v, want 98123.45", strike)
	}
}

func TestParseEthShorthand(t *testing.T) {
	t.Parallel()

	p := NewParser()
	asset, strike, ok := p.Parse("ETH > 2500 on Dec 17?")
	if !ok || asset != types.ETH || strike != 2500 {
		t.Fatalf("Parse() = (%v, %v, %v), want (ETH, 2500, true)", asset, strike, ok)
	}
}

func TestParseKSuffix(t *testing.T) {
	t.Parallel()

	p := NewParser()
	asset, strike, ok := p.Parse("Will BTC be above 100k?")
	if !ok || asset != types.BTC || strike != 100000 {
		t.Fatalf("Parse() = (%v, %v, %v), want (BTC, 100000, true)", asset, strike, ok)
	}
}

func TestParseBelow(t *testing.T) {
	t.Parallel()

	p := NewParser()
	asset, strike, ok := p.Parse("Will Solana be below $145.50?")
	if !ok || asset != types.SOL || strike != 145.50 {
		t.Fatalf("Parse() = (%v, %v, %v), want (SOL, 145.50, true)", asset, strike, ok)
	}
}

func TestParseMissingAssetReturnsAbsent(t *testing.T) {
	t.Parallel()

	p := NewParser()
	if _, _, ok := p.Parse("Will the Fed cut rates above 25bps?"); ok {
		t.Fatal("Parse() should be absent without a recognized asset")
	}
}

func TestParseMissingStrikeReturnsAbsent(t *testing.T) {
	t.Parallel()

	p := NewParser()
	if _, _, ok := p.Parse("Will Bitcoin reach a new all-time high this year?"); ok {
		t.Fatal("Parse() should be absent without a strike")
	}
}
