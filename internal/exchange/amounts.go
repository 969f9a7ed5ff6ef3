package exchange

import (
	"math/big"

	"github.com/shopspring/decimal"

	"sniper/pkg/types"
)

// usdcScale is the fixed-point scale for both USDC and CTF outcome token
// amounts (6 decimals).
const usdcScale = 1_000_000

// PriceToAmounts converts a human-readable price (in [0,1]) and size (in
// outcome tokens) into makerAmount/takerAmount fixed-point integers.
//
// For BUY: maker pays price*size USDC, taker gives size tokens.
// For SELL: maker gives size tokens, taker pays price*size USDC.
func PriceToAmounts(price, size float64, side types.Side) (makerAmt, takerAmt *big.Int) {
	p := decimal.NewFromFloat(price)
	sz := decimal.NewFromFloat(size)
	scale := decimal.NewFromInt(usdcScale)

	usdcAmount := sz.Mul(p).Mul(scale).Floor().BigInt()
	tokenAmount := sz.Mul(scale).Floor().BigInt()

	switch side {
	case types.BUY:
		return usdcAmount, tokenAmount
	default:
		return tokenAmount, usdcAmount
	}
}
