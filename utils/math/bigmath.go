// Package math provides exact big-integer helpers for amount arithmetic.
// All token amounts and profit figures in the bot are *big.Int in the
// smallest unit of the base token; nothing here ever rounds through a float.
package math

import "math/big"

// BpsDenominator is the basis point scale (100% = 10000 bps)
const BpsDenominator = 10000

// ApplyBps returns x * bps / 10000, truncated
func ApplyBps(x *big.Int, bps int64) *big.Int {
	if x == nil {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(x, big.NewInt(bps))
	return out.Div(out, big.NewInt(BpsDenominator))
}

// AddBps returns x * (10000 + bps) / 10000, truncated. Used for safety
// buffers such as gas price headroom.
func AddBps(x *big.Int, bps int64) *big.Int {
	return ApplyBps(x, BpsDenominator+bps)
}

// SubBps returns x * (10000 - bps) / 10000, truncated. Used for slippage
// floors on quoted output amounts.
func SubBps(x *big.Int, bps int64) *big.Int {
	return ApplyBps(x, BpsDenominator-bps)
}

// Clone returns a defensive copy of x, or zero if x is nil
func Clone(x *big.Int) *big.Int {
	if x == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(x)
}

// Max returns the larger of a and b
func Max(a, b *big.Int) *big.Int {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}
