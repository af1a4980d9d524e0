package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Token represents an ERC20 token on the target chain
type Token struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
}

// OpportunityKind distinguishes two-venue pair arbitrage from triangular cycles
type OpportunityKind int

const (
	KindPair OpportunityKind = iota
	KindTriangular
)

func (k OpportunityKind) String() string {
	if k == KindTriangular {
		return "triangular"
	}
	return "pair"
}

// Quote is a normalized price proposal from one venue for one ordered pair.
// Price is the output amount per 1e18 input units so quotes from different
// venues are directly comparable. Quotes are valid for a single scan pass.
type Quote struct {
	Venue     string
	TokenIn   Token
	TokenOut  Token
	AmountIn  *big.Int
	AmountOut *big.Int
	Price     *big.Int
	Path      []common.Address
}

// GasEstimate is the expected network fee for a trade, in wei. It carries the
// gas-unit count it was computed from and is only valid for the pass that
// produced it.
type GasEstimate struct {
	Cost     *big.Int
	GasUnits uint64
	Buffered bool
}

// Opportunity is the best quote found for one candidate together with the gas
// estimate it was scored against. NetProfit is only meaningful for exactly
// this Quote/GasEstimate pairing.
type Opportunity struct {
	Kind      OpportunityKind
	Quote     *Quote
	Gas       *GasEstimate
	AmountIn  *big.Int
	NetProfit *big.Int
}

// TradeDescriptor is a fully resolved, single-use trade instruction. A new
// descriptor (with a fresh deadline and quote) must be created for any retry.
type TradeDescriptor struct {
	Venue        string
	Router       common.Address
	Path         []common.Address
	AmountIn     *big.Int
	AmountOut    *big.Int
	MinAmountOut *big.Int
	Deadline     time.Time
}

// Expired reports whether the descriptor's validity window has passed.
func (td *TradeDescriptor) Expired(now time.Time) bool {
	return now.After(td.Deadline)
}

// PassResult summarizes one scan pass for the runner.
type PassResult struct {
	OpportunityFound bool
	Executed         bool
	Err              error
}
