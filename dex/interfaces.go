package dex

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/arbbot/types"
)

// QuoteProvider represents a decentralized exchange venue that can quote a
// swap for an ordered token pair. Implementations normalize venue-specific
// pool state into a types.Quote so quotes from different venues are directly
// comparable. Quote failures (no pool, empty reserves, unreachable data
// source, timeout) are reported as types.ErrQuoteUnavailable; providers never
// retry internally.
type QuoteProvider interface {
	// Name returns the venue name
	Name() string

	// GetQuote returns a normalized quote for swapping amountIn of tokenIn
	// into tokenOut
	GetQuote(ctx context.Context, tokenIn, tokenOut types.Token, amountIn *big.Int) (*types.Quote, error)

	// EstimateReturn estimates the output amount for a swap along path
	EstimateReturn(ctx context.Context, amountIn *big.Int, path []common.Address) (*big.Int, error)

	// GetAmountIn calculates required input amount for desired output
	GetAmountIn(ctx context.Context, amountOut *big.Int, path []common.Address) (*big.Int, error)
}

// RouterProvider defines an interface for venues that expose a router
// contract for trade submission
type RouterProvider interface {
	GetRouterAddress() common.Address
}
