package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"

	"github.com/michaelpento.lv/arbbot/types"
)

const pairCacheSize = 512

// priceScale normalizes quotes to output per 1e18 input units
var priceScale = big.NewInt(1e18)

// V2Venue implements QuoteProvider for any Uniswap-V2-compatible exchange.
// Venue packages (uniswap, sushiswap) configure it with their factory, router
// and pair init code hash.
type V2Venue struct {
	name        string
	client      *ethclient.Client
	factory     common.Address
	router      common.Address
	initCode    []byte
	limiter     *rate.Limiter
	callTimeout time.Duration
	pairs       *lru.Cache
}

// V2Config carries the per-venue constants for a V2-compatible exchange
type V2Config struct {
	Name     string
	Factory  common.Address
	Router   common.Address
	InitCode []byte
}

// NewV2Venue creates a venue adapter. The limiter is shared across venues so
// total RPC quote traffic stays within the configured budget; it may be nil.
func NewV2Venue(client *ethclient.Client, cfg V2Config, limiter *rate.Limiter, callTimeout time.Duration) (*V2Venue, error) {
	cache, err := lru.New(pairCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create pair cache: %w", err)
	}

	if callTimeout <= 0 {
		callTimeout = 5 * time.Second
	}

	return &V2Venue{
		name:        cfg.Name,
		client:      client,
		factory:     cfg.Factory,
		router:      cfg.Router,
		initCode:    cfg.InitCode,
		limiter:     limiter,
		callTimeout: callTimeout,
		pairs:       cache,
	}, nil
}

// Name returns the venue name
func (v *V2Venue) Name() string {
	return v.name
}

// GetRouterAddress returns the router contract address
func (v *V2Venue) GetRouterAddress() common.Address {
	return v.router
}

// GetQuote returns a normalized quote for swapping amountIn of tokenIn into
// tokenOut. Any failure to read pool state, including zero reserves, maps to
// types.ErrQuoteUnavailable so the caller can skip this venue for the pass.
func (v *V2Venue) GetQuote(ctx context.Context, tokenIn, tokenOut types.Token, amountIn *big.Int) (*types.Quote, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("%w: non-positive input amount", types.ErrQuoteUnavailable)
	}

	reserveIn, reserveOut, err := v.orderedReserves(ctx, tokenIn.Address, tokenOut.Address)
	if err != nil {
		return nil, err
	}

	amountOut := GetAmountOut(amountIn, reserveIn, reserveOut)
	if amountOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s drains %s/%s pool", types.ErrQuoteUnavailable, v.name, tokenIn.Symbol, tokenOut.Symbol)
	}

	price := new(big.Int).Div(new(big.Int).Mul(amountOut, priceScale), amountIn)

	return &types.Quote{
		Venue:     v.name,
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  new(big.Int).Set(amountIn),
		AmountOut: amountOut,
		Price:     price,
		Path:      []common.Address{tokenIn.Address, tokenOut.Address},
	}, nil
}

// EstimateReturn estimates the output amount for a swap along path
func (v *V2Venue) EstimateReturn(ctx context.Context, amountIn *big.Int, path []common.Address) (*big.Int, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("%w: invalid path length %d", types.ErrQuoteUnavailable, len(path))
	}

	amount := new(big.Int).Set(amountIn)
	for i := 0; i < len(path)-1; i++ {
		reserveIn, reserveOut, err := v.orderedReserves(ctx, path[i], path[i+1])
		if err != nil {
			return nil, err
		}
		amount = GetAmountOut(amount, reserveIn, reserveOut)
		if amount.Sign() <= 0 {
			return nil, fmt.Errorf("%w: hop %d exhausts pool", types.ErrQuoteUnavailable, i)
		}
	}

	return amount, nil
}

// GetAmountIn calculates required input amount for desired output along path
func (v *V2Venue) GetAmountIn(ctx context.Context, amountOut *big.Int, path []common.Address) (*big.Int, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("%w: invalid path length %d", types.ErrQuoteUnavailable, len(path))
	}

	amount := new(big.Int).Set(amountOut)
	for i := len(path) - 1; i > 0; i-- {
		reserveIn, reserveOut, err := v.orderedReserves(ctx, path[i-1], path[i])
		if err != nil {
			return nil, err
		}
		amount = GetAmountIn(amount, reserveIn, reserveOut)
		if amount.Sign() <= 0 {
			return nil, fmt.Errorf("%w: hop %d not satisfiable", types.ErrQuoteUnavailable, i)
		}
	}

	return amount, nil
}

// orderedReserves fetches pool reserves oriented for a tokenIn -> tokenOut
// swap. Pool contracts store reserves keyed by sorted token addresses.
func (v *V2Venue) orderedReserves(ctx context.Context, tokenIn, tokenOut common.Address) (reserveIn, reserveOut *big.Int, err error) {
	if v.limiter != nil {
		if err := v.limiter.Wait(ctx); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", types.ErrQuoteUnavailable, err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, v.callTimeout)
	defer cancel()

	pair, err := v.getPair(tokenIn, tokenOut)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", types.ErrQuoteUnavailable, err)
	}

	reserve0, reserve1, err := pair.GetReserves(callCtx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", types.ErrQuoteUnavailable, err)
	}
	if reserve0.Sign() == 0 || reserve1.Sign() == 0 {
		return nil, nil, fmt.Errorf("%w: empty reserves on %s", types.ErrQuoteUnavailable, v.name)
	}

	if sortsBefore(tokenIn, tokenOut) {
		return reserve0, reserve1, nil
	}
	return reserve1, reserve0, nil
}

// getPair returns the cached pair binding for two tokens
func (v *V2Venue) getPair(token0, token1 common.Address) (*Pair, error) {
	addr := v.PairFor(token0, token1)
	if cached, ok := v.pairs.Get(addr); ok {
		return cached.(*Pair), nil
	}

	pair, err := NewPair(addr, v.client)
	if err != nil {
		return nil, fmt.Errorf("failed to bind pair contract: %w", err)
	}

	v.pairs.Add(addr, pair)
	return pair, nil
}

// PairFor calculates the CREATE2 pair address for two tokens
func (v *V2Venue) PairFor(token0, token1 common.Address) common.Address {
	if !sortsBefore(token0, token1) {
		token0, token1 = token1, token0
	}

	salt := crypto.Keccak256(token0.Bytes(), token1.Bytes())
	return common.BytesToAddress(crypto.Keccak256([]byte{
		0xff,
	}, v.factory.Bytes(), salt, v.initCode))
}

// sortsBefore reports whether a precedes b in the pool's token ordering.
// Pools order tokens by raw address bytes, not by checksummed hex.
func sortsBefore(a, b common.Address) bool {
	return bytes.Compare(a.Bytes(), b.Bytes()) < 0
}

// GetAmountOut calculates output amount for an input amount using the
// constant product formula with the 0.3% LP fee
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	if amountIn.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return big.NewInt(0)
	}

	amountInWithFee := new(big.Int).Mul(amountIn, big.NewInt(997))
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Add(
		new(big.Int).Mul(reserveIn, big.NewInt(1000)),
		amountInWithFee,
	)
	return new(big.Int).Div(numerator, denominator)
}

// GetAmountIn calculates input amount for a desired output amount
func GetAmountIn(amountOut, reserveIn, reserveOut *big.Int) *big.Int {
	if amountOut.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return big.NewInt(0)
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return big.NewInt(0)
	}

	numerator := new(big.Int).Mul(
		new(big.Int).Mul(reserveIn, amountOut),
		big.NewInt(1000),
	)
	denominator := new(big.Int).Mul(
		new(big.Int).Sub(reserveOut, amountOut),
		big.NewInt(997),
	)
	return new(big.Int).Add(
		new(big.Int).Div(numerator, denominator),
		big.NewInt(1),
	)
}
