package arbitrage

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/michaelpento.lv/arbbot/dex"
	"github.com/michaelpento.lv/arbbot/gas"
	"github.com/michaelpento.lv/arbbot/tokens"
	"github.com/michaelpento.lv/arbbot/types"
	"github.com/michaelpento.lv/arbbot/utils/metrics"
)

// GasSource supplies buffered gas cost estimates for a trade size
type GasSource interface {
	EstimateGasCost(ctx context.Context, gasUnits uint64) (*types.GasEstimate, error)
}

// BalanceChecker is an optional pre-filter; evaluation proceeds regardless of
// its failures
type BalanceChecker interface {
	Balance(ctx context.Context, token types.Token, owner common.Address) (*big.Int, error)
}

// EvaluatorConfig bounds one scan pass
type EvaluatorConfig struct {
	UniverseSize int
	// AmountIn is the input size per candidate, in Base's smallest unit
	AmountIn *big.Int
	// Base is the numeraire every candidate is anchored on. Input, output
	// value and gas cost all share its denomination.
	Base        types.Token
	Concurrency int
	Triangular  bool
	Owner       common.Address
}

// Evaluator enumerates candidates over the token universe and tracks the
// single best opportunity of the pass. Every candidate is anchored on the
// base token: pair candidates trade base -> token and are valued back into
// base units through the best reverse quote, triangular candidates are
// base -> x -> y -> base cycles whose final hop already lands in base units.
// A candidate or venue failure degrades that candidate; it never aborts the
// pass.
type Evaluator struct {
	providers []dex.QuoteProvider // venue priority order
	gasSrc    GasSource
	universe  tokens.Source
	balances  BalanceChecker
	calc      ProfitCalculator
	cfg       EvaluatorConfig
	metrics   *metrics.ScanMetrics
	logger    *zap.Logger
}

// NewEvaluator creates an evaluator. balances may be nil; m may be nil.
func NewEvaluator(providers []dex.QuoteProvider, gasSrc GasSource, universe tokens.Source, balances BalanceChecker, cfg EvaluatorConfig, m *metrics.ScanMetrics, logger *zap.Logger) *Evaluator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 4
	}
	return &Evaluator{
		providers: providers,
		gasSrc:    gasSrc,
		universe:  universe,
		balances:  balances,
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
	}
}

// bestTracker keeps the running best opportunity of a pass. Strict
// improvement only, so the first candidate seen wins exact ties.
type bestTracker struct {
	mu   sync.Mutex
	best *types.Opportunity
}

func (b *bestTracker) consider(opp *types.Opportunity) {
	if opp == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.best == nil || opp.NetProfit.Cmp(b.best.NetProfit) > 0 {
		b.best = opp
	}
}

// BestOpportunity runs one evaluation pass and returns the single best
// opportunity found, or nil when no candidate produced a usable comparison.
// Only a failure to list the token universe is reported as an error.
func (e *Evaluator) BestOpportunity(ctx context.Context) (*types.Opportunity, error) {
	universe, err := e.universe.TopTokens(ctx, e.cfg.UniverseSize)
	if err != nil {
		return nil, err
	}

	// The base token itself is not a candidate counterparty.
	candidates := make([]types.Token, 0, len(universe))
	for _, tok := range universe {
		if tok.Address != e.cfg.Base.Address {
			candidates = append(candidates, tok)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	tracker := &bestTracker{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)

	for _, tok := range candidates {
		token := tok
		g.Go(func() error {
			tracker.consider(e.evaluatePair(gctx, token))
			return nil
		})
	}

	if e.cfg.Triangular && len(candidates) >= 2 {
		for i := range candidates {
			for j := range candidates {
				if i == j {
					continue
				}
				x, y := candidates[i], candidates[j]
				g.Go(func() error {
					tracker.consider(e.evaluateCycle(gctx, x, y))
					return nil
				})
			}
		}
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tracker.best, nil
}

// evaluatePair scores one base -> token candidate across all venues. The
// winning quote's output is valued back into base units before profit is
// computed, so amounts in different denominations never get subtracted from
// one another. Returns nil when the candidate cannot be scored this pass.
func (e *Evaluator) evaluatePair(ctx context.Context, token types.Token) *types.Opportunity {
	base := e.cfg.Base
	if e.skipByBalance(ctx, base, token) {
		return nil
	}

	quotes := make([]*types.Quote, 0, len(e.providers))
	for _, p := range e.providers {
		q, err := p.GetQuote(ctx, base, token, e.cfg.AmountIn)
		if err != nil {
			e.countQuoteMiss()
			if !errors.Is(err, types.ErrQuoteUnavailable) {
				e.logger.Warn("unexpected quote failure",
					zap.String("venue", p.Name()),
					zap.String("pair", base.Symbol+"/"+token.Symbol),
					zap.Error(err))
			}
			continue
		}
		quotes = append(quotes, q)
	}
	if len(quotes) == 0 {
		return nil
	}

	best, err := e.calc.Best(quotes)
	if err != nil {
		return nil
	}

	valueOut := e.valueInBase(ctx, token, best.AmountOut)
	if valueOut == nil {
		e.logger.Debug("skipping candidate, output not priceable in base units",
			zap.String("pair", base.Symbol+"/"+token.Symbol))
		return nil
	}

	gasEst, err := e.gasSrc.EstimateGasCost(ctx, gas.SwapGas(1))
	if err != nil {
		e.logger.Debug("skipping candidate without gas estimate",
			zap.String("pair", base.Symbol+"/"+token.Symbol), zap.Error(err))
		return nil
	}

	net, err := e.calc.Net(valueOut, e.cfg.AmountIn, gasEst)
	if err != nil {
		return nil
	}

	return &types.Opportunity{
		Kind:      types.KindPair,
		Quote:     best,
		Gas:       gasEst,
		AmountIn:  new(big.Int).Set(e.cfg.AmountIn),
		NetProfit: net,
	}
}

// valueInBase prices an output amount of token back into base units using
// the best reverse quote across all venues. Returns nil when no venue can
// quote the reverse leg; such a candidate has no expressible value and is
// skipped rather than scored in mismatched units.
func (e *Evaluator) valueInBase(ctx context.Context, token types.Token, amount *big.Int) *big.Int {
	var best *big.Int
	for _, p := range e.providers {
		q, err := p.GetQuote(ctx, token, e.cfg.Base, amount)
		if err != nil {
			e.countQuoteMiss()
			continue
		}
		if best == nil || q.AmountOut.Cmp(best) > 0 {
			best = q.AmountOut
		}
	}
	return best
}

// evaluateCycle scores one triangular cycle base -> x -> y -> base per venue
// and keeps the venue with the highest final output.
func (e *Evaluator) evaluateCycle(ctx context.Context, x, y types.Token) *types.Opportunity {
	base := e.cfg.Base
	path := []common.Address{base.Address, x.Address, y.Address, base.Address}

	var bestOut *big.Int
	var bestVenue string
	for _, p := range e.providers {
		out, err := p.EstimateReturn(ctx, e.cfg.AmountIn, path)
		if err != nil {
			e.countQuoteMiss()
			continue
		}
		if bestOut == nil || out.Cmp(bestOut) > 0 {
			bestOut = out
			bestVenue = p.Name()
		}
	}
	if bestOut == nil {
		return nil
	}

	gasEst, err := e.gasSrc.EstimateGasCost(ctx, gas.SwapGas(3))
	if err != nil {
		return nil
	}

	net, err := e.calc.Net(bestOut, e.cfg.AmountIn, gasEst)
	if err != nil {
		return nil
	}

	price := new(big.Int).Div(new(big.Int).Mul(bestOut, big.NewInt(1e18)), e.cfg.AmountIn)

	return &types.Opportunity{
		Kind: types.KindTriangular,
		Quote: &types.Quote{
			Venue:     bestVenue,
			TokenIn:   base,
			TokenOut:  base,
			AmountIn:  new(big.Int).Set(e.cfg.AmountIn),
			AmountOut: bestOut,
			Price:     price,
			Path:      path,
		},
		Gas:       gasEst,
		AmountIn:  new(big.Int).Set(e.cfg.AmountIn),
		NetProfit: net,
	}
}

// skipByBalance reports whether both candidate tokens have zero tradable
// balance. Any lookup failure fails open: the candidate is still evaluated.
func (e *Evaluator) skipByBalance(ctx context.Context, tokenIn, tokenOut types.Token) bool {
	if e.balances == nil {
		return false
	}

	balIn, err := e.balances.Balance(ctx, tokenIn, e.cfg.Owner)
	if err != nil {
		return false
	}
	balOut, err := e.balances.Balance(ctx, tokenOut, e.cfg.Owner)
	if err != nil {
		return false
	}

	if balIn.Sign() == 0 && balOut.Sign() == 0 {
		e.logger.Debug("skipping candidate, no tradable balance",
			zap.String("pair", tokenIn.Symbol+"/"+tokenOut.Symbol))
		return true
	}
	return false
}

func (e *Evaluator) countQuoteMiss() {
	if e.metrics != nil {
		e.metrics.QuoteErrors.Inc()
	}
}
