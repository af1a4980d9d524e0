package arbitrage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbbot/notify"
	"github.com/michaelpento.lv/arbbot/types"
	"github.com/michaelpento.lv/arbbot/utils/metrics"
)

// TradeExecutor is the submission boundary consumed by the engine
type TradeExecutor interface {
	Execute(ctx context.Context, td *types.TradeDescriptor) error
	Pending() bool
}

// Notifier receives scan events; delivery must never block the pass
type Notifier interface {
	Notify(event, title, message string)
}

// EngineConfig controls pass-level behavior
type EngineConfig struct {
	// TriangularSubmit enables automatic submission of triangular
	// opportunities; when false they are reported only.
	TriangularSubmit bool
	// DryRun evaluates and reports without ever submitting
	DryRun bool
}

// Engine runs one full scan pass: evaluate candidates, apply the decision
// policy to the best opportunity, and hand an approved trade to the
// executor. No error inside a pass terminates the scan loop.
type Engine struct {
	evaluator *Evaluator
	policy    *Policy
	executor  TradeExecutor
	notifier  Notifier
	metrics   *metrics.ScanMetrics
	cfg       EngineConfig
	logger    *zap.Logger

	mu       sync.Mutex
	lastPass types.PassResult
}

// NewEngine wires the pass pipeline. m may be nil.
func NewEngine(evaluator *Evaluator, policy *Policy, exec TradeExecutor, notifier Notifier, m *metrics.ScanMetrics, cfg EngineConfig, logger *zap.Logger) *Engine {
	return &Engine{
		evaluator: evaluator,
		policy:    policy,
		executor:  exec,
		notifier:  notifier,
		metrics:   m,
		cfg:       cfg,
		logger:    logger,
	}
}

// RunOnePass executes one scan pass and reports its outcome
func (g *Engine) RunOnePass(ctx context.Context) types.PassResult {
	start := time.Now()
	result := g.runOnePass(ctx)

	if g.metrics != nil {
		g.metrics.PassesTotal.Inc()
		g.metrics.PassDuration.Observe(time.Since(start).Seconds())
		if result.Err != nil {
			g.metrics.PassErrors.Inc()
		}
	}

	g.mu.Lock()
	g.lastPass = result
	g.mu.Unlock()

	return result
}

// LastPass returns the most recent pass result
func (g *Engine) LastPass() types.PassResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastPass
}

func (g *Engine) runOnePass(ctx context.Context) types.PassResult {
	opp, err := g.evaluator.BestOpportunity(ctx)
	if err != nil {
		g.logger.Error("scan pass failed", zap.Error(err))
		g.notifier.Notify(notify.EventPassError, "Scan pass error", err.Error())
		return types.PassResult{Err: err}
	}

	if opp == nil {
		g.logger.Debug("no opportunity this pass")
		g.notifier.Notify(notify.EventNoOpportunity, "No opportunity", "scan pass found no tradable spread")
		return types.PassResult{}
	}

	if g.metrics != nil {
		g.metrics.Opportunities.WithLabelValues(opp.Kind.String()).Inc()
		g.metrics.ObserveProfit(opp.NetProfit)
	}
	g.logger.Info("opportunity found",
		zap.String("kind", opp.Kind.String()),
		zap.String("venue", opp.Quote.Venue),
		zap.String("pair", opp.Quote.TokenIn.Symbol+"/"+opp.Quote.TokenOut.Symbol),
		zap.String("net_profit", opp.NetProfit.String()))
	g.notifier.Notify(notify.EventOpportunityFound, "Opportunity found", describeOpportunity(opp))

	if opp.Kind == types.KindTriangular && !g.cfg.TriangularSubmit {
		g.logger.Info("triangular submission disabled, reporting only")
		return types.PassResult{OpportunityFound: true}
	}

	td, err := g.policy.Decide(opp, time.Now())
	if err != nil {
		if errors.Is(err, types.ErrThresholdNotMet) {
			g.logger.Debug("opportunity below threshold", zap.Error(err))
			g.notifier.Notify(notify.EventOpportunitySkipped, "Opportunity skipped",
				fmt.Sprintf("%s: %v", describeOpportunity(opp), err))
			return types.PassResult{OpportunityFound: true}
		}
		g.logger.Error("decision policy failed", zap.Error(err))
		return types.PassResult{OpportunityFound: true, Err: err}
	}

	if g.executor.Pending() {
		g.logger.Info("prior trade still pending, holding submission")
		return types.PassResult{OpportunityFound: true}
	}

	if g.cfg.DryRun {
		g.logger.Info("dry run, trade not submitted",
			zap.String("venue", td.Venue),
			zap.String("min_out", td.MinAmountOut.String()))
		return types.PassResult{OpportunityFound: true}
	}

	if err := g.executor.Execute(ctx, td); err != nil {
		g.notifier.Notify(notify.EventTradeFailed, "Trade submission failed",
			fmt.Sprintf("venue=%s pair=%s/%s amountIn=%s: %v",
				td.Venue, opp.Quote.TokenIn.Symbol, opp.Quote.TokenOut.Symbol, td.AmountIn, err))
		return types.PassResult{OpportunityFound: true, Err: err}
	}

	return types.PassResult{OpportunityFound: true, Executed: true}
}

func describeOpportunity(opp *types.Opportunity) string {
	return fmt.Sprintf("%s %s %s->%s in=%s out=%s gas=%s net=%s",
		opp.Kind, opp.Quote.Venue,
		opp.Quote.TokenIn.Symbol, opp.Quote.TokenOut.Symbol,
		opp.AmountIn, opp.Quote.AmountOut, opp.Gas.Cost, opp.NetProfit)
}
