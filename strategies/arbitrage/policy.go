package arbitrage

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbbot/types"
	bigmath "github.com/michaelpento.lv/arbbot/utils/math"
)

// PolicyMode selects how the minimum-profit threshold is applied
type PolicyMode string

const (
	// PolicyDeterministic executes iff netProfit >= threshold
	PolicyDeterministic PolicyMode = "deterministic"
	// PolicyProbabilistic additionally executes below-threshold positive
	// opportunities with probability netProfit/threshold
	PolicyProbabilistic PolicyMode = "probabilistic"
)

// Policy turns an approved opportunity into a single-use trade descriptor,
// or skips it with types.ErrThresholdNotMet.
type Policy struct {
	mode        PolicyMode
	threshold   *big.Int
	slippageBps int64
	deadline    time.Duration
	routers     map[string]common.Address
	rng         func() float64
	logger      *zap.Logger
}

// NewPolicy creates a decision policy. rng is the injectable random source
// for probabilistic mode; it must return values in [0,1) and may be nil for
// deterministic mode.
func NewPolicy(mode PolicyMode, threshold *big.Int, slippageBps int64, deadline time.Duration, routers map[string]common.Address, rng func() float64, logger *zap.Logger) *Policy {
	return &Policy{
		mode:        mode,
		threshold:   threshold,
		slippageBps: slippageBps,
		deadline:    deadline,
		routers:     routers,
		rng:         rng,
		logger:      logger,
	}
}

// Decide approves or skips an opportunity. On approval it returns the trade
// descriptor with the slippage-protected minimum output and a fresh deadline;
// on skip it returns types.ErrThresholdNotMet.
func (p *Policy) Decide(opp *types.Opportunity, now time.Time) (*types.TradeDescriptor, error) {
	if !p.approves(opp.NetProfit) {
		return nil, fmt.Errorf("%w: net profit %s below threshold %s",
			types.ErrThresholdNotMet, opp.NetProfit, p.threshold)
	}

	router, ok := p.routers[opp.Quote.Venue]
	if !ok {
		return nil, fmt.Errorf("no router configured for venue %s", opp.Quote.Venue)
	}

	return &types.TradeDescriptor{
		Venue:        opp.Quote.Venue,
		Router:       router,
		Path:         opp.Quote.Path,
		AmountIn:     bigmath.Clone(opp.AmountIn),
		AmountOut:    bigmath.Clone(opp.Quote.AmountOut),
		MinAmountOut: bigmath.SubBps(opp.Quote.AmountOut, p.slippageBps),
		Deadline:     now.Add(p.deadline),
	}, nil
}

// approves applies the threshold rule for the configured mode
func (p *Policy) approves(netProfit *big.Int) bool {
	if netProfit.Cmp(p.threshold) >= 0 {
		return true
	}
	if p.mode != PolicyProbabilistic || p.rng == nil {
		return false
	}
	if netProfit.Sign() <= 0 {
		return false
	}

	// Execution probability is proportional to how close the profit is to
	// the threshold, clamped to [0,1]. The ratio is a probability, not an
	// amount, so the float conversion cannot corrupt profit arithmetic.
	ratio, _ := new(big.Rat).SetFrac(netProfit, p.threshold).Float64()
	if ratio > 1 {
		ratio = 1
	}
	roll := p.rng()
	accept := roll < ratio
	p.logger.Debug("probabilistic threshold roll",
		zap.Float64("ratio", ratio),
		zap.Float64("roll", roll),
		zap.Bool("accept", accept))
	return accept
}
