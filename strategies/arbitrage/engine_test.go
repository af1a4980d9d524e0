package arbitrage

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbbot/notify"
	"github.com/michaelpento.lv/arbbot/tokens"
	"github.com/michaelpento.lv/arbbot/types"
)

type recordingExecutor struct {
	mu       sync.Mutex
	pending  bool
	executed []*types.TradeDescriptor
	err      error
}

func (r *recordingExecutor) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

func (r *recordingExecutor) Execute(_ context.Context, td *types.TradeDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.executed = append(r.executed, td)
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) Notify(event, _, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

func profitableEvaluator() *Evaluator {
	uni := &fakeVenue{name: "UniswapV2", rates: map[string]*big.Int{
		pairKey(baseWETH.Address, tokenB.Address): units(1, 20),
	}}
	sushi := &fakeVenue{name: "Sushiswap", rates: map[string]*big.Int{
		pairKey(baseWETH.Address, tokenB.Address): units(0, 990),
		pairKey(tokenB.Address, baseWETH.Address): units(1, 0),
	}}
	return buildEvaluator([]*fakeVenue{uni, sushi}, &fakeGasSource{cost: units(0, 1)},
		tokens.NewStaticSource([]types.Token{baseWETH, tokenB}), nil, false)
}

func emptyEvaluator() *Evaluator {
	uni := &fakeVenue{name: "UniswapV2", rates: map[string]*big.Int{}}
	return buildEvaluator([]*fakeVenue{uni}, &fakeGasSource{cost: units(0, 1)},
		tokens.NewStaticSource([]types.Token{baseWETH, tokenB}), nil, false)
}

func testPolicy(threshold *big.Int) *Policy {
	return NewPolicy(PolicyDeterministic, threshold, 50, 20*time.Minute, testRouters, nil, zap.NewNop())
}

func TestRunOnePassExecutesProfitableTrade(t *testing.T) {
	exec := &recordingExecutor{}
	notes := &recordingNotifier{}

	g := NewEngine(profitableEvaluator(), testPolicy(units(0, 10)), exec, notes,
		nil, EngineConfig{}, zap.NewNop())

	result := g.RunOnePass(context.Background())
	require.NoError(t, result.Err)
	assert.True(t, result.OpportunityFound)
	assert.True(t, result.Executed)

	require.Len(t, exec.executed, 1)
	assert.Equal(t, "UniswapV2", exec.executed[0].Venue)
	assert.Equal(t, 1, notes.count(notify.EventOpportunityFound))
}

func TestRunOnePassNoOpportunityNotifiesOnce(t *testing.T) {
	exec := &recordingExecutor{}
	notes := &recordingNotifier{}

	g := NewEngine(emptyEvaluator(), testPolicy(units(0, 10)), exec, notes,
		nil, EngineConfig{}, zap.NewNop())

	result := g.RunOnePass(context.Background())
	require.NoError(t, result.Err)
	assert.False(t, result.OpportunityFound)

	assert.Equal(t, 1, notes.count(notify.EventNoOpportunity))
	assert.Empty(t, exec.executed)
}

func TestRunOnePassBelowThresholdSkips(t *testing.T) {
	exec := &recordingExecutor{}
	notes := &recordingNotifier{}

	// Threshold above the 0.019 net profit the evaluator will find.
	g := NewEngine(profitableEvaluator(), testPolicy(units(0, 100)), exec, notes,
		nil, EngineConfig{}, zap.NewNop())

	result := g.RunOnePass(context.Background())
	require.NoError(t, result.Err)
	assert.True(t, result.OpportunityFound)
	assert.False(t, result.Executed)
	assert.Empty(t, exec.executed)
	assert.Equal(t, 1, notes.count(notify.EventOpportunityFound), "skipped opportunities are still reported")
	assert.Equal(t, 1, notes.count(notify.EventOpportunitySkipped), "the skip itself is reported")
}

func TestRunOnePassHoldsWhileTradePending(t *testing.T) {
	exec := &recordingExecutor{pending: true}
	notes := &recordingNotifier{}

	g := NewEngine(profitableEvaluator(), testPolicy(units(0, 10)), exec, notes,
		nil, EngineConfig{}, zap.NewNop())

	result := g.RunOnePass(context.Background())
	require.NoError(t, result.Err)
	assert.True(t, result.OpportunityFound)
	assert.False(t, result.Executed)
	assert.Empty(t, exec.executed)
}

func TestRunOnePassDryRun(t *testing.T) {
	exec := &recordingExecutor{}
	notes := &recordingNotifier{}

	g := NewEngine(profitableEvaluator(), testPolicy(units(0, 10)), exec, notes,
		nil, EngineConfig{DryRun: true}, zap.NewNop())

	result := g.RunOnePass(context.Background())
	require.NoError(t, result.Err)
	assert.True(t, result.OpportunityFound)
	assert.False(t, result.Executed)
	assert.Empty(t, exec.executed)
	assert.Equal(t, 1, notes.count(notify.EventOpportunityFound))
}

func triangularEvaluator() *Evaluator {
	uni := &fakeVenue{name: "UniswapV2", rates: map[string]*big.Int{}, cycleOut: units(1, 50)}
	return buildEvaluator([]*fakeVenue{uni}, &fakeGasSource{cost: units(0, 4)},
		tokens.NewStaticSource([]types.Token{baseWETH, tokenB, tokenC}), nil, true)
}

func TestRunOnePassTriangularReportOnly(t *testing.T) {
	exec := &recordingExecutor{}
	notes := &recordingNotifier{}

	g := NewEngine(triangularEvaluator(), testPolicy(units(0, 10)), exec, notes,
		nil, EngineConfig{TriangularSubmit: false}, zap.NewNop())

	result := g.RunOnePass(context.Background())
	require.NoError(t, result.Err)
	assert.True(t, result.OpportunityFound)
	assert.False(t, result.Executed)
	assert.Empty(t, exec.executed, "triangular opportunities are report-only by default")
	assert.Equal(t, 1, notes.count(notify.EventOpportunityFound))
}

func TestRunOnePassTriangularSubmit(t *testing.T) {
	exec := &recordingExecutor{}
	notes := &recordingNotifier{}

	g := NewEngine(triangularEvaluator(), testPolicy(units(0, 10)), exec, notes,
		nil, EngineConfig{TriangularSubmit: true}, zap.NewNop())

	result := g.RunOnePass(context.Background())
	require.NoError(t, result.Err)
	assert.True(t, result.OpportunityFound)
	assert.True(t, result.Executed)

	require.Len(t, exec.executed, 1)
	td := exec.executed[0]
	assert.Equal(t, "UniswapV2", td.Venue)
	assert.Equal(t, testRouters["UniswapV2"], td.Router)
	require.Len(t, td.Path, 4)
	assert.Equal(t, baseWETH.Address, td.Path[0])
	assert.Equal(t, baseWETH.Address, td.Path[3], "the submitted route closes the cycle")
}

func TestRunOnePassEvaluatorFailure(t *testing.T) {
	evaluator := buildEvaluator(nil, &fakeGasSource{cost: big.NewInt(1)}, failingUniverse{}, nil, false)

	exec := &recordingExecutor{}
	notes := &recordingNotifier{}

	g := NewEngine(evaluator, testPolicy(units(0, 10)), exec, notes,
		nil, EngineConfig{}, zap.NewNop())

	result := g.RunOnePass(context.Background())
	assert.Error(t, result.Err)
	assert.Equal(t, 1, notes.count(notify.EventPassError))
	assert.Empty(t, exec.executed)
}

func TestRunOnePassExecutionFailure(t *testing.T) {
	exec := &recordingExecutor{err: fmt.Errorf("%w: nonce too low", types.ErrSubmissionFailed)}
	notes := &recordingNotifier{}

	g := NewEngine(profitableEvaluator(), testPolicy(units(0, 10)), exec, notes,
		nil, EngineConfig{}, zap.NewNop())

	result := g.RunOnePass(context.Background())
	assert.Error(t, result.Err)
	assert.True(t, result.OpportunityFound)
	assert.False(t, result.Executed)
	assert.Equal(t, 1, notes.count(notify.EventTradeFailed))
}

func TestLastPassTracksMostRecentResult(t *testing.T) {
	exec := &recordingExecutor{}
	notes := &recordingNotifier{}

	g := NewEngine(emptyEvaluator(), testPolicy(units(0, 10)), exec, notes,
		nil, EngineConfig{}, zap.NewNop())

	assert.Equal(t, types.PassResult{}, g.LastPass())

	g.RunOnePass(context.Background())
	last := g.LastPass()
	assert.False(t, last.OpportunityFound)
	assert.NoError(t, last.Err)
}
