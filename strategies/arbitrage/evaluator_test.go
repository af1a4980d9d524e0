package arbitrage

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbbot/dex"
	"github.com/michaelpento.lv/arbbot/tokens"
	"github.com/michaelpento.lv/arbbot/types"
)

var (
	baseWETH  = types.Token{Address: common.HexToAddress("0x0a"), Symbol: "WETH", Decimals: 18}
	tokenB    = types.Token{Address: common.HexToAddress("0x0b"), Symbol: "BBB", Decimals: 18}
	tokenC    = types.Token{Address: common.HexToAddress("0x0c"), Symbol: "CCC", Decimals: 18}
	tokenUSDC = types.Token{Address: common.HexToAddress("0x0d"), Symbol: "USDC", Decimals: 6}
)

// fakeVenue answers quotes from a fixed rate table keyed by ordered pair
type fakeVenue struct {
	name string
	// rates maps "in->out" to the output per 1e18 input units
	rates map[string]*big.Int
	// cycleOut, when set, answers EstimateReturn for any path
	cycleOut *big.Int
}

func pairKey(in, out common.Address) string {
	return in.Hex() + "->" + out.Hex()
}

func (f *fakeVenue) Name() string { return f.name }

func (f *fakeVenue) GetQuote(_ context.Context, tokenIn, tokenOut types.Token, amountIn *big.Int) (*types.Quote, error) {
	rate, ok := f.rates[pairKey(tokenIn.Address, tokenOut.Address)]
	if !ok {
		return nil, fmt.Errorf("%w: no pool on %s", types.ErrQuoteUnavailable, f.name)
	}
	out := new(big.Int).Mul(amountIn, rate)
	out.Div(out, big.NewInt(1e18))
	return &types.Quote{
		Venue:     f.name,
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  new(big.Int).Set(amountIn),
		AmountOut: out,
		Price:     new(big.Int).Set(rate),
		Path:      []common.Address{tokenIn.Address, tokenOut.Address},
	}, nil
}

func (f *fakeVenue) EstimateReturn(_ context.Context, amountIn *big.Int, _ []common.Address) (*big.Int, error) {
	if f.cycleOut == nil {
		return nil, fmt.Errorf("%w: no route on %s", types.ErrQuoteUnavailable, f.name)
	}
	return new(big.Int).Set(f.cycleOut), nil
}

func (f *fakeVenue) GetAmountIn(_ context.Context, _ *big.Int, _ []common.Address) (*big.Int, error) {
	return nil, fmt.Errorf("%w: not supported", types.ErrQuoteUnavailable)
}

type fakeGasSource struct {
	cost *big.Int
	err  error
}

func (f *fakeGasSource) EstimateGasCost(_ context.Context, gasUnits uint64) (*types.GasEstimate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &types.GasEstimate{Cost: new(big.Int).Set(f.cost), GasUnits: gasUnits, Buffered: true}, nil
}

type fakeBalances struct {
	balances map[common.Address]*big.Int
}

func (f *fakeBalances) Balance(_ context.Context, token types.Token, _ common.Address) (*big.Int, error) {
	if bal, ok := f.balances[token.Address]; ok {
		return bal, nil
	}
	return big.NewInt(0), nil
}

type failingUniverse struct{}

func (failingUniverse) TopTokens(context.Context, int) ([]types.Token, error) {
	return nil, fmt.Errorf("market data unavailable")
}

func buildEvaluator(venues []*fakeVenue, gasSrc GasSource, universe tokens.Source, balances BalanceChecker, triangular bool) *Evaluator {
	providers := make([]dex.QuoteProvider, len(venues))
	for i, v := range venues {
		providers[i] = v
	}
	return NewEvaluator(providers, gasSrc, universe, balances, EvaluatorConfig{
		UniverseSize: 10,
		AmountIn:     units(1, 0),
		Base:         baseWETH,
		Concurrency:  2,
		Triangular:   triangular,
	}, nil, zap.NewNop())
}

func TestBestOpportunityFindsSpread(t *testing.T) {
	// Uniswap overprices BBB against the base token; Sushiswap prices the
	// reverse leg at par, so the 1.02 output is worth 1.02 base.
	uni := &fakeVenue{name: "UniswapV2", rates: map[string]*big.Int{
		pairKey(baseWETH.Address, tokenB.Address): units(1, 20), // 1.02
		pairKey(tokenB.Address, baseWETH.Address): units(0, 900),
	}}
	sushi := &fakeVenue{name: "Sushiswap", rates: map[string]*big.Int{
		pairKey(baseWETH.Address, tokenB.Address): units(0, 990), // 0.99
		pairKey(tokenB.Address, baseWETH.Address): units(1, 0),
	}}
	gasSrc := &fakeGasSource{cost: units(0, 1)}

	e := buildEvaluator([]*fakeVenue{uni, sushi}, gasSrc,
		tokens.NewStaticSource([]types.Token{baseWETH, tokenB}), nil, false)

	opp, err := e.BestOpportunity(context.Background())
	require.NoError(t, err)
	require.NotNil(t, opp)

	assert.Equal(t, types.KindPair, opp.Kind)
	assert.Equal(t, "UniswapV2", opp.Quote.Venue)
	assert.Equal(t, baseWETH, opp.Quote.TokenIn, "candidates start from the base token")

	// 1.02 - 1 - 0.001 = 0.019, all in base units
	assert.Equal(t, units(0, 19), opp.NetProfit)
}

func TestBestOpportunityOutputValuedInBaseUnits(t *testing.T) {
	// A 6-decimal token makes the raw output look double the input, but the
	// reverse quote prices it at half the input's value. The candidate must
	// score as a loss, not as a profit read off mismatched units.
	uni := &fakeVenue{name: "UniswapV2", rates: map[string]*big.Int{
		pairKey(baseWETH.Address, tokenUSDC.Address): units(2, 0),
	}}
	sushi := &fakeVenue{name: "Sushiswap", rates: map[string]*big.Int{
		pairKey(tokenUSDC.Address, baseWETH.Address): units(0, 250),
	}}
	gasSrc := &fakeGasSource{cost: units(0, 1)}

	e := buildEvaluator([]*fakeVenue{uni, sushi}, gasSrc,
		tokens.NewStaticSource([]types.Token{tokenUSDC, baseWETH}), nil, false)

	opp, err := e.BestOpportunity(context.Background())
	require.NoError(t, err)
	require.NotNil(t, opp)

	// 2.0 raw out worth 0.5 base: 0.5 - 1 - 0.001 = -0.501
	assert.Equal(t, units(0, -501), opp.NetProfit)
	assert.Negative(t, opp.NetProfit.Sign())
}

func TestBestOpportunitySkipsUnpriceableOutput(t *testing.T) {
	// Forward leg quotes, but no venue can price BBB back into base units.
	uni := &fakeVenue{name: "UniswapV2", rates: map[string]*big.Int{
		pairKey(baseWETH.Address, tokenB.Address): units(1, 20),
	}}
	gasSrc := &fakeGasSource{cost: units(0, 1)}

	e := buildEvaluator([]*fakeVenue{uni}, gasSrc,
		tokens.NewStaticSource([]types.Token{baseWETH, tokenB}), nil, false)

	opp, err := e.BestOpportunity(context.Background())
	require.NoError(t, err)
	assert.Nil(t, opp, "a candidate without a reverse quote has no expressible value")
}

func TestBestOpportunityAllQuotesUnavailable(t *testing.T) {
	uni := &fakeVenue{name: "UniswapV2", rates: map[string]*big.Int{}}
	sushi := &fakeVenue{name: "Sushiswap", rates: map[string]*big.Int{}}
	gasSrc := &fakeGasSource{cost: units(0, 1)}

	e := buildEvaluator([]*fakeVenue{uni, sushi}, gasSrc,
		tokens.NewStaticSource([]types.Token{baseWETH, tokenB}), nil, false)

	opp, err := e.BestOpportunity(context.Background())
	require.NoError(t, err, "unavailable quotes degrade the candidate, not the pass")
	assert.Nil(t, opp)
}

func TestBestOpportunityGasUnavailable(t *testing.T) {
	uni := &fakeVenue{name: "UniswapV2", rates: map[string]*big.Int{
		pairKey(baseWETH.Address, tokenB.Address): units(1, 20),
		pairKey(tokenB.Address, baseWETH.Address): units(1, 0),
	}}
	gasSrc := &fakeGasSource{err: types.ErrGasEstimateUnavailable}

	e := buildEvaluator([]*fakeVenue{uni}, gasSrc,
		tokens.NewStaticSource([]types.Token{baseWETH, tokenB}), nil, false)

	opp, err := e.BestOpportunity(context.Background())
	require.NoError(t, err)
	assert.Nil(t, opp, "a candidate without a gas estimate is skipped")
}

func TestBestOpportunityUniverseFailure(t *testing.T) {
	e := buildEvaluator(nil, &fakeGasSource{cost: big.NewInt(1)}, failingUniverse{}, nil, false)

	_, err := e.BestOpportunity(context.Background())
	assert.Error(t, err)
}

func TestBestOpportunityNoCounterparties(t *testing.T) {
	e := buildEvaluator(nil, &fakeGasSource{cost: big.NewInt(1)},
		tokens.NewStaticSource([]types.Token{baseWETH}), nil, false)

	opp, err := e.BestOpportunity(context.Background())
	require.NoError(t, err)
	assert.Nil(t, opp, "the base token alone leaves nothing to trade against")
}

func TestBestOpportunityTriangular(t *testing.T) {
	// No profitable two-leg pair anywhere, but a 1.05x cycle exists.
	uni := &fakeVenue{
		name:     "UniswapV2",
		rates:    map[string]*big.Int{},
		cycleOut: units(1, 50),
	}
	gasSrc := &fakeGasSource{cost: units(0, 4)}

	e := buildEvaluator([]*fakeVenue{uni}, gasSrc,
		tokens.NewStaticSource([]types.Token{baseWETH, tokenB, tokenC}), nil, true)

	opp, err := e.BestOpportunity(context.Background())
	require.NoError(t, err)
	require.NotNil(t, opp)

	assert.Equal(t, types.KindTriangular, opp.Kind)
	assert.Equal(t, units(0, 46), opp.NetProfit)
	require.Len(t, opp.Quote.Path, 4)
	assert.Equal(t, baseWETH.Address, opp.Quote.Path[0], "cycles are anchored at the base token")
	assert.Equal(t, baseWETH.Address, opp.Quote.Path[3], "cycle must return to the base token")
}

func TestBestOpportunitySkipsZeroBalancePairs(t *testing.T) {
	uni := &fakeVenue{name: "UniswapV2", rates: map[string]*big.Int{
		pairKey(baseWETH.Address, tokenB.Address): units(1, 20),
		pairKey(tokenB.Address, baseWETH.Address): units(1, 0),
	}}
	gasSrc := &fakeGasSource{cost: units(0, 1)}

	// No balance in either token of the only candidate.
	balances := &fakeBalances{balances: map[common.Address]*big.Int{}}

	e := buildEvaluator([]*fakeVenue{uni}, gasSrc,
		tokens.NewStaticSource([]types.Token{baseWETH, tokenB}), balances, false)

	opp, err := e.BestOpportunity(context.Background())
	require.NoError(t, err)
	assert.Nil(t, opp)
}

func TestBestOpportunityEvaluatesFundedPairs(t *testing.T) {
	uni := &fakeVenue{name: "UniswapV2", rates: map[string]*big.Int{
		pairKey(baseWETH.Address, tokenB.Address): units(1, 20),
		pairKey(tokenB.Address, baseWETH.Address): units(1, 0),
	}}
	gasSrc := &fakeGasSource{cost: units(0, 1)}

	balances := &fakeBalances{balances: map[common.Address]*big.Int{
		baseWETH.Address: units(5, 0),
	}}

	e := buildEvaluator([]*fakeVenue{uni}, gasSrc,
		tokens.NewStaticSource([]types.Token{baseWETH, tokenB}), balances, false)

	opp, err := e.BestOpportunity(context.Background())
	require.NoError(t, err)
	require.NotNil(t, opp)
	assert.Equal(t, "UniswapV2", opp.Quote.Venue)
}

func TestBestOpportunityCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	uni := &fakeVenue{name: "UniswapV2", rates: map[string]*big.Int{}}
	e := buildEvaluator([]*fakeVenue{uni}, &fakeGasSource{cost: big.NewInt(1)},
		tokens.NewStaticSource([]types.Token{baseWETH, tokenB}), nil, false)

	_, err := e.BestOpportunity(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
