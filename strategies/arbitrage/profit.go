package arbitrage

import (
	"fmt"
	"math/big"

	"github.com/michaelpento.lv/arbbot/types"
)

// ProfitCalculator scores quotes against a gas estimate. All profit
// arithmetic is *big.Int in the smallest unit of the base token; the
// calculator is pure and idempotent, so identical inputs always produce
// identical profit figures.
type ProfitCalculator struct{}

// Best selects the most favorable quote from a set of comparable quotes for
// the same ordered pair: the one with the highest output for the shared
// input amount. The slice order is the venue priority order; on an exact
// output tie the earlier venue wins, so the result is deterministic and
// reproducible.
func (ProfitCalculator) Best(quotes []*types.Quote) (*types.Quote, error) {
	var best *types.Quote
	for _, q := range quotes {
		if q == nil || q.AmountOut == nil {
			continue
		}
		if best == nil || q.AmountOut.Cmp(best.AmountOut) > 0 {
			best = q
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: no quotes to compare", types.ErrQuoteUnavailable)
	}
	return best, nil
}

// Net computes the net profit of a trade whose proceeds are worth valueOut:
//
//	netProfit = valueOut - amountIn - gas.Cost
//
// valueOut, amountIn and the gas cost must all be denominated in the base
// token's smallest unit. The caller converts non-base proceeds into base
// units before scoring; for a triangular cycle the final hop's output is
// already in base units. Amounts in different denominations must never meet
// in this subtraction.
func (ProfitCalculator) Net(valueOut, amountIn *big.Int, gasEst *types.GasEstimate) (*big.Int, error) {
	if valueOut == nil || amountIn == nil {
		return nil, fmt.Errorf("%w: missing amounts", types.ErrQuoteUnavailable)
	}
	if gasEst == nil || gasEst.Cost == nil {
		return nil, fmt.Errorf("%w: missing gas estimate", types.ErrGasEstimateUnavailable)
	}

	net := new(big.Int).Sub(valueOut, amountIn)
	net.Sub(net, gasEst.Cost)
	return net, nil
}
