package gas

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbbot/types"
	bigmath "github.com/michaelpento.lv/arbbot/utils/math"
)

// Gas unit model for V2-style swaps. Triangular trades are costed per hop,
// never with a single flat figure for the whole cycle.
const (
	BaseTxGas     = uint64(21000)
	GasPerHop     = uint64(152000)
	DefaultBuffer = int64(1000) // 10% in bps
)

// Estimator provides gas price estimation and tracking. The observed network
// price is refreshed in the background; estimates apply a safety buffer so
// the cost is not undershot between estimation and signing.
type Estimator struct {
	client       *ethclient.Client
	logger       *zap.Logger
	bufferBps    int64
	baseGasPrice *big.Int
	priorityFee  *big.Int
	mu           sync.RWMutex
	updateTicker *time.Ticker
	done         chan struct{}
}

// NewEstimator creates a gas estimator refreshing every interval. bufferBps
// is the safety margin over the observed price in basis points.
func NewEstimator(client *ethclient.Client, logger *zap.Logger, interval time.Duration, bufferBps int64) *Estimator {
	if interval <= 0 {
		interval = time.Second
	}
	if bufferBps <= 0 {
		bufferBps = DefaultBuffer
	}

	e := &Estimator{
		client:       client,
		logger:       logger,
		bufferBps:    bufferBps,
		updateTicker: time.NewTicker(interval),
		done:         make(chan struct{}),
	}
	go e.updateLoop()
	return e
}

// updateLoop continuously updates gas prices
func (e *Estimator) updateLoop() {
	for {
		select {
		case <-e.done:
			return
		case <-e.updateTicker.C:
			if err := e.update(); err != nil {
				e.logger.Error("Failed to update gas prices", zap.Error(err))
			}
		}
	}
}

// update fetches latest gas prices
func (e *Estimator) update() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	header, err := e.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to get latest header: %w", err)
	}
	baseFee := header.BaseFee

	priorityFee, err := e.client.SuggestGasTipCap(ctx)
	if err != nil {
		return fmt.Errorf("failed to get priority fee: %w", err)
	}

	e.mu.Lock()
	e.baseGasPrice = baseFee
	e.priorityFee = priorityFee
	e.mu.Unlock()

	return nil
}

// EstimateGasCost estimates the buffered fee in wei for a trade consuming
// gasUnits. Returns types.ErrGasEstimateUnavailable until the first price
// observation has landed; callers skip the candidate rather than abort.
func (e *Estimator) EstimateGasCost(ctx context.Context, gasUnits uint64) (*types.GasEstimate, error) {
	e.mu.RLock()
	base := e.baseGasPrice
	priority := e.priorityFee
	e.mu.RUnlock()

	if base == nil || priority == nil {
		return nil, fmt.Errorf("%w: no gas price observed yet", types.ErrGasEstimateUnavailable)
	}

	totalGasPrice := new(big.Int).Add(base, priority)
	buffered := bigmath.AddBps(totalGasPrice, e.bufferBps)

	cost := new(big.Int).Mul(buffered, new(big.Int).SetUint64(gasUnits))

	return &types.GasEstimate{
		Cost:     cost,
		GasUnits: gasUnits,
		Buffered: true,
	}, nil
}

// SwapGas returns the gas unit count for a swap of numHops hops
func SwapGas(numHops int) uint64 {
	if numHops < 1 {
		numHops = 1
	}
	return BaseTxGas + GasPerHop*uint64(numHops)
}

// Stop stops the gas price updates
func (e *Estimator) Stop() {
	e.updateTicker.Stop()
	close(e.done)
}
