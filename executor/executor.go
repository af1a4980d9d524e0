// Package executor is the trade submission boundary. It enforces the
// at-most-one-outstanding-trade invariant and the descriptor deadline, then
// delegates signing and broadcast to the wallet.
package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbbot/notify"
	"github.com/michaelpento.lv/arbbot/types"
	"github.com/michaelpento.lv/arbbot/utils/metrics"
)

// Wallet signs, broadcasts, and confirms trades
type Wallet interface {
	SignAndSubmit(ctx context.Context, td *types.TradeDescriptor) (common.Hash, error)
	Await(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error)
}

// Notifier receives trade lifecycle events
type Notifier interface {
	Notify(event, title, message string)
}

// Executor submits at most one trade at a time. While a submitted trade
// awaits confirmation, Pending reports true and the engine must not submit
// again; evaluation may continue.
type Executor struct {
	wallet         Wallet
	notifier       Notifier
	metrics        *metrics.ScanMetrics
	logger         *zap.Logger
	confirmTimeout time.Duration

	pending atomic.Bool
	wg      sync.WaitGroup
}

// New creates a trade executor. metrics may be nil.
func New(wallet Wallet, notifier Notifier, m *metrics.ScanMetrics, confirmTimeout time.Duration, logger *zap.Logger) *Executor {
	if confirmTimeout <= 0 {
		confirmTimeout = 5 * time.Minute
	}
	return &Executor{
		wallet:         wallet,
		notifier:       notifier,
		metrics:        m,
		logger:         logger,
		confirmTimeout: confirmTimeout,
	}
}

// Pending reports whether a submitted trade is still awaiting confirmation
func (e *Executor) Pending() bool {
	return e.pending.Load()
}

// Execute submits the descriptor and starts a confirmation watcher. It
// returns once the trade is broadcast; confirmation outcome is reported via
// the notifier. An expired descriptor is never submitted.
func (e *Executor) Execute(ctx context.Context, td *types.TradeDescriptor) error {
	if td.Expired(time.Now()) {
		return fmt.Errorf("%w: descriptor expired at %s", types.ErrDeadlineExpired, td.Deadline.Format(time.RFC3339))
	}

	if !e.pending.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: another trade is awaiting confirmation", types.ErrSubmissionFailed)
	}

	hash, err := e.wallet.SignAndSubmit(ctx, td)
	if err != nil {
		e.pending.Store(false)
		if e.metrics != nil {
			e.metrics.TradesFailed.Inc()
		}
		return err
	}

	if e.metrics != nil {
		e.metrics.TradesSubmitted.Inc()
	}
	e.notifier.Notify(notify.EventTradeSubmitted, "Trade submitted",
		fmt.Sprintf("venue=%s amountIn=%s minOut=%s tx=%s",
			td.Venue, td.AmountIn, td.MinAmountOut, hash.Hex()))

	e.wg.Add(1)
	go e.awaitConfirmation(hash, td)

	return nil
}

// awaitConfirmation watches for the trade receipt. It deliberately uses its
// own timeout instead of the pass context: the pass that submitted the trade
// ends before confirmation lands.
func (e *Executor) awaitConfirmation(hash common.Hash, td *types.TradeDescriptor) {
	defer e.wg.Done()
	defer e.pending.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), e.confirmTimeout)
	defer cancel()

	receipt, err := e.wallet.Await(ctx, hash)
	if err != nil {
		if e.metrics != nil {
			e.metrics.TradesFailed.Inc()
		}
		e.logger.Error("trade confirmation failed",
			zap.String("tx_hash", hash.Hex()),
			zap.String("venue", td.Venue),
			zap.Error(err))
		e.notifier.Notify(notify.EventTradeFailed, "Trade unconfirmed",
			fmt.Sprintf("venue=%s amountIn=%s tx=%s: %v", td.Venue, td.AmountIn, hash.Hex(), err))
		return
	}

	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		if e.metrics != nil {
			e.metrics.TradesFailed.Inc()
		}
		e.notifier.Notify(notify.EventTradeFailed, "Trade reverted",
			fmt.Sprintf("venue=%s amountIn=%s tx=%s block=%d",
				td.Venue, td.AmountIn, hash.Hex(), receipt.BlockNumber))
		return
	}

	if e.metrics != nil {
		e.metrics.TradesConfirmed.Inc()
	}
	e.logger.Info("trade confirmed",
		zap.String("tx_hash", hash.Hex()),
		zap.Uint64("gas_used", receipt.GasUsed))
	e.notifier.Notify(notify.EventTradeConfirmed, "Trade confirmed",
		fmt.Sprintf("venue=%s tx=%s gasUsed=%d", td.Venue, hash.Hex(), receipt.GasUsed))
}

// Close waits for any in-flight confirmation watcher to finish
func (e *Executor) Close() {
	e.wg.Wait()
}
