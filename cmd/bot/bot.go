// Package bot wires the scan pipeline together and owns the scan loop: one
// pass at a time, a fixed idle interval between passes, and a graceful stop
// that never leaves a trade half-submitted.
package bot

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/michaelpento.lv/arbbot/config"
	"github.com/michaelpento.lv/arbbot/dex"
	"github.com/michaelpento.lv/arbbot/dex/sushiswap"
	"github.com/michaelpento.lv/arbbot/dex/uniswap"
	"github.com/michaelpento.lv/arbbot/executor"
	"github.com/michaelpento.lv/arbbot/gas"
	"github.com/michaelpento.lv/arbbot/notify"
	"github.com/michaelpento.lv/arbbot/strategies/arbitrage"
	"github.com/michaelpento.lv/arbbot/tokens"
	"github.com/michaelpento.lv/arbbot/types"
	"github.com/michaelpento.lv/arbbot/utils/metrics"
	"github.com/michaelpento.lv/arbbot/utils/monitor"
	"github.com/michaelpento.lv/arbbot/wallet"
)

// Bot owns the component lifecycles and the scan loop
type Bot struct {
	cfg         *config.Config
	logger      *zap.Logger
	client      *ethclient.Client
	engine      *arbitrage.Engine
	estimator   *gas.Estimator
	exec        *executor.Executor
	notifier    *notify.Notifier
	registry    *prometheus.Registry
	scanMetrics *metrics.ScanMetrics
	runtimeMon  *monitor.RuntimeMonitor
}

// New wires a bot from configuration. Missing signer credentials are fatal
// here unless dry-run mode is enabled.
func New(cfg *config.Config, sec *config.SecureConfig, logger *zap.Logger) (*Bot, error) {
	client, err := ethclient.Dial(cfg.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to node: %w", err)
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RPCRateLimit.RequestsPerSecond), cfg.RPCRateLimit.BurstSize)

	providers, routers, err := buildVenues(cfg, client, limiter)
	if err != nil {
		return nil, err
	}

	var w *wallet.Wallet
	if sec.PrivateKey != "" {
		w, err = wallet.New(client, sec.PrivateKey, cfg.ChainID, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create wallet: %w", err)
		}
	} else if !cfg.DryRun {
		return nil, fmt.Errorf("no signer credentials configured and dry_run is disabled")
	}

	universe, err := buildUniverse(cfg, sec, w, logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	scanMetrics := metrics.NewScanMetrics("arbbot", registry)
	runtimeMon := monitor.NewRuntimeMonitor("arbbot", registry, 15*time.Second, logger)

	senders := []notify.Sender{notify.NewLogSender(logger)}
	if sec.TelegramToken != "" && cfg.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(sec.TelegramToken, cfg.TelegramChatID))
	}
	notifier := notify.NewNotifier(senders, cfg.NotifyCooldown, logger)

	estimator := gas.NewEstimator(client, logger, cfg.GasUpdateInterval, cfg.GasBufferBps)

	var balances arbitrage.BalanceChecker
	var owner common.Address
	var tradeExec arbitrage.TradeExecutor
	var exec *executor.Executor
	if w != nil {
		balances = w
		owner = w.Address()
		exec = executor.New(w, notifier, scanMetrics, cfg.ConfirmTimeout, logger)
		tradeExec = exec
	} else {
		tradeExec = noopExecutor{}
	}

	base := types.Token{
		Address:  common.HexToAddress(cfg.BaseToken),
		Symbol:   cfg.BaseSymbol,
		Decimals: 18,
	}

	evaluator := arbitrage.NewEvaluator(providers, estimator, universe, balances, arbitrage.EvaluatorConfig{
		UniverseSize: cfg.UniverseSize,
		AmountIn:     cfg.InputAmount,
		Base:         base,
		Concurrency:  cfg.QuoteConcurrency,
		Triangular:   cfg.Triangular,
		Owner:        owner,
	}, scanMetrics, logger)

	policy := arbitrage.NewPolicy(
		arbitrage.PolicyMode(cfg.PolicyMode),
		cfg.MinProfitThreshold,
		cfg.SlippageBps,
		cfg.DeadlineWindow,
		routers,
		rand.New(rand.NewSource(time.Now().UnixNano())).Float64,
		logger,
	)

	engine := arbitrage.NewEngine(evaluator, policy, tradeExec, notifier, scanMetrics, arbitrage.EngineConfig{
		TriangularSubmit: cfg.TriangularSubmit,
		DryRun:           cfg.DryRun,
	}, logger)

	return &Bot{
		cfg:         cfg,
		logger:      logger,
		client:      client,
		engine:      engine,
		estimator:   estimator,
		exec:        exec,
		notifier:    notifier,
		registry:    registry,
		scanMetrics: scanMetrics,
		runtimeMon:  runtimeMon,
	}, nil
}

// buildVenues creates the quote providers in configured priority order
func buildVenues(cfg *config.Config, client *ethclient.Client, limiter *rate.Limiter) ([]dex.QuoteProvider, map[string]common.Address, error) {
	providers := make([]dex.QuoteProvider, 0, len(cfg.Venues))
	routers := make(map[string]common.Address, len(cfg.Venues))

	for _, name := range cfg.Venues {
		var venue *dex.V2Venue
		var err error
		switch name {
		case "uniswap":
			venue, err = uniswap.New(client, limiter, cfg.QuoteTimeout)
		case "sushiswap":
			venue, err = sushiswap.New(client, limiter, cfg.QuoteTimeout)
		default:
			return nil, nil, fmt.Errorf("unknown venue %q", name)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create venue %s: %w", name, err)
		}
		providers = append(providers, venue)
		routers[venue.Name()] = venue.GetRouterAddress()
	}

	return providers, routers, nil
}

// buildUniverse selects the token universe source
func buildUniverse(cfg *config.Config, sec *config.SecureConfig, w *wallet.Wallet, logger *zap.Logger) (tokens.Source, error) {
	if cfg.TokenListFile != "" {
		src, err := tokens.LoadStaticSource(cfg.TokenListFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load token list: %w", err)
		}
		return src, nil
	}

	var resolver tokens.DecimalsResolver
	if w != nil {
		resolver = w.Decimals
	}
	return tokens.NewCoinGeckoSource(sec.CoinGeckoKey, cfg.TokenListTTL, resolver, logger), nil
}

// Run executes the scan loop until ctx is cancelled
func (b *Bot) Run(ctx context.Context) {
	metrics.Serve(ctx, b.cfg.StatusAddr, b.registry, b.status, b.logger)

	b.logger.Info("scan loop starting",
		zap.Duration("interval", b.cfg.ScanInterval),
		zap.Int("universe_size", b.cfg.UniverseSize),
		zap.Bool("dry_run", b.cfg.DryRun))

	ticker := time.NewTicker(b.cfg.ScanInterval)
	defer ticker.Stop()

	b.runPass(ctx)
	for {
		select {
		case <-ctx.Done():
			b.shutdown()
			return
		case <-ticker.C:
			b.runPass(ctx)
		}
	}
}

// runPass executes a single pass. Pass errors are logged and recovered; only
// cancellation stops the loop.
func (b *Bot) runPass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	result := b.engine.RunOnePass(ctx)
	if result.Err != nil {
		b.logger.Warn("pass completed with error", zap.Error(result.Err))
		return
	}
	b.logger.Debug("pass completed",
		zap.Bool("opportunity_found", result.OpportunityFound),
		zap.Bool("executed", result.Executed))
}

// shutdown releases resources and waits for in-flight work
func (b *Bot) shutdown() {
	b.logger.Info("shutting down")
	b.runtimeMon.Stop()
	b.estimator.Stop()
	if b.exec != nil {
		b.exec.Close()
	}
	b.notifier.Close()
	b.client.Close()
}

// status renders the /status payload
func (b *Bot) status() interface{} {
	last := b.engine.LastPass()
	pending := false
	if b.exec != nil {
		pending = b.exec.Pending()
	}
	return map[string]interface{}{
		"opportunity_found": last.OpportunityFound,
		"executed":          last.Executed,
		"trade_pending":     pending,
		"dry_run":           b.cfg.DryRun,
	}
}

// noopExecutor backs dry-run mode, where no wallet exists. The engine never
// reaches Execute in dry-run, but the gate must still answer Pending.
type noopExecutor struct{}

func (noopExecutor) Pending() bool { return false }

func (noopExecutor) Execute(context.Context, *types.TradeDescriptor) error {
	return fmt.Errorf("%w: no wallet configured", types.ErrSubmissionFailed)
}
