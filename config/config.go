package config

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the bot configuration, loaded from a JSON file with defaults
// applied for anything omitted. Secrets (private key, API tokens) never live
// in the file; they come from the environment.
type Config struct {
	// Chain and network settings
	ChainID     uint64 `json:"chain_id"`
	RPCEndpoint string `json:"rpc_endpoint"`

	// Scan settings. BaseToken is the numeraire every candidate is anchored
	// on; InputAmount and MinProfitThreshold are denominated in its smallest
	// unit.
	ScanInterval     time.Duration `json:"scan_interval"`
	QuoteTimeout     time.Duration `json:"quote_timeout"`
	UniverseSize     int           `json:"universe_size"`
	BaseToken        string        `json:"base_token"`
	BaseSymbol       string        `json:"base_symbol"`
	InputAmount      *big.Int      `json:"input_amount"`
	QuoteConcurrency int           `json:"quote_concurrency"`
	Triangular       bool          `json:"triangular"`
	TriangularSubmit bool          `json:"triangular_submit"`
	Venues           []string      `json:"venues"`

	// Decision policy
	PolicyMode         string        `json:"policy_mode"`
	MinProfitThreshold *big.Int      `json:"min_profit_threshold"`
	SlippageBps        int64         `json:"slippage_bps"`
	DeadlineWindow     time.Duration `json:"deadline_window"`
	DryRun             bool          `json:"dry_run"`

	// Gas estimation
	GasBufferBps      int64         `json:"gas_buffer_bps"`
	GasUpdateInterval time.Duration `json:"gas_update_interval"`
	ConfirmTimeout    time.Duration `json:"confirm_timeout"`

	// RPC budget
	RPCRateLimit RateLimitConfig `json:"rpc_rate_limit"`

	// Token universe
	TokenListTTL  time.Duration `json:"token_list_ttl"`
	TokenListFile string        `json:"token_list_file"`

	// Status server
	StatusAddr     string        `json:"status_addr"`
	NotifyCooldown time.Duration `json:"notify_cooldown"`
	TelegramChatID string        `json:"telegram_chat_id"`
}

// RateLimitConfig bounds outbound RPC traffic
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second"`
	BurstSize         int     `json:"burst_size"`
}

// Validate checks rate limit settings
func (r *RateLimitConfig) Validate() error {
	if r.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive")
	}
	if r.BurstSize <= 0 {
		return fmt.Errorf("burst size must be positive")
	}
	return nil
}

// ValidateConfig checks the configuration for startup-fatal problems
func (c *Config) ValidateConfig() error {
	var errs []string

	if c.ChainID == 0 {
		errs = append(errs, "chain_id must be specified")
	}
	if c.RPCEndpoint == "" {
		errs = append(errs, "rpc_endpoint must be specified")
	}
	if c.ScanInterval <= 0 {
		errs = append(errs, "scan_interval must be positive")
	}
	if c.UniverseSize <= 1 {
		errs = append(errs, "universe_size must be at least 2")
	}
	if c.UniverseSize > 50 {
		// Pair enumeration is O(n^2) and triangles O(n^3); the universe
		// must stay small by construction.
		errs = append(errs, "universe_size must not exceed 50")
	}
	if !common.IsHexAddress(c.BaseToken) {
		errs = append(errs, "base_token must be a valid hex address")
	}
	if c.InputAmount == nil || c.InputAmount.Sign() <= 0 {
		errs = append(errs, "input_amount must be positive")
	}
	if c.MinProfitThreshold == nil || c.MinProfitThreshold.Sign() <= 0 {
		errs = append(errs, "min_profit_threshold must be positive")
	}
	if c.SlippageBps <= 0 || c.SlippageBps >= 10000 {
		errs = append(errs, "slippage_bps must be in (0, 10000)")
	}
	if c.DeadlineWindow <= 0 {
		errs = append(errs, "deadline_window must be positive")
	}
	if mode := c.PolicyMode; mode != "deterministic" && mode != "probabilistic" {
		errs = append(errs, fmt.Sprintf("unknown policy_mode %q", mode))
	}
	if len(c.Venues) == 0 {
		errs = append(errs, "at least one venue must be configured")
	}
	if err := c.RPCRateLimit.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("rpc rate limit error: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DefaultConfig returns the mainnet defaults
func DefaultConfig() *Config {
	return &Config{
		ChainID:            1,
		RPCEndpoint:        "http://localhost:8545",
		ScanInterval:       30 * time.Second,
		QuoteTimeout:       5 * time.Second,
		UniverseSize:       10,
		BaseToken:          "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", // mainnet WETH
		BaseSymbol:         "WETH",
		InputAmount:        big.NewInt(1000000000000000000), // 1 WETH
		QuoteConcurrency:   4,
		Triangular:         true,
		TriangularSubmit:   false,
		Venues:             []string{"uniswap", "sushiswap"},
		PolicyMode:         "deterministic",
		MinProfitThreshold: big.NewInt(10000000000000000), // 0.01 WETH
		SlippageBps:        50,                            // 0.5%
		DeadlineWindow:     20 * time.Minute,
		DryRun:             false,
		GasBufferBps:       1000, // 10%
		GasUpdateInterval:  time.Second,
		ConfirmTimeout:     5 * time.Minute,
		RPCRateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			BurstSize:         100,
		},
		TokenListTTL:   10 * time.Minute,
		StatusAddr:     "",
		NotifyCooldown: 5 * time.Minute,
	}
}

// LoadConfig loads configuration from a JSON file over the defaults. An
// empty path returns the defaults unchanged.
func LoadConfig(cfgFile string) (*Config, error) {
	config := DefaultConfig()

	if cfgFile != "" {
		file, err := os.Open(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		if err := json.NewDecoder(file).Decode(config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	if err := config.ValidateConfig(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig writes the configuration as indented JSON
func SaveConfig(cfg *Config, cfgFile string) error {
	file, err := os.Create(cfgFile)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "    ")
	return encoder.Encode(cfg)
}
