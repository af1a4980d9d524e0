// Package tokens supplies the bounded token universe the evaluator scans.
// The universe is small by construction (top-N by market capitalization) so
// pair and triangle enumeration stays tractable.
package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbbot/types"
)

// Source lists the top tokens by market capitalization for the target chain.
// Tokens without a resolvable on-chain address are filtered out.
type Source interface {
	TopTokens(ctx context.Context, limit int) ([]types.Token, error)
}

// DecimalsResolver resolves a token's decimal precision, typically from the
// chain. A nil resolver falls back to 18.
type DecimalsResolver func(ctx context.Context, addr common.Address) (uint8, error)

const (
	coingeckoBase   = "https://api.coingecko.com/api/v3"
	defaultPlatform = "ethereum"
)

// CoinGeckoSource fetches the top-N tokens from the CoinGecko markets API and
// resolves their contract addresses on the configured platform. Results are
// cached with a TTL so one scan pass does not hammer the API.
type CoinGeckoSource struct {
	baseURL  string
	platform string
	apiKey   string
	client   *http.Client
	resolver DecimalsResolver
	logger   *zap.Logger

	ttl       time.Duration
	mu        sync.Mutex
	cached    []types.Token
	cachedLim int
	fetchedAt time.Time
}

// NewCoinGeckoSource creates a market-cap ranked token source. apiKey may be
// empty for the public tier.
func NewCoinGeckoSource(apiKey string, ttl time.Duration, resolver DecimalsResolver, logger *zap.Logger) *CoinGeckoSource {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CoinGeckoSource{
		baseURL:  coingeckoBase,
		platform: defaultPlatform,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 15 * time.Second},
		resolver: resolver,
		logger:   logger,
		ttl:      ttl,
	}
}

type marketEntry struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
}

type coinListEntry struct {
	ID        string            `json:"id"`
	Platforms map[string]string `json:"platforms"`
}

// TopTokens returns up to limit tokens ranked by market cap that have a
// contract address on the target platform
func (s *CoinGeckoSource) TopTokens(ctx context.Context, limit int) ([]types.Token, error) {
	s.mu.Lock()
	if s.cached != nil && s.cachedLim == limit && time.Since(s.fetchedAt) < s.ttl {
		out := s.cached
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	markets, err := s.fetchMarkets(ctx, limit)
	if err != nil {
		return nil, err
	}

	platforms, err := s.fetchPlatforms(ctx)
	if err != nil {
		return nil, err
	}

	tokens := make([]types.Token, 0, limit)
	for _, m := range markets {
		addrHex, ok := platforms[m.ID]
		if !ok || !common.IsHexAddress(addrHex) {
			continue
		}

		tok := types.Token{
			Address:  common.HexToAddress(addrHex),
			Symbol:   strings.ToUpper(m.Symbol),
			Decimals: 18,
		}
		if s.resolver != nil {
			dec, err := s.resolver(ctx, tok.Address)
			if err != nil {
				s.logger.Warn("failed to resolve token decimals, skipping",
					zap.String("symbol", tok.Symbol), zap.Error(err))
				continue
			}
			tok.Decimals = dec
		}

		tokens = append(tokens, tok)
		if len(tokens) == limit {
			break
		}
	}

	s.mu.Lock()
	s.cached = tokens
	s.cachedLim = limit
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	return tokens, nil
}

// fetchMarkets returns coins ranked by market cap
func (s *CoinGeckoSource) fetchMarkets(ctx context.Context, limit int) ([]marketEntry, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(limit*2)) // headroom for entries without an address
	q.Set("page", "1")

	var out []marketEntry
	if err := s.getJSON(ctx, "/coins/markets?"+q.Encode(), &out); err != nil {
		return nil, fmt.Errorf("failed to fetch markets: %w", err)
	}
	return out, nil
}

// fetchPlatforms returns a coin id -> contract address map for the platform
func (s *CoinGeckoSource) fetchPlatforms(ctx context.Context) (map[string]string, error) {
	var list []coinListEntry
	if err := s.getJSON(ctx, "/coins/list?include_platform=true", &list); err != nil {
		return nil, fmt.Errorf("failed to fetch coin list: %w", err)
	}

	out := make(map[string]string, len(list))
	for _, c := range list {
		if addr := c.Platforms[s.platform]; addr != "" {
			out[c.ID] = addr
		}
	}
	return out, nil
}

func (s *CoinGeckoSource) getJSON(ctx context.Context, pathAndQuery string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+pathAndQuery, nil)
	if err != nil {
		return err
	}
	if s.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
