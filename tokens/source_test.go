package tokens

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const marketsJSON = `[
	{"id": "weth", "symbol": "weth"},
	{"id": "bitcoin", "symbol": "btc"},
	{"id": "usd-coin", "symbol": "usdc"}
]`

const coinListJSON = `[
	{"id": "weth", "platforms": {"ethereum": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"}},
	{"id": "bitcoin", "platforms": {}},
	{"id": "usd-coin", "platforms": {"ethereum": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"}}
]`

func newCoinGeckoServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch {
		case strings.HasPrefix(r.URL.Path, "/coins/markets"):
			_, _ = w.Write([]byte(marketsJSON))
		case strings.HasPrefix(r.URL.Path, "/coins/list"):
			_, _ = w.Write([]byte(coinListJSON))
		default:
			http.NotFound(w, r)
		}
	}))
}

func newTestSource(baseURL string, ttl time.Duration, resolver DecimalsResolver) *CoinGeckoSource {
	s := NewCoinGeckoSource("", ttl, resolver, zap.NewNop())
	s.baseURL = baseURL
	return s
}

func TestCoinGeckoTopTokensFiltersUnresolvable(t *testing.T) {
	var calls atomic.Int64
	srv := newCoinGeckoServer(t, &calls)
	defer srv.Close()

	src := newTestSource(srv.URL, time.Minute, nil)

	got, err := src.TopTokens(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 2, "coins without an on-chain address are dropped")

	assert.Equal(t, "WETH", got[0].Symbol)
	assert.Equal(t, common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), got[0].Address)
	assert.Equal(t, "USDC", got[1].Symbol)
	assert.Equal(t, uint8(18), got[1].Decimals, "decimals default to 18 without a resolver")
}

func TestCoinGeckoTopTokensCachesWithinTTL(t *testing.T) {
	var calls atomic.Int64
	srv := newCoinGeckoServer(t, &calls)
	defer srv.Close()

	src := newTestSource(srv.URL, time.Minute, nil)

	_, err := src.TopTokens(context.Background(), 3)
	require.NoError(t, err)
	after := calls.Load()

	_, err = src.TopTokens(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, after, calls.Load(), "second lookup within TTL must hit the cache")
}

func TestCoinGeckoTopTokensUsesResolver(t *testing.T) {
	var calls atomic.Int64
	srv := newCoinGeckoServer(t, &calls)
	defer srv.Close()

	resolver := func(_ context.Context, addr common.Address) (uint8, error) {
		if addr == common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48") {
			return 6, nil
		}
		return 18, nil
	}
	src := newTestSource(srv.URL, time.Minute, resolver)

	got, err := src.TopTokens(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint8(6), got[1].Decimals)
}

func TestCoinGeckoTopTokensServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := newTestSource(srv.URL, time.Minute, nil)

	_, err := src.TopTokens(context.Background(), 3)
	assert.Error(t, err)
}
