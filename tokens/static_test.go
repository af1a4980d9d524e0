package tokens

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenListYAML = `
- address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
  symbol: WETH
- address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
  symbol: USDC
  decimals: 6
- address: "0x6B175474E89094C44Da98b954EedeAC495271d0F"
  symbol: DAI
  decimals: 18
`

func writeTokenList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadStaticSource(t *testing.T) {
	src, err := LoadStaticSource(writeTokenList(t, tokenListYAML))
	require.NoError(t, err)

	all, err := src.TopTokens(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	assert.Equal(t, "WETH", all[0].Symbol)
	assert.Equal(t, uint8(18), all[0].Decimals, "omitted decimals default to 18")
	assert.Equal(t, "USDC", all[1].Symbol)
	assert.Equal(t, uint8(6), all[1].Decimals)
}

func TestStaticSourceLimit(t *testing.T) {
	src, err := LoadStaticSource(writeTokenList(t, tokenListYAML))
	require.NoError(t, err)

	two, err := src.TopTokens(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, two, 2)
	assert.Equal(t, "WETH", two[0].Symbol)

	over, err := src.TopTokens(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, over, 3, "limit beyond list length returns the full list")
}

func TestLoadStaticSourceRejectsBadAddress(t *testing.T) {
	_, err := LoadStaticSource(writeTokenList(t, `
- address: "not-an-address"
  symbol: BAD
`))
	assert.Error(t, err)
}

func TestLoadStaticSourceMissingFile(t *testing.T) {
	_, err := LoadStaticSource(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
