package tokens

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"

	"github.com/michaelpento.lv/arbbot/types"
)

// StaticSource serves a fixed token universe from a YAML file. It is used
// when no market-data API is configured and in deterministic dry runs.
type StaticSource struct {
	tokens []types.Token
}

type staticEntry struct {
	Address  string `yaml:"address"`
	Symbol   string `yaml:"symbol"`
	Decimals uint8  `yaml:"decimals"`
}

// LoadStaticSource reads a token list from a YAML file. Entries without a
// valid hex address are rejected at load time.
func LoadStaticSource(path string) (*StaticSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token list: %w", err)
	}

	var entries []staticEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse token list: %w", err)
	}

	tokens := make([]types.Token, 0, len(entries))
	for i, e := range entries {
		if !common.IsHexAddress(e.Address) {
			return nil, fmt.Errorf("token list entry %d (%s): invalid address %q", i, e.Symbol, e.Address)
		}
		dec := e.Decimals
		if dec == 0 {
			dec = 18
		}
		tokens = append(tokens, types.Token{
			Address:  common.HexToAddress(e.Address),
			Symbol:   e.Symbol,
			Decimals: dec,
		})
	}

	return &StaticSource{tokens: tokens}, nil
}

// NewStaticSource wraps an in-memory token list
func NewStaticSource(tokens []types.Token) *StaticSource {
	return &StaticSource{tokens: tokens}
}

// TopTokens returns up to limit tokens in file order
func (s *StaticSource) TopTokens(_ context.Context, limit int) ([]types.Token, error) {
	if limit <= 0 || limit > len(s.tokens) {
		limit = len(s.tokens)
	}
	return s.tokens[:limit], nil
}
