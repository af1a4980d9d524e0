package sushiswap

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"

	"github.com/michaelpento.lv/arbbot/dex"
)

// Contract addresses
var (
	MainnetFactory = common.HexToAddress("0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac")
	MainnetRouter  = common.HexToAddress("0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F")
)

// pair contract creation code hash, used for CREATE2 address derivation
var initCodeHash = common.FromHex("0xe18a34eb0e04b04f7a0ac29a6e80748dca96319b42c54d679cb821dca90c6303")

// New creates a Sushiswap quote provider
func New(client *ethclient.Client, limiter *rate.Limiter, callTimeout time.Duration) (*dex.V2Venue, error) {
	return dex.NewV2Venue(client, dex.V2Config{
		Name:     "Sushiswap",
		Factory:  MainnetFactory,
		Router:   MainnetRouter,
		InitCode: initCodeHash,
	}, limiter, callTimeout)
}
