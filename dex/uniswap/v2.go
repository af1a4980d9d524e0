package uniswap

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"

	"github.com/michaelpento.lv/arbbot/dex"
)

// Contract addresses
var (
	MainnetRouter  = common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	MainnetFactory = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	WETHAddress    = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
)

// pair contract creation code hash, used for CREATE2 address derivation
var initCodeHash = common.FromHex("0x96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f")

// New creates a Uniswap V2 quote provider
func New(client *ethclient.Client, limiter *rate.Limiter, callTimeout time.Duration) (*dex.V2Venue, error) {
	return dex.NewV2Venue(client, dex.V2Config{
		Name:     "UniswapV2",
		Factory:  MainnetFactory,
		Router:   MainnetRouter,
		InitCode: initCodeHash,
	}, limiter, callTimeout)
}
