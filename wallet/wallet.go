// Package wallet is the signing boundary. It turns an approved trade
// descriptor into a signed router transaction, broadcasts it, and tracks the
// receipt. It also serves ERC20 balance and decimals reads for the rest of
// the bot.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbbot/types"
)

// Router ABI fragment for V2-style swap submission
const routerABIJson = `[{
	"inputs": [
		{"name": "amountIn", "type": "uint256"},
		{"name": "amountOutMin", "type": "uint256"},
		{"name": "path", "type": "address[]"},
		{"name": "to", "type": "address"},
		{"name": "deadline", "type": "uint256"}
	],
	"name": "swapExactTokensForTokens",
	"outputs": [{"name": "amounts", "type": "uint256[]"}],
	"stateMutability": "nonpayable",
	"type": "function"
}]`

// Minimal ERC20 ABI for balance and decimals reads
const erc20ABIJson = `[{
	"constant": true,
	"inputs": [{"name": "owner", "type": "address"}],
	"name": "balanceOf",
	"outputs": [{"name": "", "type": "uint256"}],
	"stateMutability": "view",
	"type": "function"
}, {
	"constant": true,
	"inputs": [],
	"name": "decimals",
	"outputs": [{"name": "", "type": "uint8"}],
	"stateMutability": "view",
	"type": "function"
}]`

const receiptPollInterval = 2 * time.Second

// Wallet signs and submits trades for a single account
type Wallet struct {
	client    *ethclient.Client
	key       *ecdsa.PrivateKey
	address   common.Address
	chainID   *big.Int
	routerABI abi.ABI
	erc20ABI  abi.ABI
	logger    *zap.Logger
}

// New creates a wallet from a hex-encoded private key
func New(client *ethclient.Client, privateKeyHex string, chainID uint64, logger *zap.Logger) (*Wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	routerABI, err := abi.JSON(strings.NewReader(routerABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}
	erc20ABI, err := abi.JSON(strings.NewReader(erc20ABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 ABI: %w", err)
	}

	return &Wallet{
		client:    client,
		key:       key,
		address:   crypto.PubkeyToAddress(key.PublicKey),
		chainID:   new(big.Int).SetUint64(chainID),
		routerABI: routerABI,
		erc20ABI:  erc20ABI,
		logger:    logger,
	}, nil
}

// Address returns the wallet's account address
func (w *Wallet) Address() common.Address {
	return w.address
}

// SignAndSubmit signs a swap transaction for the descriptor and broadcasts
// it. An expired descriptor is rejected with types.ErrDeadlineExpired rather
// than submitted stale.
func (w *Wallet) SignAndSubmit(ctx context.Context, td *types.TradeDescriptor) (common.Hash, error) {
	if td.Expired(time.Now()) {
		return common.Hash{}, fmt.Errorf("%w: deadline %s passed", types.ErrDeadlineExpired, td.Deadline.Format(time.RFC3339))
	}
	if len(td.Path) < 2 {
		return common.Hash{}, fmt.Errorf("%w: path too short", types.ErrSubmissionFailed)
	}

	bal, err := w.Balance(ctx, types.Token{Address: td.Path[0]}, w.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: read input balance: %v", types.ErrSubmissionFailed, err)
	}
	if bal.Cmp(td.AmountIn) < 0 {
		return common.Hash{}, fmt.Errorf("%w: have %s, need %s", types.ErrInsufficientBalance, bal, td.AmountIn)
	}

	data, err := w.routerABI.Pack("swapExactTokensForTokens",
		td.AmountIn,
		td.MinAmountOut,
		td.Path,
		w.address,
		big.NewInt(td.Deadline.Unix()),
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: pack calldata: %v", types.ErrSubmissionFailed, err)
	}

	nonce, err := w.client.PendingNonceAt(ctx, w.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: fetch nonce: %v", types.ErrSubmissionFailed, err)
	}

	gasPrice, err := w.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: fetch gas price: %v", types.ErrSubmissionFailed, err)
	}

	gasLimit, err := w.client.EstimateGas(ctx, ethereum.CallMsg{
		From: w.address,
		To:   &td.Router,
		Data: data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: estimate gas: %v", types.ErrSubmissionFailed, err)
	}

	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &td.Router,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(w.chainID), w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: sign: %v", types.ErrSubmissionFailed, err)
	}

	if err := w.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("%w: broadcast: %v", types.ErrSubmissionFailed, err)
	}

	w.logger.Info("trade submitted",
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.String("venue", td.Venue),
		zap.String("amount_in", td.AmountIn.String()))

	return signed.Hash(), nil
}

// Await polls for the transaction receipt until ctx expires
func (w *Wallet) Await(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", types.ErrConfirmationTimeout, hash.Hex())
		default:
		}

		receipt, err := w.client.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", types.ErrConfirmationTimeout, hash.Hex())
		case <-ticker.C:
		}
	}
}

// Balance returns the owner's ERC20 balance for token
func (w *Wallet) Balance(ctx context.Context, token types.Token, owner common.Address) (*big.Int, error) {
	contract := bind.NewBoundContract(token.Address, w.erc20ABI, w.client, w.client, w.client)

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", owner); err != nil {
		return nil, fmt.Errorf("failed to get balance of %s: %w", token.Symbol, err)
	}

	bal, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("failed to parse balance of %s", token.Symbol)
	}
	return bal, nil
}

// Decimals reads a token's decimal precision from the chain
func (w *Wallet) Decimals(ctx context.Context, addr common.Address) (uint8, error) {
	contract := bind.NewBoundContract(addr, w.erc20ABI, w.client, w.client, w.client)

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "decimals"); err != nil {
		return 0, fmt.Errorf("failed to get decimals: %w", err)
	}

	dec, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("failed to parse decimals")
	}
	return dec, nil
}
