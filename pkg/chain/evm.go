package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ERC20 view and approval function ABI
const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

// MaxUint256 is the maximum representable ERC20 amount, used by the
// one-time-approval-forever policy
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Backend is the subset of the Ethereum RPC surface the swap pipeline uses.
// *ethclient.Client satisfies it; tests substitute fakes.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// EVMClient wraps an Ethereum backend with the reads and writes the
// approval manager, simulation gate, and orchestrator need
type EVMClient struct {
	backend         Backend
	chainID         *big.Int
	erc20           abi.ABI
	confirmTimeout  time.Duration
	confirmInterval time.Duration
}

// NewEVMClient creates a client over an existing backend
func NewEVMClient(backend Backend, chainID int64, confirmTimeout, confirmInterval time.Duration) (*EVMClient, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}

	if confirmInterval <= 0 {
		confirmInterval = 3 * time.Second
	}
	if confirmTimeout <= 0 {
		confirmTimeout = 3 * time.Minute
	}

	return &EVMClient{
		backend:         backend,
		chainID:         big.NewInt(chainID),
		erc20:           parsed,
		confirmTimeout:  confirmTimeout,
		confirmInterval: confirmInterval,
	}, nil
}

// DialEVM connects to an RPC endpoint and wraps it in an EVMClient
func DialEVM(rpcURL string, chainID int64, confirmTimeout, confirmInterval time.Duration) (*EVMClient, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("RPC URL not configured")
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	return NewEVMClient(client, chainID, confirmTimeout, confirmInterval)
}

// Backend exposes the underlying backend for venue contract reads
func (c *EVMClient) Backend() Backend {
	return c.backend
}

// ChainID returns the configured chain ID
func (c *EVMClient) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// NativeBalance returns the account's native currency balance in wei
func (c *EVMClient) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := c.backend.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// TokenBalance returns the account's ERC20 balance in base units
func (c *EVMClient) TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	data, err := c.erc20.Pack("balanceOf", account)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf data: %w", err)
	}

	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call balanceOf: %w", err)
	}

	return new(big.Int).SetBytes(result), nil
}

// Allowance reads the live on-chain allowance for (owner, token, spender).
// Callers must use this fresh read every time they decide whether an
// approval is needed; a stale value is a correctness bug.
func (c *EVMClient) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	data, err := c.erc20.Pack("allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("failed to pack allowance data: %w", err)
	}

	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call allowance: %w", err)
	}

	return new(big.Int).SetBytes(result), nil
}

// ApproveCallData packs the calldata for an ERC20 approve
func (c *EVMClient) ApproveCallData(spender common.Address, amount *big.Int) ([]byte, error) {
	data, err := c.erc20.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve data: %w", err)
	}
	return data, nil
}

// EstimateGas dry-runs the given call and returns a gas estimate. A revert
// surfaces as an error here, before any gas is spent.
func (c *EVMClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return c.backend.EstimateGas(ctx, msg)
}

// SuggestGasPrice returns the network's current gas price
func (c *EVMClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return gasPrice, nil
}

// SignAndSend builds, signs, and broadcasts a transaction from the given key
func (c *EVMClient) SignAndSend(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, value *big.Int, gasLimit uint64, gasPrice *big.Int, data []byte) (common.Hash, error) {
	from := crypto.PubkeyToAddress(key.PublicKey)

	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	if value == nil {
		value = big.NewInt(0)
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.backend.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx.Hash(), nil
}

// ErrConfirmTimeout is returned when a transaction does not reach a terminal
// receipt status within the configured window
var ErrConfirmTimeout = errors.New("timed out waiting for transaction confirmation")

// WaitMined polls for the transaction receipt on a fixed interval until a
// terminal status is observed or the confirmation timeout elapses. The
// timeout is deliberate: an unbounded poll would hang forever on a dropped
// transaction.
func (c *EVMClient) WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	deadline := time.Now().Add(c.confirmTimeout)
	ticker := time.NewTicker(c.confirmInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s after %s", ErrConfirmTimeout, txHash.Hex(), c.confirmTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// TransactionStatus looks up a submitted transaction's receipt status
func (c *EVMClient) TransactionStatus(ctx context.Context, txHash common.Hash) (uint64, uint64, error) {
	receipt, err := c.backend.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return 0, 0, fmt.Errorf("transaction %s not yet mined", txHash.Hex())
		}
		return 0, 0, fmt.Errorf("failed to get transaction receipt: %w", err)
	}
	return receipt.Status, receipt.BlockNumber.Uint64(), nil
}
