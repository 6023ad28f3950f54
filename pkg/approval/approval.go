package approval

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"pocketdex/config"
	"pocketdex/pkg/chain"
)

// ChainClient is the EVM surface the approval manager needs.
// *chain.EVMClient satisfies it; tests substitute fakes.
type ChainClient interface {
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	ApproveCallData(spender common.Address, amount *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SignAndSend(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, value *big.Int, gasLimit uint64, gasPrice *big.Int, data []byte) (common.Hash, error)
	WaitMined(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// Result reports whether an approval transaction was submitted
type Result struct {
	Submitted bool
	TxHash    common.Hash
}

// Manager ensures a spender contract is authorized to move tokens on the
// signer's behalf. EVM tokens only; the Solana venue has no allowance model.
type Manager struct {
	client ChainClient
	policy config.ApprovalPolicy
}

// NewManager creates an approval manager with the given grant policy
func NewManager(client ChainClient, policy config.ApprovalPolicy) *Manager {
	if policy == "" {
		policy = config.ApproveMax
	}
	return &Manager{client: client, policy: policy}
}

// Ensure guarantees the spender can move at least amount of token. The
// current allowance is re-read on every call; if it already covers the
// amount this is a no-op and no transaction is submitted. Otherwise an
// approval is submitted and confirmed before returning. Failures propagate
// to the caller; there is no automatic retry.
func (m *Manager) Ensure(ctx context.Context, key *ecdsa.PrivateKey, token, spender common.Address, amount *big.Int) (*Result, error) {
	owner := crypto.PubkeyToAddress(key.PublicKey)

	allowance, err := m.client.Allowance(ctx, token, owner, spender)
	if err != nil {
		return nil, fmt.Errorf("failed to read allowance: %w", err)
	}

	if allowance.Cmp(amount) >= 0 {
		return &Result{Submitted: false}, nil
	}

	grant := amount
	if m.policy == config.ApproveMax {
		grant = chain.MaxUint256
	}

	data, err := m.client.ApproveCallData(spender, grant)
	if err != nil {
		return nil, err
	}

	gasLimit, err := m.client.EstimateGas(ctx, ethereum.CallMsg{
		From: owner,
		To:   &token,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate approval gas: %w", err)
	}
	gasLimit = gasLimit * 120 / 100

	gasPrice, err := m.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	txHash, err := m.client.SignAndSend(ctx, key, token, nil, gasLimit, gasPrice, data)
	if err != nil {
		return nil, fmt.Errorf("failed to submit approval: %w", err)
	}

	receipt, err := m.client.WaitMined(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("approval confirmation failed: %w", err)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("approval transaction %s reverted", txHash.Hex())
	}

	return &Result{Submitted: true, TxHash: txHash}, nil
}
