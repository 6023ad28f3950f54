package chain

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Per-signature network fee in lamports
const solanaFeeLamports = 5000

// SolanaClient wraps the Solana RPC surface the swap pipeline uses
type SolanaClient struct {
	client          *rpc.Client
	commitment      rpc.CommitmentType
	confirmTimeout  time.Duration
	confirmInterval time.Duration
}

// NewSolanaClient connects to a Solana RPC endpoint
func NewSolanaClient(rpcURL, commitment string, confirmTimeout, confirmInterval time.Duration) (*SolanaClient, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("RPC URL not configured for Solana")
	}

	if confirmInterval <= 0 {
		confirmInterval = 3 * time.Second
	}
	if confirmTimeout <= 0 {
		confirmTimeout = 3 * time.Minute
	}

	return &SolanaClient{
		client:          rpc.New(rpcURL),
		commitment:      parseCommitment(commitment),
		confirmTimeout:  confirmTimeout,
		confirmInterval: confirmInterval,
	}, nil
}

func parseCommitment(commitment string) rpc.CommitmentType {
	switch strings.ToLower(commitment) {
	case "finalized":
		return rpc.CommitmentFinalized
	case "confirmed":
		return rpc.CommitmentConfirmed
	case "processed":
		return rpc.CommitmentProcessed
	default:
		return rpc.CommitmentConfirmed
	}
}

// NativeBalance returns the SOL balance in lamports
func (s *SolanaClient) NativeBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	balance, err := s.client.GetBalance(ctx, account, s.commitment)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance.Value, nil
}

// TokenBalance returns the SPL token balance held in the owner's associated
// token account, in base units. A missing account reads as zero.
func (s *SolanaClient) TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error) {
	tokenAccount, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, fmt.Errorf("failed to derive associated token address: %w", err)
	}

	accountInfo, err := s.client.GetTokenAccountBalance(ctx, tokenAccount, s.commitment)
	if err != nil {
		if strings.Contains(err.Error(), "could not find account") || strings.Contains(err.Error(), "not found") {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get token balance: %w", err)
	}

	amount, err := strconv.ParseUint(accountInfo.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token balance: %w", err)
	}

	return amount, nil
}

// FeeBudget returns the lamports a single-signature transaction costs
func (s *SolanaClient) FeeBudget() uint64 {
	return solanaFeeLamports
}

// SignAndSendRaw decodes an aggregator-built base64 transaction, signs it
// with the given key, and broadcasts it
func (s *SolanaClient) SignAndSendRaw(ctx context.Context, rawTransaction string, key solana.PrivateKey) (solana.Signature, error) {
	rawBytes, err := base64.StdEncoding.DecodeString(rawTransaction)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to decode transaction: %w", err)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(rawBytes))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to deserialize transaction: %w", err)
	}

	signer := key.PublicKey()
	_, err = tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if pub.Equals(signer) {
			return &key
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := s.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: s.commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	return sig, nil
}

// WaitConfirmed polls signature status on a fixed interval until the
// transaction reaches the configured commitment or the timeout elapses
func (s *SolanaClient) WaitConfirmed(ctx context.Context, sig solana.Signature) error {
	deadline := time.Now().Add(s.confirmTimeout)
	ticker := time.NewTicker(s.confirmInterval)
	defer ticker.Stop()

	for {
		statuses, err := s.client.GetSignatureStatuses(ctx, true, sig)
		if err == nil && len(statuses.Value) > 0 && statuses.Value[0] != nil {
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed on-chain: %v", sig, status.Err)
			}
			switch status.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				return nil
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s after %s", ErrConfirmTimeout, sig, s.confirmTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
