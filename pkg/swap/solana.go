package swap

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"

	"pocketdex/pkg/types"
	"pocketdex/pkg/venue"
)

// SolanaChain is the Solana surface the executor needs.
// *chain.SolanaClient satisfies it; tests substitute fakes.
type SolanaChain interface {
	NativeBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error)
	FeeBudget() uint64
	SignAndSendRaw(ctx context.Context, rawTransaction string, key solana.PrivateKey) (solana.Signature, error)
	WaitConfirmed(ctx context.Context, sig solana.Signature) error
}

// SolanaExecutor runs the Solana side of the pipeline. There is no approval
// step and no gas estimation: the aggregator builds the whole transaction,
// so the pre-flight reduces to balance checks before signing and sending.
type SolanaExecutor struct {
	client SolanaChain
	venue  venue.Venue
	logf   func(format string, args ...interface{})
}

// NewSolanaExecutor creates a Solana swap executor over a single aggregator
// venue
func NewSolanaExecutor(client SolanaChain, v venue.Venue) *SolanaExecutor {
	return &SolanaExecutor{
		client: client,
		venue:  v,
		logf:   func(string, ...interface{}) {},
	}
}

// SetLogger installs a progress logger for verbose output
func (e *SolanaExecutor) SetLogger(logf func(format string, args ...interface{})) {
	if logf != nil {
		e.logf = logf
	}
}

// Swap checks balances, fetches a fresh quote with its ready-to-sign
// transaction, signs, submits, and waits for confirmation
func (e *SolanaExecutor) Swap(ctx context.Context, key solana.PrivateKey, req *types.SwapRequest) *Outcome {
	owner := key.PublicKey()

	fail := func(state State, err error) *Outcome {
		return &Outcome{Success: false, Venue: e.venue.Name(), FinalState: state, Err: err}
	}

	if err := e.checkBalances(ctx, owner, req); err != nil {
		return fail(StateSimulating, err)
	}

	quote, err := e.venue.GetQuote(ctx, req)
	if err != nil {
		return fail(StateQuoting, err)
	}
	if quote.RawTransaction == "" {
		return fail(StateQuoting, fmt.Errorf("venue %s returned no transaction payload", e.venue.Name()))
	}

	sig, err := e.client.SignAndSendRaw(ctx, quote.RawTransaction, key)
	if err != nil {
		return fail(StateExecuting, err)
	}
	e.logf("[Executor] Submitted %s via %s", sig, e.venue.Name())

	if err := e.client.WaitConfirmed(ctx, sig); err != nil {
		return fail(StateConfirming, err)
	}

	return &Outcome{
		Success:    true,
		Venue:      e.venue.Name(),
		TxHash:     sig.String(),
		AmountOut:  quote.AmountOut,
		FinalState: StateSucceeded,
	}
}

// checkBalances verifies the input amount is funded and the fee budget is
// covered in SOL. Native swaps need amount plus fee from the same balance.
func (e *SolanaExecutor) checkBalances(ctx context.Context, owner solana.PublicKey, req *types.SwapRequest) error {
	if !req.AmountIn.IsUint64() {
		return fmt.Errorf("amount %s exceeds the Solana base-unit range", req.AmountIn.String())
	}
	amountIn := req.AmountIn.Uint64()

	lamports, err := e.client.NativeBalance(ctx, owner)
	if err != nil {
		return fmt.Errorf("failed to read SOL balance: %w", err)
	}

	fee := e.client.FeeBudget()

	if req.TokenIn == "" || req.TokenIn == solana.SolMint.String() {
		need := amountIn + fee
		if lamports < need {
			return &InsufficientFundsError{
				Asset: "SOL",
				Need:  new(big.Int).SetUint64(need),
				Have:  new(big.Int).SetUint64(lamports),
			}
		}
		return nil
	}

	if lamports < fee {
		return &InsufficientFundsError{
			Asset: "SOL",
			Need:  new(big.Int).SetUint64(fee),
			Have:  new(big.Int).SetUint64(lamports),
		}
	}

	mint, err := solana.PublicKeyFromBase58(req.TokenIn)
	if err != nil {
		return fmt.Errorf("invalid input mint %q: %w", req.TokenIn, err)
	}

	tokenBalance, err := e.client.TokenBalance(ctx, owner, mint)
	if err != nil {
		return fmt.Errorf("failed to read token balance: %w", err)
	}
	if tokenBalance < amountIn {
		return &InsufficientFundsError{
			Asset: req.TokenIn,
			Need:  req.AmountIn,
			Have:  new(big.Int).SetUint64(tokenBalance),
		}
	}

	return nil
}
