package swap

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"pocketdex/pkg/approval"
	"pocketdex/pkg/types"
	"pocketdex/pkg/venue"
)

// State names a step of the swap pipeline
type State string

const (
	StateQuoting    State = "quoting"
	StateSimulating State = "simulating"
	StateApproving  State = "approving"
	StateExecuting  State = "executing"
	StateConfirming State = "confirming"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Real execution pads the simulated gas limit to tolerate minor state drift
// between simulate and execute without under-provisioning
const gasLimitBufferPct = 20

// maxVenueAttempts bounds the fallback path: the primary venue plus exactly
// one lower-priority retry, never a third
const maxVenueAttempts = 2

// Outcome is the structured result returned at the orchestrator boundary.
// Expected failures are reported here rather than thrown; every failure
// carries a message sufficient to explain itself without log diving.
type Outcome struct {
	Success     bool
	Venue       string
	TxHash      string
	AmountOut   *big.Int
	FinalState  State
	Err         error
	VenueErrors map[string]error // per-venue failure reasons on total failure
}

// ExecutionClient is the EVM write surface the orchestrator needs beyond
// the gate's reads
type ExecutionClient interface {
	SimulationClient
	SignAndSend(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, value *big.Int, gasLimit uint64, gasPrice *big.Int, data []byte) (common.Hash, error)
	WaitMined(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// Orchestrator sequences quote, simulate, approve, execute, and confirm for
// EVM swaps, walking an ordered venue list with a single fallback
type Orchestrator struct {
	client    ExecutionClient
	gate      *Gate
	approvals *approval.Manager
	venues    []venue.Venue
	logf      func(format string, args ...interface{})
}

// NewOrchestrator creates an orchestrator over an ordered venue list,
// primary first
func NewOrchestrator(client ExecutionClient, approvals *approval.Manager, venues []venue.Venue) *Orchestrator {
	return &Orchestrator{
		client:    client,
		gate:      NewGate(client),
		approvals: approvals,
		venues:    venues,
		logf:      func(string, ...interface{}) {},
	}
}

// SetLogger installs a progress logger for verbose output
func (o *Orchestrator) SetLogger(logf func(format string, args ...interface{})) {
	if logf != nil {
		o.logf = logf
	}
}

// Swap runs the full pipeline. If the primary venue's attempt fails at any
// state, exactly one fallback venue is tried; if that also fails the outcome
// reports both venues' errors and no further attempt is made.
func (o *Orchestrator) Swap(ctx context.Context, key *ecdsa.PrivateKey, req *types.SwapRequest) *Outcome {
	if len(o.venues) == 0 {
		return &Outcome{FinalState: StateFailed, Err: errors.New("no venues configured")}
	}

	venueErrors := make(map[string]error)

	attempts := o.venues
	if len(attempts) > maxVenueAttempts {
		attempts = attempts[:maxVenueAttempts]
	}

	for _, v := range attempts {
		o.logf("[Orchestrator] Attempting swap via %s", v.Name())

		outcome := o.attempt(ctx, key, v, req)
		if outcome.Success {
			return outcome
		}

		o.logf("[Orchestrator] Venue %s failed: %v", v.Name(), outcome.Err)
		venueErrors[v.Name()] = outcome.Err
	}

	errs := make([]error, 0, len(venueErrors))
	for name, err := range venueErrors {
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}

	return &Outcome{
		Success:     false,
		FinalState:  StateFailed,
		Err:         fmt.Errorf("all venues failed: %w", errors.Join(errs...)),
		VenueErrors: venueErrors,
	}
}

// attempt runs one venue through the state machine:
// Quoting → Simulating → (Approving)? → Executing → Confirming
func (o *Orchestrator) attempt(ctx context.Context, key *ecdsa.PrivateKey, v venue.Venue, req *types.SwapRequest) *Outcome {
	owner := crypto.PubkeyToAddress(key.PublicKey)

	fail := func(state State, err error) *Outcome {
		return &Outcome{Success: false, Venue: v.Name(), FinalState: state, Err: err}
	}

	// Quoting and Simulating: the gate fetches the quote itself so the
	// simulated envelope is never stale
	sim, quote := o.gate.Simulate(ctx, owner, req, v)

	if !sim.Success && errors.Is(sim.Err, ErrApprovalRequired) {
		// Approving: only the disambiguated approval-missing failure
		// reaches this state; any other simulation failure is terminal
		// for the attempt
		o.logf("[Orchestrator] Approval required for %s, submitting", quote.To)

		spender := common.HexToAddress(quote.To)
		tokenIn := common.HexToAddress(req.TokenIn)
		res, err := o.approvals.Ensure(ctx, key, tokenIn, spender, req.AmountIn)
		if err != nil {
			return fail(StateApproving, err)
		}
		if res.Submitted {
			o.logf("[Orchestrator] Approval confirmed: %s", res.TxHash.Hex())
		}

		// Re-run the gate after approval; the fresh quote and estimate
		// reflect the new allowance
		sim, quote = o.gate.Simulate(ctx, owner, req, v)
	}

	if !sim.Success {
		return fail(StateSimulating, sim.Err)
	}

	// Executing: reuse the gate's gas estimate, padded for state drift
	gasLimit := sim.GasEstimate * (100 + gasLimitBufferPct) / 100
	to := common.HexToAddress(quote.To)

	txHash, err := o.client.SignAndSend(ctx, key, to, quote.Value, gasLimit, sim.GasPrice, quote.CallData)
	if err != nil {
		return fail(StateExecuting, err)
	}
	o.logf("[Orchestrator] Submitted %s via %s", txHash.Hex(), v.Name())

	// Confirming: poll until a terminal receipt status or timeout
	receipt, err := o.client.WaitMined(ctx, txHash)
	if err != nil {
		return fail(StateConfirming, err)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return fail(StateConfirming, &RevertError{TxHash: txHash.Hex()})
	}

	return &Outcome{
		Success:    true,
		Venue:      v.Name(),
		TxHash:     txHash.Hex(),
		AmountOut:  quote.AmountOut,
		FinalState: StateSucceeded,
	}
}
