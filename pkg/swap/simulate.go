package swap

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"pocketdex/pkg/types"
	"pocketdex/pkg/venue"
)

// SimulationClient is the EVM read surface the gate needs.
// *chain.EVMClient satisfies it; tests substitute fakes.
type SimulationClient interface {
	TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error)
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// Gate pre-flight-checks a prospective swap before any gas is spent. Every
// check is a fresh on-chain read; nothing from a previous simulation is
// reused.
type Gate struct {
	client SimulationClient
}

// NewGate creates a simulation gate
func NewGate(client SimulationClient) *Gate {
	return &Gate{client: client}
}

// Simulate runs the pre-flight sequence for one venue: balance check, fresh
// quote, gas estimation on the exact execution envelope, and native-cost
// coverage. On success the gas estimate and gas price are attached for the
// execution step to reuse — re-estimating there would open a race between
// estimate and execution.
//
// Expected failures land in the result's Err field with Success=false; the
// quote is returned whenever one was obtained so the caller can act on the
// failure (e.g. approve and re-run).
func (g *Gate) Simulate(ctx context.Context, owner common.Address, req *types.SwapRequest, v venue.Venue) (*types.SimulationResult, *types.Quote) {
	fail := func(err error) *types.SimulationResult {
		return &types.SimulationResult{Success: false, Err: err}
	}

	// 1. Token balance first: if the input amount is not even funded there
	// is nothing to simulate.
	tokenIn := common.HexToAddress(req.TokenIn)
	balance, err := g.client.TokenBalance(ctx, tokenIn, owner)
	if err != nil {
		return fail(fmt.Errorf("failed to read token balance: %w", err)), nil
	}
	if balance.Cmp(req.AmountIn) < 0 {
		return fail(&InsufficientFundsError{Asset: req.TokenIn, Need: req.AmountIn, Have: balance}), nil
	}

	// 2. Fresh quote; a stale one would simulate a trade that no longer
	// exists.
	quote, err := v.GetQuote(ctx, req)
	if err != nil {
		if errors.Is(err, venue.ErrNoRoute) {
			return fail(err), nil
		}
		return fail(fmt.Errorf("quote failed on %s: %w", v.Name(), err)), nil
	}

	// 3–4. Estimate gas on the exact envelope the execution would submit.
	// An estimation revert is most commonly a missing approval, so on
	// failure the allowance is re-read to disambiguate the root cause.
	to := common.HexToAddress(quote.To)
	msg := ethereum.CallMsg{
		From:  owner,
		To:    &to,
		Value: quote.Value,
		Data:  quote.CallData,
	}

	gasEstimate, err := g.client.EstimateGas(ctx, msg)
	if err != nil {
		allowance, allowErr := g.client.Allowance(ctx, tokenIn, owner, to)
		if allowErr == nil && allowance.Cmp(req.AmountIn) < 0 {
			return fail(fmt.Errorf("%w: spender %s has allowance %s, swap needs %s",
				ErrApprovalRequired, quote.To, allowance.String(), req.AmountIn.String())), quote
		}
		return fail(fmt.Errorf("gas estimation failed: %w", err)), quote
	}

	// 5. Native cost coverage: gas plus any attached value.
	gasPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return fail(err), quote
	}

	totalCost := new(big.Int).Mul(new(big.Int).SetUint64(gasEstimate), gasPrice)
	if quote.Value != nil {
		totalCost.Add(totalCost, quote.Value)
	}

	nativeBalance, err := g.client.NativeBalance(ctx, owner)
	if err != nil {
		return fail(fmt.Errorf("failed to read native balance: %w", err)), quote
	}
	if nativeBalance.Cmp(totalCost) < 0 {
		return fail(&InsufficientFundsError{Asset: "native", Need: totalCost, Have: nativeBalance}), quote
	}

	return &types.SimulationResult{
		Success:     true,
		GasEstimate: gasEstimate,
		GasPrice:    gasPrice,
	}, quote
}
