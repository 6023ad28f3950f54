package venue

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"

	"pocketdex/pkg/types"
)

// ErrNoRoute means a venue could not produce any usable quote for the pair.
// It is terminal for that venue only; the orchestrator moves on to the next
// venue in its ordered list.
var ErrNoRoute = errors.New("no route found")

// Venue is a liquidity source or aggregator capable of quoting a swap and
// producing an executable payload. The orchestrator never branches on venue
// identity; it only walks its ordered venue list.
type Venue interface {
	Name() string
	GetQuote(ctx context.Context, req *types.SwapRequest) (*types.Quote, error)
}

// ContractCaller is the single read the on-chain venues need.
// chain.Backend satisfies it; tests substitute fakes.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// minAmountOut applies a slippage tolerance in basis points to a quoted
// output amount
func minAmountOut(amountOut *big.Int, slippageBps int) *big.Int {
	if slippageBps <= 0 {
		return new(big.Int).Set(amountOut)
	}
	min := new(big.Int).Mul(amountOut, big.NewInt(int64(10000-slippageBps)))
	return min.Div(min, big.NewInt(10000))
}
