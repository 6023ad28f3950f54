package types

import (
	"math/big"
	"time"
)

// Chain identifies one of the two supported blockchains
type Chain string

const (
	ChainEVM    Chain = "eth"
	ChainSolana Chain = "sol"
)

// Valid returns true for a recognized chain identifier
func (c Chain) Valid() bool {
	return c == ChainEVM || c == ChainSolana
}

// SwapRequest describes a user's swap intent
type SwapRequest struct {
	Chain       Chain
	TokenIn     string   // contract address or mint; empty for the native asset
	TokenOut    string   // contract address or mint
	AmountIn    *big.Int // base units
	Taker       string   // funding/signing address
	SlippageBps int      // max acceptable price deviation in basis points
}

// Quote is the result of asking one venue for a price. Quotes are produced
// fresh per request and never cached: on-chain price state moves every block,
// so a stored quote is stale by construction.
type Quote struct {
	Source    string   // venue identifier (e.g. "uniswap-v3", "jupiter")
	AmountOut *big.Int // best-effort output estimate in base units
	FeeTier   uint32   // concentrated-liquidity fee tier; 0 when not tiered

	// EVM execution payload
	To       string   // contract to call
	CallData []byte   // venue-built calldata
	Value    *big.Int // native value to attach, usually zero

	// Solana execution payload: a base64-encoded unsigned transaction
	// built by the aggregator, to be signed and submitted as-is
	RawTransaction string
}

// SimulationResult is the outcome of the pre-flight gate. It is used once
// and discarded; the gas estimate is carried into execution so the real
// submission does not re-estimate.
type SimulationResult struct {
	Success     bool
	GasEstimate uint64
	GasPrice    *big.Int
	Err         error
}

// TxStatus is the client-side view of a submitted transaction
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxCompleted TxStatus = "completed"
	TxFailed    TxStatus = "failed"
)

// TxRecord is one entry in the local transaction history. It is a UI aid
// only, never a source of truth for balances.
type TxRecord struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // "send" or "receive"
	Amount    string    `json:"amount"`
	Token     string    `json:"token"`
	Timestamp time.Time `json:"timestamp"`
	Status    TxStatus  `json:"status"`
	Address   string    `json:"address"`
	Hash      string    `json:"hash,omitempty"`
}
