package swap

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrApprovalRequired is the disambiguated root cause when gas estimation
// reverts and a fresh allowance read shows the spender is not authorized.
// The orchestrator reacts by entering the Approving state instead of
// aborting.
var ErrApprovalRequired = errors.New("spender approval missing")

// InsufficientFundsError reports a pre-flight balance shortfall. It always
// names both the required and available amounts so the caller can explain
// the failure without inspecting logs.
type InsufficientFundsError struct {
	Asset string // token address or "native"
	Need  *big.Int
	Have  *big.Int
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient %s balance: have %s, need %s", e.Asset, e.Have.String(), e.Need.String())
}

// RevertError reports an on-chain execution failure. The transaction is
// never retried automatically: the gas is already spent.
type RevertError struct {
	TxHash string
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("transaction %s reverted on-chain", e.TxHash)
	}
	return fmt.Sprintf("transaction %s reverted on-chain: %s", e.TxHash, e.Reason)
}
