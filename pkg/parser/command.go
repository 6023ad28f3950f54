package parser

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"pocketdex/pkg/types"
)

// Pattern: <amount> <token-in> to <token-out>
// Tokens are contract addresses (0x...) or base58 mints, so their case is
// preserved; only the "to" keyword is matched case-insensitively.
var swapPattern = regexp.MustCompile(`^(\d+)\s+(\S+)\s+(?i:to)\s+(\S+)$`)

// ParseSwapCommand parses a swap command of the form
// "swap <amount> <token-in> to <token-out>", with the amount in base units.
// Examples:
//   - "swap 1000000 0xA0b8...eB48 to 0xC02a...6Cc2"
//   - "5000000000 So11111111111111111111111111111111111111112 to EPjF...Dt1v"
func ParseSwapCommand(command string, chain types.Chain) (*types.SwapRequest, error) {
	command = strings.TrimSpace(command)

	// Remove the word "swap" if present at the beginning
	if len(command) >= 5 && strings.EqualFold(command[:5], "swap ") {
		command = strings.TrimSpace(command[5:])
	}

	matches := swapPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: 'swap <amount> <token-in> to <token-out>' with the amount in base units")
	}

	amount, ok := new(big.Int).SetString(matches[1], 10)
	if !ok || amount.Sign() <= 0 {
		return nil, fmt.Errorf("invalid amount %q: must be a positive base-unit integer", matches[1])
	}

	req := &types.SwapRequest{
		Chain:    chain,
		AmountIn: amount,
		TokenIn:  matches[2],
		TokenOut: matches[3],
	}

	if err := ValidateSwapRequest(req); err != nil {
		return nil, err
	}

	return req, nil
}

// ValidateSwapRequest validates that a swap request has all required fields
func ValidateSwapRequest(req *types.SwapRequest) error {
	if !req.Chain.Valid() {
		return fmt.Errorf("chain must be %q or %q", types.ChainEVM, types.ChainSolana)
	}
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return fmt.Errorf("amount is required")
	}
	if req.TokenIn == "" {
		return fmt.Errorf("input token is required")
	}
	if req.TokenOut == "" {
		return fmt.Errorf("output token is required")
	}
	if strings.EqualFold(req.TokenIn, req.TokenOut) {
		return fmt.Errorf("input and output tokens must differ")
	}
	if req.Chain == types.ChainEVM {
		for _, token := range []string{req.TokenIn, req.TokenOut} {
			if !strings.HasPrefix(token, "0x") || len(token) != 42 {
				return fmt.Errorf("invalid token address %q: expected a 0x-prefixed 20-byte address", token)
			}
		}
	}
	return nil
}
