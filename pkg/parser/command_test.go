package parser

import (
	"math/big"
	"testing"

	"pocketdex/pkg/types"
)

const (
	usdc = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	weth = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
)

func TestParseSwapCommand(t *testing.T) {
	tests := []struct {
		name    string
		command string
		chain   types.Chain
		wantErr bool
	}{
		{"with swap prefix", "swap 1000000 " + usdc + " to " + weth, types.ChainEVM, false},
		{"without prefix", "1000000 " + usdc + " to " + weth, types.ChainEVM, false},
		{"uppercase TO", "1000000 " + usdc + " TO " + weth, types.ChainEVM, false},
		{"solana mints", "100000000 So11111111111111111111111111111111111111112 to EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", types.ChainSolana, false},
		{"missing destination", "1000000 " + usdc, types.ChainEVM, true},
		{"decimal amount", "1.5 " + usdc + " to " + weth, types.ChainEVM, true},
		{"zero amount", "0 " + usdc + " to " + weth, types.ChainEVM, true},
		{"same token both sides", "1000000 " + usdc + " to " + usdc, types.ChainEVM, true},
		{"short evm address", "1000000 0x1234 to " + weth, types.ChainEVM, true},
		{"invalid chain", "1000000 " + usdc + " to " + weth, types.Chain("dogecoin"), true},
		{"empty", "", types.ChainEVM, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseSwapCommand(tt.command, tt.chain)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseSwapCommand(%q) succeeded, want error", tt.command)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSwapCommand(%q): %v", tt.command, err)
			}
			if req.Chain != tt.chain {
				t.Errorf("chain = %s, want %s", req.Chain, tt.chain)
			}
			if req.AmountIn.Sign() <= 0 {
				t.Errorf("amount = %s, want positive", req.AmountIn)
			}
		})
	}
}

func TestParseSwapCommandPreservesTokenCase(t *testing.T) {
	req, err := ParseSwapCommand("swap 1000000 "+usdc+" to "+weth, types.ChainEVM)
	if err != nil {
		t.Fatalf("ParseSwapCommand: %v", err)
	}
	if req.TokenIn != usdc {
		t.Errorf("token in = %s, want the address case preserved", req.TokenIn)
	}
	if req.AmountIn.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Errorf("amount = %s, want 1000000", req.AmountIn)
	}
}
