package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pocketdex",
	Short: "A CLI for on-chain token swaps on Ethereum and Solana",
	Long: `pocketdex is a command-line tool for swapping tokens directly against
on-chain venues. On Ethereum it quotes Uniswap V3 across fee tiers with a
fallback venue for execution; on Solana it routes through a Jupiter-style
aggregator. Keys live in a local encrypted wallet file.

Examples:
  pocketdex wallet generate --chain eth
  pocketdex quote 1000000 <token-in> to <token-out> --chain eth
  pocketdex swap 1000000 <token-in> to <token-out> --chain eth
  pocketdex status <tx-hash>
  pocketdex history`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
