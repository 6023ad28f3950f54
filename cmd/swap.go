package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pocketdex/config"
	"pocketdex/pkg/approval"
	"pocketdex/pkg/history"
	"pocketdex/pkg/parser"
	"pocketdex/pkg/swap"
	"pocketdex/pkg/types"
	"pocketdex/pkg/wallet"
)

var (
	swapChain   string
	slippageBps int
	noConfirm   bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <token-in> to <token-out>",
	Short: "Execute an on-chain token swap",
	Long: `Swap tokens through the best available venue. The amount is given in the
input token's base units. On Ethereum the swap is simulated before any gas
is spent, and a missing spender approval is submitted automatically.

Examples:
  # Ethereum: 1 USDC (6 decimals) to WETH
  pocketdex swap 1000000 0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48 to 0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2 --chain eth

  # Solana: 0.1 SOL to USDC
  pocketdex swap 100000000 So11111111111111111111111111111111111111112 to EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v --chain sol

  # Skip the confirmation prompt
  pocketdex swap 1000000 <token-in> to <token-out> --chain eth --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().StringVar(&swapChain, "chain", "", "Chain to swap on: eth or sol (default: active wallet chain)")
	swapCmd.Flags().IntVar(&slippageBps, "slippage-bps", 0, "Max price slippage in basis points (default: from config)")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	store := wallet.NewStore(cfg.WalletFile)
	if !store.Exists() {
		printError(fmt.Errorf("no wallet found. Run 'pocketdex wallet generate' first"))
		os.Exit(1)
	}

	password, err := promptPassword(false)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer clear(password)

	chainID := types.Chain(swapChain)
	if swapChain == "" {
		active, err := store.Active(password)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		chainID = active.Chain
	}

	req, err := parser.ParseSwapCommand(strings.Join(args, " "), chainID)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	req.SlippageBps = cfg.SlippageBps
	if slippageBps > 0 {
		req.SlippageBps = slippageBps
	}

	taker, err := store.Address(chainID, password)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	req.Taker = taker

	if !noConfirm && !jsonOutput {
		displaySwapIntent(req)
		if !confirmSwap() {
			fmt.Println("\nSwap cancelled.")
			os.Exit(0)
		}
	}

	log, err := history.NewLog(cfg.HistoryFile)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	record := &types.TxRecord{
		Type:    "send",
		Amount:  req.AmountIn.String(),
		Token:   req.TokenIn,
		Status:  types.TxPending,
		Address: req.Taker,
	}
	if err := log.Append(record); err != nil && verbose {
		fmt.Printf("Warning: failed to record history: %v\n", err)
	}

	var outcome *swap.Outcome
	switch chainID {
	case types.ChainEVM:
		outcome = runEVMSwap(cfg, store, password, req, verbose, jsonOutput)
	case types.ChainSolana:
		outcome = runSolanaSwap(cfg, store, password, req, verbose, jsonOutput)
	default:
		printError(fmt.Errorf("unsupported chain %q", chainID))
		os.Exit(1)
	}

	status := types.TxCompleted
	if !outcome.Success {
		status = types.TxFailed
	}
	if err := log.UpdateStatus(record.ID, status, outcome.TxHash); err != nil && verbose {
		fmt.Printf("Warning: failed to update history: %v\n", err)
	}

	if outcome.Success && outcome.AmountOut != nil {
		receive := &types.TxRecord{
			Type:    "receive",
			Amount:  outcome.AmountOut.String(),
			Token:   req.TokenOut,
			Status:  types.TxCompleted,
			Address: req.Taker,
			Hash:    outcome.TxHash,
		}
		if err := log.Append(receive); err != nil && verbose {
			fmt.Printf("Warning: failed to record history: %v\n", err)
		}
	}

	if jsonOutput {
		output := map[string]interface{}{
			"success":     outcome.Success,
			"venue":       outcome.Venue,
			"tx_hash":     outcome.TxHash,
			"final_state": outcome.FinalState,
		}
		if outcome.AmountOut != nil {
			output["amount_out"] = outcome.AmountOut.String()
		}
		if outcome.Err != nil {
			output["error"] = outcome.Err.Error()
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayOutcome(outcome)
	}

	if !outcome.Success {
		os.Exit(1)
	}
}

func runEVMSwap(cfg *config.Config, store *wallet.Store, password []byte, req *types.SwapRequest, verbose, jsonOutput bool) *swap.Outcome {
	key, err := store.EVMSigner(password)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	client, err := dialEVM(cfg)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	venues, err := buildEVMVenues(cfg, client)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	approvals := approval.NewManager(client, cfg.EVM.ApprovalPolicy)
	orchestrator := swap.NewOrchestrator(client, approvals, venues)
	if verbose {
		orchestrator.SetLogger(func(format string, args ...interface{}) {
			fmt.Printf(format+"\n", args...)
		})
	}

	s := newSpinner("Executing swap...")
	if !jsonOutput && !verbose {
		s.Start()
	}
	outcome := orchestrator.Swap(context.Background(), key, req)
	if !jsonOutput && !verbose {
		s.Stop()
	}
	return outcome
}

func runSolanaSwap(cfg *config.Config, store *wallet.Store, password []byte, req *types.SwapRequest, verbose, jsonOutput bool) *swap.Outcome {
	key, err := store.SolanaSigner(password)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	client, err := dialSolana(cfg)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	executor := swap.NewSolanaExecutor(client, buildSolanaVenue(cfg))
	if verbose {
		executor.SetLogger(func(format string, args ...interface{}) {
			fmt.Printf(format+"\n", args...)
		})
	}

	s := newSpinner("Executing swap...")
	if !jsonOutput && !verbose {
		s.Start()
	}
	outcome := executor.Swap(context.Background(), key, req)
	if !jsonOutput && !verbose {
		s.Stop()
	}
	return outcome
}

func displaySwapIntent(req *types.SwapRequest) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Chain:     %s\n", req.Chain)
	fmt.Printf("  From:      %s %s\n", req.AmountIn.String(), color.YellowString(req.TokenIn))
	fmt.Printf("  To:        %s\n", color.YellowString(req.TokenOut))
	fmt.Printf("  Taker:     %s\n", color.CyanString(req.Taker))
	fmt.Printf("  Slippage:  %d bps\n", req.SlippageBps)

	fmt.Println("\n" + strings.Repeat("=", 60))
}

func displayOutcome(outcome *swap.Outcome) {
	if outcome.Success {
		color.Green("\n✓ Swap confirmed!")
		fmt.Printf("  Venue:       %s\n", outcome.Venue)
		fmt.Printf("  Transaction: %s\n", color.CyanString(outcome.TxHash))
		if outcome.AmountOut != nil {
			fmt.Printf("  Amount Out:  ~%s\n", outcome.AmountOut.String())
		}
		fmt.Println()
		return
	}

	color.Red("\n✗ Swap failed (%s)", outcome.FinalState)
	if len(outcome.VenueErrors) > 0 {
		for name, err := range outcome.VenueErrors {
			fmt.Printf("  %s: %v\n", name, err)
		}
	} else if outcome.Err != nil {
		fmt.Printf("  %v\n", outcome.Err)
	}
	fmt.Println()
}

func confirmSwap() bool {
	fmt.Print("\nProceed with swap? (y/N): ")

	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
