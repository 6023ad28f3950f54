package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pocketdex/config"
	"pocketdex/pkg/parser"
	"pocketdex/pkg/types"
	"pocketdex/pkg/venue"
)

var quoteChain string

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <token-in> to <token-out>",
	Short: "Fetch swap quotes without executing",
	Long: `Ask every configured venue for a price and show the results side by side.
Nothing is signed or submitted.

Examples:
  pocketdex quote 1000000 0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48 to 0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2 --chain eth
  pocketdex quote 100000000 So11111111111111111111111111111111111111112 to EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v --chain sol`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().StringVar(&quoteChain, "chain", "eth", "Chain to quote on: eth or sol")
}

func runQuote(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	req, err := parser.ParseSwapCommand(strings.Join(args, " "), types.Chain(quoteChain))
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	req.SlippageBps = cfg.SlippageBps

	venues, err := quoteVenues(cfg, req.Chain)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	s := newSpinner("Fetching quotes...")
	if !jsonOutput {
		s.Start()
	}

	ctx := context.Background()
	quotes := make([]*types.Quote, 0, len(venues))
	quoteErrs := make(map[string]error)
	for _, v := range venues {
		quote, err := v.GetQuote(ctx, req)
		if err != nil {
			quoteErrs[v.Name()] = err
			continue
		}
		quotes = append(quotes, quote)
	}

	if !jsonOutput {
		s.Stop()
	}

	if jsonOutput {
		output := make([]map[string]interface{}, 0, len(quotes))
		for _, q := range quotes {
			entry := map[string]interface{}{
				"venue":      q.Source,
				"amount_out": q.AmountOut.String(),
			}
			if q.FeeTier > 0 {
				entry["fee_tier"] = q.FeeTier
			}
			output = append(output, entry)
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayQuotes(req, quotes, quoteErrs)

	if len(quotes) == 0 {
		os.Exit(1)
	}
}

// quoteVenues returns every venue worth quoting, not just the execution
// pair: the quote command is a price survey
func quoteVenues(cfg *config.Config, chainID types.Chain) ([]venue.Venue, error) {
	if chainID == types.ChainSolana {
		return []venue.Venue{buildSolanaVenue(cfg)}, nil
	}

	client, err := dialEVM(cfg)
	if err != nil {
		return nil, err
	}

	v3, err := venue.NewUniswapV3(client.Backend(), cfg.EVM.V3Factory, cfg.EVM.V3Quoter, cfg.EVM.V3Router, cfg.EVM.FeeTiers)
	if err != nil {
		return nil, err
	}
	v2, err := venue.NewUniswapV2(client.Backend(), cfg.EVM.V2Router)
	if err != nil {
		return nil, err
	}

	venues := []venue.Venue{v3, v2}
	if cfg.EVM.AggregatorKey != "" {
		venues = append(venues, venue.NewOneInch(cfg.EVM.AggregatorURL, cfg.EVM.ChainID, cfg.EVM.AggregatorKey))
	}
	return venues, nil
}

func displayQuotes(req *types.SwapRequest, quotes []*types.Quote, quoteErrs map[string]error) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     QUOTES")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Swap: %s %s -> %s\n\n", req.AmountIn.String(), req.TokenIn, req.TokenOut)

	var best *types.Quote
	for _, q := range quotes {
		if best == nil || q.AmountOut.Cmp(best.AmountOut) > 0 {
			best = q
		}
	}

	for _, q := range quotes {
		line := fmt.Sprintf("  %-12s ~%s", q.Source, q.AmountOut.String())
		if q.FeeTier > 0 {
			line += fmt.Sprintf("  (fee tier %d)", q.FeeTier)
		}
		if q == best {
			color.Green("%s  <- best", line)
		} else {
			fmt.Println(line)
		}
	}

	for name, err := range quoteErrs {
		if errors.Is(err, venue.ErrNoRoute) {
			fmt.Printf("  %-12s %s\n", name, color.HiBlackString("no route"))
		} else {
			fmt.Printf("  %-12s %s\n", name, color.RedString(err.Error()))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
