package cmd

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"

	"pocketdex/config"
	"pocketdex/pkg/chain"
	"pocketdex/pkg/venue"
)

func newSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + suffix
	return s
}

// promptPassword reads the wallet password without echoing it. With confirm
// set, it asks twice and requires both entries to match.
func promptPassword(confirm bool) ([]byte, error) {
	fmt.Print("Wallet password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if len(password) == 0 {
		return nil, fmt.Errorf("password must not be empty")
	}

	if confirm {
		fmt.Print("Confirm password: ")
		again, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		if !bytes.Equal(password, again) {
			return nil, fmt.Errorf("passwords do not match")
		}
		clear(again)
	}

	return password, nil
}

func dialEVM(cfg *config.Config) (*chain.EVMClient, error) {
	return chain.DialEVM(cfg.EVM.RPCUrl, cfg.EVM.ChainID, cfg.EVM.ConfirmTimeout, cfg.EVM.ConfirmInterval)
}

func dialSolana(cfg *config.Config) (*chain.SolanaClient, error) {
	return chain.NewSolanaClient(cfg.Solana.RPCUrl, cfg.Solana.Commitment, cfg.EVM.ConfirmTimeout, cfg.EVM.ConfirmInterval)
}

// buildEVMVenues returns the ordered EVM venue list: the concentrated
// liquidity quoter first, then exactly one fallback. The aggregator is the
// fallback when an API key is configured; otherwise the constant-product
// router fills that slot.
func buildEVMVenues(cfg *config.Config, client *chain.EVMClient) ([]venue.Venue, error) {
	v3, err := venue.NewUniswapV3(client.Backend(), cfg.EVM.V3Factory, cfg.EVM.V3Quoter, cfg.EVM.V3Router, cfg.EVM.FeeTiers)
	if err != nil {
		return nil, err
	}

	var fallback venue.Venue
	if cfg.EVM.AggregatorKey != "" {
		fallback = venue.NewOneInch(cfg.EVM.AggregatorURL, cfg.EVM.ChainID, cfg.EVM.AggregatorKey)
	} else {
		v2, err := venue.NewUniswapV2(client.Backend(), cfg.EVM.V2Router)
		if err != nil {
			return nil, err
		}
		fallback = v2
	}

	return []venue.Venue{v3, fallback}, nil
}

func buildSolanaVenue(cfg *config.Config) venue.Venue {
	return venue.NewJupiter(cfg.Solana.AggregatorURL)
}
