package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"pocketdex/config"
	"pocketdex/pkg/types"
	"pocketdex/pkg/wallet"
)

var forceGenerate bool

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the local encrypted wallet",
	Long: `Manage the local wallet file. One keypair per chain; keys are encrypted
at rest with a password and never leave the machine.

Examples:
  pocketdex wallet generate --chain eth
  pocketdex wallet show
  pocketdex wallet switch --chain sol
  pocketdex wallet clear --chain eth --force`,
}

var walletGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new keypair for a chain",
	Run:   runWalletGenerate,
}

var walletShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show wallet addresses",
	Run:   runWalletShow,
}

var walletSwitchCmd = &cobra.Command{
	Use:   "switch",
	Short: "Switch the active chain",
	Run:   runWalletSwitch,
}

var walletClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove a chain's keypair",
	Run:   runWalletClear,
}

func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletGenerateCmd, walletShowCmd, walletSwitchCmd, walletClearCmd)

	for _, c := range []*cobra.Command{walletGenerateCmd, walletSwitchCmd, walletClearCmd} {
		c.Flags().String("chain", "", "Chain: eth or sol (required)")
		_ = c.MarkFlagRequired("chain")
	}
	walletGenerateCmd.Flags().BoolVar(&forceGenerate, "force", false, "Replace an existing keypair without prompting")
	walletClearCmd.Flags().BoolVar(&forceGenerate, "force", false, "Remove without prompting")
	walletShowCmd.Flags().Bool("qr", false, "Render the active address as a QR code")
}

func openWalletStore() *wallet.Store {
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	return wallet.NewStore(cfg.WalletFile)
}

func chainFlag(cmd *cobra.Command) types.Chain {
	raw, _ := cmd.Flags().GetString("chain")
	chainID := types.Chain(raw)
	if !chainID.Valid() {
		printError(fmt.Errorf("chain must be %q or %q", types.ChainEVM, types.ChainSolana))
		os.Exit(1)
	}
	return chainID
}

func runWalletGenerate(cmd *cobra.Command, args []string) {
	chainID := chainFlag(cmd)
	store := openWalletStore()

	// Generating over an existing key destroys it irreversibly, so an
	// existing wallet requires explicit consent
	password, err := promptPassword(!store.Exists())
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer clear(password)

	if store.Exists() && !forceGenerate {
		if _, err := store.Address(chainID, password); err == nil {
			printError(fmt.Errorf("a %s wallet already exists and would be replaced irreversibly. Re-run with --force to replace it", chainID))
			os.Exit(1)
		}
	}

	address, err := store.Generate(chainID, password)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	color.Green("\n✓ Wallet generated")
	fmt.Printf("  Chain:   %s\n", chainID)
	fmt.Printf("  Address: %s\n\n", color.CyanString(address))
	color.Yellow("The key is stored encrypted at %s. There is no recovery\nwithout the file and the password.\n", store.Path())
}

func runWalletShow(cmd *cobra.Command, args []string) {
	store := openWalletStore()
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

	entries, err := store.Entries(password)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	active, err := store.Active(password)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	fmt.Println()
	for _, e := range entries {
		marker := " "
		if e.Chain == active.Chain {
			marker = color.GreenString("*")
		}
		fmt.Printf("  %s %-4s %s\n", marker, e.Chain, color.CyanString(e.Address))
	}
	fmt.Printf("\n  Key file: %s\n", store.Path())

	if balance, err := nativeBalanceOf(active); err == nil {
		fmt.Printf("  Balance:  %s (base units)\n", balance)
	} else {
		fmt.Printf("  Balance:  %s\n", color.HiBlackString("unavailable: "+err.Error()))
	}
	fmt.Println()

	if showQR, _ := cmd.Flags().GetBool("qr"); showQR {
		qr, err := qrcode.New(active.Address, qrcode.Medium)
		if err != nil {
			printError(fmt.Errorf("failed to render QR code: %w", err))
			os.Exit(1)
		}
		fmt.Println(qr.ToSmallString(false))
	}
}

// nativeBalanceOf reads the active chain's native balance; failures are
// reported inline rather than aborting the command
func nativeBalanceOf(entry *wallet.Entry) (string, error) {
	cfg := config.Get()

	switch entry.Chain {
	case types.ChainEVM:
		client, err := dialEVM(cfg)
		if err != nil {
			return "", err
		}
		balance, err := client.NativeBalance(context.Background(), common.HexToAddress(entry.Address))
		if err != nil {
			return "", err
		}
		return balance.String(), nil
	case types.ChainSolana:
		client, err := dialSolana(cfg)
		if err != nil {
			return "", err
		}
		account, err := solana.PublicKeyFromBase58(entry.Address)
		if err != nil {
			return "", err
		}
		lamports, err := client.NativeBalance(context.Background(), account)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", lamports), nil
	default:
		return "", fmt.Errorf("unsupported chain %q", entry.Chain)
	}
}

func runWalletSwitch(cmd *cobra.Command, args []string) {
	chainID := chainFlag(cmd)
	store := openWalletStore()

	password, err := promptPassword(false)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer clear(password)

	if err := store.SwitchChain(chainID, password); err != nil {
		printError(err)
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Active chain is now %s", chainID))
}

func runWalletClear(cmd *cobra.Command, args []string) {
	chainID := chainFlag(cmd)
	store := openWalletStore()

	if !forceGenerate {
		printError(fmt.Errorf("clearing the %s wallet destroys its key irreversibly. Re-run with --force to confirm", chainID))
		os.Exit(1)
	}

	password, err := promptPassword(false)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer clear(password)

	if err := store.Clear(chainID, password); err != nil {
		printError(err)
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Removed the %s wallet", chainID))
}
