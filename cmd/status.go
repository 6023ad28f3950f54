package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pocketdex/config"
	"pocketdex/pkg/chain"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <tx-hash>",
	Short: "Check the on-chain status of a transaction",
	Long: `Look up the receipt of a submitted Ethereum transaction.

Examples:
  pocketdex status 0x1234...abcd
  pocketdex status 0x1234...abcd --watch
  pocketdex status 0x1234...abcd --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates continuously")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runStatus(cmd *cobra.Command, args []string) {
	txHash := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if !strings.HasPrefix(txHash, "0x") || len(txHash) != 66 {
		printError(fmt.Errorf("invalid transaction hash %q", txHash))
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	client, err := dialEVM(cfg)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if watchStatus {
		watchTxStatus(client, txHash, jsonOutput)
	} else {
		checkTxStatus(client, txHash, jsonOutput)
	}
}

func checkTxStatus(client *chain.EVMClient, txHash string, jsonOutput bool) {
	s := newSpinner("Checking transaction status...")
	if !jsonOutput {
		s.Start()
	}

	status, blockNumber, err := client.TransactionStatus(context.Background(), common.HexToHash(txHash))

	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		output := map[string]interface{}{
			"tx_hash":      txHash,
			"status":       statusLabel(status),
			"block_number": blockNumber,
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayTxStatus(txHash, status, blockNumber)
	}
}

func watchTxStatus(client *chain.EVMClient, txHash string, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching transaction %s\n", color.CyanString(txHash))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	for {
		status, blockNumber, err := client.TransactionStatus(context.Background(), common.HexToHash(txHash))
		if err != nil {
			color.Yellow("  %v", err)
		} else {
			displayTxStatus(txHash, status, blockNumber)
			return
		}

		<-ticker.C
	}
}

func displayTxStatus(txHash string, status uint64, blockNumber uint64) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                     TRANSACTION STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Transaction: %s\n", color.CyanString(txHash))
	fmt.Printf("  Status:      %s\n", coloredReceiptStatus(status))
	fmt.Printf("  Block:       %d\n", blockNumber)

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func statusLabel(status uint64) string {
	if status == ethtypes.ReceiptStatusSuccessful {
		return "success"
	}
	return "reverted"
}

func coloredReceiptStatus(status uint64) string {
	if status == ethtypes.ReceiptStatusSuccessful {
		return color.GreenString("SUCCESS")
	}
	return color.RedString("REVERTED")
}
