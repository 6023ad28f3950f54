package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pocketdex/config"
	"pocketdex/pkg/history"
	"pocketdex/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent local transaction history",
	Long: fmt.Sprintf(`Show the local transaction history, newest first. The log keeps the most
recent %d entries and is a display aid only; the chain remains the source
of truth.`, history.MaxEntries),
	Run: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	log, err := history.NewLog(cfg.HistoryFile)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	records := log.List()

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	if len(records) == 0 {
		fmt.Printf("\nNo transactions recorded yet.\n\n")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                     TRANSACTION HISTORY")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println()

	for _, r := range records {
		fmt.Printf("  %s  %-7s %s %s  %s\n",
			r.Timestamp.Format("2006-01-02 15:04"),
			coloredTxStatus(r.Status),
			r.Amount,
			r.Token,
			color.HiBlackString(r.Hash))
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func coloredTxStatus(status types.TxStatus) string {
	switch status {
	case types.TxCompleted:
		return color.GreenString(string(status))
	case types.TxPending:
		return color.YellowString(string(status))
	case types.TxFailed:
		return color.RedString(string(status))
	default:
		return string(status)
	}
}
