package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"ppn/client"
	"ppn/logx"

	"github.com/spf13/cobra"
)

var (
	historyNodeURL string
	historySender  string
)

var historyCmd = &cobra.Command{
	Use:   "history [flags]",
	Short: "List the payments an account has sent",
	Run: func(cmd *cobra.Command, args []string) {
		if err := showHistory(historySender, historyNodeURL); err != nil {
			logx.Error("HISTORY CLI", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVarP(&historyNodeURL, "node-url", "u", "localhost:9101", "payment node URL")
	historyCmd.Flags().StringVarP(&historySender, "sender", "s", "", "sender address to list history for")
}

func showHistory(sender, nodeURL string) error {
	if sender == "" {
		return fmt.Errorf("--sender is required")
	}

	cli, err := client.NewClient(client.Config{Endpoint: nodeURL})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	history, err := cli.GetHistory(ctx, sender)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	logx.Info("HISTORY CLI", fmt.Sprintf("%d payments sent by %s", history.Total, sender))
	for _, rec := range history.Records {
		line := fmt.Sprintf("%s  -> %s  %s",
			time.Unix(rec.Timestamp, 0).UTC().Format(time.DateTime), rec.Receiver, formatBalance(rec.Amount))
		if rec.Memo != "" {
			line += fmt.Sprintf("  %q", rec.Memo)
		}
		fmt.Println(line)
	}
	if history.Skipped > 0 {
		logx.Warn("HISTORY CLI", fmt.Sprintf("%d unreadable records skipped", history.Skipped))
	}

	return nil
}
