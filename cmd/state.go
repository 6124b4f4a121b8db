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
	stateNodeURL string
	stateAddress string
)

var stateCmd = &cobra.Command{
	Use:   "state [flags]",
	Short: "Show the node's health and ledger state",
	Long: `Queries a running node for its health, the total number of committed
payments, and optionally the balance of one account.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := showState(stateNodeURL, stateAddress); err != nil {
			logx.Error("STATE CLI", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.Flags().StringVarP(&stateNodeURL, "node-url", "u", "localhost:9101", "payment node URL")
	stateCmd.Flags().StringVarP(&stateAddress, "address", "d", "", "also show this account's balance")
}

func showState(nodeURL, address string) error {
	cli, err := client.NewClient(client.Config{Endpoint: nodeURL})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := cli.CheckHealth(ctx)
	if err != nil {
		return fmt.Errorf("failed to check node health: %w", err)
	}
	logx.Info("STATE CLI", fmt.Sprintf("Node %s is %s (version %s, up %d seconds)",
		health.NodeID, health.Status, health.Version, health.Uptime))

	state, err := cli.GetState(ctx)
	if err != nil {
		return fmt.Errorf("failed to get program state: %w", err)
	}
	logx.Info("STATE CLI", fmt.Sprintf("Committed payments: %d, pending on this node: %d",
		state.TotalTransactions, health.PendingPayments))

	if address == "" {
		return nil
	}

	account, err := cli.GetAccount(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	if !account.Exists {
		logx.Info("STATE CLI", fmt.Sprintf("Account %s does not exist yet (balance 0)", address))
		return nil
	}
	logx.Info("STATE CLI", fmt.Sprintf("Account %s balance: %s", address, formatBalance(account.Balance)))

	return nil
}
