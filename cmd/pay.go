package cmd

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ppn/client"
	"ppn/logx"
	"ppn/types"
	"ppn/utils"

	"github.com/spf13/cobra"
)

type PayConfig struct {
	PrivateKey     string
	PrivateKeyFile string
	NodeURL        string
	To             string
	Amount         string
	Memo           string
	Retries        int
	Timeout        time.Duration
	Verbose        bool
}

var payConfig PayConfig

// payCmd represents the pay command
var payCmd = &cobra.Command{
	Use:   "pay [flags]",
	Short: "Send a payment to another account",
	Long: `This command sends value from the key holder's account to the given
receiver address and waits until the transfer settles. The private key can
be provided either directly via --private-key flag
or via a file using --private-key-file flag.

Examples:
  # Pay 12.5 tokens using a private key file
  pay -t 5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY -a 12.5 -f /path/to/key.txt

  # Pay 500 tokens using the private key directly
  pay -t 5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY -a 500 -p "your-private-key-here"`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := sendPaymentFromCLI(payConfig); err != nil {
			logx.Error("PAY CLI", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(payCmd)

	payCmd.Flags().StringVarP(&payConfig.PrivateKeyFile, "private-key-file", "f", "", "sender private key file")
	payCmd.Flags().StringVarP(&payConfig.PrivateKey, "private-key", "p", "", "sender private key in hex")
	payCmd.Flags().StringVarP(&payConfig.NodeURL, "node-url", "u", "localhost:9101", "payment node URL")
	payCmd.Flags().StringVarP(&payConfig.To, "to", "t", "", "address of receiver")
	payCmd.Flags().StringVarP(&payConfig.Amount, "amount", "a", "", "amount in display units, e.g. 12.5")
	payCmd.Flags().StringVarP(&payConfig.Memo, "memo", "m", "", "memo recorded with the payment")
	payCmd.Flags().IntVar(&payConfig.Retries, "retries", client.DefaultMaxRetries, "retry bound for sequence conflicts")
	payCmd.Flags().DurationVar(&payConfig.Timeout, "timeout", 30*time.Second, "how long to wait for settlement")
	payCmd.Flags().BoolVarP(&payConfig.Verbose, "verbose", "v", false, "verbose output")
}

func sendPaymentFromCLI(payConfig PayConfig) error {
	// Parse the display amount into base units
	amount, err := utils.ToBaseUnits(strings.ReplaceAll(payConfig.Amount, "_", ""))
	if err != nil {
		return fmt.Errorf("could not parse amount: %w", err)
	}

	// Load sender private key
	if payConfig.Verbose {
		logx.Debug("PAY CLI", "Loading sender private key...")
	}
	privKey, senderAddress, err := loadSenderKey(payConfig)
	if err != nil {
		return fmt.Errorf("failed to load sender private key: %w", err)
	}
	if payConfig.Verbose {
		logx.Debug("PAY CLI", "Paying from", senderAddress)
	}

	cli, err := client.NewClient(client.Config{Endpoint: payConfig.NodeURL, MaxRetries: payConfig.Retries})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), payConfig.Timeout)
	defer cancel()

	if payConfig.Verbose {
		logx.Debug("PAY CLI", fmt.Sprintf("Sending %s to %s via %s", payConfig.Amount, payConfig.To, payConfig.NodeURL))
	}
	status, err := cli.SendPaymentAndWait(ctx, privKey, payConfig.To, amount, payConfig.Memo)
	if err != nil {
		return fmt.Errorf("payment failed: %w", err)
	}

	switch status.Status {
	case types.PaymentStatusCommitted:
		logx.Info("PAY CLI", fmt.Sprintf("Payment %s committed at sequence %d", status.PaymentHash, status.Sequence))
	case types.PaymentStatusUnknown:
		// An unknown outcome is not a failure. The node may have applied
		// the transfer after the wait expired.
		logx.Warn("PAY CLI", fmt.Sprintf("Payment %s outcome unknown, re-check with the history command", status.PaymentHash))
		return nil
	default:
		return fmt.Errorf("payment %s %s: %s", status.PaymentHash, status.StatusLabel, status.ErrorMessage)
	}

	// Print receiver state after the payment settles
	receiver, err := cli.GetBalance(ctx, payConfig.To)
	if err != nil {
		return fmt.Errorf("failed to get receiver balance: %w", err)
	}
	logx.Info("PAY CLI", fmt.Sprintf("Receiver %s balance: %s", payConfig.To, formatBalance(receiver.Balance)))

	return nil
}

// formatBalance renders a base-unit balance string in display units.
// Balances beyond the uint64 range are shown raw.
func formatBalance(baseUnits string) string {
	v, err := strconv.ParseUint(baseUnits, 10, 64)
	if err != nil {
		return baseUnits + " base units"
	}
	return utils.FormatBaseUnits(v)
}

// loadSenderKey resolves the private key from the flags. The key is hex,
// either a 32-byte seed or a full 64-byte Ed25519 key.
func loadSenderKey(payConfig PayConfig) (ed25519.PrivateKey, string, error) {
	privKeyStr := payConfig.PrivateKey
	if privKeyStr == "" {
		if payConfig.PrivateKeyFile == "" {
			return nil, "", fmt.Errorf("either --private-key or --private-key-file is required")
		}
		raw, err := os.ReadFile(payConfig.PrivateKeyFile)
		if err != nil {
			return nil, "", err
		}
		privKeyStr = string(raw)
	}

	keyBytes, err := hex.DecodeString(strings.TrimSpace(privKeyStr))
	if err != nil {
		return nil, "", fmt.Errorf("private key is not valid hex: %w", err)
	}

	var privKey ed25519.PrivateKey
	switch len(keyBytes) {
	case ed25519.SeedSize:
		privKey = ed25519.NewKeyFromSeed(keyBytes)
	case ed25519.PrivateKeySize:
		privKey = ed25519.PrivateKey(keyBytes)
	default:
		return nil, "", fmt.Errorf("private key must be %d or %d bytes, got %d",
			ed25519.SeedSize, ed25519.PrivateKeySize, len(keyBytes))
	}

	return privKey, client.AddressFromPrivateKey(privKey), nil
}
