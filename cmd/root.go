package cmd

import (
	"os"

	"ppn/logx"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ppn",
	Short: "Peer payment node CLI",
	Long:  "Command line interface for running and managing a peer payment node.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}
