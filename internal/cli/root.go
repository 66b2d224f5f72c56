// Package cli implements timecardctl, the command line client for the
// processing server's HTTP API.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverAddr string
	jsonOutput bool
	client     *apiClient
)

var rootCmd = &cobra.Command{
	Use:   "timecardctl",
	Short: "Control a running timecard processing server",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		client = newAPIClient(serverAddr)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "http://localhost:8080", "Server address")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "JSON output")
}
