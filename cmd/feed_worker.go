/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/fix-md-service/internal/bootstrap"
	"github.com/spf13/cobra"
)

// feedWorkerCmd represents the feedWorker command
var feedWorkerCmd = &cobra.Command{
	Use:   "feed-worker",
	Short: "Upstream market data feed worker",
	Long: `Feed worker connects to the upstream exchange websocket stream, normalizes
book ticker and trade events into tick events, and publishes them to NATS
JetStream for the FIX gateway to distribute.`,
	Run: bootstrap.StartFeedWorker,
}

func init() {
	rootCmd.AddCommand(feedWorkerCmd)
}
