/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/fix-md-service/internal/bootstrap"
	"github.com/spf13/cobra"
)

// fixGatewayCmd represents the fixGateway command
var fixGatewayCmd = &cobra.Command{
	Use:   "fix-gateway",
	Short: "FIX market data gateway",
	Long: `FIX Gateway accepts FIX 4.4 client sessions and handles MarketDataRequest
messages: one-shot snapshots, snapshot-plus-updates subscriptions, and
unsubscribes.

This service acts as the distribution edge that:
- Accepts FIX sessions and tracks logon state
- Consumes tick events from the feed worker via JetStream
- Serves initial snapshots from the latest-value store
- Runs the periodic distributor that fans updates out to subscribers`,
	Run: bootstrap.StartFIXGateway,
}

func init() {
	rootCmd.AddCommand(fixGatewayCmd)
}
