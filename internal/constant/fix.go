package constant

import "time"

const (
	// MaxEntriesPerRefresh bounds a single MarketDataSnapshotFullRefresh.
	// FIX messages are delimited text; capping the repeating group keeps
	// peak latency and parser buffers predictable on both ends.
	MaxEntriesPerRefresh = 50

	// MinUpdatePeriod is the floor for a subscription's update period.
	// MarketDepth values below this are clamped.
	MinUpdatePeriod = 1 * time.Second

	// Sentinel symbols carried by single-entry refresh messages.
	SymbolNoData       = "NO_DATA"
	SymbolUnsubscribed = "UNSUBSCRIBED"
)
