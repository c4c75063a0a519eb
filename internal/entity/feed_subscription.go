package entity

import "time"

// FeedSubscription is one upstream stream the feed worker subscribes to.
// StreamSymbol is the exchange's wire symbol, Symbol the canonical FIX one.
type FeedSubscription struct {
	ID           string    `db:"id" json:"id"`
	Exchange     string    `db:"exchange" json:"exchange"`
	StreamSymbol string    `db:"stream_symbol" json:"stream_symbol"`
	Symbol       string    `db:"symbol" json:"symbol"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// FeedSymbolMapping maps [stream symbol] = canonical FIX symbol.
type FeedSymbolMapping map[string]string
