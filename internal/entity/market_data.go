package entity

import (
	"context"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
)

// MarketData is a single update record from the feed. Value type; the
// distribution core never mutates one.
type MarketData struct {
	Symbol     string            `json:"symbol"`
	EntryType  enum.MDEntryType  `json:"entry_type"`
	Price      decimal.Decimal   `json:"price"`
	Size       decimal.Decimal   `json:"size"`
	UpdateTime time.Time         `json:"update_time"`
}

// RequestParams is the parsed filter specification of a MarketDataRequest.
type RequestParams struct {
	AllSymbols   bool
	Symbols      []string
	EntryTypes   map[enum.MDEntryType]struct{}
	UpdatePeriod time.Duration
}

func (p RequestParams) WantsEntryType(entryType enum.MDEntryType) bool {
	_, ok := p.EntryTypes[entryType]
	return ok
}

// MarketDataSource is the read side of the feed store.
type MarketDataSource interface {
	// LatestUpdates drains the updates buffered since the previous call.
	LatestUpdates(ctx context.Context) ([]MarketData, error)
	AllMarketData(ctx context.Context) ([]MarketData, error)
	MarketDataBySymbols(ctx context.Context, symbols []string) ([]MarketData, error)
}

// SessionSink is the outbound side of the FIX session layer. Delivery
// failure is a soft error; callers decide whether to abort or continue.
type SessionSink interface {
	SendToSession(sessionID quickfix.SessionID, msg quickfix.Messagable) error
	IsLoggedOn(sessionID quickfix.SessionID) bool
}
