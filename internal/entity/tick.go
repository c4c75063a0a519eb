package entity

import (
	"time"

	"github.com/guregu/null/v5"
	"github.com/shopspring/decimal"
)

type TickEvent struct {
	ID         string     `json:"id"`
	RetryCount int        `json:"retry"`
	Exchange   string     `json:"exchange"`
	TradeID    string     `json:"trade_id,omitempty"`
	Data       MarketData `json:"data"`
}

// MarketTick is the persisted form of a tick event.
type MarketTick struct {
	ID         string          `db:"id"`
	Exchange   string          `db:"exchange"`
	Symbol     string          `db:"symbol"`
	EntryType  string          `db:"entry_type"`
	Price      decimal.Decimal `db:"price"`
	Size       decimal.Decimal `db:"size"`
	TradeID    null.String     `db:"trade_id"`
	UpdateTime time.Time       `db:"update_time"`
	CreatedAt  time.Time       `db:"created_at"`
}

func (m MarketTick) TableName() string {
	return "market_ticks"
}
