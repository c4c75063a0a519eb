package entity

import "context"

type ExchangeName string

const (
	ExchangeBinance ExchangeName = "binance"
)

type FeedExchange interface {
	HandleTickerData(ctx context.Context, message []byte) error
	SubscribeTickerData(ctx context.Context, subscriptions []FeedSubscription) error
}
