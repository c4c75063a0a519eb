package exchange

import "github.com/krobus00/fix-md-service/internal/entity"

var (
	GlobalExchangeRegistry = make(map[entity.ExchangeName]entity.FeedExchange)
)

func RegisterExchange(name entity.ExchangeName, exchange entity.FeedExchange) {
	GlobalExchangeRegistry[name] = exchange
}
