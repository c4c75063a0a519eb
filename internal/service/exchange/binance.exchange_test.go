package exchange

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/krobus00/fix-md-service/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSymbol(t *testing.T) {
	e := &BinanceExchange{symbolMapping: entity.FeedSymbolMapping{
		"BTCUSDT": "BTC/USDT",
	}}

	assert.Equal(t, "BTC/USDT", e.resolveSymbol("btcusdt"))
	assert.Equal(t, "BTC/USDT", e.resolveSymbol(" BTCUSDT "))
	// unmapped symbols pass through normalized
	assert.Equal(t, "ETHUSDT", e.resolveSymbol("ethusdt"))
	assert.Equal(t, "", e.resolveSymbol("  "))
}

func TestHandleTickerDataRejectsMalformedPayload(t *testing.T) {
	e := &BinanceExchange{symbolMapping: make(entity.FeedSymbolMapping)}

	err := e.HandleTickerData(context.Background(), []byte("{not json"))
	require.Error(t, err)
}

func TestHandleTickerDataIgnoresEmptyEvents(t *testing.T) {
	e := &BinanceExchange{symbolMapping: make(entity.FeedSymbolMapping)}
	ctx := context.Background()

	// no symbol at all
	err := e.HandleTickerData(ctx, []byte(`{"stream":"x","data":{}}`))
	require.NoError(t, err)

	// book ticker with missing sides
	err = e.HandleTickerData(ctx, []byte(`{"stream":"btcusdt@bookTicker","data":{"s":"BTCUSDT"}}`))
	require.NoError(t, err)
}

func TestReconnectDelayBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	policy := reconnectPolicy{
		min:    binanceWSReconnectMinDelay,
		max:    binanceWSReconnectMaxDelay,
		factor: binanceWSReconnectFactor,
	}

	for attempt := 0; attempt < 10; attempt++ {
		wait := reconnectDelay(policy, attempt, rng)
		assert.GreaterOrEqual(t, wait, time.Duration(0))
		assert.LessOrEqual(t, wait, policy.max)
	}

	// degenerate window collapses to the base backoff
	fixed := reconnectPolicy{min: time.Second, max: time.Second, factor: 2.0}
	assert.Equal(t, time.Second, reconnectDelay(fixed, 5, rng))
}
