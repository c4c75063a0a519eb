package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/krobus00/fix-md-service/internal/config"
	"github.com/krobus00/fix-md-service/internal/constant"
	"github.com/krobus00/fix-md-service/internal/entity"
	"github.com/krobus00/fix-md-service/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/quickfixgo/enum"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	binanceWSReconnectMinDelay = 1 * time.Second
	binanceWSReconnectMaxDelay = 15 * time.Second
	binanceWSReconnectFactor   = 2.0
)

type reconnectPolicy struct {
	min    time.Duration
	max    time.Duration
	factor float64
}

func feedReconnectPolicy() reconnectPolicy {
	policy := reconnectPolicy{
		min:    binanceWSReconnectMinDelay,
		max:    binanceWSReconnectMaxDelay,
		factor: binanceWSReconnectFactor,
	}

	cfg := config.Env.Feed
	if cfg.ReconnectMin > 0 {
		policy.min = cfg.ReconnectMin
	}
	if cfg.ReconnectMax > 0 {
		policy.max = cfg.ReconnectMax
	}
	if policy.max < policy.min {
		policy.max = policy.min
	}
	if cfg.ReconnectFactor >= 1 {
		policy.factor = cfg.ReconnectFactor
	}

	return policy
}

// BinanceExchange normalizes the combined bookTicker+trade stream into tick
// events and publishes them to JetStream.
type BinanceExchange struct {
	js            nats.JetStreamContext
	symbolMapping entity.FeedSymbolMapping
}

func InitBinanceExchange(js nats.JetStreamContext) *BinanceExchange {
	newExchange := &BinanceExchange{
		js:            js,
		symbolMapping: make(entity.FeedSymbolMapping),
	}

	RegisterExchange(entity.ExchangeBinance, newExchange)

	return newExchange
}

func (e *BinanceExchange) JetstreamEventInit(ctx context.Context) error {
	streamConfig := &nats.StreamConfig{
		Name:      constant.TickStreamName,
		Subjects:  []string{constant.TickStreamSubjectAll},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    5 * time.Minute,
		Replicas:  1,
	}

	stream, err := e.js.StreamInfo(constant.TickStreamName, nats.Context(ctx))
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		logrus.Error(err)
		return err
	}

	if stream == nil {
		logrus.Infof("creating stream: %s", constant.TickStreamName)
		_, err = e.js.AddStream(streamConfig, nats.Context(ctx))
		return err
	}

	logrus.Infof("updating stream: %s", constant.TickStreamName)
	_, err = e.js.UpdateStream(streamConfig, nats.Context(ctx))
	if err != nil {
		logrus.Error(err)
		return err
	}

	logrus.Infof("stream %s is ready", constant.TickStreamName)

	return nil
}

// HandleTickerData parses a combined-stream payload. Book ticker events
// produce a bid and an ask entry, trade events a trade entry.
func (e *BinanceExchange) HandleTickerData(ctx context.Context, message []byte) error {
	var payload struct {
		Stream string `json:"stream"`
		Data   struct {
			Event     string `json:"e"`
			EventTime int64  `json:"E"`
			Symbol    string `json:"s"`

			// bookTicker fields
			BidPrice string `json:"b"`
			BidQty   string `json:"B"`
			AskPrice string `json:"a"`
			AskQty   string `json:"A"`

			// trade fields
			TradeID   int64  `json:"t"`
			Price     string `json:"p"`
			Quantity  string `json:"q"`
			TradeTime int64  `json:"T"`
		} `json:"data"`
	}

	if err := json.Unmarshal(message, &payload); err != nil {
		return err
	}

	symbol := e.resolveSymbol(payload.Data.Symbol)
	if symbol == "" {
		return nil
	}

	if payload.Data.Event == "trade" {
		price, err := decimal.NewFromString(payload.Data.Price)
		if err != nil {
			return fmt.Errorf("invalid trade price: %w", err)
		}
		quantity, err := decimal.NewFromString(payload.Data.Quantity)
		if err != nil {
			return fmt.Errorf("invalid trade quantity: %w", err)
		}

		return e.publishTick(entity.TickEvent{
			ID:       uuid.NewString(),
			Exchange: string(entity.ExchangeBinance),
			TradeID:  fmt.Sprintf("%d", payload.Data.TradeID),
			Data: entity.MarketData{
				Symbol:     symbol,
				EntryType:  enum.MDEntryType_TRADE,
				Price:      price,
				Size:       quantity,
				UpdateTime: time.UnixMilli(payload.Data.TradeTime).UTC(),
			},
		})
	}

	// bookTicker events carry no event type or time
	if payload.Data.BidPrice == "" || payload.Data.AskPrice == "" {
		return nil
	}

	bidPrice, err := decimal.NewFromString(payload.Data.BidPrice)
	if err != nil {
		return fmt.Errorf("invalid bid price: %w", err)
	}
	bidQty, err := decimal.NewFromString(payload.Data.BidQty)
	if err != nil {
		return fmt.Errorf("invalid bid quantity: %w", err)
	}
	askPrice, err := decimal.NewFromString(payload.Data.AskPrice)
	if err != nil {
		return fmt.Errorf("invalid ask price: %w", err)
	}
	askQty, err := decimal.NewFromString(payload.Data.AskQty)
	if err != nil {
		return fmt.Errorf("invalid ask quantity: %w", err)
	}

	now := time.Now().UTC()

	err = e.publishTick(entity.TickEvent{
		ID:       uuid.NewString(),
		Exchange: string(entity.ExchangeBinance),
		Data: entity.MarketData{
			Symbol:     symbol,
			EntryType:  enum.MDEntryType_BID,
			Price:      bidPrice,
			Size:       bidQty,
			UpdateTime: now,
		},
	})
	if err != nil {
		return err
	}

	return e.publishTick(entity.TickEvent{
		ID:       uuid.NewString(),
		Exchange: string(entity.ExchangeBinance),
		Data: entity.MarketData{
			Symbol:     symbol,
			EntryType:  enum.MDEntryType_OFFER,
			Price:      askPrice,
			Size:       askQty,
			UpdateTime: now,
		},
	})
}

func (e *BinanceExchange) publishTick(event entity.TickEvent) error {
	return util.PublishEvent(e.js, constant.GetTickStreamSubject(event.Exchange), event)
}

func (e *BinanceExchange) resolveSymbol(streamSymbol string) string {
	normalized := strings.ToUpper(strings.TrimSpace(streamSymbol))
	if normalized == "" {
		return ""
	}

	if symbol, ok := e.symbolMapping[normalized]; ok {
		return symbol
	}

	return normalized
}

// SubscribeTickerData connects to the combined stream for the configured
// subscriptions and pumps messages through HandleTickerData until ctx is
// cancelled. The connection is re-dialed with backoff and jitter on failure.
func (e *BinanceExchange) SubscribeTickerData(ctx context.Context, subscriptions []entity.FeedSubscription) error {
	streams := make([]string, 0, len(subscriptions)*2)
	for _, sub := range subscriptions {
		if sub.Exchange != string(entity.ExchangeBinance) {
			continue
		}

		e.symbolMapping[strings.ToUpper(sub.StreamSymbol)] = sub.Symbol

		streamSymbol := strings.ToLower(sub.StreamSymbol)
		streams = append(streams, streamSymbol+"@bookTicker", streamSymbol+"@trade")

		logrus.Infof("start subscription for symbol: %s (%s)", sub.Symbol, sub.StreamSymbol)
	}

	if len(streams) == 0 {
		return fmt.Errorf("no binance feed subscriptions configured")
	}

	wsBase := strings.TrimSpace(config.Env.Feed.WSBaseURL)
	if wsBase == "" {
		wsBase = "wss://stream.binance.com:9443"
	}

	wsHost, err := url.Parse(wsBase + "/stream?streams=" + strings.Join(streams, "/"))
	if err != nil {
		return fmt.Errorf("invalid binance ws url: %w", err)
	}

	policy := feedReconnectPolicy()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	attempt := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		logrus.Infof("connecting to %s", wsHost.String())
		conn, _, err := websocket.DefaultDialer.Dial(wsHost.String(), nil)
		if err != nil {
			wait := reconnectDelay(policy, attempt, rng)
			attempt++
			logrus.WithFields(logrus.Fields{"retry_in": wait.String(), "attempt": attempt}).Warnf("binance ws dial failed: %v", err)
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return nil
			}
		}

		attempt = 0
		conn.SetPongHandler(func(string) error {
			return nil
		})

		stopPing := make(chan struct{})
		go func(c *websocket.Conn) {
			ticker := time.NewTicker(2 * time.Minute)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
						logrus.Error(err)
						return
					}
				case <-ctx.Done():
					return
				case <-stopPing:
					return
				}
			}
		}(conn)

		ctxDone := make(chan struct{})
		go func(c *websocket.Conn) {
			select {
			case <-ctx.Done():
				_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				_ = c.Close()
			case <-ctxDone:
			}
		}(conn)

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					close(stopPing)
					close(ctxDone)
					return nil
				}

				logrus.Errorf("binance ws read failed: %v", err)
				break
			}

			err = e.HandleTickerData(ctx, message)
			if err != nil {
				logrus.Errorf("binance ws handle ticker data failed: %v", err)
				continue
			}
		}

		close(stopPing)
		close(ctxDone)
		_ = conn.Close()

		wait := reconnectDelay(policy, attempt, rng)
		attempt++
		logrus.WithFields(logrus.Fields{"retry_in": wait.String(), "attempt": attempt}).Warn("reconnecting binance ws")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil
		}
	}
}

func reconnectDelay(policy reconnectPolicy, attempt int, rng *rand.Rand) time.Duration {
	backoff := float64(policy.min) * math.Pow(policy.factor, float64(attempt))
	if backoff > float64(policy.max) {
		backoff = float64(policy.max)
	}

	base := time.Duration(backoff)
	if policy.max <= policy.min {
		return base
	}

	jitterWindow := policy.max - policy.min
	jitter := time.Duration(rng.Int63n(int64(jitterWindow) + 1))

	wait := base + jitter
	if wait > policy.max {
		return policy.max
	}
	return wait
}
