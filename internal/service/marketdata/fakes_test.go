package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/krobus00/fix-md-service/internal/entity"
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
)

type fakeSource struct {
	mu      sync.Mutex
	view    []entity.MarketData
	updates [][]entity.MarketData
	err     error
}

func (s *fakeSource) LatestUpdates(ctx context.Context) ([]entity.MarketData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	if len(s.updates) == 0 {
		return nil, nil
	}

	batch := s.updates[0]
	s.updates = s.updates[1:]
	return batch, nil
}

func (s *fakeSource) AllMarketData(ctx context.Context) ([]entity.MarketData, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.view, nil
}

func (s *fakeSource) MarketDataBySymbols(ctx context.Context, symbols []string) ([]entity.MarketData, error) {
	if s.err != nil {
		return nil, s.err
	}

	want := make(map[string]struct{}, len(symbols))
	for _, symbol := range symbols {
		want[symbol] = struct{}{}
	}

	var out []entity.MarketData
	for _, data := range s.view {
		if _, ok := want[data.Symbol]; ok {
			out = append(out, data)
		}
	}
	return out, nil
}

type fakeSink struct {
	mu      sync.Mutex
	offline map[quickfix.SessionID]bool
	sendErr map[quickfix.SessionID]error
	sent    map[quickfix.SessionID][]string
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		offline: make(map[quickfix.SessionID]bool),
		sendErr: make(map[quickfix.SessionID]error),
		sent:    make(map[quickfix.SessionID][]string),
	}
}

func (s *fakeSink) SendToSession(sessionID quickfix.SessionID, msg quickfix.Messagable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sendErr[sessionID]; err != nil {
		return err
	}

	s.sent[sessionID] = append(s.sent[sessionID], msg.ToMessage().String())
	return nil
}

func (s *fakeSink) IsLoggedOn(sessionID quickfix.SessionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.offline[sessionID]
}

func (s *fakeSink) setOffline(sessionID quickfix.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline[sessionID] = true
}

func (s *fakeSink) failSends(sessionID quickfix.SessionID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendErr[sessionID] = err
}

func (s *fakeSink) messages(sessionID quickfix.SessionID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent[sessionID]...)
}

func testSessionID(target string) quickfix.SessionID {
	return quickfix.SessionID{BeginString: "FIX.4.4", SenderCompID: "MDGATEWAY", TargetCompID: target}
}

func testMarketData(symbol string, entryType enum.MDEntryType, price string) entity.MarketData {
	return entity.MarketData{
		Symbol:     symbol,
		EntryType:  entryType,
		Price:      decimal.RequireFromString(price),
		Size:       decimal.NewFromInt(1),
		UpdateTime: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
	}
}

func allEntryTypes() map[enum.MDEntryType]struct{} {
	return map[enum.MDEntryType]struct{}{
		enum.MDEntryType_BID:   {},
		enum.MDEntryType_OFFER: {},
		enum.MDEntryType_TRADE: {},
	}
}
