package feed

import (
	"context"
	"sort"
	"sync"

	"github.com/krobus00/fix-md-service/internal/entity"
	"github.com/quickfixgo/enum"
	"github.com/sirupsen/logrus"
)

const defaultPendingUpdateLimit = 10000

// Store keeps the live market data view: the latest entry per
// (symbol, entry type) plus a bounded buffer of updates awaiting
// distribution. It implements entity.MarketDataSource.
type Store struct {
	mu           sync.Mutex
	latest       map[string]map[enum.MDEntryType]entity.MarketData
	pending      []entity.MarketData
	pendingLimit int
}

func NewStore(pendingLimit int) *Store {
	if pendingLimit <= 0 {
		pendingLimit = defaultPendingUpdateLimit
	}

	return &Store{
		latest:       make(map[string]map[enum.MDEntryType]entity.MarketData),
		pendingLimit: pendingLimit,
	}
}

// Apply records an update into the latest view and queues it for
// distribution. When the pending buffer is full the oldest update is
// dropped; subscribers recover the value from the latest view on their next
// snapshot.
func (s *Store) Apply(data entity.MarketData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyLatestLocked(data)

	if len(s.pending) >= s.pendingLimit {
		logrus.WithFields(logrus.Fields{
			"limit": s.pendingLimit,
		}).Warn("pending update buffer full, dropping oldest update")
		s.pending = s.pending[1:]
	}
	s.pending = append(s.pending, data)
}

// Warm seeds the latest view without queueing distribution updates. Used to
// restore the view from the last-value cache on startup.
func (s *Store) Warm(view []entity.MarketData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, data := range view {
		s.applyLatestLocked(data)
	}
}

func (s *Store) applyLatestLocked(data entity.MarketData) {
	entries, ok := s.latest[data.Symbol]
	if !ok {
		entries = make(map[enum.MDEntryType]entity.MarketData)
		s.latest[data.Symbol] = entries
	}
	entries[data.EntryType] = data
}

// LatestUpdates drains the updates buffered since the previous call.
func (s *Store) LatestUpdates(ctx context.Context) ([]entity.MarketData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil, nil
	}

	updates := s.pending
	s.pending = nil
	return updates, nil
}

func (s *Store) AllMarketData(ctx context.Context) ([]entity.MarketData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := make([]entity.MarketData, 0, len(s.latest))
	for _, entries := range s.latest {
		for _, data := range entries {
			view = append(view, data)
		}
	}
	sortView(view)
	return view, nil
}

func (s *Store) MarketDataBySymbols(ctx context.Context, symbols []string) ([]entity.MarketData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := make([]entity.MarketData, 0, len(symbols))
	for _, symbol := range symbols {
		for _, data := range s.latest[symbol] {
			view = append(view, data)
		}
	}
	sortView(view)
	return view, nil
}

func sortView(view []entity.MarketData) {
	sort.Slice(view, func(i, j int) bool {
		if view[i].Symbol != view[j].Symbol {
			return view[i].Symbol < view[j].Symbol
		}
		return view[i].EntryType < view[j].EntryType
	})
}
