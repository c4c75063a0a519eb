package entity

import (
	"sync/atomic"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
)

// Subscription is a live snapshot-plus-updates registration. The filter
// fields are immutable after construction; the last-update instant is an
// atomic cell because the distributor advances it while the registry is
// being read concurrently.
type Subscription struct {
	SessionID     quickfix.SessionID
	Symbols       []string // empty means all symbols
	EntryTypes    map[enum.MDEntryType]struct{}
	UpdatePeriod  time.Duration
	SubscribeTime time.Time

	lastUpdateNanos atomic.Int64
}

func NewSubscription(sessionID quickfix.SessionID, symbols []string, entryTypes map[enum.MDEntryType]struct{}, updatePeriod time.Duration, now time.Time) *Subscription {
	s := &Subscription{
		SessionID:     sessionID,
		Symbols:       symbols,
		EntryTypes:    entryTypes,
		UpdatePeriod:  updatePeriod,
		SubscribeTime: now,
	}
	s.lastUpdateNanos.Store(now.UnixNano())
	return s
}

func (s *Subscription) LastUpdateTime() time.Time {
	return time.Unix(0, s.lastUpdateNanos.Load())
}

func (s *Subscription) MarkUpdated(now time.Time) {
	s.lastUpdateNanos.Store(now.UnixNano())
}

// NeedsUpdate reports whether the subscription's update period has elapsed.
func (s *Subscription) NeedsUpdate(now time.Time) bool {
	return now.Sub(s.LastUpdateTime()) >= s.UpdatePeriod
}

// IsSubscribedTo reports whether the symbol filter admits the symbol.
func (s *Subscription) IsSubscribedTo(symbol string) bool {
	if len(s.Symbols) == 0 {
		return true
	}
	for _, sym := range s.Symbols {
		if sym == symbol {
			return true
		}
	}
	return false
}

func (s *Subscription) WantsEntryType(entryType enum.MDEntryType) bool {
	_, ok := s.EntryTypes[entryType]
	return ok
}
