package entity

import (
	"testing"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
	"github.com/stretchr/testify/assert"
)

func TestSubscriptionNeedsUpdate(t *testing.T) {
	now := time.Now()
	sessionID := quickfix.SessionID{BeginString: "FIX.4.4", SenderCompID: "MDGATEWAY", TargetCompID: "CLIENT1"}
	sub := NewSubscription(sessionID, nil, nil, 2*time.Second, now)

	assert.False(t, sub.NeedsUpdate(now))
	assert.False(t, sub.NeedsUpdate(now.Add(time.Second)))
	assert.True(t, sub.NeedsUpdate(now.Add(2*time.Second)))

	sub.MarkUpdated(now.Add(3 * time.Second))
	assert.False(t, sub.NeedsUpdate(now.Add(4*time.Second)))
	assert.True(t, sub.NeedsUpdate(now.Add(5*time.Second)))
}

func TestSubscriptionSymbolFilter(t *testing.T) {
	sessionID := quickfix.SessionID{BeginString: "FIX.4.4", SenderCompID: "MDGATEWAY", TargetCompID: "CLIENT1"}

	all := NewSubscription(sessionID, nil, nil, time.Second, time.Now())
	assert.True(t, all.IsSubscribedTo("BTCUSD"))
	assert.True(t, all.IsSubscribedTo("anything"))

	subset := NewSubscription(sessionID, []string{"BTCUSD", "ETHUSD"}, nil, time.Second, time.Now())
	assert.True(t, subset.IsSubscribedTo("BTCUSD"))
	assert.False(t, subset.IsSubscribedTo("SOLUSD"))
}

func TestSubscriptionEntryTypeFilter(t *testing.T) {
	sessionID := quickfix.SessionID{BeginString: "FIX.4.4", SenderCompID: "MDGATEWAY", TargetCompID: "CLIENT1"}
	sub := NewSubscription(sessionID, nil, map[enum.MDEntryType]struct{}{
		enum.MDEntryType_TRADE: {},
	}, time.Second, time.Now())

	assert.True(t, sub.WantsEntryType(enum.MDEntryType_TRADE))
	assert.False(t, sub.WantsEntryType(enum.MDEntryType_BID))
}
