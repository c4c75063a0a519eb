package marketdata

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/krobus00/fix-md-service/internal/entity"
	"github.com/quickfixgo/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDueSubscription(target string, symbols []string, entryTypes map[enum.MDEntryType]struct{}) *entity.Subscription {
	// created in the past so the first tick is already due
	return entity.NewSubscription(testSessionID(target), symbols, entryTypes, time.Second, time.Now().Add(-time.Minute))
}

func TestDistributeSendsFilteredUpdates(t *testing.T) {
	registry := NewSubscriptionRegistry()
	require.NoError(t, registry.Add("req-btc", newDueSubscription("CLIENT1", []string{"BTCUSD"}, allEntryTypes())))
	require.NoError(t, registry.Add("req-eth", newDueSubscription("CLIENT2", []string{"ETHUSD"}, allEntryTypes())))

	source := &fakeSource{updates: [][]entity.MarketData{{
		testMarketData("BTCUSD", enum.MDEntryType_TRADE, "100.0"),
		testMarketData("ETHUSD", enum.MDEntryType_TRADE, "10.0"),
	}}}
	sink := newFakeSink()

	distributor := NewDistributor(registry, source, sink, time.Second, time.Second)
	distributor.distribute(context.Background())

	client1 := sink.messages(testSessionID("CLIENT1"))
	require.Len(t, client1, 1)
	assert.Contains(t, client1[0], "\x01262=req-btc\x01")
	assert.Contains(t, client1[0], "BTCUSD")
	assert.NotContains(t, client1[0], "ETHUSD")

	client2 := sink.messages(testSessionID("CLIENT2"))
	require.Len(t, client2, 1)
	assert.Contains(t, client2[0], "\x01262=req-eth\x01")
	assert.Contains(t, client2[0], "ETHUSD")
	assert.NotContains(t, client2[0], "BTCUSD")
}

func TestDistributeRespectsUpdatePeriod(t *testing.T) {
	registry := NewSubscriptionRegistry()
	// freshly created with a long period, nothing is due yet
	subscription := entity.NewSubscription(testSessionID("CLIENT1"), nil, allEntryTypes(), time.Hour, time.Now())
	require.NoError(t, registry.Add("req-1", subscription))

	source := &fakeSource{updates: [][]entity.MarketData{{
		testMarketData("BTCUSD", enum.MDEntryType_TRADE, "100.0"),
	}}}
	sink := newFakeSink()

	distributor := NewDistributor(registry, source, sink, time.Second, time.Second)
	distributor.distribute(context.Background())

	assert.Empty(t, sink.messages(testSessionID("CLIENT1")))
}

func TestDistributeAdvancesLastUpdate(t *testing.T) {
	registry := NewSubscriptionRegistry()
	subscription := newDueSubscription("CLIENT1", nil, allEntryTypes())
	require.NoError(t, registry.Add("req-1", subscription))

	source := &fakeSource{updates: [][]entity.MarketData{
		{testMarketData("BTCUSD", enum.MDEntryType_TRADE, "100.0")},
		{testMarketData("BTCUSD", enum.MDEntryType_TRADE, "101.0")},
	}}
	sink := newFakeSink()

	distributor := NewDistributor(registry, source, sink, time.Second, time.Second)
	distributor.distribute(context.Background())
	// second tick right after the first, before the period elapses again
	distributor.distribute(context.Background())

	assert.Len(t, sink.messages(testSessionID("CLIENT1")), 1)
}

func TestDistributeCapsEntriesPerRefresh(t *testing.T) {
	registry := NewSubscriptionRegistry()
	require.NoError(t, registry.Add("req-1", newDueSubscription("CLIENT1", nil, allEntryTypes())))

	updates := make([]entity.MarketData, 0, 60)
	for i := 0; i < 60; i++ {
		updates = append(updates, testMarketData(fmt.Sprintf("SYM%d", i), enum.MDEntryType_TRADE, "1.0"))
	}
	source := &fakeSource{updates: [][]entity.MarketData{updates}}
	sink := newFakeSink()

	distributor := NewDistributor(registry, source, sink, time.Second, time.Second)
	distributor.distribute(context.Background())

	messages := sink.messages(testSessionID("CLIENT1"))
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "\x01268=50\x01")
	assert.Equal(t, 50, countEntries(messages[0]))
}

func TestDistributeRemovesStaleSessions(t *testing.T) {
	registry := NewSubscriptionRegistry()
	require.NoError(t, registry.Add("req-1", newDueSubscription("CLIENT1", nil, allEntryTypes())))
	require.NoError(t, registry.Add("req-2", newDueSubscription("CLIENT1", nil, allEntryTypes())))
	require.NoError(t, registry.Add("req-3", newDueSubscription("CLIENT2", nil, allEntryTypes())))

	source := &fakeSource{updates: [][]entity.MarketData{{
		testMarketData("BTCUSD", enum.MDEntryType_TRADE, "100.0"),
	}}}
	sink := newFakeSink()
	sink.setOffline(testSessionID("CLIENT1"))

	distributor := NewDistributor(registry, source, sink, time.Second, time.Second)
	distributor.distribute(context.Background())

	assert.Equal(t, 1, registry.Len())
	assert.True(t, registry.ValidateOwnership("req-3", testSessionID("CLIENT2")))
	assert.Empty(t, sink.messages(testSessionID("CLIENT1")))
	assert.Len(t, sink.messages(testSessionID("CLIENT2")), 1)
}

func TestDistributeSinkErrorKeepsSubscription(t *testing.T) {
	registry := NewSubscriptionRegistry()
	require.NoError(t, registry.Add("req-1", newDueSubscription("CLIENT1", nil, allEntryTypes())))
	require.NoError(t, registry.Add("req-2", newDueSubscription("CLIENT2", nil, allEntryTypes())))

	source := &fakeSource{updates: [][]entity.MarketData{{
		testMarketData("BTCUSD", enum.MDEntryType_TRADE, "100.0"),
	}}}
	sink := newFakeSink()
	sink.failSends(testSessionID("CLIENT1"), errors.New("transient send failure"))

	distributor := NewDistributor(registry, source, sink, time.Second, time.Second)
	distributor.distribute(context.Background())

	// failed delivery never tears down the subscription or the tick
	assert.Equal(t, 2, registry.Len())
	assert.Len(t, sink.messages(testSessionID("CLIENT2")), 1)
}

func TestDistributeNoUpdatesSendsNothing(t *testing.T) {
	registry := NewSubscriptionRegistry()
	require.NoError(t, registry.Add("req-1", newDueSubscription("CLIENT1", nil, allEntryTypes())))

	sink := newFakeSink()
	distributor := NewDistributor(registry, &fakeSource{}, sink, time.Second, time.Second)
	distributor.distribute(context.Background())

	assert.Empty(t, sink.messages(testSessionID("CLIENT1")))
}

func TestDistributeSkipsNonMatchingEntryTypes(t *testing.T) {
	registry := NewSubscriptionRegistry()
	tradeOnly := map[enum.MDEntryType]struct{}{enum.MDEntryType_TRADE: {}}
	require.NoError(t, registry.Add("req-1", newDueSubscription("CLIENT1", nil, tradeOnly)))

	source := &fakeSource{updates: [][]entity.MarketData{{
		testMarketData("BTCUSD", enum.MDEntryType_BID, "99.5"),
		testMarketData("BTCUSD", enum.MDEntryType_OFFER, "100.5"),
	}}}
	sink := newFakeSink()

	distributor := NewDistributor(registry, source, sink, time.Second, time.Second)
	distributor.distribute(context.Background())

	// nothing matched, so no refresh at all for this tick
	assert.Empty(t, sink.messages(testSessionID("CLIENT1")))
}

func TestDistributorStartAndJoin(t *testing.T) {
	registry := NewSubscriptionRegistry()
	distributor := NewDistributor(registry, &fakeSource{}, newFakeSink(), 10*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	distributor.Start(ctx)

	time.Sleep(30 * time.Millisecond)
	cancel()

	require.NoError(t, distributor.Join())
}
