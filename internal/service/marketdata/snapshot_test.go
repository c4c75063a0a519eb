package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/krobus00/fix-md-service/internal/entity"
	"github.com/quickfixgo/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countEntries(fixMsg string) int {
	return strings.Count(fixMsg, "\x01269=")
}

func TestSendSnapshotBatchesLargeView(t *testing.T) {
	view := make([]entity.MarketData, 0, 130)
	for i := 0; i < 130; i++ {
		view = append(view, testMarketData(fmt.Sprintf("SYM%d", i), enum.MDEntryType_TRADE, "100.5"))
	}

	sink := newFakeSink()
	generator := NewSnapshotGenerator(sink)
	sessionID := testSessionID("CLIENT1")

	params := entity.RequestParams{
		AllSymbols:   true,
		EntryTypes:   allEntryTypes(),
		UpdatePeriod: time.Second,
	}

	err := generator.SendSnapshot(context.Background(), sessionID, "req-1", params, &fakeSource{view: view})
	require.NoError(t, err)

	messages := sink.messages(sessionID)
	require.Len(t, messages, 3)

	assert.Contains(t, messages[0], "\x01268=50\x01")
	assert.Contains(t, messages[1], "\x01268=50\x01")
	assert.Contains(t, messages[2], "\x01268=30\x01")

	total := 0
	for _, msg := range messages {
		assert.Contains(t, msg, "\x01262=req-1\x01")
		total += countEntries(msg)
	}
	assert.Equal(t, 130, total)
}

func TestSendSnapshotFiltersEntryTypes(t *testing.T) {
	view := []entity.MarketData{
		testMarketData("BTCUSD", enum.MDEntryType_BID, "99.5"),
		testMarketData("BTCUSD", enum.MDEntryType_OFFER, "100.5"),
		testMarketData("BTCUSD", enum.MDEntryType_TRADE, "100.0"),
	}

	sink := newFakeSink()
	generator := NewSnapshotGenerator(sink)
	sessionID := testSessionID("CLIENT1")

	params := entity.RequestParams{
		AllSymbols: true,
		EntryTypes: map[enum.MDEntryType]struct{}{
			enum.MDEntryType_TRADE: {},
		},
		UpdatePeriod: time.Second,
	}

	err := generator.SendSnapshot(context.Background(), sessionID, "req-1", params, &fakeSource{view: view})
	require.NoError(t, err)

	messages := sink.messages(sessionID)
	require.Len(t, messages, 1)
	assert.Equal(t, 1, countEntries(messages[0]))
	assert.Contains(t, messages[0], "\x01269=2\x01")
	assert.NotContains(t, messages[0], "\x01269=0\x01")
	assert.NotContains(t, messages[0], "\x01269=1\x01")
}

func TestSendSnapshotSymbolSubset(t *testing.T) {
	view := []entity.MarketData{
		testMarketData("BTCUSD", enum.MDEntryType_TRADE, "100.0"),
		testMarketData("ETHUSD", enum.MDEntryType_TRADE, "10.0"),
		testMarketData("SOLUSD", enum.MDEntryType_TRADE, "1.0"),
	}

	sink := newFakeSink()
	generator := NewSnapshotGenerator(sink)
	sessionID := testSessionID("CLIENT1")

	params := entity.RequestParams{
		Symbols:      []string{"ETHUSD"},
		EntryTypes:   allEntryTypes(),
		UpdatePeriod: time.Second,
	}

	err := generator.SendSnapshot(context.Background(), sessionID, "req-1", params, &fakeSource{view: view})
	require.NoError(t, err)

	messages := sink.messages(sessionID)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "\x0155=ETHUSD\x01")
	assert.NotContains(t, messages[0], "BTCUSD")
	assert.NotContains(t, messages[0], "SOLUSD")
}

func TestSendSnapshotEmptyViewSendsNoData(t *testing.T) {
	sink := newFakeSink()
	generator := NewSnapshotGenerator(sink)
	sessionID := testSessionID("CLIENT1")

	params := entity.RequestParams{
		AllSymbols:   true,
		EntryTypes:   allEntryTypes(),
		UpdatePeriod: time.Second,
	}

	err := generator.SendSnapshot(context.Background(), sessionID, "req-1", params, &fakeSource{})
	require.NoError(t, err)

	messages := sink.messages(sessionID)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "\x0155=NO_DATA\x01")
	assert.Contains(t, messages[0], "\x01262=req-1\x01")
	assert.Equal(t, 0, countEntries(messages[0]))
}

func TestSendSnapshotEmptyAfterFilterSendsNoData(t *testing.T) {
	view := []entity.MarketData{
		testMarketData("BTCUSD", enum.MDEntryType_BID, "99.5"),
	}

	sink := newFakeSink()
	generator := NewSnapshotGenerator(sink)
	sessionID := testSessionID("CLIENT1")

	params := entity.RequestParams{
		AllSymbols: true,
		EntryTypes: map[enum.MDEntryType]struct{}{
			enum.MDEntryType_TRADE: {},
		},
		UpdatePeriod: time.Second,
	}

	err := generator.SendSnapshot(context.Background(), sessionID, "req-1", params, &fakeSource{view: view})
	require.NoError(t, err)

	messages := sink.messages(sessionID)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "\x0155=NO_DATA\x01")
}

func TestSendSnapshotSinkErrorAborts(t *testing.T) {
	sink := newFakeSink()
	sessionID := testSessionID("CLIENT1")
	sink.failSends(sessionID, errors.New("session send failed"))

	generator := NewSnapshotGenerator(sink)

	params := entity.RequestParams{
		AllSymbols:   true,
		EntryTypes:   allEntryTypes(),
		UpdatePeriod: time.Second,
	}

	view := []entity.MarketData{testMarketData("BTCUSD", enum.MDEntryType_TRADE, "100.0")}
	err := generator.SendSnapshot(context.Background(), sessionID, "req-1", params, &fakeSource{view: view})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session send failed")
}

func TestSendSnapshotSourceErrorSurfaces(t *testing.T) {
	sink := newFakeSink()
	generator := NewSnapshotGenerator(sink)
	sessionID := testSessionID("CLIENT1")

	params := entity.RequestParams{
		AllSymbols:   true,
		EntryTypes:   allEntryTypes(),
		UpdatePeriod: time.Second,
	}

	err := generator.SendSnapshot(context.Background(), sessionID, "req-1", params, &fakeSource{err: errors.New("store unavailable")})
	require.Error(t, err)
	assert.Empty(t, sink.messages(sessionID))
}
