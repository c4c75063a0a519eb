package marketdata

import (
	"github.com/krobus00/fix-md-service/internal/entity"
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	mdrr "github.com/quickfixgo/fix44/marketdatarequestreject"
	mdsfr "github.com/quickfixgo/fix44/marketdatasnapshotfullrefresh"
	"github.com/shopspring/decimal"
)

// newRefresh builds a full refresh carrying the request id and the given
// entries. Callers guarantee 0 < len(entries) <= constant.MaxEntriesPerRefresh.
// Each entry carries its own Symbol; the message-level Symbol holds the first
// entry's, which FIX 4.4 requires on the Instrument component.
func newRefresh(requestID string, entries []entity.MarketData) mdsfr.MarketDataSnapshotFullRefresh {
	refresh := mdsfr.New()
	refresh.SetSymbol(entries[0].Symbol)
	refresh.SetMDReqID(requestID)

	group := mdsfr.NewNoMDEntriesRepeatingGroup()
	for _, data := range entries {
		entry := group.Add()
		entry.SetMDEntryType(data.EntryType)
		entry.Set(field.NewSymbol(data.Symbol))
		entry.SetMDEntryPx(data.Price, decimalScale(data.Price))
		entry.SetMDEntrySize(data.Size, decimalScale(data.Size))
		entry.SetMDEntryTime(data.UpdateTime.UTC().Format("15:04:05"))
	}
	refresh.SetNoMDEntries(group)

	return refresh
}

// newSentinelRefresh builds a refresh with no entries and a sentinel symbol,
// used for empty snapshots (NO_DATA) and unsubscribe confirmations
// (UNSUBSCRIBED).
func newSentinelRefresh(requestID, symbol string) mdsfr.MarketDataSnapshotFullRefresh {
	refresh := mdsfr.New()
	refresh.SetSymbol(symbol)
	refresh.SetMDReqID(requestID)
	return refresh
}

// NewReject builds a MarketDataRequestReject for the request. UNKNOWN_SYMBOL
// is the only reason code safe for every reject path; the detail goes in Text.
func NewReject(requestID, text string) mdrr.MarketDataRequestReject {
	reject := mdrr.New(field.NewMDReqID(requestID))
	reject.SetMDReqRejReason(enum.MDReqRejReason_UNKNOWN_SYMBOL)
	reject.SetText(text)
	return reject
}

func decimalScale(d decimal.Decimal) int32 {
	if exp := d.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}
