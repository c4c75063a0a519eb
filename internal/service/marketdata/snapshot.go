package marketdata

import (
	"context"
	"fmt"

	"github.com/krobus00/fix-md-service/internal/constant"
	"github.com/krobus00/fix-md-service/internal/entity"
	"github.com/quickfixgo/quickfix"
)

// SnapshotGenerator produces the initial (or one-shot) view for a request.
type SnapshotGenerator struct {
	sink entity.SessionSink
}

func NewSnapshotGenerator(sink entity.SessionSink) *SnapshotGenerator {
	return &SnapshotGenerator{sink: sink}
}

// SendSnapshot emits the current view for the request in refresh batches of
// at most constant.MaxEntriesPerRefresh entries each, all carrying the same
// MDReqID. A view with no matching entries emits a single NO_DATA refresh.
// Any sink error aborts the snapshot and surfaces to the caller.
func (g *SnapshotGenerator) SendSnapshot(ctx context.Context, sessionID quickfix.SessionID, requestID string, params entity.RequestParams, source entity.MarketDataSource) error {
	var (
		view []entity.MarketData
		err  error
	)
	if params.AllSymbols {
		view, err = source.AllMarketData(ctx)
	} else {
		view, err = source.MarketDataBySymbols(ctx, params.Symbols)
	}
	if err != nil {
		return fmt.Errorf("load snapshot view: %w", err)
	}

	sent := 0
	batch := make([]entity.MarketData, 0, constant.MaxEntriesPerRefresh)
	for _, data := range view {
		if !params.WantsEntryType(data.EntryType) {
			continue
		}

		batch = append(batch, data)
		if len(batch) == constant.MaxEntriesPerRefresh {
			if err := g.sink.SendToSession(sessionID, newRefresh(requestID, batch)); err != nil {
				return fmt.Errorf("send snapshot refresh: %w", err)
			}
			sent += len(batch)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := g.sink.SendToSession(sessionID, newRefresh(requestID, batch)); err != nil {
			return fmt.Errorf("send snapshot refresh: %w", err)
		}
		sent += len(batch)
	}

	if sent == 0 {
		if err := g.sink.SendToSession(sessionID, newSentinelRefresh(requestID, constant.SymbolNoData)); err != nil {
			return fmt.Errorf("send empty snapshot: %w", err)
		}
	}

	return nil
}
