package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/krobus00/fix-md-service/internal/constant"
	"github.com/krobus00/fix-md-service/internal/entity"
	"github.com/quickfixgo/quickfix"
	"github.com/sirupsen/logrus"
)

const defaultDistributorJoinWait = 5 * time.Second

var errSessionGone = errors.New("session not logged on")

// Distributor drives periodic outbound refreshes for every active
// subscription.
type Distributor struct {
	registry *SubscriptionRegistry
	source   entity.MarketDataSource
	sink     entity.SessionSink
	interval time.Duration
	joinWait time.Duration

	done chan struct{}
}

func NewDistributor(registry *SubscriptionRegistry, source entity.MarketDataSource, sink entity.SessionSink, interval, joinWait time.Duration) *Distributor {
	if interval <= 0 {
		interval = constant.MinUpdatePeriod
	}
	if joinWait <= 0 {
		joinWait = defaultDistributorJoinWait
	}

	return &Distributor{
		registry: registry,
		source:   source,
		sink:     sink,
		interval: interval,
		joinWait: joinWait,
		done:     make(chan struct{}),
	}
}

// Start runs the tick loop until ctx is cancelled. A single goroutine runs
// ticks back to back, so a long tick delays the next one instead of
// overlapping it.
func (d *Distributor) Start(ctx context.Context) {
	go func() {
		defer close(d.done)

		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.distribute(ctx)
			}
		}
	}()
}

// Join blocks until the tick loop exits, or gives up after the join wait.
func (d *Distributor) Join() error {
	select {
	case <-d.done:
		return nil
	case <-time.After(d.joinWait):
		return fmt.Errorf("distributor did not stop within %s", d.joinWait)
	}
}

// distribute runs one distribution tick. A failure on one subscription never
// aborts delivery to the others.
func (d *Distributor) distribute(ctx context.Context) {
	updates, err := d.source.LatestUpdates(ctx)
	if err != nil {
		logrus.Errorf("error polling market data updates: %v", err)
		return
	}
	if len(updates) == 0 {
		return
	}

	now := time.Now()

	staleSeen := make(map[quickfix.SessionID]struct{})
	staleSessions := make([]quickfix.SessionID, 0)

	for _, active := range d.registry.ListActive() {
		err := d.processSubscription(active, updates, now)
		if err == nil {
			continue
		}

		if errors.Is(err, errSessionGone) {
			if _, ok := staleSeen[active.Subscription.SessionID]; !ok {
				staleSeen[active.Subscription.SessionID] = struct{}{}
				staleSessions = append(staleSessions, active.Subscription.SessionID)
			}
			continue
		}

		logrus.WithFields(logrus.Fields{
			"request_id": active.RequestID,
		}).Errorf("error distributing market data update: %v", err)
	}

	for _, sessionID := range staleSessions {
		removed := d.registry.RemoveAllBySession(sessionID)
		logrus.WithFields(logrus.Fields{
			"session_id": sessionID.String(),
			"removed":    removed,
		}).Info("removed subscriptions for stale session")
	}
}

func (d *Distributor) processSubscription(active ActiveSubscription, updates []entity.MarketData, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic distributing to %s: %v", active.RequestID, r)
		}
	}()

	subscription := active.Subscription
	if !subscription.NeedsUpdate(now) {
		return nil
	}

	if !d.sink.IsLoggedOn(subscription.SessionID) {
		return errSessionGone
	}

	entries := filterUpdates(subscription, updates, constant.MaxEntriesPerRefresh)
	if len(entries) == 0 {
		return nil
	}

	if err := d.sink.SendToSession(subscription.SessionID, newRefresh(active.RequestID, entries)); err != nil {
		// soft error: drop this attempt, the subscription stays live
		return fmt.Errorf("send update refresh: %w", err)
	}

	subscription.MarkUpdated(now)
	return nil
}

// filterUpdates scans the update batch and keeps entries the subscription's
// symbol and entry-type predicates admit, up to limit.
func filterUpdates(subscription *entity.Subscription, updates []entity.MarketData, limit int) []entity.MarketData {
	var entries []entity.MarketData
	for _, data := range updates {
		if !subscription.IsSubscribedTo(data.Symbol) || !subscription.WantsEntryType(data.EntryType) {
			continue
		}

		entries = append(entries, data)
		if len(entries) == limit {
			break
		}
	}
	return entries
}
