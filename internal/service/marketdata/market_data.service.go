package marketdata

import (
	"context"
	"time"

	"github.com/krobus00/fix-md-service/internal/constant"
	"github.com/krobus00/fix-md-service/internal/entity"
	"github.com/quickfixgo/quickfix"
	"github.com/sirupsen/logrus"
)

// Service is the market data engine facade: it owns the subscription
// registry, the snapshot generator, and the distributor, and exposes the
// operations the FIX handler dispatches to. The service itself is stateless;
// state lives in the registry.
type Service struct {
	registry    *SubscriptionRegistry
	generator   *SnapshotGenerator
	distributor *Distributor
	source      entity.MarketDataSource
	sink        entity.SessionSink
}

func NewService(source entity.MarketDataSource, sink entity.SessionSink, distributionInterval, distributorJoinWait time.Duration) *Service {
	registry := NewSubscriptionRegistry()

	return &Service{
		registry:    registry,
		generator:   NewSnapshotGenerator(sink),
		distributor: NewDistributor(registry, source, sink, distributionInterval, distributorJoinWait),
		source:      source,
		sink:        sink,
	}
}

// Start launches the distribution loop. It runs until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.distributor.Start(ctx)
}

// Shutdown waits for an in-progress tick to finish. The caller cancels the
// Start context first; ticks get the join wait to drain before being
// abandoned.
func (s *Service) Shutdown() error {
	return s.distributor.Join()
}

// HandleSnapshot serves a one-shot snapshot request.
func (s *Service) HandleSnapshot(ctx context.Context, sessionID quickfix.SessionID, requestID string, params entity.RequestParams) error {
	return s.generator.SendSnapshot(ctx, sessionID, requestID, params, s.source)
}

// HandleSubscribe registers a snapshot-plus-updates subscription and sends
// the initial snapshot. If the snapshot fails the registration is rolled
// back so a rejected subscribe leaves no trace.
func (s *Service) HandleSubscribe(ctx context.Context, sessionID quickfix.SessionID, requestID string, params entity.RequestParams) error {
	subscription := entity.NewSubscription(sessionID, params.Symbols, params.EntryTypes, params.UpdatePeriod, time.Now())

	if err := s.registry.Add(requestID, subscription); err != nil {
		return err
	}

	if err := s.generator.SendSnapshot(ctx, sessionID, requestID, params, s.source); err != nil {
		s.registry.Remove(requestID)
		return err
	}

	logrus.WithFields(logrus.Fields{
		"request_id":    requestID,
		"session_id":    sessionID.String(),
		"update_period": params.UpdatePeriod.String(),
	}).Info("created subscription")

	return nil
}

// HandleUnsubscribe removes the subscription after verifying the session
// owns it, then sends an UNSUBSCRIBED confirmation refresh. Removal takes
// effect synchronously; a tick already in progress holds at most one stale
// reference, which completes harmlessly.
func (s *Service) HandleUnsubscribe(ctx context.Context, sessionID quickfix.SessionID, requestID string) error {
	if !s.registry.ValidateOwnership(requestID, sessionID) {
		return ErrNotOwned
	}

	s.registry.Remove(requestID)

	logrus.WithFields(logrus.Fields{
		"request_id": requestID,
		"session_id": sessionID.String(),
	}).Info("cancelled subscription")

	if err := s.sink.SendToSession(sessionID, newSentinelRefresh(requestID, constant.SymbolUnsubscribed)); err != nil {
		logrus.Warnf("failed to send unsubscribe confirmation for %s: %v", requestID, err)
	}

	return nil
}

// HandleSessionLogout drops every subscription the session owns.
// Subscriptions are not reinstated on a later logon.
func (s *Service) HandleSessionLogout(sessionID quickfix.SessionID) {
	removed := s.registry.RemoveAllBySession(sessionID)
	if removed > 0 {
		logrus.WithFields(logrus.Fields{
			"session_id": sessionID.String(),
			"removed":    removed,
		}).Info("removed subscriptions on logout")
	}
}
