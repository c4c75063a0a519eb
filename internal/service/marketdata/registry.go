package marketdata

import (
	"sync"

	"github.com/krobus00/fix-md-service/internal/entity"
	"github.com/quickfixgo/quickfix"
)

// ActiveSubscription pairs a live subscription with its request id for
// iteration outside the registry lock.
type ActiveSubscription struct {
	RequestID    string
	Subscription *entity.Subscription
}

// SubscriptionRegistry is the single source of truth for live subscriptions,
// indexed by request id and by session id. Both indices mutate under one lock
// so no observer ever sees a subscription present in one and absent in the
// other.
type SubscriptionRegistry struct {
	mu          sync.RWMutex
	byRequestID map[string]*entity.Subscription
	bySession   map[quickfix.SessionID]map[string]struct{}
}

func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{
		byRequestID: make(map[string]*entity.Subscription),
		bySession:   make(map[quickfix.SessionID]map[string]struct{}),
	}
}

func (r *SubscriptionRegistry) Add(requestID string, subscription *entity.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byRequestID[requestID]; ok {
		return ErrDuplicateRequest
	}

	r.byRequestID[requestID] = subscription

	requestIDs, ok := r.bySession[subscription.SessionID]
	if !ok {
		requestIDs = make(map[string]struct{})
		r.bySession[subscription.SessionID] = requestIDs
	}
	requestIDs[requestID] = struct{}{}

	return nil
}

// Remove is a no-op if the request id is absent.
func (r *SubscriptionRegistry) Remove(requestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subscription, ok := r.byRequestID[requestID]
	if !ok {
		return
	}

	delete(r.byRequestID, requestID)

	requestIDs := r.bySession[subscription.SessionID]
	delete(requestIDs, requestID)
	if len(requestIDs) == 0 {
		delete(r.bySession, subscription.SessionID)
	}
}

// RemoveAllBySession removes every subscription owned by the session and
// returns the number removed.
func (r *SubscriptionRegistry) RemoveAllBySession(sessionID quickfix.SessionID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	requestIDs, ok := r.bySession[sessionID]
	if !ok {
		return 0
	}

	for requestID := range requestIDs {
		delete(r.byRequestID, requestID)
	}
	delete(r.bySession, sessionID)

	return len(requestIDs)
}

func (r *SubscriptionRegistry) Get(requestID string) (*entity.Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subscription, ok := r.byRequestID[requestID]
	return subscription, ok
}

// ValidateOwnership reports whether the request id exists and belongs to the
// given session.
func (r *SubscriptionRegistry) ValidateOwnership(requestID string, sessionID quickfix.SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subscription, ok := r.byRequestID[requestID]
	return ok && subscription.SessionID == sessionID
}

// ListActive returns a consistent snapshot of the registry. Iterating the
// result is safe against concurrent mutations.
func (r *SubscriptionRegistry) ListActive() []ActiveSubscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]ActiveSubscription, 0, len(r.byRequestID))
	for requestID, subscription := range r.byRequestID {
		active = append(active, ActiveSubscription{
			RequestID:    requestID,
			Subscription: subscription,
		})
	}
	return active
}

func (r *SubscriptionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byRequestID)
}
