package fix

import (
	"sync"

	"github.com/quickfixgo/quickfix"
)

// SessionTracker records which FIX sessions are currently logged on. The
// acceptor's Application callbacks feed it; the distributor consults it to
// garbage-collect subscriptions of dead sessions.
type SessionTracker struct {
	mu       sync.RWMutex
	loggedOn map[quickfix.SessionID]struct{}
}

func NewSessionTracker() *SessionTracker {
	return &SessionTracker{
		loggedOn: make(map[quickfix.SessionID]struct{}),
	}
}

func (t *SessionTracker) add(sessionID quickfix.SessionID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loggedOn[sessionID] = struct{}{}
}

func (t *SessionTracker) remove(sessionID quickfix.SessionID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.loggedOn, sessionID)
}

func (t *SessionTracker) IsLoggedOn(sessionID quickfix.SessionID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.loggedOn[sessionID]
	return ok
}

// Sink delivers messages through the running quickfix acceptor. It is the
// production entity.SessionSink.
type Sink struct {
	tracker *SessionTracker
}

func NewSink(tracker *SessionTracker) *Sink {
	return &Sink{tracker: tracker}
}

func (s *Sink) SendToSession(sessionID quickfix.SessionID, msg quickfix.Messagable) error {
	return quickfix.SendToTarget(msg, sessionID)
}

func (s *Sink) IsLoggedOn(sessionID quickfix.SessionID) bool {
	return s.tracker.IsLoggedOn(sessionID)
}
