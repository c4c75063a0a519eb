package marketdata

import "errors"

var (
	// ErrDuplicateRequest rejects a subscribe whose MDReqID collides with a
	// live subscription. The registry is left untouched.
	ErrDuplicateRequest = errors.New("request id already subscribed")

	// ErrNotOwned rejects an unsubscribe targeting a request id that does not
	// exist or belongs to another session.
	ErrNotOwned = errors.New("subscription not found or not owned by this session")
)

// ProtocolError is a malformed or unsupported MarketDataRequest. It travels
// back to the client as a MarketDataRequestReject and is not an incident.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return e.Reason
}

func NewProtocolError(reason string) *ProtocolError {
	return &ProtocolError{Reason: reason}
}
