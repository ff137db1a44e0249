package bus

import "time"

// Event types published by the session layer.
const (
	TypeFrameValidated = "rollback.validated"
	TypeDesync         = "rollback.desync"
	TypeWinner         = "game.winner"
	TypePeerJoined     = "session.joined"
)

// EventBus is an in-process pub/sub bus with synchronous delivery.
//
// Handlers run in the publisher goroutine, in subscription order. Handler
// errors are joined and returned from Publish. All methods are safe for
// concurrent use.
type EventBus interface {
	Publish(event Event) error
	// Subscribe registers handler for eventType and returns a handle that
	// cancels it.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels sub. A nil sub is ignored.
	Unsubscribe(sub Subscription) error
}

// Event is an immutable message carried by the bus.
type Event struct {
	Type      string
	Source    string
	Timestamp time.Time
	Data      any
}

// NewEvent stamps a new event with the current time.
func NewEvent(typ, source string, data any) Event {
	return Event{Type: typ, Source: source, Timestamp: time.Now(), Data: data}
}

type EventHandler func(event Event) error

// Subscription is a registered handler bound to one event type.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}
