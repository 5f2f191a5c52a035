package memo

// Observer receives cache lifecycle events. Implementations must be safe
// for concurrent use when the group is accessed from multiple goroutines.
type Observer interface {
	On(eventData EventData)
}

// Event represents a cache event type.
type Event int

const (
	// EventHit is emitted when a call is served from a fresh cache entry.
	EventHit Event = iota
	// EventMiss is emitted when a call invokes the wrapped function.
	EventMiss
	// EventDedup is emitted when a concurrent caller shares an in-flight
	// call instead of triggering a new one.
	EventDedup
	// EventEvict is emitted when the entry bound removes a key.
	EventEvict
)

// EventData carries the details of a cache event.
type EventData struct {
	Event Event
	Group string
	Key   string
}
