package events

// Event is a fact about something that happened at a table.
// Every state change in the engine is expressed as one.
type Event interface {
	Name() string
}

// EventHandler receives events as they are emitted
type EventHandler func(event Event)
