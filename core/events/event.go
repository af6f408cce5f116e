package events

// Event represents a structured state change emitted by the ledger core.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (RPC feeds, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default wired into every engine so event emission stays optional.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
