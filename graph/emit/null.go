package emit

// NullEmitter discards all events. It is the engine default when no emitter
// is configured.
type NullEmitter struct{}

// NewNullEmitter creates a NullEmitter. Safe for concurrent use with zero
// overhead.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (n *NullEmitter) Emit(event Event) {}
