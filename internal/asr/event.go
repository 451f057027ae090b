package asr

// EventType tags the kind of status event emitted for a processed fragment.
type EventType string

const (
	// EventInterim is a liveness or diagnostic signal, not a transcript.
	EventInterim EventType = "interim"

	// EventFinal carries recognised transcript text.
	EventFinal EventType = "final"

	// EventError reports a stream-level problem outside the per-fragment
	// recovery paths (which surface as interim diagnostics instead).
	EventError EventType = "error"
)

// Event is the sole externally observable output of one fragment-processing
// step. Events are delivered to the client in the order produced, before the
// next fragment is read.
type Event struct {
	Type EventType `json:"type"`
	Text string    `json:"text"`
}
