package messaging

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the timestamped payload the producer publishes and the
// consumer logs.
type Envelope struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Counter   uint64    `json:"counter"`
}

// Encode serializes the envelope for the wire.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses a wire payload.
func DecodeEnvelope(payload []byte) (*Envelope, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	var e Envelope
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("failed to parse payload: %w", err)
	}
	return &e, nil
}
