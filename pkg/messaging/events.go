package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventPlateRecognized = "recognition.plate.recognized"
	EventPlateRejected   = "recognition.plate.rejected"
)

// Exchange names
const (
	ExchangeRecognitionEvents = "recognition.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// PlateRecognizedEvent is published when the pipeline surfaces a new plate.
// Downstream consumers (parking sessions, billing) key off the plate text.
type PlateRecognizedEvent struct {
	ImageHash       string `json:"image_hash"`
	Plate           string `json:"plate"`
	Category        string `json:"category"`
	Confidence      int    `json:"confidence"`
	FromCache       bool   `json:"from_cache"`
	OccurrenceCount int    `json:"occurrence_count"`
}

// PlateRejectedEvent is published when a recognition attempt fails terminally.
// Only the image hash is carried, never pixel data.
type PlateRejectedEvent struct {
	ImageHash string `json:"image_hash"`
	Code      string `json:"code"`
}
