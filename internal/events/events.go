// Package events decouples the API layer from background processing.
// Handlers subscribe to an emitter; the upload endpoint publishes an
// indexing request and returns without knowing who picks it up.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Known event types.
const (
	EventTypeVideoUploaded = "video.uploaded"
)

// Event carries a request for background work. The payload is opaque
// JSON so emitters and handlers only share this package and the payload
// struct they agree on.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type names the kind of work requested, e.g. EventTypeVideoUploaded
	Type string `json:"type"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// VideoUploadedPayload is the payload for EventTypeVideoUploaded events.
type VideoUploadedPayload struct {
	VideoID uuid.UUID `json:"video_id"`
}

// NewEvent creates an Event of the given type, serializing the payload
// to JSON.
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// Handler processes emitted events.
type Handler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// Emitter publishes events to registered handlers. It lets services
// announce work without direct knowledge of who performs it.
type Emitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *Event) error
}
