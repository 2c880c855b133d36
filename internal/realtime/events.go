package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aurora92101/BetLicense/internal/types"
)

type EventKind string

const (
	EventMessage    EventKind = "message"
	EventAttachment EventKind = "attachment"
	EventStatus     EventKind = "status"
)

// RoomEvent is the union of events broadcast on a room channel. Events are
// ephemeral: they exist only for live delivery and are never persisted or
// replayed. Durability comes from the snapshot fetch on (re)connect.
type RoomEvent interface {
	Kind() EventKind
}

type MessageEvent struct {
	Message types.Message
}

func (MessageEvent) Kind() EventKind { return EventMessage }

type AttachmentEvent struct {
	Attachment types.Attachment
}

func (AttachmentEvent) Kind() EventKind { return EventAttachment }

type StatusEvent struct {
	Status types.RoomStatus
}

func (StatusEvent) Kind() EventKind { return EventStatus }

// RoomChannel returns the bus channel name for a room's internal id. The
// internal id stays server-side; only frame payloads reach clients.
func RoomChannel(roomId int) string {
	return fmt.Sprintf("room:%d", roomId)
}

type envelope struct {
	Type    EventKind       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type statusPayload struct {
	Status types.RoomStatus `json:"status"`
}

// EncodeEvent serializes an event to its wire envelope
// {"type":...,"payload":...}.
func EncodeEvent(ev RoomEvent) ([]byte, error) {
	var payload any
	switch e := ev.(type) {
	case MessageEvent:
		payload = e.Message
	case AttachmentEvent:
		payload = e.Attachment
	case StatusEvent:
		payload = statusPayload{Status: e.Status}
	default:
		return nil, fmt.Errorf("unknown event type %T", ev)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	return json.Marshal(envelope{Type: ev.Kind(), Payload: raw})
}

// DecodeEvent parses a wire envelope back into its typed variant.
func DecodeEvent(data []byte) (RoomEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case EventMessage:
		var msg types.Message
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, fmt.Errorf("unmarshal message payload: %w", err)
		}
		return MessageEvent{Message: msg}, nil
	case EventAttachment:
		var att types.Attachment
		if err := json.Unmarshal(env.Payload, &att); err != nil {
			return nil, fmt.Errorf("unmarshal attachment payload: %w", err)
		}
		return AttachmentEvent{Attachment: att}, nil
	case EventStatus:
		var sp statusPayload
		if err := json.Unmarshal(env.Payload, &sp); err != nil {
			return nil, fmt.Errorf("unmarshal status payload: %w", err)
		}
		return StatusEvent{Status: sp.Status}, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", env.Type)
	}
}

// Now returns the current time in UTC rounded to milliseconds, the
// precision stored by the database and sent on the wire.
func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
