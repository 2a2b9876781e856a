// internal/realtime/envelope.go
package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Kind names a message on a room channel.
type Kind string

const (
	KindRoomState    Kind = "ROOM_STATE"
	KindAnswerSubmit Kind = "ANSWER_SUBMIT"
	KindGuessSubmit  Kind = "GUESS_SUBMIT"
	KindPickWinner   Kind = "PICK_WINNER"
	KindStrokeBatch  Kind = "STROKE_BATCH"
	KindClearCanvas  Kind = "CLEAR_CANVAS"
	KindHostStatus   Kind = "HOST_STATUS"
	KindRoomClosed   Kind = "ROOM_CLOSED"
	KindError        Kind = "ERROR"
)

// Envelope is the unit of delivery on a room channel.
type Envelope struct {
	// ID identifies one logical message so redeliveries can be dropped.
	ID   uuid.UUID `json:"id"`
	Type Kind      `json:"type"`

	// Origin is the instance that emitted the message (a coordinator or a connection).
	Origin string `json:"origin,omitempty"`

	// Sender is the authenticated user the message was received from, if any.
	Sender uuid.UUID `json:"sender,omitempty"`

	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload (which may be nil) into a fresh envelope.
func NewEnvelope(kind Kind, origin string, payload interface{}) (Envelope, error) {
	env := Envelope{ID: uuid.New(), Type: kind, Origin: origin}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
		}
		env.Payload = raw
	}
	return env, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%s: invalid payload: %w", e.Type, err)
	}
	return nil
}
