package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/teamhub-backend/pkg/auth"
)

const currentEnvelopeVersion = 1

// ActorRef identifies the user whose request produced the event.
type ActorRef struct {
	UserID      uuid.UUID `json:"userId"`
	Username    string    `json:"username,omitempty"`
	IsSuperuser bool      `json:"isSuperuser,omitempty"`
}

func ActorFrom(actor auth.Actor) *ActorRef {
	return &ActorRef{UserID: actor.UserID, Username: actor.Username, IsSuperuser: actor.IsSuperuser}
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and sent to
// Pub/Sub as the message body. EventID equals the outbox row id.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

func sealEnvelope(id uuid.UUID, event DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return nil, fmt.Errorf("encode %s data: %w", event.EventType, err)
	}
	env := PayloadEnvelope{
		Version:    event.Version,
		EventID:    id.String(),
		OccurredAt: event.OccurredAt,
		Actor:      event.Actor,
		Data:       data,
	}
	if env.Version == 0 {
		env.Version = currentEnvelopeVersion
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt = time.Now().UTC()
	}
	return json.Marshal(env)
}
