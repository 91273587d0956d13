package communication

import (
	"time"

	"github.com/google/uuid"

	"github.com/ehr/erx-harness/internal/domain/actor"
	"github.com/ehr/erx-harness/pkg/erxmodels"
)

// Message is one tracked communication, sent or received. LocalID keys
// the record in its store; ID is assigned by the service and may be
// unset until the message round-tripped.
type Message struct {
	LocalID    string
	ID         string
	Profile    string
	Sender     string
	Recipient  string
	TaskID     string
	AccessCode string
	Payload    string
	Sent       time.Time
}

// RecordID implements actor.Identified.
func (m *Message) RecordID() string { return m.LocalID }

// FromWire converts a received wire communication into a tracked message.
func FromWire(c erxmodels.Communication) (*Message, error) {
	_, id, ac, err := erxmodels.ParseReference(c.BasedOn)
	if err != nil {
		return nil, err
	}
	m := &Message{
		LocalID:    uuid.NewString(),
		ID:         c.ID,
		Profile:    c.Profile,
		Sender:     c.Sender,
		Recipient:  c.Recipient,
		TaskID:     id,
		AccessCode: ac,
		Payload:    c.Payload,
	}
	if c.Sent != nil {
		m.Sent = *c.Sent
	}
	return m, nil
}

// Expectation describes a message an actor anticipates receiving.
// Matching is strict on profile, sender and referenced task.
type Expectation struct {
	Profile string
	Sender  string
	TaskID  string
}

// Matches reports whether the message satisfies the expectation.
func (e Expectation) Matches(m *Message) bool {
	return m.Profile == e.Profile && m.Sender == e.Sender && m.TaskID == e.TaskID
}

// Exchange is the message-exchange capability of one actor.
type Exchange struct {
	Sent  *actor.OrderedStore[*Message]
	Inbox *actor.OrderedStore[*Message]

	expected []Expectation
}

func NewExchange() *Exchange {
	return &Exchange{
		Sent:  actor.NewOrderedStore[*Message](),
		Inbox: actor.NewOrderedStore[*Message](),
	}
}

func (c *Exchange) Kind() actor.CapabilityKind { return actor.ExchangesMessages }
