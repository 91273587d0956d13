package communication

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/erx-harness/internal/domain/actor"
	"github.com/ehr/erx-harness/internal/domain/prescription"
	"github.com/ehr/erx-harness/internal/platform/protocol"
	"github.com/ehr/erx-harness/pkg/erxmodels"
)

// Match pairs a satisfied expectation with the message that satisfied it.
type Match struct {
	Expectation Expectation
	Message     *Message
}

// Fetcher is the slice of the protocol client the tracker needs.
type Fetcher interface {
	CommunicationGetNew(ctx context.Context, as protocol.Identity) ([]erxmodels.Communication, error)
}

// Tracker reconciles expected against observed messages per actor.
type Tracker struct {
	client   Fetcher
	interval time.Duration
	timeout  time.Duration
	log      zerolog.Logger
}

// NewTracker builds a tracker polling at the given interval with a fixed
// overall timeout per wait.
func NewTracker(client Fetcher, interval, timeout time.Duration, log zerolog.Logger) *Tracker {
	return &Tracker{client: client, interval: interval, timeout: timeout, log: log}
}

// Expect records that the actor anticipates a message. The expectation
// stays pending until a later Observe matches it.
func (t *Tracker) Expect(a *actor.Actor, exp Expectation) error {
	ex, err := actor.Resolve[*Exchange](a, actor.ExchangesMessages)
	if err != nil {
		return err
	}
	ex.expected = append(ex.expected, exp)
	return nil
}

// Pending returns the actor's unmatched expectations.
func (t *Tracker) Pending(a *actor.Actor) ([]Expectation, error) {
	ex, err := actor.Resolve[*Exchange](a, actor.ExchangesMessages)
	if err != nil {
		return nil, err
	}
	out := make([]Expectation, len(ex.expected))
	copy(out, ex.expected)
	return out, nil
}

// Observe fetches newly arrived messages for the actor once, appends
// them to the inbox, and matches them against the pending expectations.
// Unmatched inbound messages are kept but are not an error.
func (t *Tracker) Observe(ctx context.Context, a *actor.Actor, as protocol.Identity) ([]Match, error) {
	ex, err := actor.Resolve[*Exchange](a, actor.ExchangesMessages)
	if err != nil {
		return nil, err
	}

	wire, err := t.client.CommunicationGetNew(ctx, as)
	if err != nil {
		return nil, fmt.Errorf("fetch communications for %s: %w", a.Name, err)
	}

	var matches []Match
	for _, c := range wire {
		msg, err := FromWire(c)
		if err != nil {
			t.log.Warn().Err(err).Str("actor", a.Name).Msg("discarding malformed communication")
			continue
		}
		ex.Inbox.Append(msg)

		for i, exp := range ex.expected {
			if !exp.Matches(msg) {
				continue
			}
			ex.expected = append(ex.expected[:i], ex.expected[i+1:]...)
			matches = append(matches, Match{Expectation: exp, Message: msg})
			if msg.Profile == erxmodels.CommRepresentative {
				t.deriveHandover(a, msg)
			}
			break
		}
	}
	return matches, nil
}

// WaitFor polls until the expectation is matched or the timeout elapses.
// Timeout is the scenario-visible "did not receive" outcome: it returns
// ok=false with a nil error, never aborts the scenario.
func (t *Tracker) WaitFor(ctx context.Context, a *actor.Actor, as protocol.Identity, exp Expectation) (Match, bool, error) {
	if err := t.Expect(a, exp); err != nil {
		return Match{}, false, err
	}
	deadline := time.Now().Add(t.timeout)
	for {
		matches, err := t.Observe(ctx, a, as)
		if err != nil {
			return Match{}, false, err
		}
		for _, m := range matches {
			if m.Expectation == exp {
				return m, true, nil
			}
		}
		if time.Now().After(deadline) {
			t.log.Info().
				Str("actor", a.Name).
				Str("profile", exp.Profile).
				Str("task_id", exp.TaskID).
				Msg("expected communication not observed within timeout")
			return Match{}, false, nil
		}
		select {
		case <-ctx.Done():
			return Match{}, false, ctx.Err()
		case <-time.After(t.interval):
		}
	}
}

// deriveHandover turns a matched representative message into a
// handed-over prescription record in the receiver's pocket. This is how
// a representative becomes able to act on someone else's prescription.
func (t *Tracker) deriveHandover(a *actor.Actor, msg *Message) {
	pocket, err := actor.Resolve[*prescription.Pocket](a, actor.ReceivesPrescriptions)
	if err != nil {
		t.log.Warn().Err(err).Str("actor", a.Name).Msg("representative message received but actor holds no prescriptions")
		return
	}
	pocket.Records.Append(&prescription.Record{
		TaskID:     msg.TaskID,
		AccessCode: msg.AccessCode,
		State:      prescription.Assigned,
		Origin:     prescription.OriginHandover,
	})
	t.log.Debug().
		Str("actor", a.Name).
		Str("task_id", msg.TaskID).
		Msg("derived handed-over prescription from representative message")
}
