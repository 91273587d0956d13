package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/erx-harness/internal/domain/actor"
	"github.com/ehr/erx-harness/internal/domain/chargeitem"
	"github.com/ehr/erx-harness/internal/domain/prescription"
	"github.com/ehr/erx-harness/internal/platform/protocol"
	"github.com/ehr/erx-harness/internal/platform/report"
	"github.com/ehr/erx-harness/internal/platform/signer"
)

// Service executes scenario operations against the remote workflow
// service, keeping each actor's stores in sync with the responses.
// Stores are only mutated after a response arrives; a failed call
// leaves actor state untouched.
type Service struct {
	client   protocol.Client
	signer   signer.Signer
	charges  *chargeitem.Tracker
	sink     report.Sink
	log      zerolog.Logger
	scenario string
}

// Deps wires a Service.
type Deps struct {
	Client   protocol.Client
	Signer   signer.Signer
	Charges  *chargeitem.Tracker
	Sink     report.Sink
	Log      zerolog.Logger
	Scenario string
}

func NewService(d Deps) *Service {
	if d.Sink == nil {
		d.Sink = report.NewLogSink(d.Log)
	}
	if d.Charges == nil {
		d.Charges = chargeitem.NewTracker(d.Log)
	}
	return &Service{
		client:   d.Client,
		signer:   d.Signer,
		charges:  d.Charges,
		sink:     d.Sink,
		log:      d.Log,
		scenario: d.Scenario,
	}
}

// Charges exposes the charge-item tracker shared with scenario steps.
func (s *Service) Charges() *chargeitem.Tracker { return s.charges }

func identity(a *actor.Actor, role prescription.Role) protocol.Identity {
	return protocol.Identity{Name: a.Name, Role: role.String()}
}

// classify maps an operation error to the outcome label scenarios
// assert on. Authorization, conflict, gone and precondition failures
// stay distinguishable.
func classify(err error) string {
	if err == nil {
		return "ok"
	}
	if kind, ok := protocol.KindOf(err); ok {
		return kind.String()
	}
	var le *prescription.LifecycleError
	if errors.As(err, &le) {
		return protocol.KindConflict.String()
	}
	var uae *chargeitem.UnauthorizedAmendmentError
	if errors.As(err, &uae) {
		return protocol.KindAuthorization.String()
	}
	var mce *actor.MissingCapabilityError
	if errors.As(err, &mce) {
		return "capability"
	}
	if errors.Is(err, actor.ErrEmptySelection) {
		return "selection"
	}
	return "error"
}

func (s *Service) record(ctx context.Context, op string, a *actor.Actor, start time.Time, err error) {
	r := report.StepResult{
		Scenario: s.scenario,
		Step:     op,
		Op:       op,
		Outcome:  classify(err),
		Duration: time.Since(start),
		At:       start,
	}
	if a != nil {
		r.Actor = a.Name
	}
	if err != nil {
		r.Detail = err.Error()
	}
	if sinkErr := s.sink.Record(ctx, r); sinkErr != nil {
		s.log.Warn().Err(sinkErr).Msg("failed to record step result")
	}
}

// prescriptionsOf resolves the store an actor keeps redeemable
// prescription records in: the pocket for insured parties and
// representatives, the issued store for prescribers.
func prescriptionsOf(a *actor.Actor) (*actor.OrderedStore[*prescription.Record], error) {
	if a.Has(actor.ReceivesPrescriptions) {
		pocket, err := actor.Resolve[*prescription.Pocket](a, actor.ReceivesPrescriptions)
		if err != nil {
			return nil, err
		}
		return pocket.Records, nil
	}
	issued, err := actor.Resolve[*prescription.Issued](a, actor.Prescribes)
	if err != nil {
		return nil, err
	}
	return issued.Records, nil
}
