package integration

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/erx-harness/internal/domain/actor"
	"github.com/ehr/erx-harness/internal/domain/chargeitem"
	"github.com/ehr/erx-harness/internal/domain/communication"
	"github.com/ehr/erx-harness/internal/domain/prescription"
	"github.com/ehr/erx-harness/internal/domain/workflow"
	"github.com/ehr/erx-harness/internal/platform/fakeerx"
	"github.com/ehr/erx-harness/internal/platform/protocol"
	"github.com/ehr/erx-harness/internal/platform/signer"
)

// harness wires the full stack against an in-process backend: real HTTP
// client, real signer, real workflow service. Only the network is fake.
type harness struct {
	svc     *workflow.Service
	tracker *communication.Tracker
	reg     *actor.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	key := []byte("integration-test-key")
	srv := httptest.NewServer(fakeerx.New(key, zerolog.Nop()))
	t.Cleanup(srv.Close)

	tokens := signer.NewJWSSigner(key, "erx-harness-test")
	client := protocol.NewHTTPClient(srv.URL, tokens, zerolog.Nop())
	svc := workflow.NewService(workflow.Deps{
		Client:   client,
		Signer:   tokens,
		Log:      zerolog.Nop(),
		Scenario: t.Name(),
	})
	tracker := communication.NewTracker(client, 10*time.Millisecond, time.Second, zerolog.Nop())
	return &harness{svc: svc, tracker: tracker, reg: actor.NewRegistry()}
}

func (h *harness) doctor(name string) *actor.Actor {
	a := h.reg.ActorNamed(name)
	if !a.Has(actor.Prescribes) {
		a.Grant(prescription.NewIssued())
	}
	return a
}

func (h *harness) patient(name string) *actor.Actor {
	a := h.reg.ActorNamed(name)
	if !a.Has(actor.ReceivesPrescriptions) {
		a.Grant(prescription.NewPocket())
		a.Grant(prescription.NewReceivedDrugs())
		a.Grant(communication.NewExchange())
		a.Grant(chargeitem.NewBilling())
	}
	return a
}

func (h *harness) pharmacy(name string) *actor.Actor {
	a := h.reg.ActorNamed(name)
	if !a.Has(actor.DispensesPrescriptions) {
		a.Grant(prescription.NewDispensing())
		a.Grant(communication.NewExchange())
		a.Grant(chargeitem.NewAccount())
	}
	return a
}

func identityOf(a *actor.Actor, role prescription.Role) protocol.Identity {
	return protocol.Identity{Name: a.Name, Role: role.String()}
}
