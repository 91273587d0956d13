// Package chargeitem models the hand-off of billing-record edit rights
// between a patient and dispensing parties, gated by consent and access
// codes. The remote service is the enforcer; the tracker's job is to
// supply the correct token when a scenario intends a legal amendment.
package chargeitem

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/erx-harness/internal/domain/actor"
)

// UnauthorizedAmendmentError reports an amendment attempt by a party
// holding no edit-right grant from the patient.
type UnauthorizedAmendmentError struct {
	Party          string
	PrescriptionID string
}

func (e *UnauthorizedAmendmentError) Error() string {
	return fmt.Sprintf("%s holds no edit rights for the billing record of task %s", e.Party, e.PrescriptionID)
}

// Record is a pharmacy-held charge item.
type Record struct {
	ItemID     string
	TaskID     string
	Patient    string
	AccessCode string
	Invoice    string
	EnteredAt  time.Time
}

// RecordID implements actor.Identified.
func (r *Record) RecordID() string { return r.ItemID }

// Authorization records that one dispensing party may amend the billing
// record of one prescription.
type Authorization struct {
	PrescriptionID string
	AccessCode     string
	Party          string
	GrantedAt      time.Time
}

// RecordID implements actor.Identified.
func (a *Authorization) RecordID() string { return a.PrescriptionID }

// Account holds the charge items a dispensing party has posted.
type Account struct {
	Items *actor.OrderedStore[*Record]
}

func NewAccount() *Account {
	return &Account{Items: actor.NewOrderedStore[*Record]()}
}

func (c *Account) Kind() actor.CapabilityKind { return actor.ManagesChargeItems }

// Billing holds a patient's charge-item side: the consent gate and the
// edit-right grants handed out to dispensing parties.
type Billing struct {
	Grants  *actor.OrderedStore[*Authorization]
	Consent bool
}

func NewBilling() *Billing {
	return &Billing{Grants: actor.NewOrderedStore[*Authorization]()}
}

func (c *Billing) Kind() actor.CapabilityKind { return actor.AuthorizesChargeItems }

// Tracker manages authorization hand-offs against actor state.
type Tracker struct {
	log zerolog.Logger
}

func NewTracker(log zerolog.Logger) *Tracker {
	return &Tracker{log: log}
}

// Authorize records a hand-off of edit rights for the prescription's
// billing record, whether performed out-of-band (sharing the code) or
// via a change-request message pair. A newer grant for the same
// prescription replaces the older one.
func (t *Tracker) Authorize(patient *actor.Actor, prescriptionID, accessCode, forParty string) error {
	billing, err := actor.Resolve[*Billing](patient, actor.AuthorizesChargeItems)
	if err != nil {
		return err
	}
	billing.Grants.Update(&Authorization{
		PrescriptionID: prescriptionID,
		AccessCode:     accessCode,
		Party:          forParty,
		GrantedAt:      time.Now(),
	})
	t.log.Debug().
		Str("patient", patient.Name).
		Str("task_id", prescriptionID).
		Str("party", forParty).
		Msg("charge item edit rights handed over")
	return nil
}

// AmendmentAllowed reports whether a pending authorization exists for
// the party on the prescription's billing record.
func (t *Tracker) AmendmentAllowed(patient *actor.Actor, forParty, prescriptionID string) (bool, error) {
	billing, err := actor.Resolve[*Billing](patient, actor.AuthorizesChargeItems)
	if err != nil {
		return false, err
	}
	auth, ok := billing.Grants.Find(prescriptionID)
	return ok && auth.Party == forParty, nil
}

// AccessCodeFor returns the access code the authorized party must
// present for the amendment, or ok=false when no grant exists.
func (t *Tracker) AccessCodeFor(patient *actor.Actor, forParty, prescriptionID string) (string, bool, error) {
	billing, err := actor.Resolve[*Billing](patient, actor.AuthorizesChargeItems)
	if err != nil {
		return "", false, err
	}
	auth, ok := billing.Grants.Find(prescriptionID)
	if !ok || auth.Party != forParty {
		return "", false, nil
	}
	return auth.AccessCode, true, nil
}

// Revoke withdraws a previously recorded hand-off.
func (t *Tracker) Revoke(patient *actor.Actor, prescriptionID string) error {
	billing, err := actor.Resolve[*Billing](patient, actor.AuthorizesChargeItems)
	if err != nil {
		return err
	}
	billing.Grants.Remove(prescriptionID)
	return nil
}
