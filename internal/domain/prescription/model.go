package prescription

import (
	"time"

	"github.com/ehr/erx-harness/pkg/erxmodels"
)

// Origin describes how a record entered an actor's store, which decides
// the token a later operation must present.
type Origin int

const (
	// OriginIssued: the prescriber created the record.
	OriginIssued Origin = iota
	// OriginOwner: the insured party holds their own prescription via an
	// authenticated identity channel; no access code is needed to act.
	OriginOwner
	// OriginHandover: the record was obtained through a downloaded or
	// handed-over access code (representative flow).
	OriginHandover
)

// Record is one prescription task moving through the lifecycle.
type Record struct {
	TaskID       string
	AccessCode   string
	Secret       string
	State        State
	Origin       Origin
	WorkflowType string
	Medication   erxmodels.Medication
	// Payload is the content of the underlying clinical document,
	// opaque to the harness.
	Payload    string
	AuthoredOn time.Time
}

// RecordID implements actor.Identified.
func (r *Record) RecordID() string { return r.TaskID }

// DirectAssigned reports whether the record was produced by direct
// assignment and therefore carries no owner-facing access code.
func (r *Record) DirectAssigned() bool {
	return erxmodels.IsDirectAssignment(r.WorkflowType)
}

// Clone returns an independent copy, used when a record is handed over
// to another actor. Hand-off is a deliberate copy, never aliasing.
func (r *Record) Clone() *Record {
	c := *r
	return &c
}

// DispensedDrug is what an insured party ends up holding after a
// dispensing party closed the prescription.
type DispensedDrug struct {
	TaskID     string
	Medication erxmodels.Medication
	ReceivedAt time.Time
}

// RecordID implements actor.Identified.
func (d *DispensedDrug) RecordID() string { return d.TaskID }
