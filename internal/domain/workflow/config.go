package workflow

import (
	"fmt"

	"github.com/ehr/erx-harness/internal/domain/actor"
	"github.com/ehr/erx-harness/internal/domain/prescription"
	"github.com/ehr/erx-harness/pkg/erxmodels"
)

// Operation configs are explicit structs with validated fields so that
// illegal partial configurations fail before any request is built.

// IssueConfig describes a prescriber issuing a prescription.
type IssueConfig struct {
	Prescriber   *actor.Actor
	Patient      *actor.Actor
	WorkflowType string
	Medication   erxmodels.Medication
}

func (c IssueConfig) Validate() error {
	if c.Prescriber == nil || c.Patient == nil {
		return fmt.Errorf("issue: prescriber and patient are required")
	}
	switch c.WorkflowType {
	case erxmodels.WorkflowPharmacyOnly, erxmodels.WorkflowDirectAssignment,
		erxmodels.WorkflowPrivatePharmacyOnly, erxmodels.WorkflowPrivateDirect:
		return nil
	default:
		return fmt.Errorf("issue: unknown workflow type %q", c.WorkflowType)
	}
}

// DownloadConfig describes an insured party downloading one of a
// prescriber's issued prescriptions into their own pocket.
type DownloadConfig struct {
	Patient    *actor.Actor
	Prescriber *actor.Actor
	Strategy   actor.Strategy
}

func (c DownloadConfig) Validate() error {
	if c.Patient == nil || c.Prescriber == nil {
		return fmt.Errorf("download: patient and prescriber are required")
	}
	return nil
}

// HandOverConfig describes an out-of-band hand-over of a prescription
// (by sharing the access code directly, not via a message).
type HandOverConfig struct {
	From     *actor.Actor
	To       *actor.Actor
	Strategy actor.Strategy
}

func (c HandOverConfig) Validate() error {
	if c.From == nil || c.To == nil {
		return fmt.Errorf("hand over: both parties are required")
	}
	return nil
}

// AcceptConfig describes a dispensing party accepting a prescription
// held by another actor.
type AcceptConfig struct {
	Pharmacy *actor.Actor
	From     *actor.Actor
	Strategy actor.Strategy
	Override *prescription.Override
}

func (c AcceptConfig) Validate() error {
	if c.Pharmacy == nil || c.From == nil {
		return fmt.Errorf("accept: pharmacy and source actor are required")
	}
	return nil
}

// DispenseConfig describes closing an accepted prescription. Substitute,
// when set, replaces the prescribed medication at dispense time.
type DispenseConfig struct {
	Pharmacy   *actor.Actor
	Strategy   actor.Strategy
	Override   *prescription.Override
	Substitute *erxmodels.Medication
	// Patient, when set, receives the dispensed drug in their store.
	Patient *actor.Actor
}

func (c DispenseConfig) Validate() error {
	if c.Pharmacy == nil {
		return fmt.Errorf("dispense: pharmacy is required")
	}
	return nil
}

// AbortConfig describes any role cancelling a prescription it holds.
type AbortConfig struct {
	Actor    *actor.Actor
	Role     prescription.Role
	Strategy actor.Strategy
	Override *prescription.Override
}

func (c AbortConfig) Validate() error {
	if c.Actor == nil {
		return fmt.Errorf("abort: actor is required")
	}
	return nil
}

// RejectConfig describes a dispensing party returning an accepted
// prescription.
type RejectConfig struct {
	Pharmacy *actor.Actor
	Strategy actor.Strategy
	Override *prescription.Override
}

func (c RejectConfig) Validate() error {
	if c.Pharmacy == nil {
		return fmt.Errorf("reject: pharmacy is required")
	}
	return nil
}

// CommunicateConfig describes sending a typed message referencing one of
// the sender's prescriptions.
type CommunicateConfig struct {
	Sender     *actor.Actor
	SenderRole prescription.Role
	Recipient  *actor.Actor
	Profile    string
	Strategy   actor.Strategy
	Payload    string
}

func (c CommunicateConfig) Validate() error {
	if c.Sender == nil || c.Recipient == nil {
		return fmt.Errorf("communicate: sender and recipient are required")
	}
	switch c.Profile {
	case erxmodels.CommInfoReq, erxmodels.CommDispReq, erxmodels.CommReply,
		erxmodels.CommRepresentative, erxmodels.CommChargChangeReq, erxmodels.CommChargChangeReply:
		return nil
	default:
		return fmt.Errorf("communicate: unknown profile %q", c.Profile)
	}
}

// ChargeItemPostConfig describes a dispensing party posting the billing
// record for a dispensed prescription.
type ChargeItemPostConfig struct {
	Pharmacy *actor.Actor
	Patient  *actor.Actor
	Strategy actor.Strategy
	Invoice  string
}

func (c ChargeItemPostConfig) Validate() error {
	if c.Pharmacy == nil || c.Patient == nil {
		return fmt.Errorf("charge item post: pharmacy and patient are required")
	}
	return nil
}

// ChargeItemAmendConfig describes a dispensing party amending a billing
// record it was authorized for.
type ChargeItemAmendConfig struct {
	Pharmacy *actor.Actor
	Patient  *actor.Actor
	Strategy actor.Strategy
	Invoice  string
	Override *prescription.Override
}

func (c ChargeItemAmendConfig) Validate() error {
	if c.Pharmacy == nil || c.Patient == nil {
		return fmt.Errorf("charge item amend: pharmacy and patient are required")
	}
	return nil
}
