package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/ehr/erx-harness/internal/domain/actor"
	"github.com/ehr/erx-harness/internal/domain/prescription"
	"github.com/ehr/erx-harness/pkg/erxmodels"
)

// Accept claims a prescription held by another actor for dispensing.
// The service mints a secret that gates every later transition by the
// dispensing party.
func (s *Service) Accept(ctx context.Context, cfg AcceptConfig) (rec *prescription.Record, err error) {
	start := time.Now()
	defer func() { s.record(ctx, "task-accept", cfg.Pharmacy, start, err) }()

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	disp, err := actor.Resolve[*prescription.Dispensing](cfg.Pharmacy, actor.DispensesPrescriptions)
	if err != nil {
		return nil, err
	}
	source, err := prescriptionsOf(cfg.From)
	if err != nil {
		return nil, err
	}
	picked, err := source.Pick(cfg.Strategy)
	if err != nil {
		return nil, fmt.Errorf("pick prescription of %s: %w", cfg.From.Name, err)
	}

	tok := cfg.Override.Apply(prescription.Token{AccessCode: picked.AccessCode})

	res, err := s.client.TaskAccept(ctx, identity(cfg.Pharmacy, prescription.Pharmacy), picked.TaskID, tok.AccessCode)
	if err != nil {
		return nil, fmt.Errorf("accept task %s: %w", picked.TaskID, err)
	}

	rec = picked.Clone()
	rec.Secret = res.Secret
	if terr := prescription.Transition(rec, prescription.Accepted); terr != nil {
		rec.State = prescription.Accepted
	}
	disp.Accepted.Append(rec)

	s.log.Info().
		Str("actor", cfg.Pharmacy.Name).
		Str("task_id", rec.TaskID).
		Msg("prescription accepted")
	return rec, nil
}

// Dispense closes an accepted prescription, optionally substituting the
// medication. On success the record retires into the dispensed store and
// the patient, when named, receives the drug.
func (s *Service) Dispense(ctx context.Context, cfg DispenseConfig) (receipt erxmodels.Receipt, err error) {
	start := time.Now()
	defer func() { s.record(ctx, "task-close", cfg.Pharmacy, start, err) }()

	if err = cfg.Validate(); err != nil {
		return erxmodels.Receipt{}, err
	}
	disp, err := actor.Resolve[*prescription.Dispensing](cfg.Pharmacy, actor.DispensesPrescriptions)
	if err != nil {
		return erxmodels.Receipt{}, err
	}
	rec, err := disp.Accepted.Pick(cfg.Strategy)
	if err != nil {
		return erxmodels.Receipt{}, fmt.Errorf("pick accepted prescription: %w", err)
	}

	tok, err := prescription.TokenFor(prescription.Pharmacy, rec)
	if err != nil {
		return erxmodels.Receipt{}, err
	}
	tok = cfg.Override.Apply(tok)

	handed := time.Now()
	data := erxmodels.DispenseData{Medication: rec.Medication, WhenHanded: &handed}
	if cfg.Substitute != nil {
		data.Medication = *cfg.Substitute
		data.Substitute = true
	}

	receipt, err = s.client.TaskClose(ctx, identity(cfg.Pharmacy, prescription.Pharmacy), rec.TaskID, tok.Secret, data)
	if err != nil {
		return erxmodels.Receipt{}, fmt.Errorf("close task %s: %w", rec.TaskID, err)
	}

	if terr := prescription.Transition(rec, prescription.Dispensed); terr != nil {
		rec.State = prescription.Dispensed
	}
	disp.Accepted.Remove(rec.TaskID)
	disp.Dispensed.Append(rec)

	if cfg.Patient != nil {
		if received, rerr := actor.Resolve[*prescription.ReceivedDrugs](cfg.Patient, actor.ReceivesDispensedDrugs); rerr == nil {
			received.Records.Append(&prescription.DispensedDrug{
				TaskID:     rec.TaskID,
				Medication: data.Medication,
				ReceivedAt: handed,
			})
		}
	}

	s.log.Info().
		Str("actor", cfg.Pharmacy.Name).
		Str("task_id", rec.TaskID).
		Bool("substituted", data.Substitute).
		Msg("prescription dispensed")
	return receipt, nil
}

// Reject returns an accepted prescription to the service. The secret is
// invalidated and the task re-armed for a different dispensing party.
func (s *Service) Reject(ctx context.Context, cfg RejectConfig) (err error) {
	start := time.Now()
	defer func() { s.record(ctx, "task-reject", cfg.Pharmacy, start, err) }()

	if err = cfg.Validate(); err != nil {
		return err
	}
	disp, err := actor.Resolve[*prescription.Dispensing](cfg.Pharmacy, actor.DispensesPrescriptions)
	if err != nil {
		return err
	}
	rec, err := disp.Accepted.Pick(cfg.Strategy)
	if err != nil {
		return fmt.Errorf("pick accepted prescription: %w", err)
	}

	tok, err := prescription.TokenFor(prescription.Pharmacy, rec)
	if err != nil {
		return err
	}
	tok = cfg.Override.Apply(tok)

	if err = s.client.TaskReject(ctx, identity(cfg.Pharmacy, prescription.Pharmacy), rec.TaskID, tok.Secret); err != nil {
		return fmt.Errorf("reject task %s: %w", rec.TaskID, err)
	}

	if terr := prescription.Transition(rec, prescription.Rejected); terr != nil {
		rec.State = prescription.Assigned
		rec.Secret = ""
	}
	disp.Accepted.Remove(rec.TaskID)
	return nil
}
