package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ehr/erx-harness/internal/domain/actor"
	"github.com/ehr/erx-harness/internal/domain/prescription"
	"github.com/ehr/erx-harness/internal/platform/signer"
	"github.com/ehr/erx-harness/pkg/erxmodels"
)

// prescriptionDocument is the clinical document the prescriber signs.
// The harness treats the signed result as opaque from here on.
type prescriptionDocument struct {
	Patient      string              `json:"patient"`
	Prescriber   string              `json:"prescriber"`
	WorkflowType string              `json:"workflowType"`
	Medication   erxmodels.Medication `json:"medication"`
	AuthoredOn   time.Time           `json:"authoredOn"`
}

// Issue creates and activates a prescription task. For the regular
// workflow flavors the result carries an access code; the
// direct-assignment flavors never expose one.
func (s *Service) Issue(ctx context.Context, cfg IssueConfig) (rec *prescription.Record, err error) {
	start := time.Now()
	defer func() { s.record(ctx, "task-issue", cfg.Prescriber, start, err) }()

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	issued, err := actor.Resolve[*prescription.Issued](cfg.Prescriber, actor.Prescribes)
	if err != nil {
		return nil, err
	}

	doctor := identity(cfg.Prescriber, prescription.Doctor)
	created, err := s.client.TaskCreate(ctx, doctor, cfg.WorkflowType)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	authored := time.Now()
	doc, err := json.Marshal(prescriptionDocument{
		Patient:      cfg.Patient.Name,
		Prescriber:   cfg.Prescriber.Name,
		WorkflowType: cfg.WorkflowType,
		Medication:   cfg.Medication,
		AuthoredOn:   authored,
	})
	if err != nil {
		return nil, fmt.Errorf("encode prescription document: %w", err)
	}
	signed, err := s.signer.Sign(doc, signer.PrescriberCredential)
	if err != nil {
		return nil, fmt.Errorf("sign prescription: %w", err)
	}

	if _, err = s.client.TaskActivate(ctx, doctor, created.TaskID, created.AccessCode, cfg.Patient.Name, signed); err != nil {
		return nil, fmt.Errorf("activate task: %w", err)
	}

	state := prescription.Assigned
	if erxmodels.IsDirectAssignment(cfg.WorkflowType) {
		state = prescription.DirectlyAssigned
	}
	rec = &prescription.Record{
		TaskID:       created.TaskID,
		AccessCode:   created.AccessCode,
		State:        state,
		Origin:       prescription.OriginIssued,
		WorkflowType: cfg.WorkflowType,
		Medication:   cfg.Medication,
		Payload:      string(signed),
		AuthoredOn:   authored,
	}
	issued.Records.Append(rec)

	s.log.Info().
		Str("actor", cfg.Prescriber.Name).
		Str("task_id", rec.TaskID).
		Str("workflow_type", cfg.WorkflowType).
		Bool("direct", rec.DirectAssigned()).
		Msg("prescription issued")
	return rec, nil
}

// Download fetches one of the prescriber's issued prescriptions into the
// patient's pocket, matched by task identifier.
func (s *Service) Download(ctx context.Context, cfg DownloadConfig) (rec *prescription.Record, err error) {
	start := time.Now()
	defer func() { s.record(ctx, "task-download", cfg.Patient, start, err) }()

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	pocket, err := actor.Resolve[*prescription.Pocket](cfg.Patient, actor.ReceivesPrescriptions)
	if err != nil {
		return nil, err
	}
	issued, err := actor.Resolve[*prescription.Issued](cfg.Prescriber, actor.Prescribes)
	if err != nil {
		return nil, err
	}
	source, err := issued.Records.Pick(cfg.Strategy)
	if err != nil {
		return nil, fmt.Errorf("pick issued prescription of %s: %w", cfg.Prescriber.Name, err)
	}

	task, err := s.client.TaskGet(ctx, identity(cfg.Patient, prescription.Patient), source.TaskID, source.AccessCode)
	if err != nil {
		return nil, fmt.Errorf("download task %s: %w", source.TaskID, err)
	}

	rec = source.Clone()
	rec.Origin = prescription.OriginOwner
	rec.Payload = task.Prescription
	// A later fetch of an already tracked prescription refreshes the
	// stored snapshot instead of duplicating it.
	pocket.Records.Update(rec)
	return rec, nil
}

// HandOver copies a prescription record to another actor by sharing the
// access code out-of-band. The receiver acts through the code from then
// on.
func (s *Service) HandOver(ctx context.Context, cfg HandOverConfig) (rec *prescription.Record, err error) {
	start := time.Now()
	defer func() { s.record(ctx, "task-hand-over", cfg.From, start, err) }()

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	source, err := prescriptionsOf(cfg.From)
	if err != nil {
		return nil, err
	}
	target, err := actor.Resolve[*prescription.Pocket](cfg.To, actor.ReceivesPrescriptions)
	if err != nil {
		return nil, err
	}
	picked, err := source.Pick(cfg.Strategy)
	if err != nil {
		return nil, fmt.Errorf("pick prescription of %s: %w", cfg.From.Name, err)
	}
	if picked.AccessCode == "" {
		return nil, fmt.Errorf("task %s: cannot hand over without an access code", picked.TaskID)
	}

	rec = picked.Clone()
	rec.Origin = prescription.OriginHandover
	target.Records.Append(rec)
	return rec, nil
}

// Abort cancels a prescription with the role-appropriate token. The
// record leaves its active store once the service confirms.
func (s *Service) Abort(ctx context.Context, cfg AbortConfig) (err error) {
	start := time.Now()
	defer func() { s.record(ctx, "task-abort", cfg.Actor, start, err) }()

	if err = cfg.Validate(); err != nil {
		return err
	}

	var store *actor.OrderedStore[*prescription.Record]
	var retired *actor.OrderedStore[*prescription.Record]
	switch cfg.Role {
	case prescription.Pharmacy:
		disp, rerr := actor.Resolve[*prescription.Dispensing](cfg.Actor, actor.DispensesPrescriptions)
		if rerr != nil {
			return rerr
		}
		store, retired = disp.Accepted, disp.Aborted
	default:
		store, err = prescriptionsOf(cfg.Actor)
		if err != nil {
			return err
		}
	}

	rec, err := store.Pick(cfg.Strategy)
	if err != nil {
		return fmt.Errorf("pick prescription of %s: %w", cfg.Actor.Name, err)
	}
	tok, err := prescription.TokenFor(cfg.Role, rec)
	if err != nil {
		return err
	}
	tok = cfg.Override.Apply(tok)

	if err = s.client.TaskAbort(ctx, identity(cfg.Actor, cfg.Role), rec.TaskID, tok.AccessCode, tok.Secret); err != nil {
		return fmt.Errorf("abort task %s: %w", rec.TaskID, err)
	}

	if terr := prescription.Transition(rec, prescription.Aborted); terr != nil {
		// The service accepted the abort; the local mirror follows it.
		s.log.Warn().Err(terr).Str("task_id", rec.TaskID).Msg("local state lagged behind confirmed abort")
		rec.State = prescription.Aborted
	}
	store.Remove(rec.TaskID)
	if retired != nil {
		retired.Append(rec)
	}
	return nil
}
