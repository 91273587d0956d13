package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/ehr/erx-harness/internal/domain/actor"
	"github.com/ehr/erx-harness/internal/domain/chargeitem"
	"github.com/ehr/erx-harness/internal/domain/prescription"
	"github.com/ehr/erx-harness/pkg/erxmodels"
)

// GrantConsent records the patient's agreement to charge-item creation
// with the service and locally.
func (s *Service) GrantConsent(ctx context.Context, patient *actor.Actor) (err error) {
	start := time.Now()
	defer func() { s.record(ctx, "consent-grant", patient, start, err) }()

	billing, err := actor.Resolve[*chargeitem.Billing](patient, actor.AuthorizesChargeItems)
	if err != nil {
		return err
	}
	if err = s.client.ConsentGrant(ctx, identity(patient, prescription.Patient)); err != nil {
		return fmt.Errorf("grant consent: %w", err)
	}
	billing.Consent = true
	return nil
}

// RevokeConsent withdraws the patient's charge-item consent.
func (s *Service) RevokeConsent(ctx context.Context, patient *actor.Actor) (err error) {
	start := time.Now()
	defer func() { s.record(ctx, "consent-revoke", patient, start, err) }()

	billing, err := actor.Resolve[*chargeitem.Billing](patient, actor.AuthorizesChargeItems)
	if err != nil {
		return err
	}
	if err = s.client.ConsentRevoke(ctx, identity(patient, prescription.Patient)); err != nil {
		return fmt.Errorf("revoke consent: %w", err)
	}
	billing.Consent = false
	return nil
}

// PostChargeItem creates the billing record for a dispensed
// prescription. The service refuses it unless the patient consented.
func (s *Service) PostChargeItem(ctx context.Context, cfg ChargeItemPostConfig) (rec *chargeitem.Record, err error) {
	start := time.Now()
	defer func() { s.record(ctx, "charge-item-post", cfg.Pharmacy, start, err) }()

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	account, err := actor.Resolve[*chargeitem.Account](cfg.Pharmacy, actor.ManagesChargeItems)
	if err != nil {
		return nil, err
	}
	disp, err := actor.Resolve[*prescription.Dispensing](cfg.Pharmacy, actor.DispensesPrescriptions)
	if err != nil {
		return nil, err
	}
	dispensed, err := disp.Dispensed.Pick(cfg.Strategy)
	if err != nil {
		return nil, fmt.Errorf("pick dispensed prescription: %w", err)
	}

	item := erxmodels.ChargeItem{
		TaskID:  dispensed.TaskID,
		Patient: cfg.Patient.Name,
		Enterer: cfg.Pharmacy.Name,
		Invoice: cfg.Invoice,
	}
	out, err := s.client.ChargeItemPost(ctx, identity(cfg.Pharmacy, prescription.Pharmacy), dispensed.TaskID, dispensed.Secret, item)
	if err != nil {
		return nil, fmt.Errorf("post charge item for task %s: %w", dispensed.TaskID, err)
	}

	rec = &chargeitem.Record{
		ItemID:     out.ID,
		TaskID:     out.TaskID,
		Patient:    cfg.Patient.Name,
		AccessCode: out.AccessCode,
		Invoice:    cfg.Invoice,
		EnteredAt:  time.Now(),
	}
	account.Items.Append(rec)
	return rec, nil
}

// AmendChargeItem updates a billing record using the edit rights the
// patient handed over. Without a recorded grant the operation fails
// locally; with a token override the scenario can probe the service's
// own refusal.
func (s *Service) AmendChargeItem(ctx context.Context, cfg ChargeItemAmendConfig) (rec *chargeitem.Record, err error) {
	start := time.Now()
	defer func() { s.record(ctx, "charge-item-put", cfg.Pharmacy, start, err) }()

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	account, err := actor.Resolve[*chargeitem.Account](cfg.Pharmacy, actor.ManagesChargeItems)
	if err != nil {
		return nil, err
	}
	stored, err := account.Items.Pick(cfg.Strategy)
	if err != nil {
		return nil, fmt.Errorf("pick charge item: %w", err)
	}

	code, granted, err := s.charges.AccessCodeFor(cfg.Patient, cfg.Pharmacy.Name, stored.TaskID)
	if err != nil {
		return nil, err
	}
	var tok prescription.Token
	switch {
	case granted:
		tok.AccessCode = code
	case cfg.Override == nil:
		return nil, &chargeitem.UnauthorizedAmendmentError{Party: cfg.Pharmacy.Name, PrescriptionID: stored.TaskID}
	default:
		// Override-only path for probing the service's own refusal.
		tok.AccessCode = stored.AccessCode
	}
	tok = cfg.Override.Apply(tok)

	item := erxmodels.ChargeItem{
		ID:      stored.ItemID,
		TaskID:  stored.TaskID,
		Patient: cfg.Patient.Name,
		Enterer: cfg.Pharmacy.Name,
		Invoice: cfg.Invoice,
	}
	out, err := s.client.ChargeItemPut(ctx, identity(cfg.Pharmacy, prescription.Pharmacy), stored.ItemID, tok.AccessCode, item)
	if err != nil {
		return nil, fmt.Errorf("amend charge item %s: %w", stored.ItemID, err)
	}

	updated := *stored
	updated.Invoice = out.Invoice
	if out.AccessCode != "" {
		updated.AccessCode = out.AccessCode
	}
	account.Items.Update(&updated)
	return &updated, nil
}
