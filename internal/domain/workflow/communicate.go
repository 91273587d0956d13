package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/erx-harness/internal/domain/actor"
	"github.com/ehr/erx-harness/internal/domain/communication"
	"github.com/ehr/erx-harness/pkg/erxmodels"
)

// SendMessage posts a typed communication referencing one of the
// sender's prescriptions, carrying the access code the receiver needs to
// act on the reference.
func (s *Service) SendMessage(ctx context.Context, cfg CommunicateConfig) (msg *communication.Message, err error) {
	start := time.Now()
	defer func() { s.record(ctx, "communication-post", cfg.Sender, start, err) }()

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	exchange, err := actor.Resolve[*communication.Exchange](cfg.Sender, actor.ExchangesMessages)
	if err != nil {
		return nil, err
	}
	source, err := prescriptionsOf(cfg.Sender)
	if err != nil {
		return nil, err
	}
	rec, err := source.Pick(cfg.Strategy)
	if err != nil {
		return nil, fmt.Errorf("pick prescription of %s: %w", cfg.Sender.Name, err)
	}

	sent := time.Now()
	wire := erxmodels.Communication{
		Profile:   cfg.Profile,
		Recipient: cfg.Recipient.Name,
		BasedOn:   erxmodels.FormatReference("Task", rec.TaskID, rec.AccessCode),
		Payload:   cfg.Payload,
		Sent:      &sent,
	}
	out, err := s.client.CommunicationPost(ctx, identity(cfg.Sender, cfg.SenderRole), wire)
	if err != nil {
		return nil, fmt.Errorf("post communication: %w", err)
	}

	msg = &communication.Message{
		LocalID:    uuid.NewString(),
		ID:         out.ID,
		Profile:    cfg.Profile,
		Sender:     cfg.Sender.Name,
		Recipient:  cfg.Recipient.Name,
		TaskID:     rec.TaskID,
		AccessCode: rec.AccessCode,
		Payload:    cfg.Payload,
		Sent:       sent,
	}
	exchange.Sent.Append(msg)
	return msg, nil
}
