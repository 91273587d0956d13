package protocol

import (
	"context"

	"github.com/ehr/erx-harness/pkg/erxmodels"
)

// Identity names the participant a request acts as. The transport turns
// it into the bearer credential the service authenticates.
type Identity struct {
	Name string
	Role string
}

// CreateResult is returned by TaskCreate. AccessCode is empty for
// direct-assignment workflow types.
type CreateResult struct {
	TaskID     string
	AccessCode string
}

// AcceptResult carries the secret minted for the accepting party.
type AcceptResult struct {
	Task   erxmodels.Task
	Secret string
}

// Client is the remote workflow service at its interface boundary. Every
// call blocks until a response or definitive failure; non-success maps
// to *OutcomeError. Implementations never retry.
type Client interface {
	TaskCreate(ctx context.Context, as Identity, workflowType string) (CreateResult, error)
	TaskActivate(ctx context.Context, as Identity, taskID, accessCode, forPatient string, signedDoc []byte) (erxmodels.Task, error)
	TaskGet(ctx context.Context, as Identity, taskID, accessCode string) (erxmodels.Task, error)
	TaskAccept(ctx context.Context, as Identity, taskID, accessCode string) (AcceptResult, error)
	TaskClose(ctx context.Context, as Identity, taskID, secret string, dispense erxmodels.DispenseData) (erxmodels.Receipt, error)
	TaskAbort(ctx context.Context, as Identity, taskID, accessCode, secret string) error
	TaskReject(ctx context.Context, as Identity, taskID, secret string) error

	CommunicationPost(ctx context.Context, as Identity, comm erxmodels.Communication) (erxmodels.Communication, error)
	CommunicationGetNew(ctx context.Context, as Identity) ([]erxmodels.Communication, error)

	ChargeItemPost(ctx context.Context, as Identity, taskID, secret string, item erxmodels.ChargeItem) (erxmodels.ChargeItem, error)
	ChargeItemPut(ctx context.Context, as Identity, itemID, accessCode string, item erxmodels.ChargeItem) (erxmodels.ChargeItem, error)
	ChargeItemGet(ctx context.Context, as Identity, itemID, accessCode string) (erxmodels.ChargeItem, error)

	ConsentGrant(ctx context.Context, as Identity) error
	ConsentRevoke(ctx context.Context, as Identity) error
}
