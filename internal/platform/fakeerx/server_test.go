package fakeerx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/erx-harness/internal/platform/protocol"
	"github.com/ehr/erx-harness/internal/platform/signer"
	"github.com/ehr/erx-harness/pkg/erxmodels"
)

var (
	doctor   = protocol.Identity{Name: "Dr. Schraßer", Role: "doctor"}
	patient  = protocol.Identity{Name: "Sina Hüllmann", Role: "patient"}
	pharmacy = protocol.Identity{Name: "Stadtapotheke", Role: "pharmacy"}
)

func setup(t *testing.T) (*protocol.HTTPClient, *httptest.Server) {
	t.Helper()
	key := []byte("fakeerx-test-key")
	srv := httptest.NewServer(New(key, zerolog.Nop()))
	t.Cleanup(srv.Close)
	client := protocol.NewHTTPClient(srv.URL, signer.NewJWSSigner(key, "fakeerx-test"), zerolog.Nop())
	return client, srv
}

func issueReady(t *testing.T, client *protocol.HTTPClient, workflowType string) protocol.CreateResult {
	t.Helper()
	ctx := context.Background()
	created, err := client.TaskCreate(ctx, doctor, workflowType)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = client.TaskActivate(ctx, doctor, created.TaskID, created.AccessCode, patient.Name, []byte("signed"))
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	return created
}

func TestTaskLifecycle_HappyPath(t *testing.T) {
	client, _ := setup(t)
	ctx := context.Background()

	created := issueReady(t, client, erxmodels.WorkflowPharmacyOnly)
	if created.AccessCode == "" {
		t.Fatal("regular workflow must mint an access code")
	}

	accepted, err := client.TaskAccept(ctx, pharmacy, created.TaskID, created.AccessCode)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Secret == "" {
		t.Fatal("accept must mint a secret")
	}
	if accepted.Task.Status != erxmodels.TaskStatusInProgress {
		t.Errorf("expected in-progress, got %s", accepted.Task.Status)
	}

	handed := time.Now()
	receipt, err := client.TaskClose(ctx, pharmacy, created.TaskID, accepted.Secret, erxmodels.DispenseData{
		Medication: erxmodels.Medication{Name: "Ibuprofen"},
		WhenHanded: &handed,
	})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if receipt.TaskID != created.TaskID || receipt.Signature == "" {
		t.Errorf("unexpected receipt %+v", receipt)
	}
}

func TestTaskCreate_DirectAssignmentHasNoAccessCode(t *testing.T) {
	client, _ := setup(t)
	created := issueReady(t, client, erxmodels.WorkflowDirectAssignment)
	if created.AccessCode != "" {
		t.Fatal("direct assignment must not mint an access code")
	}
	// The dispensing party still accepts, without a code.
	if _, err := client.TaskAccept(context.Background(), pharmacy, created.TaskID, ""); err != nil {
		t.Fatalf("accept: %v", err)
	}
}

func TestTaskAccept_WrongAccessCode(t *testing.T) {
	client, _ := setup(t)
	created := issueReady(t, client, erxmodels.WorkflowPharmacyOnly)

	_, err := client.TaskAccept(context.Background(), pharmacy, created.TaskID, "wrong")
	if !protocol.IsKind(err, protocol.KindAuthorization) {
		t.Fatalf("expected authorization failure, got %v", err)
	}
}

func TestTaskAccept_DoubleAcceptConflicts(t *testing.T) {
	client, _ := setup(t)
	ctx := context.Background()
	created := issueReady(t, client, erxmodels.WorkflowPharmacyOnly)

	first, err := client.TaskAccept(ctx, pharmacy, created.TaskID, created.AccessCode)
	if err != nil {
		t.Fatalf("first accept: %v", err)
	}
	_, err = client.TaskAccept(ctx, pharmacy, created.TaskID, created.AccessCode)
	if !protocol.IsKind(err, protocol.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	// The failed second attempt must not invalidate the first secret.
	_, err = client.TaskClose(ctx, pharmacy, created.TaskID, first.Secret, erxmodels.DispenseData{
		Medication: erxmodels.Medication{Name: "Ibuprofen"},
	})
	if err != nil {
		t.Fatalf("close with original secret after failed re-accept: %v", err)
	}
}

func TestTaskClose_Guards(t *testing.T) {
	client, _ := setup(t)
	ctx := context.Background()
	created := issueReady(t, client, erxmodels.WorkflowPharmacyOnly)
	accepted, err := client.TaskAccept(ctx, pharmacy, created.TaskID, created.AccessCode)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	dispense := erxmodels.DispenseData{Medication: erxmodels.Medication{Name: "Ibuprofen"}}
	if _, err := client.TaskClose(ctx, pharmacy, created.TaskID, "wrong", dispense); !protocol.IsKind(err, protocol.KindAuthorization) {
		t.Fatalf("expected authorization failure, got %v", err)
	}
	if _, err := client.TaskClose(ctx, pharmacy, created.TaskID, accepted.Secret, dispense); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Second close hits a terminal task.
	if _, err := client.TaskClose(ctx, pharmacy, created.TaskID, accepted.Secret, dispense); !protocol.IsKind(err, protocol.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestTaskAbort_MakesTaskGone(t *testing.T) {
	client, _ := setup(t)
	ctx := context.Background()
	created := issueReady(t, client, erxmodels.WorkflowPharmacyOnly)

	if err := client.TaskAbort(ctx, doctor, created.TaskID, created.AccessCode, ""); err != nil {
		t.Fatalf("abort: %v", err)
	}
	_, err := client.TaskGet(ctx, patient, created.TaskID, "")
	if !protocol.IsKind(err, protocol.KindGone) {
		t.Fatalf("expected gone, got %v", err)
	}
	_, err = client.TaskAccept(ctx, pharmacy, created.TaskID, created.AccessCode)
	if !protocol.IsKind(err, protocol.KindGone) {
		t.Fatalf("expected gone on accept, got %v", err)
	}
}

func TestTaskAbort_DispensingPartyNeedsBothCredentials(t *testing.T) {
	client, _ := setup(t)
	ctx := context.Background()
	created := issueReady(t, client, erxmodels.WorkflowPharmacyOnly)
	accepted, err := client.TaskAccept(ctx, pharmacy, created.TaskID, created.AccessCode)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	err = client.TaskAbort(ctx, pharmacy, created.TaskID, "wrong", accepted.Secret)
	if !protocol.IsKind(err, protocol.KindAuthorization) {
		t.Fatalf("expected authorization failure with wrong access code, got %v", err)
	}
	if err := client.TaskAbort(ctx, pharmacy, created.TaskID, created.AccessCode, accepted.Secret); err != nil {
		t.Fatalf("abort with both credentials: %v", err)
	}
}

func TestTaskAbort_DirectAssignmentDeniedToPatient(t *testing.T) {
	client, _ := setup(t)
	created := issueReady(t, client, erxmodels.WorkflowDirectAssignment)

	err := client.TaskAbort(context.Background(), patient, created.TaskID, "", "")
	if !protocol.IsKind(err, protocol.KindAuthorization) {
		t.Fatalf("expected authorization failure, got %v", err)
	}
}

func TestTaskReject_InvalidatesSecret(t *testing.T) {
	client, _ := setup(t)
	ctx := context.Background()
	created := issueReady(t, client, erxmodels.WorkflowPharmacyOnly)
	accepted, err := client.TaskAccept(ctx, pharmacy, created.TaskID, created.AccessCode)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	if err := client.TaskReject(ctx, pharmacy, created.TaskID, accepted.Secret); err != nil {
		t.Fatalf("reject: %v", err)
	}
	// Re-armed: a second pharmacy accepts and gets a fresh secret.
	second, err := client.TaskAccept(ctx, pharmacy, created.TaskID, created.AccessCode)
	if err != nil {
		t.Fatalf("re-accept: %v", err)
	}
	if second.Secret == accepted.Secret {
		t.Fatal("rejected secret must not be reissued")
	}
	// The old secret no longer closes the task.
	_, err = client.TaskClose(ctx, pharmacy, created.TaskID, accepted.Secret, erxmodels.DispenseData{
		Medication: erxmodels.Medication{Name: "Ibuprofen"},
	})
	if !protocol.IsKind(err, protocol.KindAuthorization) {
		t.Fatalf("expected authorization failure with stale secret, got %v", err)
	}
}

func TestIdentityChannel_PatientReadsOwnTask(t *testing.T) {
	client, _ := setup(t)
	created := issueReady(t, client, erxmodels.WorkflowPharmacyOnly)

	task, err := client.TaskGet(context.Background(), patient, created.TaskID, "")
	if err != nil {
		t.Fatalf("owner fetch without access code: %v", err)
	}
	if task.Prescription == "" {
		t.Error("owner fetch must return the signed document")
	}

	stranger := protocol.Identity{Name: "Somebody Else", Role: "patient"}
	_, err = client.TaskGet(context.Background(), stranger, created.TaskID, "")
	if !protocol.IsKind(err, protocol.KindAuthorization) {
		t.Fatalf("expected authorization failure for stranger, got %v", err)
	}
}

func TestCommunication_DeliveredExactlyOnce(t *testing.T) {
	client, _ := setup(t)
	ctx := context.Background()

	_, err := client.CommunicationPost(ctx, patient, erxmodels.Communication{
		Profile:   erxmodels.CommDispReq,
		Recipient: pharmacy.Name,
		BasedOn:   "Task/t1?ac=abc",
		Payload:   "please dispense",
	})
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	got, err := client.CommunicationGetNew(ctx, pharmacy)
	if err != nil {
		t.Fatalf("get new: %v", err)
	}
	if len(got) != 1 || got[0].Sender != patient.Name {
		t.Fatalf("unexpected delivery %+v", got)
	}
	again, err := client.CommunicationGetNew(ctx, pharmacy)
	if err != nil {
		t.Fatalf("get new again: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("message delivered twice: %+v", again)
	}
}

func TestChargeItem_RequiresConsent(t *testing.T) {
	client, _ := setup(t)
	ctx := context.Background()
	created := issueReady(t, client, erxmodels.WorkflowPharmacyOnly)
	accepted, _ := client.TaskAccept(ctx, pharmacy, created.TaskID, created.AccessCode)
	_, err := client.TaskClose(ctx, pharmacy, created.TaskID, accepted.Secret, erxmodels.DispenseData{
		Medication: erxmodels.Medication{Name: "Ibuprofen"},
	})
	if err != nil {
		t.Fatalf("close: %v", err)
	}

	item := erxmodels.ChargeItem{Invoice: "12.80 EUR"}
	_, err = client.ChargeItemPost(ctx, pharmacy, created.TaskID, accepted.Secret, item)
	if !protocol.IsKind(err, protocol.KindPrecondition) {
		t.Fatalf("expected precondition failure without consent, got %v", err)
	}

	if err := client.ConsentGrant(ctx, patient); err != nil {
		t.Fatalf("consent: %v", err)
	}
	posted, err := client.ChargeItemPost(ctx, pharmacy, created.TaskID, accepted.Secret, item)
	if err != nil {
		t.Fatalf("post with consent: %v", err)
	}
	if posted.AccessCode == "" {
		t.Fatal("charge item must mint its own access code")
	}

	// Amendment needs the charge item's access code.
	posted.Invoice = "14.20 EUR"
	if _, err := client.ChargeItemPut(ctx, pharmacy, posted.ID, "wrong", posted); !protocol.IsKind(err, protocol.KindAuthorization) {
		t.Fatalf("expected authorization failure, got %v", err)
	}
	updated, err := client.ChargeItemPut(ctx, pharmacy, posted.ID, posted.AccessCode, posted)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if updated.Invoice != "14.20 EUR" {
		t.Errorf("invoice not updated: %+v", updated)
	}
}

func TestAuthentication_RejectsMissingBearer(t *testing.T) {
	_, srv := setup(t)
	resp, err := http.Get(srv.URL + "/Task/some-id")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
