package erxmodels

import "time"

// Workflow type codes carried in Task.extension on $create. The 1xx codes
// cover statutory insurance, the 2xx codes private insurance; the x69/x09
// variants are the direct-assignment flavors that never expose an
// owner-facing access code.
const (
	WorkflowPharmacyOnly        = "160"
	WorkflowDirectAssignment    = "169"
	WorkflowPrivatePharmacyOnly = "200"
	WorkflowPrivateDirect       = "209"
)

// IsDirectAssignment reports whether a workflow type code denotes the
// direct-assignment flavor.
func IsDirectAssignment(workflowType string) bool {
	return workflowType == WorkflowDirectAssignment || workflowType == WorkflowPrivateDirect
}

// Task status values on the wire, per the prescription workflow service.
const (
	TaskStatusDraft      = "draft"
	TaskStatusReady      = "ready"
	TaskStatusInProgress = "in-progress"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
)

// Communication profile codes. The receiver acts on the referenced
// prescription or charge item via the access code embedded in BasedOn.
const (
	CommInfoReq          = "info-req"
	CommDispReq          = "disp-req"
	CommReply            = "reply"
	CommRepresentative   = "representative"
	CommChargChangeReq   = "charg-change-req"
	CommChargChangeReply = "charg-change-reply"
)

// Task is the wire representation of a prescription task.
type Task struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	WorkflowType string `json:"workflowType"`
	AccessCode   string `json:"accessCode,omitempty"`
	// Prescription is the signed clinical document, attached at $activate.
	Prescription string     `json:"prescription,omitempty"`
	AuthoredOn   *time.Time `json:"authoredOn,omitempty"`
	LastModified *time.Time `json:"lastModified,omitempty"`
}

// Medication describes the prescribed (or dispensed) drug. The harness
// treats the fields as opaque scenario data.
type Medication struct {
	PZN      string `json:"pzn"`
	Name     string `json:"name"`
	Form     string `json:"form,omitempty"`
	Quantity int    `json:"quantity,omitempty"`
}

// DispenseData accompanies $close and records what was actually handed
// out, which may substitute the prescribed medication.
type DispenseData struct {
	Medication Medication `json:"medication"`
	WhenHanded *time.Time `json:"whenHanded,omitempty"`
	Substitute bool       `json:"substitute,omitempty"`
}

// Receipt is returned by a successful $close.
type Receipt struct {
	TaskID    string    `json:"taskId"`
	Timestamp time.Time `json:"timestamp"`
	Signature string    `json:"signature,omitempty"`
}

// Communication is the wire representation of an asynchronous message
// between participants.
type Communication struct {
	ID      string     `json:"id,omitempty"`
	Profile string     `json:"profile"`
	Sender  string     `json:"sender,omitempty"`
	// Recipient is the display identity of the receiving participant.
	Recipient string `json:"recipient"`
	// BasedOn references the underlying resource, e.g.
	// "Task/<id>?ac=<accessCode>" or "ChargeItem/<id>?ac=<accessCode>".
	BasedOn string     `json:"basedOn"`
	Payload string     `json:"payload,omitempty"`
	Sent    *time.Time `json:"sent,omitempty"`
}

// ChargeItem is the billing record derived from a dispensed prescription.
type ChargeItem struct {
	ID         string     `json:"id"`
	TaskID     string     `json:"taskId"`
	Patient    string     `json:"patient"`
	Enterer    string     `json:"enterer,omitempty"`
	AccessCode string     `json:"accessCode,omitempty"`
	Invoice    string     `json:"invoice,omitempty"`
	EnteredAt  *time.Time `json:"enteredAt,omitempty"`
}

// Consent records a patient's agreement to charge-item creation.
type Consent struct {
	Patient   string    `json:"patient"`
	GrantedAt time.Time `json:"grantedAt"`
}

// OperationOutcome carries the service's diagnostic detail for a
// non-success response.
type OperationOutcome struct {
	Code        string `json:"code"`
	Diagnostics string `json:"diagnostics,omitempty"`
}
