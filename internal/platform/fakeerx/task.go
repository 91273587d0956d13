package fakeerx

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/erx-harness/pkg/erxmodels"
)

func (s *Server) createTask(c echo.Context) error {
	id := caller(c)
	if id.Role != "doctor" {
		return outcome(c, http.StatusForbidden, "forbidden", "only prescribers create tasks")
	}
	workflowType := c.QueryParam("workflowType")
	switch workflowType {
	case erxmodels.WorkflowPharmacyOnly, erxmodels.WorkflowDirectAssignment,
		erxmodels.WorkflowPrivatePharmacyOnly, erxmodels.WorkflowPrivateDirect:
	default:
		return outcome(c, http.StatusBadRequest, "value", "unknown workflow type")
	}

	now := time.Now()
	task := &taskState{
		ID:           uuid.NewString(),
		WorkflowType: workflowType,
		Status:       erxmodels.TaskStatusDraft,
		Creator:      id.Name,
		AuthoredOn:   now,
		LastModified: now,
	}
	// Direct-assignment flavors never hand an access code to the caller.
	if !task.direct() {
		task.AccessCode = newCode()
	}

	s.mu.Lock()
	s.tasks[task.ID] = task
	s.mu.Unlock()

	s.log.Debug().Str("task_id", task.ID).Str("workflow_type", workflowType).Msg("task created")
	return c.JSON(http.StatusCreated, map[string]string{
		"taskId":     task.ID,
		"accessCode": task.AccessCode,
	})
}

type activateBody struct {
	SignedDocument string `json:"signedDocument"`
	Patient        string `json:"patient"`
}

func (s *Server) activateTask(c echo.Context) error {
	id := caller(c)
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[c.Param("id")]
	if !ok {
		return outcome(c, http.StatusNotFound, "not-found", "unknown task")
	}
	if task.Creator != id.Name {
		return outcome(c, http.StatusForbidden, "forbidden", "only the creating prescriber activates a task")
	}
	if task.Status != erxmodels.TaskStatusDraft {
		return outcome(c, http.StatusConflict, "conflict", "task is not a draft")
	}
	if !task.direct() && c.QueryParam("ac") != task.AccessCode {
		return outcome(c, http.StatusForbidden, "forbidden", "invalid access code")
	}

	var body activateBody
	if err := c.Bind(&body); err != nil {
		return outcome(c, http.StatusBadRequest, "value", "malformed activation body")
	}
	if body.SignedDocument == "" || body.Patient == "" {
		return outcome(c, http.StatusBadRequest, "value", "signed document and patient are required")
	}

	task.Document = body.SignedDocument
	task.Patient = body.Patient
	task.Status = erxmodels.TaskStatusReady
	task.LastModified = time.Now()
	return c.JSON(http.StatusOK, task.wire())
}

func (s *Server) getTask(c echo.Context) error {
	id := caller(c)
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[c.Param("id")]
	if !ok {
		return outcome(c, http.StatusNotFound, "not-found", "unknown task")
	}
	if task.Status == erxmodels.TaskStatusCancelled {
		return outcome(c, http.StatusGone, "deleted", "task was aborted")
	}

	ac := c.QueryParam("ac")
	authorized := (task.AccessCode != "" && ac == task.AccessCode) ||
		id.Name == task.Patient || id.Name == task.Creator
	if !authorized {
		return outcome(c, http.StatusForbidden, "forbidden", "invalid access code")
	}
	return c.JSON(http.StatusOK, task.wire())
}

func (s *Server) acceptTask(c echo.Context) error {
	id := caller(c)
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[c.Param("id")]
	if !ok {
		return outcome(c, http.StatusNotFound, "not-found", "unknown task")
	}
	if id.Role != "pharmacy" {
		return outcome(c, http.StatusForbidden, "forbidden", "only dispensing parties accept tasks")
	}
	switch task.Status {
	case erxmodels.TaskStatusCancelled:
		return outcome(c, http.StatusGone, "deleted", "task was aborted")
	case erxmodels.TaskStatusReady:
	default:
		return outcome(c, http.StatusConflict, "conflict", "task is not ready for acceptance")
	}
	if task.AccessCode != "" && c.QueryParam("ac") != task.AccessCode {
		return outcome(c, http.StatusForbidden, "forbidden", "invalid access code")
	}

	task.Secret = newCode()
	task.Status = erxmodels.TaskStatusInProgress
	task.LastModified = time.Now()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"task":   task.wire(),
		"secret": task.Secret,
	})
}

func (s *Server) closeTask(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[c.Param("id")]
	if !ok {
		return outcome(c, http.StatusNotFound, "not-found", "unknown task")
	}
	switch task.Status {
	case erxmodels.TaskStatusCancelled:
		return outcome(c, http.StatusGone, "deleted", "task was aborted")
	case erxmodels.TaskStatusInProgress:
	default:
		return outcome(c, http.StatusConflict, "conflict", "task is not in progress")
	}
	if c.QueryParam("secret") != task.Secret {
		return outcome(c, http.StatusForbidden, "forbidden", "invalid secret")
	}

	var dispense erxmodels.DispenseData
	if err := c.Bind(&dispense); err != nil {
		return outcome(c, http.StatusBadRequest, "value", "malformed dispense data")
	}
	if dispense.Medication.Name == "" {
		return outcome(c, http.StatusBadRequest, "value", "dispensed medication is required")
	}

	task.Status = erxmodels.TaskStatusCompleted
	task.LastModified = time.Now()
	return c.JSON(http.StatusOK, erxmodels.Receipt{
		TaskID:    task.ID,
		Timestamp: task.LastModified,
		Signature: newCode(),
	})
}

func (s *Server) abortTask(c echo.Context) error {
	id := caller(c)
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[c.Param("id")]
	if !ok {
		return outcome(c, http.StatusNotFound, "not-found", "unknown task")
	}
	switch task.Status {
	case erxmodels.TaskStatusCancelled:
		return outcome(c, http.StatusGone, "deleted", "task was already aborted")
	case erxmodels.TaskStatusCompleted:
		return outcome(c, http.StatusConflict, "conflict", "task was already closed")
	}

	if task.Status == erxmodels.TaskStatusInProgress {
		// The dispensing party proves possession of the secret and, for
		// tasks that carry one, the access code.
		if c.QueryParam("secret") != task.Secret {
			return outcome(c, http.StatusForbidden, "forbidden", "invalid secret")
		}
		if task.AccessCode != "" && c.QueryParam("ac") != task.AccessCode {
			return outcome(c, http.StatusForbidden, "forbidden", "invalid access code")
		}
	} else {
		owner := id.Name == task.Patient && !task.direct()
		if !owner && (task.AccessCode == "" || c.QueryParam("ac") != task.AccessCode) {
			return outcome(c, http.StatusForbidden, "forbidden", "invalid access code")
		}
	}

	task.Status = erxmodels.TaskStatusCancelled
	task.Secret = ""
	task.LastModified = time.Now()
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) rejectTask(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[c.Param("id")]
	if !ok {
		return outcome(c, http.StatusNotFound, "not-found", "unknown task")
	}
	if task.Status != erxmodels.TaskStatusInProgress {
		return outcome(c, http.StatusConflict, "conflict", "task is not in progress")
	}
	if c.QueryParam("secret") != task.Secret {
		return outcome(c, http.StatusForbidden, "forbidden", "invalid secret")
	}

	// The secret dies with the rejection; the task re-arms for a
	// different dispensing party.
	task.Secret = ""
	task.Status = erxmodels.TaskStatusReady
	task.LastModified = time.Now()
	return c.NoContent(http.StatusNoContent)
}
