package fakeerx

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/erx-harness/pkg/erxmodels"
)

func (s *Server) postCommunication(c echo.Context) error {
	id := caller(c)

	var comm erxmodels.Communication
	if err := c.Bind(&comm); err != nil {
		return outcome(c, http.StatusBadRequest, "value", "malformed communication")
	}
	if comm.Recipient == "" || comm.BasedOn == "" {
		return outcome(c, http.StatusBadRequest, "value", "recipient and basedOn are required")
	}
	switch comm.Profile {
	case erxmodels.CommInfoReq, erxmodels.CommDispReq, erxmodels.CommReply,
		erxmodels.CommRepresentative, erxmodels.CommChargChangeReq, erxmodels.CommChargChangeReply:
	default:
		return outcome(c, http.StatusBadRequest, "value", "unknown communication profile")
	}

	comm.ID = uuid.NewString()
	comm.Sender = id.Name
	if comm.Sent == nil {
		now := time.Now()
		comm.Sent = &now
	}

	s.mu.Lock()
	s.comms = append(s.comms, &storedComm{Communication: comm})
	s.mu.Unlock()
	return c.JSON(http.StatusCreated, comm)
}

// listCommunications returns the caller's unretrieved messages and marks
// them retrieved, so each message is delivered exactly once.
func (s *Server) listCommunications(c echo.Context) error {
	id := caller(c)
	if c.QueryParam("received") != "new" {
		return outcome(c, http.StatusBadRequest, "value", "only received=new is supported")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]erxmodels.Communication, 0)
	for _, sc := range s.comms {
		if sc.Recipient == id.Name && !sc.Retrieved {
			sc.Retrieved = true
			out = append(out, sc.Communication)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) postChargeItem(c echo.Context) error {
	id := caller(c)
	if id.Role != "pharmacy" {
		return outcome(c, http.StatusForbidden, "forbidden", "only dispensing parties create charge items")
	}

	var item erxmodels.ChargeItem
	if err := c.Bind(&item); err != nil {
		return outcome(c, http.StatusBadRequest, "value", "malformed charge item")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[c.QueryParam("task")]
	if !ok {
		return outcome(c, http.StatusNotFound, "not-found", "unknown task")
	}
	if task.Status != erxmodels.TaskStatusCompleted {
		return outcome(c, http.StatusConflict, "conflict", "task was not dispensed")
	}
	if c.QueryParam("secret") != task.Secret {
		return outcome(c, http.StatusForbidden, "forbidden", "invalid secret")
	}
	if !s.consents[task.Patient] {
		return outcome(c, http.StatusBadRequest, "precondition", "patient has not consented to charge items")
	}

	now := time.Now()
	item.ID = uuid.NewString()
	item.TaskID = task.ID
	item.Patient = task.Patient
	item.Enterer = id.Name
	item.AccessCode = newCode()
	item.EnteredAt = &now
	s.charges[item.ID] = &item
	return c.JSON(http.StatusCreated, item)
}

func (s *Server) putChargeItem(c echo.Context) error {
	var update erxmodels.ChargeItem
	if err := c.Bind(&update); err != nil {
		return outcome(c, http.StatusBadRequest, "value", "malformed charge item")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.charges[c.Param("id")]
	if !ok {
		return outcome(c, http.StatusNotFound, "not-found", "unknown charge item")
	}
	if c.QueryParam("ac") != item.AccessCode {
		return outcome(c, http.StatusForbidden, "forbidden", "invalid access code")
	}

	item.Invoice = update.Invoice
	return c.JSON(http.StatusOK, *item)
}

func (s *Server) getChargeItem(c echo.Context) error {
	id := caller(c)
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.charges[c.Param("id")]
	if !ok {
		return outcome(c, http.StatusNotFound, "not-found", "unknown charge item")
	}
	if c.QueryParam("ac") != item.AccessCode && id.Name != item.Patient {
		return outcome(c, http.StatusForbidden, "forbidden", "invalid access code")
	}
	return c.JSON(http.StatusOK, *item)
}

func (s *Server) grantConsent(c echo.Context) error {
	id := caller(c)
	if id.Role != "patient" {
		return outcome(c, http.StatusForbidden, "forbidden", "only insured parties grant consent")
	}
	s.mu.Lock()
	s.consents[id.Name] = true
	s.mu.Unlock()
	return c.JSON(http.StatusCreated, erxmodels.Consent{Patient: id.Name, GrantedAt: time.Now()})
}

func (s *Server) revokeConsent(c echo.Context) error {
	id := caller(c)
	s.mu.Lock()
	delete(s.consents, id.Name)
	s.mu.Unlock()
	return c.NoContent(http.StatusNoContent)
}
