// Package fakeerx is an in-process stand-in for the e-prescription
// workflow service. It enforces the token and lifecycle guards the real
// service enforces so that scenario failures are observable end to end.
package fakeerx

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/erx-harness/internal/platform/protocol"
	"github.com/ehr/erx-harness/internal/platform/signer"
	"github.com/ehr/erx-harness/pkg/erxmodels"
)

const identityKey = "fakeerx.identity"

type taskState struct {
	ID           string
	WorkflowType string
	Status       string
	AccessCode   string
	Secret       string
	Creator      string
	Patient      string
	Document     string
	AuthoredOn   time.Time
	LastModified time.Time
}

func (t *taskState) direct() bool {
	return erxmodels.IsDirectAssignment(t.WorkflowType)
}

type storedComm struct {
	erxmodels.Communication
	Retrieved bool
}

// Server holds all backend state in memory behind one lock. It is an
// http.Handler, so tests mount it with httptest.NewServer.
type Server struct {
	e   *echo.Echo
	key []byte
	log zerolog.Logger

	mu       sync.Mutex
	tasks    map[string]*taskState
	comms    []*storedComm
	charges  map[string]*erxmodels.ChargeItem
	consents map[string]bool
}

// New builds a server that authenticates bearers signed with key.
func New(key []byte, log zerolog.Logger) *Server {
	s := &Server{
		e:        echo.New(),
		key:      key,
		log:      log,
		tasks:    make(map[string]*taskState),
		charges:  make(map[string]*erxmodels.ChargeItem),
		consents: make(map[string]bool),
	}
	s.e.HideBanner = true
	s.e.Use(s.authenticate)

	s.e.POST("/Task/$create", s.createTask)
	s.e.POST("/Task/:id/$activate", s.activateTask)
	s.e.GET("/Task/:id", s.getTask)
	s.e.POST("/Task/:id/$accept", s.acceptTask)
	s.e.POST("/Task/:id/$close", s.closeTask)
	s.e.POST("/Task/:id/$abort", s.abortTask)
	s.e.POST("/Task/:id/$reject", s.rejectTask)

	s.e.POST("/Communication", s.postCommunication)
	s.e.GET("/Communication", s.listCommunications)

	s.e.POST("/ChargeItem", s.postChargeItem)
	s.e.PUT("/ChargeItem/:id", s.putChargeItem)
	s.e.GET("/ChargeItem/:id", s.getChargeItem)

	s.e.POST("/Consent", s.grantConsent)
	s.e.DELETE("/Consent", s.revokeConsent)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		const prefix = "Bearer "
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(header, prefix) {
			return outcome(c, http.StatusUnauthorized, "security", "missing bearer token")
		}
		id, err := signer.ParseBearer(s.key, strings.TrimPrefix(header, prefix))
		if err != nil {
			return outcome(c, http.StatusUnauthorized, "security", "invalid bearer token")
		}
		c.Set(identityKey, id)
		return next(c)
	}
}

func caller(c echo.Context) protocol.Identity {
	id, _ := c.Get(identityKey).(protocol.Identity)
	return id
}

func outcome(c echo.Context, status int, code, diagnostics string) error {
	return c.JSON(status, erxmodels.OperationOutcome{Code: code, Diagnostics: diagnostics})
}

func newCode() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func (t *taskState) wire() erxmodels.Task {
	authored := t.AuthoredOn
	modified := t.LastModified
	return erxmodels.Task{
		ID:           t.ID,
		Status:       t.Status,
		WorkflowType: t.WorkflowType,
		AccessCode:   t.AccessCode,
		Prescription: t.Document,
		AuthoredOn:   &authored,
		LastModified: &modified,
	}
}
