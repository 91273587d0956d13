package protocol

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/erx-harness/pkg/erxmodels"
)

// TokenSource mints the bearer credential for a participant identity.
type TokenSource interface {
	Bearer(id Identity) (string, error)
}

// HTTPClient talks JSON to the workflow service. It performs no retries;
// whether to retry is a test-authoring decision.
type HTTPClient struct {
	base   string
	hc     *http.Client
	tokens TokenSource
	log    zerolog.Logger
}

// NewHTTPClient builds a client for the service at baseURL.
func NewHTTPClient(baseURL string, tokens TokenSource, log zerolog.Logger) *HTTPClient {
	return &HTTPClient{
		base:   strings.TrimRight(baseURL, "/"),
		hc:     &http.Client{Timeout: 30 * time.Second},
		tokens: tokens,
		log:    log,
	}
}

func (c *HTTPClient) do(ctx context.Context, as Identity, method, path string, query url.Values, body, out interface{}) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	bearer, err := c.tokens.Bearer(as)
	if err != nil {
		return fmt.Errorf("mint bearer for %s: %w", as.Name, err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("actor", as.Name).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var oo erxmodels.OperationOutcome
		diag := ""
		if err := json.NewDecoder(resp.Body).Decode(&oo); err == nil {
			diag = oo.Diagnostics
		}
		return FromStatus(resp.StatusCode, diag)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

type createResponse struct {
	TaskID     string `json:"taskId"`
	AccessCode string `json:"accessCode,omitempty"`
}

func (c *HTTPClient) TaskCreate(ctx context.Context, as Identity, workflowType string) (CreateResult, error) {
	q := url.Values{"workflowType": {workflowType}}
	var resp createResponse
	if err := c.do(ctx, as, http.MethodPost, "/Task/$create", q, nil, &resp); err != nil {
		return CreateResult{}, err
	}
	return CreateResult{TaskID: resp.TaskID, AccessCode: resp.AccessCode}, nil
}

type activateRequest struct {
	SignedDocument string `json:"signedDocument"`
	// Patient is the insured party the prescription is for, extracted
	// from the clinical document by the caller since the document itself
	// stays opaque on the wire.
	Patient string `json:"patient"`
}

func (c *HTTPClient) TaskActivate(ctx context.Context, as Identity, taskID, accessCode, forPatient string, signedDoc []byte) (erxmodels.Task, error) {
	q := url.Values{"ac": {accessCode}}
	body := activateRequest{
		SignedDocument: base64.StdEncoding.EncodeToString(signedDoc),
		Patient:        forPatient,
	}
	var task erxmodels.Task
	err := c.do(ctx, as, http.MethodPost, "/Task/"+taskID+"/$activate", q, body, &task)
	return task, err
}

func (c *HTTPClient) TaskGet(ctx context.Context, as Identity, taskID, accessCode string) (erxmodels.Task, error) {
	q := url.Values{}
	if accessCode != "" {
		q.Set("ac", accessCode)
	}
	var task erxmodels.Task
	err := c.do(ctx, as, http.MethodGet, "/Task/"+taskID, q, nil, &task)
	return task, err
}

type acceptResponse struct {
	Task   erxmodels.Task `json:"task"`
	Secret string         `json:"secret"`
}

func (c *HTTPClient) TaskAccept(ctx context.Context, as Identity, taskID, accessCode string) (AcceptResult, error) {
	q := url.Values{}
	if accessCode != "" {
		q.Set("ac", accessCode)
	}
	var resp acceptResponse
	if err := c.do(ctx, as, http.MethodPost, "/Task/"+taskID+"/$accept", q, nil, &resp); err != nil {
		return AcceptResult{}, err
	}
	return AcceptResult{Task: resp.Task, Secret: resp.Secret}, nil
}

func (c *HTTPClient) TaskClose(ctx context.Context, as Identity, taskID, secret string, dispense erxmodels.DispenseData) (erxmodels.Receipt, error) {
	q := url.Values{"secret": {secret}}
	var receipt erxmodels.Receipt
	err := c.do(ctx, as, http.MethodPost, "/Task/"+taskID+"/$close", q, dispense, &receipt)
	return receipt, err
}

func (c *HTTPClient) TaskAbort(ctx context.Context, as Identity, taskID, accessCode, secret string) error {
	q := url.Values{}
	if accessCode != "" {
		q.Set("ac", accessCode)
	}
	if secret != "" {
		q.Set("secret", secret)
	}
	return c.do(ctx, as, http.MethodPost, "/Task/"+taskID+"/$abort", q, nil, nil)
}

func (c *HTTPClient) TaskReject(ctx context.Context, as Identity, taskID, secret string) error {
	q := url.Values{"secret": {secret}}
	return c.do(ctx, as, http.MethodPost, "/Task/"+taskID+"/$reject", q, nil, nil)
}

func (c *HTTPClient) CommunicationPost(ctx context.Context, as Identity, comm erxmodels.Communication) (erxmodels.Communication, error) {
	var out erxmodels.Communication
	err := c.do(ctx, as, http.MethodPost, "/Communication", nil, comm, &out)
	return out, err
}

func (c *HTTPClient) CommunicationGetNew(ctx context.Context, as Identity) ([]erxmodels.Communication, error) {
	q := url.Values{"received": {"new"}}
	var out []erxmodels.Communication
	err := c.do(ctx, as, http.MethodGet, "/Communication", q, nil, &out)
	return out, err
}

func (c *HTTPClient) ChargeItemPost(ctx context.Context, as Identity, taskID, secret string, item erxmodels.ChargeItem) (erxmodels.ChargeItem, error) {
	q := url.Values{"task": {taskID}, "secret": {secret}}
	var out erxmodels.ChargeItem
	err := c.do(ctx, as, http.MethodPost, "/ChargeItem", q, item, &out)
	return out, err
}

func (c *HTTPClient) ChargeItemPut(ctx context.Context, as Identity, itemID, accessCode string, item erxmodels.ChargeItem) (erxmodels.ChargeItem, error) {
	q := url.Values{"ac": {accessCode}}
	var out erxmodels.ChargeItem
	err := c.do(ctx, as, http.MethodPut, "/ChargeItem/"+itemID, q, item, &out)
	return out, err
}

func (c *HTTPClient) ChargeItemGet(ctx context.Context, as Identity, itemID, accessCode string) (erxmodels.ChargeItem, error) {
	q := url.Values{"ac": {accessCode}}
	var out erxmodels.ChargeItem
	err := c.do(ctx, as, http.MethodGet, "/ChargeItem/"+itemID, q, nil, &out)
	return out, err
}

func (c *HTTPClient) ConsentGrant(ctx context.Context, as Identity) error {
	return c.do(ctx, as, http.MethodPost, "/Consent", nil, nil, nil)
}

func (c *HTTPClient) ConsentRevoke(ctx context.Context, as Identity) error {
	return c.do(ctx, as, http.MethodDelete, "/Consent", nil, nil, nil)
}
