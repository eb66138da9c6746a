// Package voice wraps the hosted voice-agent API: outbound calls, status
// polling and the in-browser web-call session.
package voice

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"leadcapture/internal/common/errors"
	httpclient "leadcapture/internal/common/http"
	"leadcapture/internal/common/logger"
	"leadcapture/internal/models"
	"leadcapture/internal/phone"
)

const DefaultAPIBaseURL = "https://api.vapi.ai"

type ClientConfig struct {
	APIBaseURL    string
	RelayBaseURL  string
	APIKey        string
	AssistantID   string
	PhoneNumberID string
	Timeout       time.Duration
}

// Call is the voice API's answer to an outbound call request.
type Call struct {
	ID          string            `json:"id"`
	Status      models.CallStatus `json:"status"`
	PhoneNumber string            `json:"phoneNumber"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// CallStatus is a snapshot from the relay's status endpoint.
type CallStatus struct {
	ID          string            `json:"id"`
	Status      models.CallStatus `json:"status"`
	StartedAt   *time.Time        `json:"startedAt,omitempty"`
	EndedAt     *time.Time        `json:"endedAt,omitempty"`
	Duration    *float64          `json:"duration,omitempty"` // seconds
	Cost        *float64          `json:"cost,omitempty"`
	Transcript  string            `json:"transcript,omitempty"`
	EndedReason string            `json:"endedReason,omitempty"`
}

func (s *CallStatus) Terminal() bool {
	return s.Status.IsTerminal()
}

// WebCall is an in-browser call started through the API.
type WebCall struct {
	ID  string `json:"id"`
	URL string `json:"webCallUrl,omitempty"`
}

type APIClient struct {
	cfg    ClientConfig
	http   *httpclient.Client
	logger logger.Logger
}

func NewAPIClient(cfg ClientConfig, log logger.Logger) *APIClient {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.RelayBaseURL == "" {
		cfg.RelayBaseURL = cfg.APIBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	cfg.RelayBaseURL = strings.TrimRight(cfg.RelayBaseURL, "/")

	return &APIClient{
		cfg:    cfg,
		http:   httpclient.NewClient(cfg.Timeout),
		logger: logger.Component(log, "voice"),
	}
}

func (c *APIClient) headers() map[string]string {
	return bearer(c.cfg.APIKey)
}

func bearer(key string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + key}
}

type callRequest struct {
	AssistantID   string   `json:"assistantId"`
	PhoneNumberID string   `json:"phoneNumberId"`
	Customer      customer `json:"customer"`
}

type customer struct {
	Number string `json:"number"`
}

type callResponse struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt"`
	EndedAt     *time.Time `json:"endedAt"`
	Cost        *float64   `json:"cost"`
	Duration    *float64   `json:"duration"`
	Transcript  string     `json:"transcript"`
	EndedReason string     `json:"endedReason"`
	WebCallURL  string     `json:"webCallUrl"`
	Artifact    *struct {
		Transcript string `json:"transcript"`
	} `json:"artifact"`
}

// StartCall places an outbound call to customerNumber. The number is
// normalised to E.164 and rejected before any request when invalid.
func (c *APIClient) StartCall(ctx context.Context, customerNumber string) (*Call, error) {
	number, err := phone.Normalize(customerNumber)
	if err != nil {
		return nil, errors.NewInvalidPhoneNumberError(customerNumber, err)
	}
	if c.cfg.APIKey == "" || c.cfg.AssistantID == "" || c.cfg.PhoneNumberID == "" {
		return nil, errors.NewVoiceNotConfiguredError("api key, assistant id and phone number id are required")
	}

	body := callRequest{
		AssistantID:   c.cfg.AssistantID,
		PhoneNumberID: c.cfg.PhoneNumberID,
		Customer:      customer{Number: number},
	}
	resp, err := c.http.SendJSON(ctx, http.MethodPost, c.cfg.APIBaseURL+"/call", body, c.headers())
	if err != nil {
		return nil, errors.NewVoiceAPIError("start call", err)
	}
	if !resp.OK() {
		return nil, errors.NewVoiceAPIError("start call",
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(resp.Body), 256)))
	}

	var out callResponse
	if err := resp.Decode(&out); err != nil {
		return nil, errors.NewVoiceAPIError("start call", err)
	}
	if out.ID == "" {
		return nil, errors.NewVoiceAPIError("start call", fmt.Errorf("response has no call id"))
	}

	call := &Call{
		ID:          out.ID,
		Status:      models.ParseCallStatus(out.Status),
		PhoneNumber: number,
		CreatedAt:   out.CreatedAt,
	}
	if call.Status == "" {
		call.Status = models.CallStatusInitiated
	}
	if call.CreatedAt.IsZero() {
		call.CreatedAt = time.Now().UTC()
	}

	c.logger.Info("outbound call started", map[string]interface{}{
		"callId": call.ID,
		"phone":  phone.Mask(number),
	})
	return call, nil
}

// GetCall fetches the current status of a call from the relay host.
func (c *APIClient) GetCall(ctx context.Context, id string) (*CallStatus, error) {
	resp, err := c.http.SendJSON(ctx, http.MethodGet, c.cfg.RelayBaseURL+"/call/"+url.PathEscape(id), nil, c.headers())
	if err != nil {
		return nil, errors.NewVoiceAPIError("get call", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.NewCallNotFoundError(id)
	}
	if !resp.OK() {
		return nil, errors.NewVoiceAPIError("get call", fmt.Errorf("status %d", resp.StatusCode))
	}

	var out callResponse
	if err := resp.Decode(&out); err != nil {
		return nil, errors.NewVoiceAPIError("get call", err)
	}

	st := &CallStatus{
		ID:          out.ID,
		Status:      models.ParseCallStatus(out.Status),
		StartedAt:   out.StartedAt,
		EndedAt:     out.EndedAt,
		Duration:    out.Duration,
		Cost:        out.Cost,
		Transcript:  out.Transcript,
		EndedReason: out.EndedReason,
	}
	if st.ID == "" {
		st.ID = id
	}
	if st.Transcript == "" && out.Artifact != nil {
		st.Transcript = out.Artifact.Transcript
	}
	if st.Duration == nil && st.StartedAt != nil && st.EndedAt != nil {
		d := st.EndedAt.Sub(*st.StartedAt).Seconds()
		st.Duration = &d
	}
	return st, nil
}

// StartWebCall starts an in-browser call for the configured assistant.
func (c *APIClient) StartWebCall(ctx context.Context, assistantID string, overrides map[string]interface{}) (*WebCall, error) {
	return c.StartWebCallAs(ctx, "", assistantID, overrides)
}

// StartWebCallAs is StartWebCall signed with key, the browser-facing public
// key. An empty key falls back to the client's own.
func (c *APIClient) StartWebCallAs(ctx context.Context, key, assistantID string, overrides map[string]interface{}) (*WebCall, error) {
	if key == "" {
		key = c.cfg.APIKey
	}
	if key == "" || assistantID == "" {
		return nil, errors.NewVoiceNotConfiguredError("api key and assistant id are required")
	}
	body := map[string]interface{}{"assistantId": assistantID}
	if len(overrides) > 0 {
		body["assistantOverrides"] = overrides
	}

	resp, err := c.http.SendJSON(ctx, http.MethodPost, c.cfg.APIBaseURL+"/call/web", body, bearer(key))
	if err != nil {
		return nil, errors.NewVoiceAPIError("start web call", err)
	}
	if !resp.OK() {
		return nil, errors.NewVoiceAPIError("start web call", fmt.Errorf("status %d", resp.StatusCode))
	}

	var out callResponse
	if err := resp.Decode(&out); err != nil {
		return nil, errors.NewVoiceAPIError("start web call", err)
	}
	return &WebCall{ID: out.ID, URL: out.WebCallURL}, nil
}

// EndCall stops a running call.
func (c *APIClient) EndCall(ctx context.Context, id string) error {
	resp, err := c.http.SendJSON(ctx, http.MethodDelete, c.cfg.APIBaseURL+"/call/"+url.PathEscape(id), nil, c.headers())
	if err != nil {
		return errors.NewVoiceAPIError("end call", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return errors.NewCallNotFoundError(id)
	}
	if !resp.OK() {
		return errors.NewVoiceAPIError("end call", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
