package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadcapture/internal/analytics"
	"leadcapture/internal/calls"
	apperrors "leadcapture/internal/common/errors"
	"leadcapture/internal/common/logger"
	"leadcapture/internal/errorreport"
	"leadcapture/internal/forms"
	"leadcapture/internal/landing"
	"leadcapture/internal/models"
	"leadcapture/internal/voice"
)

// ==========================
// Fakes
// ==========================

type fakeSubmitter struct {
	mu   sync.Mutex
	err  error
	subs []*forms.Submission
}

func (f *fakeSubmitter) Submit(_ context.Context, sub *forms.Submission) (*forms.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, sub)
	if f.err != nil {
		return &forms.Result{SubmissionID: "sub-1"}, f.err
	}
	return &forms.Result{SubmissionID: "sub-1", Delivered: true, StatusCode: 200}, nil
}

type fakeCalls struct {
	store *calls.MemoryStore
}

func (f *fakeCalls) Start(ctx context.Context, number string) (calls.Record, error) {
	if number == "12" {
		return calls.Record{}, apperrors.NewInvalidPhoneNumberError(number, errors.New("too short"))
	}
	rec := calls.Record{ID: "call-1", PhoneNumber: "+15551234567", Status: models.CallStatusQueued, CreatedAt: time.Now()}
	return rec, f.store.Add(ctx, rec)
}

func (f *fakeCalls) List(ctx context.Context) ([]calls.Record, error) { return f.store.List(ctx) }

func (f *fakeCalls) Get(ctx context.Context, id string) (calls.Record, error) { return f.store.Get(ctx, id) }

type fakeVoice struct {
	mu     sync.Mutex
	callID string
	ready  bool
}

func (f *fakeVoice) StartCall(_ context.Context, _ map[string]interface{}) (*voice.WebCall, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.ready {
		return nil, voice.ErrNotInitialized
	}
	if f.callID != "" {
		return nil, voice.ErrCallInProgress
	}
	f.callID = "web-1"
	return &voice.WebCall{ID: "web-1", URL: "https://voice.example/web-1"}, nil
}

func (f *fakeVoice) StopCall(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.callID == "" {
		return voice.ErrNoActiveCall
	}
	f.callID = ""
	return nil
}

func (f *fakeVoice) Tools() []voice.Tool { return voice.DefaultTools() }

func (f *fakeVoice) Active() bool { return f.CallID() != "" }

func (f *fakeVoice) CallID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callID
}

type fakeLanding map[string]*models.LandingPage

func (f fakeLanding) Get(_ context.Context, slug string) (*models.LandingPage, error) {
	if slug == "broken" {
		return nil, errors.New("db down")
	}
	if p, ok := f[slug]; ok {
		return p, nil
	}
	return nil, landing.ErrPageNotFound
}

type fakeTracker struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (f *fakeTracker) Track(_ context.Context, e analytics.Event) error {
	if e.Name == "" {
		return apperrors.NewValidationFailedError("name is required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakeTracker) PageView(ctx context.Context, page, referrer, sessionID string) error {
	return f.Track(ctx, analytics.Event{Name: analytics.PageViewEvent, Page: page, Referrer: referrer, SessionID: sessionID})
}

type fakeReporter struct {
	mu   sync.Mutex
	errs []error
	ctxs []errorreport.Context
}

func (f *fakeReporter) Report(_ context.Context, err error, rc errorreport.Context) models.ErrorReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, err)
	f.ctxs = append(f.ctxs, rc)
	return models.ErrorReport{ID: "rep-1", Message: err.Error()}
}

// ==========================
// Test Helpers
// ==========================

type fixture struct {
	router    *gin.Engine
	submitter *fakeSubmitter
	voice     *fakeVoice
	tracker   *fakeTracker
	reporter  *fakeReporter
}

func builtinForms() map[string]forms.Definition {
	defs := map[string]forms.Definition{}
	for _, name := range forms.Names() {
		def, _ := forms.Lookup(name)
		defs[name] = def
	}
	return defs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		submitter: &fakeSubmitter{},
		voice:     &fakeVoice{ready: true},
		tracker:   &fakeTracker{},
		reporter:  &fakeReporter{},
	}
	router, err := NewRouter(Dependencies{
		SiteName:  "Acme Automation",
		Forms:     builtinForms(),
		Submitter: f.submitter,
		Calls:     &fakeCalls{store: calls.NewMemoryStore()},
		Voice:     f.voice,
		Landing: fakeLanding{
			"acme-dental": {Slug: "acme-dental", CompanyName: "Acme Dental", Headline: "Never miss a patient call",
				CTALabel: "Book a demo", CTATarget: "/demo"},
		},
		Analytics: f.tracker,
		Errors:    f.reporter,
		Logger:    logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	f.router = router
	return f
}

func (f *fixture) do(method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) json(method, path string, payload interface{}) *httptest.ResponseRecorder {
	var body []byte
	if payload != nil {
		body, _ = json.Marshal(payload)
	}
	return f.do(method, path, "application/json", body)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// ==========================
// Ops
// ==========================

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])

	w = f.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	router, err := NewRouter(Dependencies{
		Ready:  func(context.Context) error { return errors.New("postgres unreachable") },
		Logger: logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodGet, "/health", "", nil)
	w := f.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_request_duration_seconds")
}

// ==========================
// Pages
// ==========================

func TestContentPages(t *testing.T) {
	tests := []struct {
		path string
		form string
	}{
		{"/", forms.Contact},
		{"/demo", forms.Demo},
		{"/services", forms.CustomDemo},
		{"/consultation", forms.Consultation},
		{"/contact", forms.Contact},
	}
	f := newFixture(t)
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := f.do(http.MethodGet, tt.path, "", nil)
			require.Equal(t, http.StatusOK, w.Code)
			body := w.Body.String()
			assert.Contains(t, body, `data-form="`+tt.form+`"`)
			assert.Contains(t, body, `id="form-definition"`)
			assert.Contains(t, body, "Acme Automation")
		})
	}

	f.tracker.mu.Lock()
	defer f.tracker.mu.Unlock()
	assert.Len(t, f.tracker.events, len(tests))
}

func TestLandingPages(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/acme-dental", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Never miss a patient call")
	assert.Contains(t, w.Body.String(), `data-slug="acme-dental"`)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"unknown slug", http.MethodGet, "/globex", http.StatusNotFound},
		{"invalid slug", http.MethodGet, "/Not_A_Slug", http.StatusNotFound},
		{"nested path", http.MethodGet, "/acme-dental/extra", http.StatusNotFound},
		{"post", http.MethodPost, "/acme-dental", http.StatusNotFound},
		{"lookup failure", http.MethodGet, "/broken", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(tt.method, tt.path, "", nil)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestUnknownAPIRouteIsJSON(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, w)["error"])
}

// ==========================
// Error boundary
// ==========================

func TestRecovery(t *testing.T) {
	f := newFixture(t)
	f.router.GET("/boom", func(c *gin.Context) { panic("template exploded") })
	f.router.GET("/api/boom", func(c *gin.Context) { panic("handler exploded") })

	w := f.do(http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Something went wrong")
	assert.Contains(t, w.Body.String(), "Reload page")

	w = f.do(http.MethodGet, "/api/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decode(t, w)["error"])

	f.reporter.mu.Lock()
	defer f.reporter.mu.Unlock()
	require.Len(t, f.reporter.errs, 2)
	assert.Contains(t, f.reporter.errs[0].Error(), "template exploded")
	assert.Equal(t, "/boom", f.reporter.ctxs[0].URL)
}

// ==========================
// Calls and voice
// ==========================

func TestCallsAPI(t *testing.T) {
	f := newFixture(t)

	w := f.json(http.MethodPost, "/api/calls", map[string]string{"phoneNumber": "(555) 123-4567"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, "call-1", decode(t, w)["id"])

	w = f.json(http.MethodPost, "/api/calls", map[string]string{"phoneNumber": "12"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INVALID_PHONE_NUMBER", decode(t, w)["error"])

	w = f.json(http.MethodPost, "/api/calls", map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(http.MethodGet, "/api/calls", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["calls"], 1)

	w = f.do(http.MethodGet, "/api/calls/call-1", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/calls/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CALL_NOT_FOUND", decode(t, w)["error"])
}

func TestVoiceSessionAPI(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/voice/session", "", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "web-1", decode(t, w)["id"])

	w = f.json(http.MethodPost, "/api/voice/session", map[string]interface{}{"overrides": map[string]string{"firstMessage": "hi"}})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodGet, "/api/voice/session", "", nil)
	assert.Equal(t, true, decode(t, w)["active"])

	w = f.do(http.MethodDelete, "/api/voice/session", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(http.MethodDelete, "/api/voice/session", "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodGet, "/api/voice/tools", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["tools"], 3)

	f.voice.ready = false
	w = f.do(http.MethodPost, "/api/voice/session", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "VOICE_NOT_CONFIGURED", decode(t, w)["error"])
}

func TestMissingServicesAreUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router, err := NewRouter(Dependencies{Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)

	for _, path := range []string{"/api/calls", "/api/voice/tools"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
}

// ==========================
// Analytics and error reports
// ==========================

func TestTrackEvent(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/analytics/events",
		strings.NewReader(`{"name":"cta_clicked","category":"engagement","page":"/demo"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "s-42"})
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	f.tracker.mu.Lock()
	require.Len(t, f.tracker.events, 1)
	assert.Equal(t, "s-42", f.tracker.events[0].SessionID)
	f.tracker.mu.Unlock()

	w = f.json(http.MethodPost, "/api/analytics/events", map[string]string{"category": "engagement"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestReportError(t *testing.T) {
	f := newFixture(t)

	w := f.json(http.MethodPost, "/api/errors", map[string]interface{}{
		"message": "TypeError: Failed to fetch",
		"url":     "/demo",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "rep-1", body["reportId"])
	notice := body["notice"].(map[string]interface{})
	assert.Equal(t, false, notice["show"])
	assert.Contains(t, notice["message"], "couldn't reach our servers")

	w = f.json(http.MethodPost, "/api/errors", map[string]interface{}{"message": "rate limit exceeded"})
	notice = decode(t, w)["notice"].(map[string]interface{})
	assert.Equal(t, true, notice["show"])

	w = f.json(http.MethodPost, "/api/errors", map[string]interface{}{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

// multipartBody builds a multipart request body from values and files.
func multipartBody(t *testing.T, values map[string][]string, files map[string]string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, vs := range values {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(name, v))
		}
	}
	for name, content := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+name+`"; filename="`+name+`.txt"`)
		h.Set("Content-Type", "text/plain")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}
