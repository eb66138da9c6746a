package web

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "leadcapture/internal/common/errors"
	"leadcapture/internal/forms"
)

func contactValues() map[string]string {
	return map[string]string{
		"name":    "Jane Doe",
		"email":   "jane@example.com",
		"topic":   "automation",
		"message": "We miss too many inbound calls.",
	}
}

// ==========================
// Definitions
// ==========================

func TestGetForm(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/forms", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["forms"], 4)

	w = f.do(http.MethodGet, "/api/forms/demo", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "demo", body["name"])
	assert.Len(t, body["steps"], 3)
	redirect := body["redirect"].(map[string]interface{})
	assert.Equal(t, float64(10), redirect["afterSeconds"])

	w = f.do(http.MethodGet, "/api/forms/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "FORM_NOT_FOUND", decode(t, w)["error"])
}

// ==========================
// Step validation
// ==========================

func TestValidateForm(t *testing.T) {
	tests := []struct {
		name          string
		input         formInput
		wantValid     bool
		wantAdvance   bool
		wantSubmit    bool
		wantReachable int
	}{
		{
			name:          "empty first step",
			input:         formInput{Step: 0},
			wantReachable: 1,
		},
		{
			name:          "first step complete",
			input:         formInput{Step: 0, Values: map[string]string{"name": "Jane Doe", "email": "jane@example.com"}},
			wantValid:     true,
			wantAdvance:   true,
			wantReachable: 2,
		},
		{
			name:          "last step valid but first step incomplete",
			input:         formInput{Step: 1, Values: map[string]string{"topic": "general", "message": "Please call me back."}},
			wantValid:     true,
			wantReachable: 1,
		},
		{
			name:          "everything complete",
			input:         formInput{Step: 1, Values: contactValues()},
			wantValid:     true,
			wantAdvance:   true,
			wantSubmit:    true,
			wantReachable: 2,
		},
	}

	f := newFixture(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.json(http.MethodPost, "/api/forms/contact/validate", tt.input)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			body := decode(t, w)
			assert.Equal(t, tt.wantValid, body["valid"])
			assert.Equal(t, tt.wantAdvance, body["canAdvance"])
			assert.Equal(t, tt.wantSubmit, body["canSubmit"])
			assert.Len(t, body["reachable"], tt.wantReachable)
			if !tt.wantValid {
				assert.NotEmpty(t, body["errors"])
			}
		})
	}
}

func TestValidateForm_BadInput(t *testing.T) {
	f := newFixture(t)

	w := f.json(http.MethodPost, "/api/forms/contact/validate", formInput{Step: 5})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.json(http.MethodPost, "/api/forms/contact/validate", formInput{Values: map[string]string{"favouriteColour": "red"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", decode(t, w)["error"])

	w = f.do(http.MethodPost, "/api/forms/contact/validate", "application/json", []byte("{"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

// ==========================
// Submission
// ==========================

func TestSubmitForm_JSON(t *testing.T) {
	f := newFixture(t)

	w := f.json(http.MethodPost, "/api/forms/contact/submit", formInput{Values: contactValues()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["submitted"])
	assert.Equal(t, true, body["delivered"])
	assert.Equal(t, "sub-1", body["submissionId"])
	assert.NotEmpty(t, body["message"])

	require.Len(t, f.submitter.subs, 1)
	sub := f.submitter.subs[0]
	assert.Equal(t, forms.Contact, sub.Form)
	assert.Equal(t, "Jane Doe", sub.Values["name"])
}

func TestSubmitForm_IncompleteIsRejected(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]string
		wantStep float64
	}{
		{"first step missing", map[string]string{"topic": "general", "message": "Please call me back."}, 0},
		{"last step missing", map[string]string{"name": "Jane Doe", "email": "jane@example.com"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			w := f.json(http.MethodPost, "/api/forms/contact/submit", formInput{Values: tt.values})
			require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
			body := decode(t, w)
			assert.Equal(t, "VALIDATION_FAILED", body["error"])
			fields := body["fields"].(map[string]interface{})
			assert.Equal(t, tt.wantStep, fields["step"])
			assert.NotEmpty(t, fields["errors"])
			assert.Empty(t, f.submitter.subs)
		})
	}
}

func TestSubmitForm_DeliveryFailure(t *testing.T) {
	t.Run("soft success form still confirms", func(t *testing.T) {
		f := newFixture(t)
		f.submitter.err = apperrors.NewWebhookRejectedError(500, "down")

		w := f.json(http.MethodPost, "/api/forms/contact/submit", formInput{Values: contactValues()})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decode(t, w)
		assert.Equal(t, true, body["submitted"])
		assert.Equal(t, false, body["delivered"])
	})

	t.Run("strict form surfaces the error", func(t *testing.T) {
		f := newFixture(t)
		f.submitter.err = apperrors.NewWebhookRejectedError(500, "down")

		payload, contentType := multipartBody(t, customDemoValues(), nil)
		w := f.do(http.MethodPost, "/api/forms/custom-demo/submit", contentType, payload)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "WEBHOOK_REJECTED", decode(t, w)["error"])
	})
}

func customDemoValues() map[string][]string {
	return map[string][]string{
		"name":     {"Jane Doe"},
		"email":    {"jane@example.com"},
		"phone":    {"555-123-4567"},
		"company":  {"Acme Dental"},
		"useCase":  {"Answer after-hours calls and book cleanings."},
		"channels": {"phone", "sms"},
	}
}

func TestSubmitForm_Multipart(t *testing.T) {
	f := newFixture(t)

	payload, contentType := multipartBody(t, customDemoValues(), map[string]string{"brief": "our brief"})
	w := f.do(http.MethodPost, "/api/forms/custom-demo/submit", contentType, payload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, true, body["submitted"])
	assert.Equal(t, float64(8), body["redirectIn"])

	require.Len(t, f.submitter.subs, 1)
	sub := f.submitter.subs[0]
	assert.Equal(t, forms.EncodingMultipart, sub.Encoding)
	assert.Equal(t, []string{"phone", "sms"}, sub.Selections["channels"])
	require.Contains(t, sub.Files, "brief")
	assert.Equal(t, "brief.txt", sub.Files["brief"].Name)
	assert.Equal(t, "text/plain", sub.Files["brief"].ContentType)
	assert.Equal(t, []byte("our brief"), sub.Files["brief"].Data)
}
