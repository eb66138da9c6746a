package zoho

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertContact(t *testing.T) {
	tests := []struct {
		name        string
		searchCode  int
		searchBody  string
		wantID      string
		wantCreated bool
	}{
		{
			name:       "existing contact",
			searchCode: http.StatusOK,
			searchBody: `{"data":[{"id":"c-1","Email":"jane@example.com","Last_Name":"Doe"}]}`,
			wantID:     "c-1",
		},
		{
			name:        "no match creates",
			searchCode:  http.StatusNoContent,
			wantID:      "c-new",
			wantCreated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var created Contact
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Zoho-oauthtoken tok", r.Header.Get("Authorization"))
				switch {
				case r.Method == http.MethodGet && r.URL.Path == "/Contacts/search":
					assert.Equal(t, "jane@example.com", r.URL.Query().Get("email"))
					w.WriteHeader(tt.searchCode)
					_, _ = w.Write([]byte(tt.searchBody))
				case r.Method == http.MethodPost && r.URL.Path == "/Contacts":
					var payload struct {
						Data []Contact `json:"data"`
					}
					require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
					created = payload.Data[0]
					w.WriteHeader(http.StatusCreated)
					_, _ = w.Write([]byte(`{"data":[{"code":"SUCCESS","status":"success","details":{"id":"c-new"}}]}`))
				default:
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
			}))
			defer srv.Close()

			client := NewCRMClient("tok", srv.URL)
			id, wasCreated, err := client.UpsertContact(context.Background(), &Contact{Email: "jane@example.com", LastName: "Doe"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantCreated, wasCreated)
			if tt.wantCreated {
				assert.Equal(t, "Doe", created.LastName)
			}
		})
	}
}

func TestCreateContact_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"status":"error","message":"DUPLICATE_DATA"}]}`))
	}))
	defer srv.Close()

	_, err := NewCRMClient("tok", srv.URL).CreateContact(context.Background(), &Contact{Email: "a@b.co", LastName: "B"})
	assert.ErrorContains(t, err, "DUPLICATE_DATA")
}
