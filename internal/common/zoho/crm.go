package zoho

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	httpclient "leadcapture/internal/common/http"
)

const defaultBaseURL = "https://www.zohoapis.com/crm/v3"

type CRMClient struct {
	oauthToken string
	baseURL    string
	http       *httpclient.Client
}

type Contact struct {
	ID          string `json:"id,omitempty"`
	Email       string `json:"Email"`
	FirstName   string `json:"First_Name,omitempty"`
	LastName    string `json:"Last_Name"`
	Phone       string `json:"Phone,omitempty"`
	Company     string `json:"Account_Name,omitempty"`
	Source      string `json:"Lead_Source,omitempty"`
	Description string `json:"Description,omitempty"`
}

type CreateContactResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"data"`
}

func NewCRMClient(oauthToken, baseURL string) *CRMClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &CRMClient{
		oauthToken: oauthToken,
		baseURL:    baseURL,
		http:       httpclient.NewClient(30 * time.Second),
	}
}

func (c *CRMClient) headers() map[string]string {
	return map[string]string{"Authorization": "Zoho-oauthtoken " + c.oauthToken}
}

func (c *CRMClient) CreateContact(ctx context.Context, contact *Contact) (string, error) {
	payload := map[string]interface{}{
		"data": []Contact{*contact},
	}

	resp, err := c.http.SendJSON(ctx, http.MethodPost, c.baseURL+"/Contacts", payload, c.headers())
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to create contact (status %d): %s", resp.StatusCode, string(resp.Body))
	}

	var createResp CreateContactResponse
	if err := resp.Decode(&createResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(createResp.Data) == 0 {
		return "", fmt.Errorf("no data in response")
	}
	if createResp.Data[0].Status != "success" {
		return "", fmt.Errorf("contact creation failed: %s", createResp.Data[0].Message)
	}

	return createResp.Data[0].Details.ID, nil
}

// SearchContacts looks contacts up by email. Zoho answers 204 when nothing matches.
func (c *CRMClient) SearchContacts(ctx context.Context, email string) ([]Contact, error) {
	endpoint := fmt.Sprintf("%s/Contacts/search?email=%s", c.baseURL, url.QueryEscape(email))

	resp, err := c.http.SendJSON(ctx, http.MethodGet, endpoint, nil, c.headers())
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to search contacts (status %d): %s", resp.StatusCode, string(resp.Body))
	}

	var result struct {
		Data []Contact `json:"data"`
	}
	if err := resp.Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Data, nil
}

// UpsertContact returns the id of the contact with contact.Email, creating it when absent.
func (c *CRMClient) UpsertContact(ctx context.Context, contact *Contact) (id string, created bool, err error) {
	existing, err := c.SearchContacts(ctx, contact.Email)
	if err != nil {
		return "", false, err
	}
	if len(existing) > 0 {
		return existing[0].ID, false, nil
	}
	id, err = c.CreateContact(ctx, contact)
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}
