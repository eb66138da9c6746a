// Package webhook forwards completed forms to workflow-automation webhooks.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
	"time"

	"leadcapture/internal/common/errors"
	httpclient "leadcapture/internal/common/http"
	"leadcapture/internal/common/logger"
	"leadcapture/internal/common/metrics"
	"leadcapture/internal/forms"
)

// Response is a successful delivery. Body holds the parsed JSON reply, or the
// raw text under "raw" when the webhook did not answer with JSON.
type Response struct {
	StatusCode int                    `json:"statusCode"`
	Body       map[string]interface{} `json:"body,omitempty"`
	Delivered  bool                   `json:"delivered"`
}

type Client struct {
	http   *httpclient.Client
	logger logger.Logger
}

func NewClient(timeout time.Duration, log logger.Logger) *Client {
	return NewClientWith(httpclient.NewClient(timeout), log)
}

func NewClientWith(c *httpclient.Client, log logger.Logger) *Client {
	return &Client{http: c, logger: logger.Component(log, "webhook")}
}

// Send POSTs sub to url using the submission's encoding.
func (c *Client) Send(ctx context.Context, url string, sub *forms.Submission) (*Response, error) {
	if url == "" {
		return nil, errors.NewWebhookNotConfiguredError(sub.Form)
	}

	body, contentType, err := encode(sub)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewWebhookUnreachableError(err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Send(ctx, req)
	if err != nil {
		metrics.WebhookDuration.WithLabelValues(sub.Form, "unreachable").Observe(time.Since(start).Seconds())
		c.logger.Error("webhook unreachable", map[string]interface{}{"form": sub.Form, "error": err})
		return nil, errors.NewWebhookUnreachableError(err)
	}
	metrics.WebhookDuration.WithLabelValues(sub.Form, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if !resp.OK() {
		c.logger.Warn("webhook rejected submission", map[string]interface{}{
			"form":       sub.Form,
			"statusCode": resp.StatusCode,
		})
		return nil, errors.NewWebhookRejectedError(resp.StatusCode, string(resp.Body))
	}

	c.logger.Debug("webhook accepted submission", map[string]interface{}{
		"form":       sub.Form,
		"statusCode": resp.StatusCode,
	})
	return &Response{
		StatusCode: resp.StatusCode,
		Body:       parseBody(resp.Body),
		Delivered:  true,
	}, nil
}

func encode(sub *forms.Submission) ([]byte, string, error) {
	if sub.Encoding == forms.EncodingMultipart {
		return encodeMultipart(sub)
	}
	data, err := json.Marshal(sub.Fields())
	if err != nil {
		return nil, "", fmt.Errorf("marshal submission: %w", err)
	}
	return data, "application/json", nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeMultipart writes selections as repeated fields and attachments as file parts.
func encodeMultipart(sub *forms.Submission) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("form", sub.Form); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("submittedAt", sub.SubmittedAt.UTC().Format(time.RFC3339)); err != nil {
		return nil, "", err
	}
	for _, k := range sortedKeys(sub.Values) {
		if err := w.WriteField(k, sub.Values[k]); err != nil {
			return nil, "", err
		}
	}
	for _, k := range sortedKeys(sub.Selections) {
		for _, v := range sub.Selections[k] {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}
	}
	for _, k := range sortedKeys(sub.Files) {
		f := sub.Files[k]
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(k), quoteEscaper.Replace(f.Name)))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func parseBody(body []byte) map[string]interface{} {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(body, &obj); err == nil {
		return obj
	}
	var v interface{}
	if err := json.Unmarshal(body, &v); err == nil {
		return map[string]interface{}{"data": v}
	}
	return map[string]interface{}{"raw": string(body)}
}
