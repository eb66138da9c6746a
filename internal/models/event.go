package models

import "time"

// AnalyticsEvent is a page view or interaction forwarded to the collectors.
type AnalyticsEvent struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Category   string                 `json:"category,omitempty"`
	Page       string                 `json:"page,omitempty"`
	Referrer   string                 `json:"referrer,omitempty"`
	SessionID  string                 `json:"sessionId,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// ErrorReport is a client or server error forwarded to the error endpoint.
type ErrorReport struct {
	ID        string                 `json:"id"`
	Message   string                 `json:"message"`
	Code      string                 `json:"code,omitempty"`
	Category  string                 `json:"category,omitempty"`
	Stack     string                 `json:"stack,omitempty"`
	URL       string                 `json:"url,omitempty"`
	UserAgent string                 `json:"userAgent,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}
