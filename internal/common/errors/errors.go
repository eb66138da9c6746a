// Package errors provides standardized error handling for the site services.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidPhoneNumber ErrorCode = "INVALID_PHONE_NUMBER"
	ErrCodeFormNotFound       ErrorCode = "FORM_NOT_FOUND"

	ErrCodeWebhookNotConfigured ErrorCode = "WEBHOOK_NOT_CONFIGURED"
	ErrCodeWebhookUnreachable   ErrorCode = "WEBHOOK_UNREACHABLE"
	ErrCodeWebhookRejected      ErrorCode = "WEBHOOK_REJECTED"

	ErrCodeVoiceNotConfigured ErrorCode = "VOICE_NOT_CONFIGURED"
	ErrCodeVoiceAPIError      ErrorCode = "VOICE_API_ERROR"
	ErrCodeCallNotFound       ErrorCode = "CALL_NOT_FOUND"

	ErrCodeLandingPageNotFound ErrorCode = "LANDING_PAGE_NOT_FOUND"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeDatabaseQueryFailed      ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeCacheError               ErrorCode = "CACHE_ERROR"
	ErrCodeSearchIndexFailed        ErrorCode = "SEARCH_INDEX_FAILED"

	ErrCodeCRMAPIError            ErrorCode = "CRM_API_ERROR"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata returns e with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 2. Error Constructors
// ==========================

func NewValidationFailedError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Submitted data failed validation", details, false)
}

func NewInvalidPhoneNumberError(raw string, err error) *StandardError {
	return newError(ErrCodeInvalidPhoneNumber, "Invalid phone number",
		fmt.Sprintf("input: %q, error: %v", raw, err), false)
}

func NewFormNotFoundError(form string) *StandardError {
	return newError(ErrCodeFormNotFound, "Form not found", fmt.Sprintf("form: %s", form), false)
}

func NewWebhookNotConfiguredError(form string) *StandardError {
	return newError(ErrCodeWebhookNotConfigured, "No webhook configured for form",
		fmt.Sprintf("form: %s", form), false)
}

func NewWebhookUnreachableError(err error) *StandardError {
	return newError(ErrCodeWebhookUnreachable, "Webhook endpoint unreachable", err.Error(), true)
}

// NewWebhookRejectedError marks 5xx rejections retryable and 4xx rejections final.
func NewWebhookRejectedError(status int, body string) *StandardError {
	return newError(ErrCodeWebhookRejected, "Webhook rejected submission",
		fmt.Sprintf("status: %d, body: %s", status, truncate(body, 512)), status >= 500).
		WithMetadata("statusCode", status)
}

func NewVoiceNotConfiguredError(details string) *StandardError {
	return newError(ErrCodeVoiceNotConfigured, "Voice integration not configured", details, false)
}

func NewVoiceAPIError(operation string, err error) *StandardError {
	return newError(ErrCodeVoiceAPIError, fmt.Sprintf("Voice API %s failed", operation), err.Error(), true)
}

func NewCallNotFoundError(callID string) *StandardError {
	return newError(ErrCodeCallNotFound, "Call not found", fmt.Sprintf("callId: %s", callID), false)
}

func NewLandingPageNotFoundError(slug string) *StandardError {
	return newError(ErrCodeLandingPageNotFound, "Landing page not found", fmt.Sprintf("slug: %s", slug), false)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert operation failed", err.Error(), true)
}

func NewDatabaseQueryFailedError(query string, err error) *StandardError {
	return newError(ErrCodeDatabaseQueryFailed, "Database query execution error",
		fmt.Sprintf("query: %s, error: %s", query, err.Error()), true)
}

func NewCacheError(err error) *StandardError {
	return newError(ErrCodeCacheError, "Cache operation failed", err.Error(), true)
}

func NewSearchIndexFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchIndexFailed, "Search index write failed",
		fmt.Sprintf("index: %s, error: %s", index, err.Error()), true)
}

func NewCRMAPIError(err error) *StandardError {
	return newError(ErrCodeCRMAPIError, "Failed to sync CRM contact", err.Error(), true)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// ==========================
// 3. Classification
// ==========================

// Normalize returns err as a StandardError, wrapping unknown errors as INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// CodeOf returns the code carried by err, or "" when err is not a StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// IsCode reports whether err carries code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsRetryable reports whether err is a retryable StandardError.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "WEBHOOK"):
		return "WEBHOOK"
	case strings.Contains(codeStr, "VOICE") || strings.Contains(codeStr, "CALL"):
		return "VOICE"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "CACHE") || strings.Contains(codeStr, "SEARCH"):
		return "STORAGE"
	case strings.Contains(codeStr, "CRM") || strings.Contains(codeStr, "NOTIFICATION"):
		return "INTEGRATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "UNKNOWN"
	}
}

// HTTPStatus maps an error code to the status returned by the JSON API.
func HTTPStatus(code ErrorCode) int {
	switch GetErrorCategory(code) {
	case "VALIDATION":
		return http.StatusUnprocessableEntity
	case "NOT_FOUND":
		return http.StatusNotFound
	case "WEBHOOK", "VOICE", "INTEGRATION":
		if code == ErrCodeVoiceNotConfigured || code == ErrCodeWebhookNotConfigured {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	case "STORAGE":
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
