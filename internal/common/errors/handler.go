// internal/common/errors/handler.go
package errors

// ErrorHandler turns service errors into API responses with standardized logging.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Response is the JSON body returned for a failed API call.
type Response struct {
	Error   ErrorCode              `json:"error"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Resolve normalizes err, logs it and returns the HTTP status and body to send.
func (h *ErrorHandler) Resolve(operation string, err error) (int, Response) {
	stdErr := Normalize(err)
	status := HTTPStatus(stdErr.Code)

	fields := map[string]interface{}{
		"operation":     operation,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
		"status":        status,
	}
	if h.logger != nil {
		if status >= 500 {
			h.logger.Error("request failed", fields)
		} else {
			h.logger.Warn("request rejected", fields)
		}
	}

	resp := Response{
		Error:   stdErr.Code,
		Message: stdErr.Message,
		Fields:  stdErr.Metadata,
	}
	if status < 500 {
		resp.Details = stdErr.Details
	}
	return status, resp
}
