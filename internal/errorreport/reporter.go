// Package errorreport forwards errors to the error-reporting endpoint and
// turns them into copy a visitor can read.
package errorreport

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "leadcapture/internal/common/errors"
	httpclient "leadcapture/internal/common/http"
	"leadcapture/internal/common/logger"
	"leadcapture/internal/common/metrics"
	"leadcapture/internal/models"
)

// Context describes where an error happened.
type Context struct {
	URL       string
	UserAgent string
	Extra     map[string]interface{}
}

// ClientError is an error reported by the browser.
type ClientError struct {
	Message string
	Code    string
	Stack   string
}

func (e *ClientError) Error() string { return e.Message }

type Reporter struct {
	endpoint string
	client   *httpclient.Client
	timeout  time.Duration
	logger   logger.Logger
	wg       sync.WaitGroup
	now      func() time.Time
}

// NewReporter builds a reporter. An empty endpoint only logs.
func NewReporter(endpoint string, timeout time.Duration, log logger.Logger) *Reporter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Reporter{
		endpoint: endpoint,
		client:   httpclient.NewClient(timeout),
		timeout:  timeout,
		logger:   logger.Component(log, "errorreport"),
		now:      time.Now,
	}
}

// Report logs err and forwards it in the background. It returns the report
// that was sent.
func (r *Reporter) Report(ctx context.Context, err error, rc Context) models.ErrorReport {
	report := models.ErrorReport{
		ID:        uuid.NewString(),
		Message:   err.Error(),
		Category:  Category(err),
		URL:       rc.URL,
		UserAgent: rc.UserAgent,
		Context:   rc.Extra,
		Timestamp: r.now().UTC(),
	}
	if code := apperrors.CodeOf(err); code != "" {
		report.Code = string(code)
	}
	var ce *ClientError
	if stderrors.As(err, &ce) {
		report.Code = ce.Code
		report.Stack = ce.Stack
	}

	notify := ShouldNotify(err)
	metrics.ErrorReports.WithLabelValues(report.Category, strconv.FormatBool(notify)).Inc()
	r.logger.Error("error reported", map[string]interface{}{
		"reportId": report.ID,
		"category": report.Category,
		"code":     report.Code,
		"url":      report.URL,
		"error":    err,
	})

	if r.endpoint == "" {
		return report
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		resp, sendErr := r.client.SendJSON(sendCtx, http.MethodPost, r.endpoint, report, nil)
		if sendErr == nil && !resp.OK() {
			sendErr = apperrors.NewNotificationSendFailedError("error-endpoint", fmt.Errorf("status %d", resp.StatusCode))
		}
		if sendErr != nil {
			r.logger.Warn("failed to forward error report", map[string]interface{}{
				"reportId": report.ID,
				"error":    sendErr,
			})
		}
	}()
	return report
}

// Flush waits for in-flight reports.
func (r *Reporter) Flush() {
	r.wg.Wait()
}

// Category groups err for reporting: the error-code category for
// application errors, otherwise a guess from the message.
func Category(err error) string {
	if code := apperrors.CodeOf(err); code != "" {
		return apperrors.GetErrorCategory(code)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case isNetwork(msg):
		return "NETWORK"
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	}
	return "UNKNOWN"
}

var (
	sharedMu sync.RWMutex
	shared   *Reporter
)

// Shared returns the process-wide reporter. Until SetShared is called it only logs.
func Shared() *Reporter {
	sharedMu.RLock()
	r := shared
	sharedMu.RUnlock()
	if r != nil {
		return r
	}

	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared == nil {
		shared = NewReporter("", 0, nil)
	}
	return shared
}

func SetShared(r *Reporter) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	shared = r
}
