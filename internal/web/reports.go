package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leadcapture/internal/analytics"
	apperrors "leadcapture/internal/common/errors"
	"leadcapture/internal/errorreport"
)

func (s *Server) trackEvent(c *gin.Context) {
	if s.deps.Analytics == nil {
		s.unavailable(c, "Analytics")
		return
	}
	var e analytics.Event
	if err := c.ShouldBindJSON(&e); err != nil {
		s.fail(c, "analytics.track", apperrors.NewValidationFailedError(err.Error()))
		return
	}
	if e.SessionID == "" {
		e.SessionID, _ = c.Cookie(sessionCookie)
	}
	if err := s.deps.Analytics.Track(c.Request.Context(), e); err != nil {
		s.fail(c, "analytics.track", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

type clientErrorRequest struct {
	Message   string                 `json:"message" binding:"required"`
	Code      string                 `json:"code"`
	Stack     string                 `json:"stack"`
	URL       string                 `json:"url"`
	UserAgent string                 `json:"userAgent"`
	Context   map[string]interface{} `json:"context"`
}

// reportError accepts an error caught in the browser and answers with the
// notice the page should show for it.
func (s *Server) reportError(c *gin.Context) {
	var req clientErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, "errors.report", apperrors.NewValidationFailedError("message is required"))
		return
	}
	if req.UserAgent == "" {
		req.UserAgent = c.Request.UserAgent()
	}
	if req.URL == "" {
		req.URL = c.Request.Referer()
	}

	clientErr := &errorreport.ClientError{Message: req.Message, Code: req.Code, Stack: req.Stack}
	resp := gin.H{"notice": errorreport.NoticeFor(clientErr)}
	if s.deps.Errors != nil {
		report := s.deps.Errors.Report(c.Request.Context(), clientErr, errorreport.Context{
			URL:       req.URL,
			UserAgent: req.UserAgent,
			Extra:     req.Context,
		})
		resp["reportId"] = report.ID
	}
	c.JSON(http.StatusOK, resp)
}
