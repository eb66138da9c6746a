package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "leadcapture/internal/common/errors"
	"leadcapture/internal/common/metrics"
	"leadcapture/internal/errorreport"
)

func isAPI(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/")
}

// recovery is the top-level error boundary: the panic is reported and the
// visitor gets a generic page, or a JSON 500 on the API.
func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		err := fmt.Errorf("panic: %v", recovered)
		rc := errorreport.Context{
			URL:       c.Request.URL.String(),
			UserAgent: c.Request.UserAgent(),
			Extra:     map[string]interface{}{"method": c.Request.Method},
		}
		if s.deps.Errors != nil {
			s.deps.Errors.Report(c.Request.Context(), err, rc)
		} else {
			s.logger.Error("request panicked", map[string]interface{}{"path": rc.URL, "error": err})
		}

		if isAPI(c) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, apperrors.Response{
				Error:   apperrors.ErrCodeInternal,
				Message: errorreport.GenericMessage,
			})
			return
		}
		c.HTML(http.StatusInternalServerError, "error.html", s.view("Something went wrong", gin.H{
			"Intro": "An unexpected error occurred. Reloading the page usually fixes it.",
		}))
		c.Abort()
	})
}

func (s *Server) tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := s.tracer.Start(c.Request.Context(), c.Request.Method+" "+routeOf(c),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.target", c.Request.URL.Path),
			))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

func (s *Server) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := routeOf(c)
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())

		fields := map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"route":    route,
			"status":   status,
			"duration": time.Since(start).String(),
		}
		if status >= 500 {
			s.logger.Error("request failed", fields)
		} else {
			s.logger.Debug("request served", fields)
		}
	}
}

// routeOf keeps metric cardinality bounded: unmatched paths (landing pages
// included) share one label.
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}
