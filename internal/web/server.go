// Package web serves the site: content and landing pages, the JSON API
// behind the forms, calls and voice widgets, and the ops endpoints.
package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"leadcapture/internal/analytics"
	"leadcapture/internal/calls"
	apperrors "leadcapture/internal/common/errors"
	"leadcapture/internal/common/logger"
	"leadcapture/internal/common/observability"
	"leadcapture/internal/errorreport"
	"leadcapture/internal/forms"
	"leadcapture/internal/models"
	"leadcapture/internal/voice"
)

//go:embed templates/*.html
var templateFS embed.FS

const defaultMaxUploadBytes = 10 << 20

type CallService interface {
	Start(ctx context.Context, number string) (calls.Record, error)
	List(ctx context.Context) ([]calls.Record, error)
	Get(ctx context.Context, id string) (calls.Record, error)
}

type VoiceSession interface {
	StartCall(ctx context.Context, overrides map[string]interface{}) (*voice.WebCall, error)
	StopCall(ctx context.Context) error
	Tools() []voice.Tool
	Active() bool
	CallID() string
}

type LandingPages interface {
	Get(ctx context.Context, slug string) (*models.LandingPage, error)
}

type EventTracker interface {
	Track(ctx context.Context, e analytics.Event) error
	PageView(ctx context.Context, page, referrer, sessionID string) error
}

type ErrorReporter interface {
	Report(ctx context.Context, err error, rc errorreport.Context) models.ErrorReport
}

// Dependencies wires the router. Nil services make their routes answer 503.
type Dependencies struct {
	SiteName       string
	Forms          map[string]forms.Definition
	Submitter      forms.Submitter
	Calls          CallService
	Voice          VoiceSession
	Landing        LandingPages
	Analytics      EventTracker
	Errors         ErrorReporter
	Ready          func(ctx context.Context) error
	Tracer         trace.Tracer
	MaxUploadBytes int64
	Logger         logger.Logger
}

type Server struct {
	deps     Dependencies
	logger   logger.Logger
	errs     *apperrors.ErrorHandler
	tracer   trace.Tracer
	now      func() time.Time
	template *template.Template
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	s, err := newServer(deps)
	if err != nil {
		return nil, err
	}
	return s.routes(), nil
}

func newServer(deps Dependencies) (*Server, error) {
	if deps.SiteName == "" {
		deps.SiteName = "Lead Capture"
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = defaultMaxUploadBytes
	}
	if deps.Forms == nil {
		deps.Forms = map[string]forms.Definition{}
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	log := logger.Component(deps.Logger, "web")
	tracer := deps.Tracer
	if tracer == nil {
		tracer = observability.Tracer("web")
	}
	return &Server{
		deps:     deps,
		logger:   log,
		errs:     apperrors.NewErrorHandler(log),
		tracer:   tracer,
		now:      time.Now,
		template: tmpl,
	}, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.SetHTMLTemplate(s.template)
	r.MaxMultipartMemory = s.deps.MaxUploadBytes
	r.Use(s.recovery(), s.tracing(), s.requestMetrics())

	r.GET("/health", s.health)
	r.GET("/ready", s.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	for path := range contentPages {
		r.GET(path, s.contentPage)
	}

	api := r.Group("/api")
	{
		api.GET("/forms", s.listForms)
		api.GET("/forms/:form", s.getForm)
		api.POST("/forms/:form/validate", s.validateForm)
		api.POST("/forms/:form/submit", s.submitForm)

		api.POST("/calls", s.startCall)
		api.GET("/calls", s.listCalls)
		api.GET("/calls/:id", s.getCall)

		api.GET("/voice/session", s.voiceStatus)
		api.POST("/voice/session", s.startVoiceSession)
		api.DELETE("/voice/session", s.stopVoiceSession)
		api.GET("/voice/tools", s.voiceTools)

		api.POST("/analytics/events", s.trackEvent)
		api.POST("/errors", s.reportError)
	}

	// /:slug is resolved here so it never shadows the static routes above.
	r.NoRoute(s.landingPage)
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   s.now().Format(time.RFC3339),
	})
}

func (s *Server) ready(c *gin.Context) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   s.now().Format(time.RFC3339),
	})
}

// fail writes err as a JSON API error.
func (s *Server) fail(c *gin.Context, operation string, err error) {
	status, body := s.errs.Resolve(operation, err)
	c.AbortWithStatusJSON(status, body)
}

func (s *Server) unavailable(c *gin.Context, what string) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, apperrors.Response{
		Error:   "SERVICE_UNAVAILABLE",
		Message: what + " is not configured",
	})
}
