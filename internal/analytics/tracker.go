// Package analytics forwards page views and interaction events to the
// configured collectors, fire-and-forget.
package analytics

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"leadcapture/internal/common/errors"
	"leadcapture/internal/common/logger"
	"leadcapture/internal/common/metrics"
	"leadcapture/internal/models"
)

type Event = models.AnalyticsEvent

const PageViewEvent = "page_view"

//go:embed event.schema.json
var eventSchema string

// Sink receives validated events.
type Sink interface {
	Name() string
	Send(ctx context.Context, e Event) error
}

type Tracker struct {
	sinks   []Sink
	schema  *gojsonschema.Schema
	timeout time.Duration
	logger  logger.Logger
	wg      sync.WaitGroup
	now     func() time.Time
}

func NewTracker(timeout time.Duration, log logger.Logger, sinks ...Sink) (*Tracker, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(eventSchema))
	if err != nil {
		return nil, fmt.Errorf("compile event schema: %w", err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Tracker{
		sinks:   sinks,
		schema:  schema,
		timeout: timeout,
		logger:  logger.Component(log, "analytics"),
		now:     time.Now,
	}, nil
}

// Track validates e and hands it to every sink in the background. Only
// validation errors are returned; sink failures are logged and counted.
func (t *Tracker) Track(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = t.now().UTC()
	}

	result, err := t.schema.Validate(gojsonschema.NewGoLoader(e))
	if err != nil {
		return errors.NewInternalError(err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			msgs = append(msgs, re.String())
		}
		metrics.AnalyticsEvents.WithLabelValues("validation", "rejected").Inc()
		return errors.NewValidationFailedError(strings.Join(msgs, "; "))
	}

	for _, sink := range t.sinks {
		t.wg.Add(1)
		go func(sink Sink) {
			defer t.wg.Done()
			sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
			defer cancel()

			if err := sink.Send(sendCtx, e); err != nil {
				metrics.AnalyticsEvents.WithLabelValues(sink.Name(), "failed").Inc()
				t.logger.Warn("analytics sink failed", map[string]interface{}{
					"sink":  sink.Name(),
					"event": e.Name,
					"error": err,
				})
				return
			}
			metrics.AnalyticsEvents.WithLabelValues(sink.Name(), "sent").Inc()
		}(sink)
	}
	return nil
}

// PageView tracks a page_view event.
func (t *Tracker) PageView(ctx context.Context, page, referrer, sessionID string) error {
	return t.Track(ctx, Event{
		Name:      PageViewEvent,
		Category:  "navigation",
		Page:      page,
		Referrer:  referrer,
		SessionID: sessionID,
	})
}

// Flush waits for in-flight sends.
func (t *Tracker) Flush() {
	t.wg.Wait()
}

var (
	sharedMu sync.RWMutex
	shared   *Tracker
)

// Shared returns the process-wide tracker. Until SetShared is called it has no sinks.
func Shared() *Tracker {
	sharedMu.RLock()
	t := shared
	sharedMu.RUnlock()
	if t != nil {
		return t
	}

	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared == nil {
		shared, _ = NewTracker(0, nil)
	}
	return shared
}

func SetShared(t *Tracker) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	shared = t
}
