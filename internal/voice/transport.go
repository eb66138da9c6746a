package voice

import (
	"context"
	"strings"
	"time"

	"leadcapture/internal/common/logger"
	"leadcapture/internal/models"
)

// HTTPTransport drives web calls over the REST API. Without a realtime
// channel, events are derived from status polling: call-start once the call
// is in progress, message for new transcript text, error and call-end on a
// terminal status.
type HTTPTransport struct {
	client   *APIClient
	interval time.Duration
	timeout  time.Duration
	logger   logger.Logger
}

func NewHTTPTransport(client *APIClient, interval, timeout time.Duration, log logger.Logger) *HTTPTransport {
	return &HTTPTransport{
		client:   client,
		interval: interval,
		timeout:  timeout,
		logger:   logger.Component(log, "voice-transport"),
	}
}

func (t *HTTPTransport) Start(ctx context.Context, req StartRequest) (*WebCall, error) {
	overrides := map[string]interface{}{}
	for k, v := range req.Overrides {
		overrides[k] = v
	}
	if len(req.Tools) > 0 {
		overrides["tools"] = req.Tools
	}
	return t.client.StartWebCallAs(ctx, req.APIKey, req.AssistantID, overrides)
}

func (t *HTTPTransport) Stop(ctx context.Context, id string) error {
	return t.client.EndCall(ctx, id)
}

func (t *HTTPTransport) Events(ctx context.Context, id string, emit func(Event)) {
	var (
		started    bool
		transcript string
	)

	poller := NewPoller(t.client, t.interval, t.timeout, t.logger)
	_, err := poller.Poll(ctx, id, func(st *CallStatus) {
		if !started && (st.Status == models.CallStatusInProgress || st.Status.IsTerminal()) {
			started = true
			emit(Event{Type: EventCallStart, Status: st})
		}
		if st.Transcript != "" && st.Transcript != transcript {
			delta := strings.TrimSpace(strings.TrimPrefix(st.Transcript, transcript))
			transcript = st.Transcript
			emit(Event{Type: EventMessage, Status: st, Message: map[string]interface{}{
				"type":       "transcript",
				"transcript": delta,
			}})
		}
		if st.Status == models.CallStatusError {
			emit(Event{Type: EventError, Status: st, Message: map[string]interface{}{"endedReason": st.EndedReason}})
		}
		if st.Terminal() {
			emit(Event{Type: EventCallEnd, Status: st})
		}
	})
	if err != nil && ctx.Err() == nil {
		emit(Event{Type: EventError, Err: err})
	}
}
