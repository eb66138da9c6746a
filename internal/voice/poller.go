package voice

import (
	"context"
	"errors"
	"time"

	"leadcapture/internal/common/logger"
	"leadcapture/internal/common/metrics"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollTimeout  = 30 * time.Minute
)

var ErrPollTimeout = errors.New("call status polling timed out")

// StatusFetcher is satisfied by *APIClient.
type StatusFetcher interface {
	GetCall(ctx context.Context, id string) (*CallStatus, error)
}

// Poller fetches a call's status at a fixed interval. Fetch errors are logged
// and the next tick simply tries again.
type Poller struct {
	Fetcher  StatusFetcher
	Interval time.Duration
	Timeout  time.Duration
	Logger   logger.Logger
}

func NewPoller(fetcher StatusFetcher, interval, timeout time.Duration, log logger.Logger) *Poller {
	return &Poller{
		Fetcher:  fetcher,
		Interval: interval,
		Timeout:  timeout,
		Logger:   logger.Component(log, "voice-poller"),
	}
}

// Poll runs until the call reaches a terminal status, Timeout elapses or ctx
// is cancelled. onUpdate, when set, sees every status fetched. The last status
// seen is returned in every case.
func (p *Poller) Poll(ctx context.Context, id string, onUpdate func(*CallStatus)) (*CallStatus, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	log := p.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	metrics.ActivePolls.Inc()
	defer metrics.ActivePolls.Dec()

	end := time.Now().Add(timeout)
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *CallStatus
	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-deadline.C:
			log.Warn("call polling timed out", map[string]interface{}{"callId": id, "timeout": timeout.String()})
			return last, ErrPollTimeout
		case <-ticker.C:
		}
		if !time.Now().Before(end) {
			log.Warn("call polling timed out", map[string]interface{}{"callId": id, "timeout": timeout.String()})
			return last, ErrPollTimeout
		}

		st, err := p.Fetcher.GetCall(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			metrics.CallPolls.WithLabelValues("error").Inc()
			log.Warn("call status poll failed", map[string]interface{}{"callId": id, "error": err})
			continue
		}
		metrics.CallPolls.WithLabelValues("ok").Inc()

		last = st
		if onUpdate != nil {
			onUpdate(st)
		}
		if st.Terminal() {
			log.Info("call reached terminal status", map[string]interface{}{"callId": id, "status": string(st.Status)})
			return st, nil
		}
	}
}
