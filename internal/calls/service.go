package calls

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"leadcapture/internal/common/errors"
	"leadcapture/internal/common/logger"
	"leadcapture/internal/common/metrics"
	"leadcapture/internal/models"
	"leadcapture/internal/voice"
)

// CallStarter is satisfied by *voice.APIClient.
type CallStarter interface {
	StartCall(ctx context.Context, customerNumber string) (*voice.Call, error)
}

// Service starts outbound calls, records them and keeps each record current
// with a background status poller.
type Service struct {
	starter CallStarter
	poller  *voice.Poller
	store   Store
	logger  logger.Logger

	// base bounds background pollers; it is cancelled on shutdown.
	base context.Context
	wg   sync.WaitGroup
	now  func() time.Time
}

func NewService(base context.Context, starter CallStarter, poller *voice.Poller, store Store, log logger.Logger) *Service {
	return &Service{
		starter: starter,
		poller:  poller,
		store:   store,
		logger:  logger.Component(log, "calls"),
		base:    base,
		now:     time.Now,
	}
}

// Start places a call to number and begins polling its status.
func (s *Service) Start(ctx context.Context, number string) (Record, error) {
	call, err := s.starter.StartCall(ctx, number)
	if err != nil {
		metrics.CallsStarted.WithLabelValues("error").Inc()
		return Record{}, err
	}
	metrics.CallsStarted.WithLabelValues("ok").Inc()

	now := s.now().UTC()
	rec := Record{
		ID:          call.ID,
		PhoneNumber: call.PhoneNumber,
		Status:      call.Status,
		CreatedAt:   call.CreatedAt,
		UpdatedAt:   now,
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if err := s.store.Add(ctx, rec); err != nil {
		s.logger.Error("failed to record call", map[string]interface{}{"callId": call.ID, "error": err})
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.track(call.ID)
	}()
	return rec, nil
}

// track polls id until it ends. Polling stops early once the record has
// been evicted from the store, since there is nothing left to update.
func (s *Service) track(id string) {
	ctx, cancel := context.WithCancel(s.base)
	defer cancel()

	evicted := false
	_, err := s.poller.Poll(ctx, id, func(st *voice.CallStatus) {
		_, err := s.store.Update(ctx, id, func(r *Record) { s.apply(r, st) })
		switch {
		case err == nil:
		case errors.IsCode(err, errors.ErrCodeCallNotFound):
			evicted = true
			cancel()
		default:
			s.logger.Warn("failed to update call record", map[string]interface{}{"callId": id, "error": err})
		}
	})
	switch {
	case evicted:
		s.logger.Info("stopped polling evicted call", map[string]interface{}{"callId": id})
	case err == nil:
	case stderrors.Is(err, voice.ErrPollTimeout):
		s.logger.Warn("stopped polling call without a terminal status", map[string]interface{}{"callId": id})
	case stderrors.Is(err, context.Canceled):
	default:
		s.logger.Error("call polling stopped", map[string]interface{}{"callId": id, "error": err})
	}
}

func (s *Service) apply(r *Record, st *voice.CallStatus) {
	r.Status = st.Status
	r.UpdatedAt = s.now().UTC()
	if st.EndedAt != nil {
		r.EndedAt = st.EndedAt
	}
	if st.Duration != nil {
		r.Duration = st.Duration
	}
	if st.Cost != nil {
		r.Cost = st.Cost
	}
	if st.Transcript != "" {
		r.Transcript = st.Transcript
	}
	if st.Status == models.CallStatusError {
		r.Error = st.EndedReason
	}
}

func (s *Service) List(ctx context.Context) ([]Record, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.store.Get(ctx, id)
}

// Wait blocks until every background poller has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}
