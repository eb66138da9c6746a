package voice

import (
	"context"
	"errors"
	"sync"

	"leadcapture/internal/common/logger"
)

var (
	ErrNotInitialized = errors.New("voice session not initialized")
	ErrCallInProgress = errors.New("a call is already in progress")
	ErrNoActiveCall   = errors.New("no active call")
)

type EventType string

const (
	EventCallStart   EventType = "call-start"
	EventCallEnd     EventType = "call-end"
	EventSpeechStart EventType = "speech-start"
	EventSpeechEnd   EventType = "speech-end"
	EventMessage     EventType = "message"
	EventError       EventType = "error"
)

type Event struct {
	Type    EventType              `json:"type"`
	CallID  string                 `json:"callId"`
	Message map[string]interface{} `json:"message,omitempty"`
	Status  *CallStatus            `json:"status,omitempty"`
	Err     error                  `json:"-"`
}

type Handler func(Event)

// StartRequest is what a Transport needs to open a session.
type StartRequest struct {
	APIKey      string
	AssistantID string
	Tools       []Tool
	Overrides   map[string]interface{}
}

// Transport connects a Session to the voice backend. Events blocks, calling
// emit for each event of call id, until the call is over or ctx is done.
type Transport interface {
	Start(ctx context.Context, req StartRequest) (*WebCall, error)
	Stop(ctx context.Context, id string) error
	Events(ctx context.Context, id string, emit func(Event))
}

// SessionConfig configures a Session. APIKey signs call starts; leave it
// empty to use the transport's own credentials.
type SessionConfig struct {
	APIKey      string
	AssistantID string
	Tools       []Tool
	Transport   Transport
}

// Session is a single voice conversation at a time, shared process-wide.
type Session struct {
	mu       sync.Mutex
	cfg      *SessionConfig
	handlers map[EventType][]Handler
	logger   logger.Logger

	callID string
	cancel context.CancelFunc
}

var (
	sharedOnce sync.Once
	shared     *Session
)

// Shared returns the process-wide session.
func Shared() *Session {
	sharedOnce.Do(func() {
		shared = NewSession(nil)
	})
	return shared
}

func NewSession(log logger.Logger) *Session {
	return &Session{
		handlers: map[EventType][]Handler{},
		logger:   logger.Component(log, "voice-session"),
	}
}

// SetLogger replaces the session's logger.
func (s *Session) SetLogger(log logger.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger.Component(log, "voice-session")
}

// Initialize configures the session. Reinitializing while a call runs fails.
func (s *Session) Initialize(cfg SessionConfig) error {
	if cfg.Transport == nil {
		return errors.New("voice session requires a transport")
	}
	if cfg.AssistantID == "" {
		return errors.New("voice session requires an assistant id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.callID != "" {
		return ErrCallInProgress
	}
	c := cfg
	s.cfg = &c
	return nil
}

func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg != nil
}

// Tools returns the declared tools.
func (s *Session) Tools() []Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		return nil
	}
	return append([]Tool(nil), s.cfg.Tools...)
}

// On registers h for events of type t.
func (s *Session) On(t EventType, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[t] = append(s.handlers[t], h)
}

func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callID != ""
}

// CallID is empty until the backend has assigned an id, although Active
// already reports true while a start is in flight.
func (s *Session) CallID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.callID == pendingCall {
		return ""
	}
	return s.callID
}

// StartCall opens a web call. Events are delivered to handlers from a
// background goroutine until the call ends or StopCall is called.
func (s *Session) StartCall(ctx context.Context, overrides map[string]interface{}) (*WebCall, error) {
	s.mu.Lock()
	if s.cfg == nil {
		s.mu.Unlock()
		return nil, ErrNotInitialized
	}
	if s.callID != "" {
		s.mu.Unlock()
		return nil, ErrCallInProgress
	}
	cfg := *s.cfg
	// Reserve the slot so concurrent starts fail fast.
	s.callID = pendingCall
	s.mu.Unlock()

	call, err := cfg.Transport.Start(ctx, StartRequest{
		APIKey:      cfg.APIKey,
		AssistantID: cfg.AssistantID,
		Tools:       cfg.Tools,
		Overrides:   overrides,
	})
	if err != nil {
		s.mu.Lock()
		s.callID = ""
		s.mu.Unlock()
		s.logger.Error("failed to start voice session", map[string]interface{}{"error": err})
		s.notify(Event{Type: EventError, Err: err})
		return nil, err
	}

	evCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.callID = call.ID
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Info("voice session started", map[string]interface{}{"callId": call.ID})
	go func() {
		cfg.Transport.Events(evCtx, call.ID, s.onTransportEvent(call.ID))
		s.finish(call.ID)
	}()
	return call, nil
}

const pendingCall = "pending"

// StopCall ends the running call and emits call-end.
func (s *Session) StopCall(ctx context.Context) error {
	s.mu.Lock()
	id := s.callID
	if id == "" || id == pendingCall {
		s.mu.Unlock()
		return ErrNoActiveCall
	}
	cancel := s.cancel
	transport := s.cfg.Transport
	s.callID = ""
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	err := transport.Stop(ctx, id)
	if err != nil {
		s.logger.Warn("voice backend did not confirm stop", map[string]interface{}{"callId": id, "error": err})
	}
	s.logger.Info("voice session stopped", map[string]interface{}{"callId": id})
	s.notify(Event{Type: EventCallEnd, CallID: id})
	return err
}

func (s *Session) onTransportEvent(id string) func(Event) {
	return func(e Event) {
		e.CallID = id

		s.mu.Lock()
		if s.callID != id {
			s.mu.Unlock()
			return
		}
		var cancel context.CancelFunc
		if e.Type == EventCallEnd {
			cancel = s.cancel
			s.callID = ""
			s.cancel = nil
		}
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}

		if e.Type == EventMessage && e.Message["type"] == "tool-calls" {
			s.logger.Info("assistant requested a tool call; tools are not executed here", map[string]interface{}{
				"callId":  id,
				"message": e.Message,
			})
		}
		s.notify(e)
	}
}

// finish emits call-end when the transport stopped without reporting one.
func (s *Session) finish(id string) {
	s.mu.Lock()
	current := s.callID == id
	cancel := s.cancel
	if current {
		s.callID = ""
		s.cancel = nil
	}
	s.mu.Unlock()

	if current {
		if cancel != nil {
			cancel()
		}
		s.notify(Event{Type: EventCallEnd, CallID: id})
	}
}

func (s *Session) notify(e Event) {
	s.mu.Lock()
	handlers := append([]Handler(nil), s.handlers[e.Type]...)
	s.mu.Unlock()

	for _, h := range handlers {
		h(e)
	}
}
