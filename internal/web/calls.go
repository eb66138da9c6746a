package web

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "leadcapture/internal/common/errors"
	"leadcapture/internal/voice"
)

type startCallRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
}

func (s *Server) startCall(c *gin.Context) {
	if s.deps.Calls == nil {
		s.unavailable(c, "Outbound calling")
		return
	}
	var req startCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, "calls.start", apperrors.NewValidationFailedError("phoneNumber is required"))
		return
	}
	rec, err := s.deps.Calls.Start(c.Request.Context(), req.PhoneNumber)
	if err != nil {
		s.fail(c, "calls.start", err)
		return
	}
	c.JSON(http.StatusAccepted, rec)
}

func (s *Server) listCalls(c *gin.Context) {
	if s.deps.Calls == nil {
		s.unavailable(c, "Outbound calling")
		return
	}
	records, err := s.deps.Calls.List(c.Request.Context())
	if err != nil {
		s.fail(c, "calls.list", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": records})
}

func (s *Server) getCall(c *gin.Context) {
	if s.deps.Calls == nil {
		s.unavailable(c, "Outbound calling")
		return
	}
	rec, err := s.deps.Calls.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, "calls.get", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type startSessionRequest struct {
	Overrides map[string]interface{} `json:"overrides"`
}

func (s *Server) voiceStatus(c *gin.Context) {
	if s.deps.Voice == nil {
		s.unavailable(c, "Voice assistant")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"active": s.deps.Voice.Active(),
		"callId": s.deps.Voice.CallID(),
	})
}

func (s *Server) startVoiceSession(c *gin.Context) {
	if s.deps.Voice == nil {
		s.unavailable(c, "Voice assistant")
		return
	}
	var req startSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.fail(c, "voice.start", apperrors.NewValidationFailedError(err.Error()))
			return
		}
	}
	call, err := s.deps.Voice.StartCall(c.Request.Context(), req.Overrides)
	if err != nil {
		s.voiceError(c, "voice.start", err)
		return
	}
	c.JSON(http.StatusCreated, call)
}

func (s *Server) stopVoiceSession(c *gin.Context) {
	if s.deps.Voice == nil {
		s.unavailable(c, "Voice assistant")
		return
	}
	if err := s.deps.Voice.StopCall(c.Request.Context()); err != nil {
		s.voiceError(c, "voice.stop", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) voiceTools(c *gin.Context) {
	if s.deps.Voice == nil {
		s.unavailable(c, "Voice assistant")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tools": s.deps.Voice.Tools()})
}

func (s *Server) voiceError(c *gin.Context, operation string, err error) {
	switch {
	case stderrors.Is(err, voice.ErrNotInitialized):
		s.fail(c, operation, apperrors.NewVoiceNotConfiguredError(err.Error()))
	case stderrors.Is(err, voice.ErrCallInProgress), stderrors.Is(err, voice.ErrNoActiveCall):
		c.AbortWithStatusJSON(http.StatusConflict, apperrors.Response{
			Error:   "VOICE_SESSION_CONFLICT",
			Message: err.Error(),
		})
	default:
		s.fail(c, operation, err)
	}
}
