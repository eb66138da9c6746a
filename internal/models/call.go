package models

import "time"

// CallStatus mirrors the status values reported by the voice API.
type CallStatus string

const (
	CallStatusInitiated  CallStatus = "initiated"
	CallStatusQueued     CallStatus = "queued"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in-progress"
	CallStatusForwarding CallStatus = "forwarding"
	CallStatusEnded      CallStatus = "ended"
	CallStatusError      CallStatus = "error"
)

// IsTerminal reports whether no further status changes are expected.
func (s CallStatus) IsTerminal() bool {
	return s == CallStatusEnded || s == CallStatusError
}

// ParseCallStatus maps an API status string onto a CallStatus; unknown values
// are kept verbatim.
func ParseCallStatus(s string) CallStatus {
	switch CallStatus(s) {
	case CallStatusInitiated, CallStatusQueued, CallStatusRinging, CallStatusInProgress,
		CallStatusForwarding, CallStatusEnded, CallStatusError:
		return CallStatus(s)
	case "failed":
		return CallStatusError
	}
	return CallStatus(s)
}

// CallRecord is an entry in the recent-calls list.
type CallRecord struct {
	ID          string     `json:"id"`
	PhoneNumber string     `json:"phoneNumber"`
	Status      CallStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
	Duration    *float64   `json:"duration,omitempty"` // seconds
	Cost        *float64   `json:"cost,omitempty"`
	Transcript  string     `json:"transcript,omitempty"`
	Error       string     `json:"error,omitempty"`
}
