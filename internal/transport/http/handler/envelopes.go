package handler

import (
	"encoding/json"
	"net/http"

	"github.com/qr-attendance-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuthEnvelope wraps login/register responses.
type AuthEnvelope struct {
	Bearer  string       `json:"token,omitempty"`
	User    *domain.User `json:"user,omitempty"`
	Message string       `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// SessionEnvelope wraps create-session responses. The token travels here
// exactly once; it is never readable back out of the session resource.
type SessionEnvelope struct {
	SessionID string `json:"session_id"`
	CourseID  string `json:"course_id"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// RedeemEnvelope wraps check-in responses.
type RedeemEnvelope struct {
	Status domain.RedeemOutcome `json:"status"`
}

// CoursesEnvelope wraps course list responses.
type CoursesEnvelope struct {
	Courses []domain.Course `json:"courses"`
}

// AttendanceEnvelope wraps attendance record lists.
type AttendanceEnvelope struct {
	Records []domain.AttendanceRecord `json:"records"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
