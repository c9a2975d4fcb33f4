package domain

import "time"

// Check-in session status values.
const (
	SessionActive  = "ACTIVE"
	SessionExpired = "EXPIRED"
)

// CheckinSession is a time-boxed attendance-collection window for one course.
// At most one session per course is ACTIVE at any instant; creating a new one
// supersedes (expires) the previous. Once EXPIRED a session is immutable history.
type CheckinSession struct {
	SessionID string    `json:"id" dynamodbav:"session_id"`
	CourseID  string    `json:"course_id" dynamodbav:"course_id"`
	Token     string    `json:"-" dynamodbav:"token"`
	Status    string    `json:"status" dynamodbav:"status"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"expires_at"`
	// PurgeAt drives DynamoDB TTL cleanup of long-expired sessions.
	// Garbage collection only; correctness never depends on it.
	PurgeAt int64 `json:"-" dynamodbav:"purge_at"`
}

// Live reports whether the session accepts redemptions at the given instant.
// Expiry is evaluated lazily against the caller's clock; there is no sweeper.
func (s *CheckinSession) Live(now time.Time) bool {
	return s.Status == SessionActive && now.Before(s.ExpiresAt)
}

// ActiveSession is the per-course pointer to the current ACTIVE session.
// Version backs the conditional write that linearizes supersession per course.
type ActiveSession struct {
	CourseID  string `json:"course_id" dynamodbav:"course_id"`
	SessionID string `json:"session_id" dynamodbav:"session_id"`
	Version   int64  `json:"-" dynamodbav:"version"`
}

type CreateSessionRequest struct {
	TTLMinutes int `json:"ttl_minutes" validate:"required,gt=0,lte=180"`
}

// SessionStatus is the countdown projection polled by clients.
type SessionStatus struct {
	Active           bool       `json:"active"`
	SessionID        string     `json:"session_id,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	RemainingSeconds int64      `json:"remaining_seconds,omitempty"`
}
