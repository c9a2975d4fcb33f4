package domain

import "time"

// AttendanceRecord is the attendance-of-record for one student in one session.
// Keyed by (session_id, student_id); written exactly once, never mutated.
// CourseID and Date are denormalized so reports can query without joins.
type AttendanceRecord struct {
	SessionID  string    `json:"session_id" dynamodbav:"session_id"`
	StudentID  string    `json:"student_id" dynamodbav:"student_id"`
	CourseID   string    `json:"course_id" dynamodbav:"course_id"`
	Date       string    `json:"date" dynamodbav:"date"` // YYYY-MM-DD, derived from RecordedAt
	RecordedAt time.Time `json:"recorded_at" dynamodbav:"recorded_at"`
	// CourseStudent is course_id + "#" + student_id, the key of the
	// per-student reconcile index.
	CourseStudent string `json:"-" dynamodbav:"course_student"`
}

// RedeemOutcome is the result of presenting a token. All four are expected,
// non-fatal outcomes; none of them is an error.
type RedeemOutcome string

const (
	OutcomeRecorded        RedeemOutcome = "recorded"
	OutcomeAlreadyRecorded RedeemOutcome = "already_recorded"
	OutcomeExpired         RedeemOutcome = "expired"
	OutcomeNotFound        RedeemOutcome = "not_found"
)

type RedeemRequest struct {
	Token string `json:"token" validate:"required"`
}

// CourseReport is the date × student attendance matrix for one course.
type CourseReport struct {
	CourseID string      `json:"course_id"`
	Dates    []string    `json:"dates"`
	Rows     []ReportRow `json:"rows"`
}

type ReportRow struct {
	StudentID    string          `json:"student_id"`
	UniversityID string          `json:"university_id,omitempty"`
	Name         string          `json:"name,omitempty"`
	PerDate      map[string]bool `json:"per_date"`
}

// StudentReport summarises one student's attendance in one course.
type StudentReport struct {
	CourseID         string             `json:"course_id"`
	StudentID        string             `json:"student_id"`
	Records          []AttendanceRecord `json:"records"`
	SessionsHeld     int                `json:"sessions_held"`
	SessionsAttended int                `json:"sessions_attended"`
	Percentage       float64            `json:"percentage"`
}
