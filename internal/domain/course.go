package domain

import "time"

type Course struct {
	CourseID     string    `json:"id" dynamodbav:"course_id"`
	Code         string    `json:"course_code" dynamodbav:"course_code"`
	Name         string    `json:"course_name" dynamodbav:"course_name"`
	LecturerID   string    `json:"lecturer_id" dynamodbav:"lecturer_id"`
	LecturerName string    `json:"lecturer_name,omitempty" dynamodbav:"-"`
	StudentCount int       `json:"student_count" dynamodbav:"-"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateCourseRequest struct {
	Code string `json:"course_code" validate:"required"`
	Name string `json:"course_name" validate:"required"`
}

// UpdateCourseRequest carries a partial update; nil fields are left as is.
type UpdateCourseRequest struct {
	Code *string `json:"course_code,omitempty" validate:"omitempty,min=1"`
	Name *string `json:"course_name,omitempty" validate:"omitempty,min=1"`
}

// Enrollment links a student to a course. At most one per (course, student).
type Enrollment struct {
	CourseID   string    `json:"course_id" dynamodbav:"course_id"`
	StudentID  string    `json:"student_id" dynamodbav:"student_id"`
	EnrolledAt time.Time `json:"enrolled_at" dynamodbav:"enrolled_at"`
}
