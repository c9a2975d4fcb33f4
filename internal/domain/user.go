package domain

import "time"

// Role names embedded in JWT claims.
const (
	RoleStudent  = "student"
	RoleLecturer = "lecturer"
)

type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	UniversityID string    `json:"university_id" dynamodbav:"university_id"`
	Name         string    `json:"name" dynamodbav:"name"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	Role         string    `json:"role" dynamodbav:"role"`
	Enable       bool      `json:"enable" dynamodbav:"enable"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

type RegisterRequest struct {
	UniversityID string `json:"university_id" validate:"required"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	Name         string `json:"name" validate:"required"`
	Role         string `json:"role" validate:"required,oneof=student lecturer"`
}

type LoginRequest struct {
	UniversityID string `json:"university_id" validate:"required"`
	Password     string `json:"password" validate:"required"`
}
