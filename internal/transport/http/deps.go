package http

import (
	"github.com/qr-attendance-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/qr-attendance-api/internal/infrastructure/jwt"
	rediscache "github.com/qr-attendance-api/internal/infrastructure/redis"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo       *dynamo.UserRepo
	CourseRepo     *dynamo.CourseRepo
	EnrollmentRepo *dynamo.EnrollmentRepo
	SessionRepo    *dynamo.CheckinSessionRepo
	AttendanceRepo *dynamo.AttendanceRepo
	// StatusCache may be nil; the status endpoint then reads through to
	// DynamoDB on every poll.
	StatusCache *rediscache.Cache
	JWTProvider *jwtinfra.Provider
}
