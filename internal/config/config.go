package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	// RedisAddr enables the session-status read cache when set.
	// Empty means no cache; correctness never depends on it.
	RedisAddr string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	// MaxSessionTTLMinutes caps the check-in window a lecturer may request.
	MaxSessionTTLMinutes int
	// ExpiredSessionRetention is how long EXPIRED sessions stay queryable
	// before DynamoDB TTL purges them.
	ExpiredSessionRetention time.Duration

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users             string
	Courses           string
	Enrollments       string
	CheckinSessions   string
	ActiveSessions    string
	AttendanceRecords string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:             getEnv("DYNAMO_TABLE_USERS", "users"),
			Courses:           getEnv("DYNAMO_TABLE_COURSES", "courses"),
			Enrollments:       getEnv("DYNAMO_TABLE_ENROLLMENTS", "enrollments"),
			CheckinSessions:   getEnv("DYNAMO_TABLE_CHECKIN_SESSIONS", "checkin_sessions"),
			ActiveSessions:    getEnv("DYNAMO_TABLE_ACTIVE_SESSIONS", "course_active_sessions"),
			AttendanceRecords: getEnv("DYNAMO_TABLE_ATTENDANCE_RECORDS", "attendance_records"),
		},

		RedisAddr: getEnv("REDIS_ADDR", ""),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,

		MaxSessionTTLMinutes:    getEnvInt("MAX_SESSION_TTL_MINUTES", 180),
		ExpiredSessionRetention: time.Duration(getEnvInt("EXPIRED_SESSION_RETENTION_DAYS", 180)) * 24 * time.Hour,

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
