package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/qr-attendance-api/internal/config"
	"github.com/qr-attendance-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/qr-attendance-api/internal/infrastructure/jwt"
	rediscache "github.com/qr-attendance-api/internal/infrastructure/redis"
	transporthttp "github.com/qr-attendance-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// Session-status read cache (optional; the API is correct without it).
	var statusCache *rediscache.Cache
	if cfg.RedisAddr != "" {
		statusCache = rediscache.New(cfg.RedisAddr)
		if !statusCache.Healthy(context.Background()) {
			log.Printf("WARN: Redis at %s not reachable; status polls go to DynamoDB", cfg.RedisAddr)
		}
	}

	deps := &transporthttp.Deps{
		UserRepo:       dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		CourseRepo:     dynamo.NewCourseRepo(dynamoClient, cfg.DynamoTables.Courses),
		EnrollmentRepo: dynamo.NewEnrollmentRepo(dynamoClient, cfg.DynamoTables.Enrollments),
		SessionRepo:    dynamo.NewCheckinSessionRepo(dynamoClient, cfg.DynamoTables.CheckinSessions, cfg.DynamoTables.ActiveSessions),
		AttendanceRepo: dynamo.NewAttendanceRepo(dynamoClient, cfg.DynamoTables.AttendanceRecords),
		StatusCache:    statusCache,
		JWTProvider:    jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
