package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/qr-attendance-api/internal/application/auth"
	"github.com/qr-attendance-api/internal/application/checkin"
	"github.com/qr-attendance-api/internal/application/course"
	"github.com/qr-attendance-api/internal/config"
	"github.com/qr-attendance-api/internal/domain"
	"github.com/qr-attendance-api/internal/transport/http/handler"
	appmiddleware "github.com/qr-attendance-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	authSvc := auth.NewService(deps.UserRepo, deps.JWTProvider)
	courseSvc := course.NewService(deps.CourseRepo, deps.EnrollmentRepo, deps.UserRepo)

	checkinDeps := checkin.ServiceDeps{
		Sessions:      deps.SessionRepo,
		Ledger:        deps.AttendanceRepo,
		Courses:       deps.CourseRepo,
		Enrollments:   deps.EnrollmentRepo,
		Users:         deps.UserRepo,
		MaxTTLMinutes: cfg.MaxSessionTTLMinutes,
		Retention:     cfg.ExpiredSessionRetention,
	}
	if deps.StatusCache != nil {
		checkinDeps.Cache = deps.StatusCache
	}
	checkinSvc := checkin.NewService(checkinDeps)

	var healthH *handler.HealthHandler
	if deps.StatusCache != nil {
		healthH = handler.NewHealthHandler(deps.StatusCache)
	} else {
		healthH = handler.NewHealthHandler(nil)
	}
	authH := handler.NewAuthHandler(authSvc)
	courseH := handler.NewCourseHandler(courseSvc)
	checkinH := handler.NewCheckinHandler(checkinSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.Method("GET", "/metrics", promhttp.Handler())
		r.With(sensitiveRL.Limit).Post("/auth/register", authH.Register)
		r.With(sensitiveRL.Limit).Post("/auth/login", authH.Login)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			// Any authenticated user
			r.Get("/courses", courseH.ListMine)
			r.Get("/courses/{id}/session", checkinH.Status)

			// Lecturer-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleLecturer))

				r.Post("/courses", courseH.Create)
				r.Put("/courses/{id}", courseH.Update)
				r.Post("/courses/{id}/sessions", checkinH.CreateSession)
				r.Get("/courses/{id}/report", checkinH.CourseReport)
				r.Get("/sessions/{id}/attendance", checkinH.SessionAttendance)
			})

			// Student-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleStudent))

				r.Get("/courses/available", courseH.ListAvailable)
				r.Post("/courses/{id}/enroll", courseH.Enroll)
				r.Post("/attendance/check-in", checkinH.Redeem)
				r.Get("/sessions/{id}/attended", checkinH.HasAttended)
				r.Get("/courses/{id}/my-attendance", checkinH.StudentReport)
			})
		})
	})

	return r
}
