// Package checkin orchestrates the attendance session lifecycle: opening a
// time-boxed check-in window for a course, superseding the previous window,
// and redeeming tokens into the attendance ledger.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/qr-attendance-api/internal/domain"
	"github.com/qr-attendance-api/internal/infrastructure/metrics"
	"github.com/qr-attendance-api/internal/pkg/id"
	pkgtoken "github.com/qr-attendance-api/internal/pkg/token"
)

// createRetries bounds the supersession retry loop. Each retry means another
// lecturer create for the same course won the conditional write first, which
// in practice is a double-tap; three attempts is plenty.
const createRetries = 3

// inactiveStatusTTL caps how long an inactive course's status may be served
// from cache.
const inactiveStatusTTL = 5 * time.Second

// activeStatusTTL caps a cached ACTIVE entry. A Status read racing a
// superseding create can re-populate the cache after Invalidate runs; the
// cap bounds how long that stale countdown survives.
const activeStatusTTL = 5 * time.Second

type Service interface {
	CreateSession(ctx context.Context, courseID, lecturerID string, ttlMinutes int) (*domain.CheckinSession, error)
	Redeem(ctx context.Context, token, studentID string) (domain.RedeemOutcome, error)
	Status(ctx context.Context, courseID string) (*domain.SessionStatus, error)
	CourseReport(ctx context.Context, courseID, lecturerID, fromDate, toDate string) (*domain.CourseReport, error)
	StudentReport(ctx context.Context, courseID, studentID string) (*domain.StudentReport, error)
	SessionAttendance(ctx context.Context, sessionID, lecturerID string) ([]domain.AttendanceRecord, error)
	HasAttended(ctx context.Context, sessionID, studentID string) (bool, error)
}

type sessionStore interface {
	GetActive(ctx context.Context, courseID string) (*domain.ActiveSession, error)
	Get(ctx context.Context, sessionID string) (*domain.CheckinSession, error)
	GetByToken(ctx context.Context, token string) (*domain.CheckinSession, error)
	CreateSuperseding(ctx context.Context, s *domain.CheckinSession, prev *domain.ActiveSession) error
	ListByCourse(ctx context.Context, courseID string) ([]domain.CheckinSession, error)
}

type attendanceLedger interface {
	PutIfAbsent(ctx context.Context, rec *domain.AttendanceRecord) (bool, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.AttendanceRecord, error)
	ListByCourse(ctx context.Context, courseID, fromDate, toDate string) ([]domain.AttendanceRecord, error)
	ListByCourseStudent(ctx context.Context, courseID, studentID string) ([]domain.AttendanceRecord, error)
	HasAttended(ctx context.Context, sessionID, studentID string) (bool, error)
}

type courseStore interface {
	Get(ctx context.Context, courseID string) (*domain.Course, error)
}

type enrollmentStore interface {
	IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error)
	ListByCourse(ctx context.Context, courseID string) ([]domain.Enrollment, error)
}

type userStore interface {
	GetMany(ctx context.Context, userIDs []string) (map[string]domain.User, error)
}

// statusCache is the optional read cache for Status. Nil disables caching.
type statusCache interface {
	GetStatus(ctx context.Context, courseID string) (*domain.SessionStatus, bool)
	SetStatus(ctx context.Context, courseID string, st *domain.SessionStatus, ttl time.Duration)
	Invalidate(ctx context.Context, courseID string)
}

type service struct {
	sessions    sessionStore
	ledger      attendanceLedger
	courses     courseStore
	enrollments enrollmentStore
	users       userStore
	cache       statusCache
	maxTTL      int
	retention   time.Duration
	now         func() time.Time
}

type ServiceDeps struct {
	Sessions    sessionStore
	Ledger      attendanceLedger
	Courses     courseStore
	Enrollments enrollmentStore
	Users       userStore
	// Cache may be nil; Status then always reads through to the store.
	Cache statusCache
	// MaxTTLMinutes caps the window a lecturer may request.
	MaxTTLMinutes int
	// Retention is how long EXPIRED sessions stay queryable before TTL purge.
	Retention time.Duration
	// Now defaults to time.Now; tests inject a fake clock.
	Now func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		sessions:    deps.Sessions,
		ledger:      deps.Ledger,
		courses:     deps.Courses,
		enrollments: deps.Enrollments,
		users:       deps.Users,
		cache:       deps.Cache,
		maxTTL:      deps.MaxTTLMinutes,
		retention:   deps.Retention,
		now:         now,
	}
}

// CreateSession opens a new check-in window for the course, expiring any
// window already open. Exactly one session per course is ACTIVE afterwards no
// matter how many creates race; losers of the conditional write retry against
// the fresh pointer.
func (s *service) CreateSession(ctx context.Context, courseID, lecturerID string, ttlMinutes int) (*domain.CheckinSession, error) {
	if ttlMinutes <= 0 || ttlMinutes > s.maxTTL {
		return nil, fmt.Errorf("ttl_minutes must be between 1 and %d: %w", s.maxTTL, domain.ErrBadRequest)
	}

	course, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.LecturerID != lecturerID {
		return nil, fmt.Errorf("course %s is not owned by caller: %w", courseID, domain.ErrForbidden)
	}

	for attempt := 0; attempt < createRetries; attempt++ {
		prev, err := s.sessions.GetActive(ctx, courseID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, storeFailure("read active session", err)
		}

		tok, err := pkgtoken.Mint()
		if err != nil {
			return nil, err
		}
		now := s.now().UTC()
		sess := &domain.CheckinSession{
			SessionID: id.New(),
			CourseID:  courseID,
			Token:     tok,
			Status:    domain.SessionActive,
			CreatedAt: now,
			ExpiresAt: now.Add(time.Duration(ttlMinutes) * time.Minute),
			PurgeAt:   now.Add(time.Duration(ttlMinutes)*time.Minute + s.retention).Unix(),
		}

		err = s.sessions.CreateSuperseding(ctx, sess, prev)
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, storeFailure("create session", err)
		}

		metrics.SessionsCreated.Inc()
		if prev != nil {
			metrics.SessionsSuperseded.Inc()
		}
		if s.cache != nil {
			s.cache.Invalidate(ctx, courseID)
		}
		return sess, nil
	}
	return nil, fmt.Errorf("session creation raced %d times for course %s: %w", createRetries, courseID, domain.ErrConflict)
}

// Redeem runs the full redemption protocol. All four outcomes are ordinary
// values; an error here means the caller's identity was rejected or the store
// was unreachable. The composition is safe to retry end-to-end: a retry after
// Recorded observes AlreadyRecorded.
func (s *service) Redeem(ctx context.Context, token, studentID string) (domain.RedeemOutcome, error) {
	// Garbage input never reaches the store.
	if !pkgtoken.IsWellFormed(token) {
		return s.counted(domain.OutcomeNotFound), nil
	}

	sess, err := s.sessions.GetByToken(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return s.counted(domain.OutcomeNotFound), nil
	}
	if err != nil {
		return "", storeFailure("lookup token", err)
	}
	if !sess.Live(s.now()) {
		return s.counted(domain.OutcomeExpired), nil
	}

	enrolled, err := s.enrollments.IsEnrolled(ctx, sess.CourseID, studentID)
	if err != nil {
		return "", storeFailure("check enrollment", err)
	}
	if !enrolled {
		return "", fmt.Errorf("student not enrolled in course %s: %w", sess.CourseID, domain.ErrForbidden)
	}

	now := s.now().UTC()
	created, err := s.ledger.PutIfAbsent(ctx, &domain.AttendanceRecord{
		SessionID:  sess.SessionID,
		StudentID:  studentID,
		CourseID:   sess.CourseID,
		Date:       now.Format("2006-01-02"),
		RecordedAt: now,
	})
	if err != nil {
		return "", storeFailure("record attendance", err)
	}
	if created {
		return s.counted(domain.OutcomeRecorded), nil
	}
	return s.counted(domain.OutcomeAlreadyRecorded), nil
}

// Status is the countdown projection. Purely informational; the ACTIVE
// session's expiry is server truth and clients only render it.
func (s *service) Status(ctx context.Context, courseID string) (*domain.SessionStatus, error) {
	if s.cache != nil {
		if st, ok := s.cache.GetStatus(ctx, courseID); ok {
			return s.refreshRemaining(st), nil
		}
	}

	inactive := &domain.SessionStatus{Active: false}

	ptr, err := s.sessions.GetActive(ctx, courseID)
	if errors.Is(err, domain.ErrNotFound) {
		s.cacheStatus(ctx, courseID, inactive)
		return inactive, nil
	}
	if err != nil {
		return nil, storeFailure("read active session", err)
	}

	sess, err := s.sessions.Get(ctx, ptr.SessionID)
	if errors.Is(err, domain.ErrNotFound) {
		// The pointer outlives its session row once TTL garbage collection
		// purges it. A dangling pointer means no live session.
		s.cacheStatus(ctx, courseID, inactive)
		return inactive, nil
	}
	if err != nil {
		return nil, storeFailure("read session", err)
	}
	now := s.now()
	if !sess.Live(now) {
		s.cacheStatus(ctx, courseID, inactive)
		return inactive, nil
	}

	st := &domain.SessionStatus{
		Active:           true,
		SessionID:        sess.SessionID,
		ExpiresAt:        &sess.ExpiresAt,
		RemainingSeconds: remainingSeconds(sess.ExpiresAt, now),
	}
	s.cacheStatus(ctx, courseID, st)
	return st, nil
}

// CourseReport builds the date × student matrix for the report screen.
// Dates cover every session held in range, so a day nobody scanned still
// shows as a column of absences.
func (s *service) CourseReport(ctx context.Context, courseID, lecturerID, fromDate, toDate string) (*domain.CourseReport, error) {
	course, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.LecturerID != lecturerID {
		return nil, fmt.Errorf("course %s is not owned by caller: %w", courseID, domain.ErrForbidden)
	}

	sessions, err := s.sessions.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, storeFailure("list sessions", err)
	}
	records, err := s.ledger.ListByCourse(ctx, courseID, fromDate, toDate)
	if err != nil {
		return nil, storeFailure("list attendance", err)
	}
	enrollments, err := s.enrollments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, storeFailure("list enrollments", err)
	}

	dateSet := make(map[string]struct{})
	for _, sess := range sessions {
		d := sess.CreatedAt.UTC().Format("2006-01-02")
		if inDateRange(d, fromDate, toDate) {
			dateSet[d] = struct{}{}
		}
	}
	for _, rec := range records {
		dateSet[rec.Date] = struct{}{}
	}
	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	present := make(map[string]map[string]bool, len(enrollments))
	for _, rec := range records {
		if present[rec.StudentID] == nil {
			present[rec.StudentID] = make(map[string]bool)
		}
		present[rec.StudentID][rec.Date] = true
	}

	studentIDs := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		studentIDs = append(studentIDs, e.StudentID)
	}
	sort.Strings(studentIDs)
	users, err := s.users.GetMany(ctx, studentIDs)
	if err != nil {
		return nil, storeFailure("load students", err)
	}

	rows := make([]domain.ReportRow, 0, len(studentIDs))
	for _, sid := range studentIDs {
		row := domain.ReportRow{StudentID: sid, PerDate: make(map[string]bool, len(dates))}
		if u, ok := users[sid]; ok {
			row.UniversityID = u.UniversityID
			row.Name = u.Name
		}
		for _, d := range dates {
			row.PerDate[d] = present[sid][d]
		}
		rows = append(rows, row)
	}

	return &domain.CourseReport{CourseID: courseID, Dates: dates, Rows: rows}, nil
}

// StudentReport summarises one student's own attendance in a course,
// recomputable from the ledger on a fresh install or a second device.
func (s *service) StudentReport(ctx context.Context, courseID, studentID string) (*domain.StudentReport, error) {
	enrolled, err := s.enrollments.IsEnrolled(ctx, courseID, studentID)
	if err != nil {
		return nil, storeFailure("check enrollment", err)
	}
	if !enrolled {
		return nil, fmt.Errorf("student not enrolled in course %s: %w", courseID, domain.ErrForbidden)
	}

	sessions, err := s.sessions.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, storeFailure("list sessions", err)
	}
	records, err := s.ledger.ListByCourseStudent(ctx, courseID, studentID)
	if err != nil {
		return nil, storeFailure("list attendance", err)
	}

	report := &domain.StudentReport{
		CourseID:         courseID,
		StudentID:        studentID,
		Records:          records,
		SessionsHeld:     len(sessions),
		SessionsAttended: len(records),
	}
	if report.SessionsHeld > 0 {
		report.Percentage = float64(report.SessionsAttended) / float64(report.SessionsHeld) * 100
	}
	return report, nil
}

// SessionAttendance lists who scanned in during one session. Only the course
// owner may read it.
func (s *service) SessionAttendance(ctx context.Context, sessionID, lecturerID string) ([]domain.AttendanceRecord, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, storeFailure("read session", err)
	}
	course, err := s.courses.Get(ctx, sess.CourseID)
	if err != nil {
		return nil, err
	}
	if course.LecturerID != lecturerID {
		return nil, fmt.Errorf("course %s is not owned by caller: %w", sess.CourseID, domain.ErrForbidden)
	}
	records, err := s.ledger.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, storeFailure("list attendance", err)
	}
	return records, nil
}

func (s *service) HasAttended(ctx context.Context, sessionID, studentID string) (bool, error) {
	ok, err := s.ledger.HasAttended(ctx, sessionID, studentID)
	if err != nil {
		return false, storeFailure("check attendance", err)
	}
	return ok, nil
}

// counted records the outcome metric and passes the outcome through.
func (s *service) counted(o domain.RedeemOutcome) domain.RedeemOutcome {
	metrics.Redemptions.WithLabelValues(string(o)).Inc()
	return o
}

func (s *service) cacheStatus(ctx context.Context, courseID string, st *domain.SessionStatus) {
	if s.cache == nil {
		return
	}
	ttl := inactiveStatusTTL
	if st.Active && st.ExpiresAt != nil {
		// Remaining seconds are recomputed on every read; the entry itself
		// never outlives the window or the activeStatusTTL cap.
		ttl = st.ExpiresAt.Sub(s.now())
		if ttl > activeStatusTTL {
			ttl = activeStatusTTL
		}
	}
	if ttl > 0 {
		s.cache.SetStatus(ctx, courseID, st, ttl)
	}
}

// refreshRemaining recomputes the countdown on a cache hit and demotes an
// entry whose window has since closed.
func (s *service) refreshRemaining(st *domain.SessionStatus) *domain.SessionStatus {
	if !st.Active || st.ExpiresAt == nil {
		return st
	}
	now := s.now()
	if !now.Before(*st.ExpiresAt) {
		return &domain.SessionStatus{Active: false}
	}
	st.RemainingSeconds = remainingSeconds(*st.ExpiresAt, now)
	return st
}

// remainingSeconds rounds up so a freshly created 60s window reads as 60,
// not 59.
func remainingSeconds(expiresAt, now time.Time) int64 {
	return int64((expiresAt.Sub(now) + time.Second - 1) / time.Second)
}

func inDateRange(d, from, to string) bool {
	if from != "" && d < from {
		return false
	}
	if to != "" && d > to {
		return false
	}
	return true
}

// storeFailure maps an infrastructure error to the retryable ErrUnavailable
// kind. Domain sentinels pass through untouched so Expired is never
// mistaken for NotFound or either for an outage.
func storeFailure(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrExpired) ||
		errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrForbidden) {
		return err
	}
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrUnavailable)
}
