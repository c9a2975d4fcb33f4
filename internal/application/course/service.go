package course

import (
	"context"
	"fmt"
	"time"

	"github.com/qr-attendance-api/internal/domain"
	"github.com/qr-attendance-api/internal/pkg/id"
)

// Attribute names for partial course updates.
const (
	fieldCourseCode = "course_code"
	fieldCourseName = "course_name"
)

type Service interface {
	Create(ctx context.Context, lecturerID string, req domain.CreateCourseRequest) (*domain.Course, error)
	Update(ctx context.Context, lecturerID, courseID string, req domain.UpdateCourseRequest) (*domain.Course, error)
	ListMine(ctx context.Context, userID, role string) ([]domain.Course, error)
	ListAvailable(ctx context.Context, studentID string) ([]domain.Course, error)
	Enroll(ctx context.Context, studentID, courseID string) error
}

type courseStore interface {
	Put(ctx context.Context, c *domain.Course) error
	Get(ctx context.Context, courseID string) (*domain.Course, error)
	Update(ctx context.Context, courseID string, updates map[string]interface{}) error
	ListByLecturer(ctx context.Context, lecturerID string) ([]domain.Course, error)
	ListAll(ctx context.Context) ([]domain.Course, error)
}

type enrollmentStore interface {
	Put(ctx context.Context, e *domain.Enrollment) error
	ListByStudent(ctx context.Context, studentID string) ([]domain.Enrollment, error)
	CountByCourse(ctx context.Context, courseID string) (int, error)
}

type userStore interface {
	GetMany(ctx context.Context, userIDs []string) (map[string]domain.User, error)
}

type service struct {
	courses     courseStore
	enrollments enrollmentStore
	users       userStore
}

func NewService(courses courseStore, enrollments enrollmentStore, users userStore) Service {
	return &service{courses: courses, enrollments: enrollments, users: users}
}

func (s *service) Create(ctx context.Context, lecturerID string, req domain.CreateCourseRequest) (*domain.Course, error) {
	now := time.Now().UTC()
	c := &domain.Course{
		CourseID:   id.New(),
		Code:       req.Code,
		Name:       req.Name,
		LecturerID: lecturerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.courses.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update renames a course's code or name. Only the owning lecturer may do so.
func (s *service) Update(ctx context.Context, lecturerID, courseID string, req domain.UpdateCourseRequest) (*domain.Course, error) {
	c, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if c.LecturerID != lecturerID {
		return nil, fmt.Errorf("course %s is not owned by caller: %w", courseID, domain.ErrForbidden)
	}

	updates := map[string]interface{}{}
	if req.Code != nil {
		updates[fieldCourseCode] = *req.Code
	}
	if req.Name != nil {
		updates[fieldCourseName] = *req.Name
	}
	if len(updates) == 0 {
		return c, nil
	}
	if err := s.courses.Update(ctx, courseID, updates); err != nil {
		return nil, err
	}
	return s.courses.Get(ctx, courseID)
}

// ListMine returns a lecturer's own courses (with enrollment counts) or a
// student's enrolled courses, mirroring what each role's home screen shows.
func (s *service) ListMine(ctx context.Context, userID, role string) ([]domain.Course, error) {
	switch role {
	case domain.RoleLecturer:
		courses, err := s.courses.ListByLecturer(ctx, userID)
		if err != nil {
			return nil, err
		}
		for i := range courses {
			n, err := s.enrollments.CountByCourse(ctx, courses[i].CourseID)
			if err != nil {
				return nil, err
			}
			courses[i].StudentCount = n
		}
		return courses, nil

	case domain.RoleStudent:
		enrollments, err := s.enrollments.ListByStudent(ctx, userID)
		if err != nil {
			return nil, err
		}
		courses := make([]domain.Course, 0, len(enrollments))
		for _, e := range enrollments {
			c, err := s.courses.Get(ctx, e.CourseID)
			if err != nil {
				return nil, err
			}
			courses = append(courses, *c)
		}
		return s.withLecturerNames(ctx, courses)

	default:
		return nil, fmt.Errorf("unknown role %q: %w", role, domain.ErrForbidden)
	}
}

// ListAvailable returns the courses a student can still enroll in: the full
// catalog minus what they already have.
func (s *service) ListAvailable(ctx context.Context, studentID string) ([]domain.Course, error) {
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	enrolled := make(map[string]struct{}, len(enrollments))
	for _, e := range enrollments {
		enrolled[e.CourseID] = struct{}{}
	}

	all, err := s.courses.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	available := make([]domain.Course, 0, len(all))
	for _, c := range all {
		if _, ok := enrolled[c.CourseID]; !ok {
			available = append(available, c)
		}
	}
	return s.withLecturerNames(ctx, available)
}

// Enroll records the student into the course. A duplicate enrollment
// surfaces as ErrConflict from the store's conditional insert.
func (s *service) Enroll(ctx context.Context, studentID, courseID string) error {
	if _, err := s.courses.Get(ctx, courseID); err != nil {
		return err
	}
	return s.enrollments.Put(ctx, &domain.Enrollment{
		CourseID:   courseID,
		StudentID:  studentID,
		EnrolledAt: time.Now().UTC(),
	})
}

func (s *service) withLecturerNames(ctx context.Context, courses []domain.Course) ([]domain.Course, error) {
	if len(courses) == 0 {
		return courses, nil
	}
	idSet := make(map[string]struct{}, len(courses))
	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		if _, ok := idSet[c.LecturerID]; !ok {
			idSet[c.LecturerID] = struct{}{}
			ids = append(ids, c.LecturerID)
		}
	}
	lecturers, err := s.users.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range courses {
		if u, ok := lecturers[courses[i].LecturerID]; ok {
			courses[i].LecturerName = u.Name
		}
	}
	return courses, nil
}
