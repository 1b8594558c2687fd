package enrollments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/academiaalbert/academia-backend/pkg/db/models"
	"github.com/academiaalbert/academia-backend/pkg/enums"
	pkgerrors "github.com/academiaalbert/academia-backend/pkg/errors"
	"github.com/academiaalbert/academia-backend/pkg/logger"
	"github.com/academiaalbert/academia-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type profilesRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateEnrollments(ctx context.Context, id uuid.UUID, enrollments []models.Enrollment, expectedVersion int64) (int64, error)
}

type coursesRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Course, error)
}

type reviewNotifier interface {
	PaymentReviewed(ctx context.Context, student models.User, course models.Course, enrollment models.Enrollment) error
}

// Service owns enrollment requests, payment review, and lesson progress.
type Service interface {
	RequestEnrollment(ctx context.Context, studentID, courseID uuid.UUID, input RequestInput) (*models.Enrollment, error)
	ApprovePayment(ctx context.Context, input ApprovalInput) (*models.Enrollment, error)
	SetBlocked(ctx context.Context, studentID, courseID uuid.UUID, blocked bool) (*models.Enrollment, error)
	MarkLessonComplete(ctx context.Context, studentID, courseID, lessonID uuid.UUID) (*EnrollmentView, error)
	OpenCourse(ctx context.Context, studentID, courseID uuid.UUID) (*LearningView, error)
	Dashboard(ctx context.Context, studentID uuid.UUID) ([]EnrollmentView, error)
}

type service struct {
	profiles profilesRepository
	courses  coursesRepository
	notifier reviewNotifier
	metrics  *metrics.EnrollmentMetrics
	logg     *logger.Logger
	timeout  time.Duration
	now      func() time.Time
}

// NewService wires the enrollment controller. notifier and enrollmentMetrics are optional.
func NewService(profiles profilesRepository, courses coursesRepository, notifier reviewNotifier, enrollmentMetrics *metrics.EnrollmentMetrics, logg *logger.Logger, timeout time.Duration) (Service, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	if courses == nil {
		return nil, fmt.Errorf("courses repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("store timeout must be positive")
	}
	return &service{
		profiles: profiles,
		courses:  courses,
		notifier: notifier,
		metrics:  enrollmentMetrics,
		logg:     logg,
		timeout:  timeout,
		now:      time.Now,
	}, nil
}

func (s *service) RequestEnrollment(ctx context.Context, studentID, courseID uuid.UUID, input RequestInput) (*models.Enrollment, error) {
	if studentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	enrollment, err := NewPendingEnrollment(courseID, input, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if _, err := s.loadCourse(ctx, courseID); err != nil {
		return nil, err
	}

	profile, err := s.loadProfile(ctx, studentID)
	if err != nil {
		return nil, err
	}

	next := append([]models.Enrollment{}, profile.Enrollments...)
	if idx := profile.EnrollmentFor(courseID); idx >= 0 {
		next[idx] = enrollment
	} else {
		next = append(next, enrollment)
	}
	if err := s.persist(ctx, profile, next); err != nil {
		return nil, err
	}

	s.metrics.IncTransition(metrics.EventRequested)
	s.logg.Info(s.logCtx(ctx, studentID, courseID, map[string]any{
		"payment_method": enrollment.PaymentMethod,
	}), "enrollment.requested")
	return &enrollment, nil
}

func (s *service) ApprovePayment(ctx context.Context, input ApprovalInput) (*models.Enrollment, error) {
	if input.StudentID == uuid.Nil || input.CourseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "student_id and course_id are required")
	}

	var reviewed models.Enrollment
	profile, err := s.mutate(ctx, input.StudentID, input.CourseID, func(current models.Enrollment) (models.Enrollment, error) {
		next, err := ApplyPaymentReview(current, input.PaymentStatus, input.AccessDurationDays, s.now().UTC())
		if err != nil {
			return current, err
		}
		reviewed = next
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	event := metrics.EventApproved
	if reviewed.PaymentStatus != enums.PaymentStatusPaid {
		event = metrics.EventReverted
	}
	s.metrics.IncTransition(event)
	fields := map[string]any{"payment_status": reviewed.PaymentStatus, "access_status": reviewed.AccessStatus}
	if reviewed.AccessExpiresAt != nil {
		fields["access_expires_at"] = reviewed.AccessExpiresAt.Format(time.RFC3339)
	}
	logCtx := s.logCtx(ctx, input.StudentID, input.CourseID, fields)
	s.logg.Info(logCtx, "enrollment.payment_reviewed")

	s.notifyReviewed(logCtx, *profile, reviewed)
	return &reviewed, nil
}

func (s *service) SetBlocked(ctx context.Context, studentID, courseID uuid.UUID, blocked bool) (*models.Enrollment, error) {
	if studentID == uuid.Nil || courseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "student_id and course_id are required")
	}

	var updated models.Enrollment
	if _, err := s.mutate(ctx, studentID, courseID, func(current models.Enrollment) (models.Enrollment, error) {
		updated = ApplyBlock(current, blocked)
		return updated, nil
	}); err != nil {
		return nil, err
	}

	event := metrics.EventUnblocked
	if blocked {
		event = metrics.EventBlocked
	}
	s.metrics.IncTransition(event)
	s.logg.Info(s.logCtx(ctx, studentID, courseID, map[string]any{"access_status": updated.AccessStatus}), "enrollment.block_changed")
	return &updated, nil
}

func (s *service) MarkLessonComplete(ctx context.Context, studentID, courseID, lessonID uuid.UUID) (*EnrollmentView, error) {
	if studentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if lessonID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lesson_id is required")
	}

	profile, err := s.loadProfile(ctx, studentID)
	if err != nil {
		return nil, err
	}
	idx := profile.EnrollmentFor(courseID)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "enrollment not found")
	}
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	current := profile.Enrollments[idx]
	updated, err := CompleteLesson(current, lessonID, course.LessonIDs(), now)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeAccessDenied) {
			s.metrics.IncDecision(EvaluateAccess(current, now).String())
		}
		return nil, err
	}
	decision := EvaluateAccess(updated, now)
	s.metrics.IncDecision(decision.String())

	if current.HasCompleted(lessonID) && current.ProgressPercent == updated.ProgressPercent {
		view := newView(updated, course, decision)
		return &view, nil
	}

	next := append([]models.Enrollment{}, profile.Enrollments...)
	next[idx] = updated
	if err := s.persist(ctx, profile, next); err != nil {
		return nil, err
	}

	s.metrics.IncTransition(metrics.EventLessonCompleted)
	s.logg.Info(s.logCtx(ctx, studentID, courseID, map[string]any{
		"lesson_id":        lessonID.String(),
		"progress_percent": updated.ProgressPercent,
	}), "enrollment.lesson_completed")

	view := newView(updated, course, decision)
	return &view, nil
}

// OpenCourse evaluates access on every call, since expiry depends on the clock.
func (s *service) OpenCourse(ctx context.Context, studentID, courseID uuid.UUID) (*LearningView, error) {
	if studentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	profile, err := s.loadProfile(ctx, studentID)
	if err != nil {
		return nil, err
	}
	idx := profile.EnrollmentFor(courseID)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "enrollment not found")
	}
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	enrollment := profile.Enrollments[idx]
	decision := EvaluateAccess(enrollment, s.now().UTC())
	s.metrics.IncDecision(decision.String())
	if decision != enums.AccessDecisionGranted {
		return nil, accessDenied(decision)
	}
	return newLearningView(*course, newView(enrollment, course, decision)), nil
}

// Dashboard lists the student's enrollments. Enrollments whose course was
// deleted are kept and flagged as missing.
func (s *service) Dashboard(ctx context.Context, studentID uuid.UUID) ([]EnrollmentView, error) {
	if studentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	profile, err := s.loadProfile(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if len(profile.Enrollments) == 0 {
		return []EnrollmentView{}, nil
	}

	ids := make([]uuid.UUID, 0, len(profile.Enrollments))
	for _, e := range profile.Enrollments {
		ids = append(ids, e.CourseID)
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rows, err := s.courses.FindByIDs(callCtx, ids)
	if err != nil {
		return nil, pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "lookup courses")
	}
	byID := make(map[uuid.UUID]*models.Course, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}

	now := s.now().UTC()
	views := make([]EnrollmentView, 0, len(profile.Enrollments))
	for _, e := range profile.Enrollments {
		views = append(views, newView(e, byID[e.CourseID], EvaluateAccess(e, now)))
	}
	return views, nil
}

// mutate loads the student's enrollment for courseID, applies fn, and writes
// the profile back under the version it was read at.
func (s *service) mutate(ctx context.Context, studentID, courseID uuid.UUID, fn func(models.Enrollment) (models.Enrollment, error)) (*models.User, error) {
	profile, err := s.loadProfile(ctx, studentID)
	if err != nil {
		return nil, err
	}
	idx := profile.EnrollmentFor(courseID)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "enrollment not found")
	}
	updated, err := fn(profile.Enrollments[idx])
	if err != nil {
		return nil, err
	}
	next := append([]models.Enrollment{}, profile.Enrollments...)
	next[idx] = updated
	if err := s.persist(ctx, profile, next); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *service) loadProfile(ctx context.Context, studentID uuid.UUID) (*models.User, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	profile, err := s.profiles.FindByID(callCtx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "student not found")
		}
		return nil, pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "lookup student")
	}
	if err := profile.ValidateEnrollments(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stored enrollments are malformed")
	}
	return profile, nil
}

func (s *service) loadCourse(ctx context.Context, courseID uuid.UUID) (*models.Course, error) {
	if courseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "course_id is required")
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	course, err := s.courses.FindByID(callCtx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "course not found")
		}
		return nil, pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "lookup course")
	}
	return course, nil
}

// persist writes next as the profile's enrollments. Nothing is kept locally on failure.
func (s *service) persist(ctx context.Context, profile *models.User, next []models.Enrollment) error {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	version, err := s.profiles.UpdateEnrollments(callCtx, profile.ID, next, profile.Version)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "student not found")
		}
		return pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "save enrollments")
	}
	profile.Enrollments = next
	profile.Version = version
	return nil
}

func (s *service) notifyReviewed(ctx context.Context, student models.User, enrollment models.Enrollment) {
	if s.notifier == nil {
		return
	}
	course, err := s.loadCourse(ctx, enrollment.CourseID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "enrollment.notify_skipped")
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.notifier.PaymentReviewed(callCtx, student, *course, enrollment); err != nil {
		s.logg.Error(ctx, "enrollment.notify_failed", err)
	}
}

func (s *service) logCtx(ctx context.Context, studentID, courseID uuid.UUID, fields map[string]any) context.Context {
	ctx = s.logg.WithUserID(ctx, studentID.String())
	ctx = s.logg.WithCourseID(ctx, courseID.String())
	if len(fields) > 0 {
		ctx = s.logg.WithFields(ctx, fields)
	}
	return ctx
}
