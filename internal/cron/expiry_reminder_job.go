package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/academiaalbert/academia-backend/pkg/db/models"
	"github.com/academiaalbert/academia-backend/pkg/enums"
	"github.com/academiaalbert/academia-backend/pkg/logger"
	"github.com/academiaalbert/academia-backend/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const (
	ExpiryReminderJobName = "enrollment-expiry-reminder"
	defaultReminderWindow = 72 * time.Hour
	reminderKeyGrace      = 24 * time.Hour
)

type reminderProfiles interface {
	ListAll(ctx context.Context, role enums.UserRole) ([]models.User, error)
}

type reminderCourses interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Course, error)
}

type reminderDedupe interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	ReminderKey(userID, courseID string, expiresAt time.Time) string
}

type reminderNotifier interface {
	ExpiryReminder(ctx context.Context, student models.User, course models.Course, expiresAt time.Time) error
}

type ExpiryReminderJobParams struct {
	Logger   *logger.Logger
	Profiles reminderProfiles
	Courses  reminderCourses
	Dedupe   reminderDedupe
	Notifier reminderNotifier
	Metrics  *metrics.EnrollmentMetrics
	Window   time.Duration
	Timeout  time.Duration
}

type expiryReminderJob struct {
	logg     *logger.Logger
	profiles reminderProfiles
	courses  reminderCourses
	dedupe   reminderDedupe
	notifier reminderNotifier
	metrics  *metrics.EnrollmentMetrics
	window   time.Duration
	timeout  time.Duration
	now      func() time.Time
}

type dueReminder struct {
	student   models.User
	courseID  uuid.UUID
	expiresAt time.Time
}

// NewExpiryReminderJob emails students whose paid access ends within the
// window. Each (student, course, expiry) is reminded once.
func NewExpiryReminderJob(params ExpiryReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Profiles == nil || params.Courses == nil {
		return nil, fmt.Errorf("profiles and courses repositories required")
	}
	if params.Dedupe == nil {
		return nil, fmt.Errorf("dedupe store required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultReminderWindow
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &expiryReminderJob{
		logg:     params.Logger,
		profiles: params.Profiles,
		courses:  params.Courses,
		dedupe:   params.Dedupe,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		window:   window,
		timeout:  timeout,
		now:      time.Now,
	}, nil
}

func (j *expiryReminderJob) Name() string { return ExpiryReminderJobName }

func (j *expiryReminderJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	due, err := j.collect(ctx, now)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		j.logg.Info(ctx, "expiry reminders: nothing due")
		return nil
	}

	courses, err := j.loadCourses(ctx, due)
	if err != nil {
		return err
	}

	var errs error
	sent, skipped := 0, 0
	for _, d := range due {
		course, ok := courses[d.courseID]
		if !ok {
			skipped++
			continue
		}
		fresh, err := j.send(ctx, d, course)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if fresh {
			sent++
			j.metrics.IncTransition(metrics.EventReminderSent)
		} else {
			skipped++
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"due":     len(due),
		"sent":    sent,
		"skipped": skipped,
		"failed":  len(multierr.Errors(errs)),
	}), "expiry reminders complete")
	return errs
}

func (j *expiryReminderJob) collect(ctx context.Context, now time.Time) ([]dueReminder, error) {
	callCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	students, err := j.profiles.ListAll(callCtx, enums.UserRoleStudent)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	horizon := now.Add(j.window)
	var due []dueReminder
	for _, student := range students {
		for _, e := range student.Enrollments {
			if e.AccessStatus != enums.AccessStatusActive || e.PaymentStatus != enums.PaymentStatusPaid {
				continue
			}
			if e.AccessExpiresAt == nil || e.AccessExpiresAt.Before(now) || e.AccessExpiresAt.After(horizon) {
				continue
			}
			due = append(due, dueReminder{student: student, courseID: e.CourseID, expiresAt: *e.AccessExpiresAt})
		}
	}
	return due, nil
}

func (j *expiryReminderJob) loadCourses(ctx context.Context, due []dueReminder) (map[uuid.UUID]models.Course, error) {
	seen := make(map[uuid.UUID]struct{}, len(due))
	ids := make([]uuid.UUID, 0, len(due))
	for _, d := range due {
		if _, ok := seen[d.courseID]; ok {
			continue
		}
		seen[d.courseID] = struct{}{}
		ids = append(ids, d.courseID)
	}
	callCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	rows, err := j.courses.FindByIDs(callCtx, ids)
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}
	out := make(map[uuid.UUID]models.Course, len(rows))
	for _, c := range rows {
		out[c.ID] = c
	}
	return out, nil
}

// send claims the dedupe key before emailing and releases it on failure so
// the next cycle retries.
func (j *expiryReminderJob) send(ctx context.Context, d dueReminder, course models.Course) (bool, error) {
	key := j.dedupe.ReminderKey(d.student.ID.String(), d.courseID.String(), d.expiresAt)
	ttl := d.expiresAt.Sub(j.now().UTC()) + reminderKeyGrace

	callCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	claimed, err := j.dedupe.SetNX(callCtx, key, "1", ttl)
	if err != nil {
		return false, fmt.Errorf("claim reminder %s: %w", key, err)
	}
	if !claimed {
		return false, nil
	}

	if err := j.notifier.ExpiryReminder(callCtx, d.student, course, d.expiresAt); err != nil {
		if delErr := j.dedupe.Del(ctx, key); delErr != nil {
			err = multierr.Append(err, delErr)
		}
		return false, fmt.Errorf("remind %s about %s: %w", d.student.ID, d.courseID, err)
	}
	return true, nil
}
