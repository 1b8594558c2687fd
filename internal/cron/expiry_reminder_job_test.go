package cron

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/academiaalbert/academia-backend/pkg/db/models"
	"github.com/academiaalbert/academia-backend/pkg/enums"
	"github.com/google/uuid"
)

type stubReminderProfiles struct {
	students []models.User
}

func (s stubReminderProfiles) ListAll(ctx context.Context, role enums.UserRole) ([]models.User, error) {
	return s.students, nil
}

type stubReminderCourses struct {
	courses []models.Course
}

func (s stubReminderCourses) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Course, error) {
	return s.courses, nil
}

type memoryDedupe struct {
	keys map[string]time.Duration
}

func (m *memoryDedupe) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = ttl
	return true, nil
}

func (m *memoryDedupe) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

func (m *memoryDedupe) ReminderKey(userID, courseID string, expiresAt time.Time) string {
	return fmt.Sprintf("reminder:%s:%s:%d", userID, courseID, expiresAt.Unix())
}

type recordingReminder struct {
	sent []uuid.UUID
	err  error
}

func (r *recordingReminder) ExpiryReminder(ctx context.Context, student models.User, course models.Course, expiresAt time.Time) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, student.ID)
	return nil
}

var reminderNow = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

func activeUntil(courseID uuid.UUID, expires time.Time) models.Enrollment {
	return models.Enrollment{
		CourseID:        courseID,
		AccessStatus:    enums.AccessStatusActive,
		PaymentStatus:   enums.PaymentStatusPaid,
		AccessExpiresAt: &expires,
	}
}

func buildReminderJob(t *testing.T, students []models.User, courses []models.Course, notifier *recordingReminder, dedupe *memoryDedupe) *expiryReminderJob {
	t.Helper()
	job, err := NewExpiryReminderJob(ExpiryReminderJobParams{
		Logger:   testLogger(),
		Profiles: stubReminderProfiles{students: students},
		Courses:  stubReminderCourses{courses: courses},
		Dedupe:   dedupe,
		Notifier: notifier,
		Window:   72 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewExpiryReminderJob: %v", err)
	}
	impl := job.(*expiryReminderJob)
	impl.now = func() time.Time { return reminderNow }
	return impl
}

func TestExpiryReminderJobSelectsDueEnrollments(t *testing.T) {
	course := models.Course{ID: uuid.New(), Title: "Excel"}
	due := models.User{ID: uuid.New(), Enrollments: []models.Enrollment{activeUntil(course.ID, reminderNow.Add(48*time.Hour))}}
	later := models.User{ID: uuid.New(), Enrollments: []models.Enrollment{activeUntil(course.ID, reminderNow.Add(10*24*time.Hour))}}
	expired := models.User{ID: uuid.New(), Enrollments: []models.Enrollment{activeUntil(course.ID, reminderNow.Add(-time.Hour))}}
	blocked := activeUntil(course.ID, reminderNow.Add(time.Hour))
	blocked.AccessStatus = enums.AccessStatusBlocked
	blockedStudent := models.User{ID: uuid.New(), Enrollments: []models.Enrollment{blocked}}
	lifetime := models.User{ID: uuid.New(), Enrollments: []models.Enrollment{{CourseID: course.ID, AccessStatus: enums.AccessStatusActive, PaymentStatus: enums.PaymentStatusPaid}}}

	notifier := &recordingReminder{}
	dedupe := &memoryDedupe{keys: map[string]time.Duration{}}
	job := buildReminderJob(t, []models.User{due, later, expired, blockedStudent, lifetime}, []models.Course{course}, notifier, dedupe)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != due.ID {
		t.Fatalf("expected exactly the due student to be reminded, got %v", notifier.sent)
	}
	for _, ttl := range dedupe.keys {
		if ttl != 72*time.Hour {
			t.Fatalf("expected dedupe ttl of expiry plus grace, got %s", ttl)
		}
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("reminder must be sent once, got %d", len(notifier.sent))
	}
}

func TestExpiryReminderJobReleasesKeyOnFailure(t *testing.T) {
	course := models.Course{ID: uuid.New(), Title: "Excel"}
	student := models.User{ID: uuid.New(), Enrollments: []models.Enrollment{activeUntil(course.ID, reminderNow.Add(time.Hour))}}
	notifier := &recordingReminder{err: errors.New("sendgrid 500")}
	dedupe := &memoryDedupe{keys: map[string]time.Duration{}}
	job := buildReminderJob(t, []models.User{student}, []models.Course{course}, notifier, dedupe)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected failure to surface")
	}
	if len(dedupe.keys) != 0 {
		t.Fatal("failed reminder must release its dedupe key")
	}

	notifier.err = nil
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected retry to send, got %d", len(notifier.sent))
	}
}

func TestExpiryReminderJobSkipsDeletedCourses(t *testing.T) {
	student := models.User{ID: uuid.New(), Enrollments: []models.Enrollment{activeUntil(uuid.New(), reminderNow.Add(time.Hour))}}
	notifier := &recordingReminder{}
	job := buildReminderJob(t, []models.User{student}, nil, notifier, &memoryDedupe{keys: map[string]time.Duration{}})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatal("no reminder for a deleted course")
	}
}
