package enrollments

import (
	"strings"
	"time"

	"github.com/academiaalbert/academia-backend/pkg/db/models"
	"github.com/academiaalbert/academia-backend/pkg/enums"
	pkgerrors "github.com/academiaalbert/academia-backend/pkg/errors"
	"github.com/google/uuid"
)

// NewPendingEnrollment builds the record stored when a student submits payment proof.
// A resubmission for the same course replaces the previous record entirely.
func NewPendingEnrollment(courseID uuid.UUID, input RequestInput, now time.Time) (models.Enrollment, error) {
	if courseID == uuid.Nil {
		return models.Enrollment{}, pkgerrors.New(pkgerrors.CodeValidation, "course_id is required")
	}
	if !input.PaymentMethod.IsValid() {
		return models.Enrollment{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	phone := strings.TrimSpace(input.ContactPhone)
	if phone == "" {
		return models.Enrollment{}, pkgerrors.New(pkgerrors.CodeValidation, "contact_phone is required")
	}
	proof := strings.TrimSpace(input.ProofText)
	if proof == "" {
		return models.Enrollment{}, pkgerrors.New(pkgerrors.CodeValidation, "proof_text is required")
	}

	return models.Enrollment{
		CourseID:           courseID,
		AccessStatus:       enums.AccessStatusPending,
		PaymentStatus:      enums.PaymentStatusPending,
		PaymentMethod:      input.PaymentMethod,
		ContactPhone:       phone,
		PaymentProofText:   proof,
		ProgressPercent:    0,
		CompletedLessonIDs: []uuid.UUID{},
		RequestedAt:        now,
	}, nil
}

// ApplyPaymentReview records an administrator's payment decision.
// PAID activates access, optionally time-boxed; any other status returns access to review.
func ApplyPaymentReview(e models.Enrollment, status enums.PaymentStatus, durationDays *int, now time.Time) (models.Enrollment, error) {
	if !status.IsValid() {
		return e, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}
	days := 0
	if durationDays != nil {
		days = *durationDays
	}
	if days < 0 {
		return e, pkgerrors.New(pkgerrors.CodeValidation, "access_duration_days must be zero or positive")
	}

	out := cloneEnrollment(e)
	out.PaymentStatus = status
	reviewedAt := now
	out.ReviewedAt = &reviewedAt
	out.AccessExpiresAt = nil

	if status != enums.PaymentStatusPaid {
		out.AccessStatus = enums.AccessStatusPending
		return out, nil
	}

	out.AccessStatus = enums.AccessStatusActive
	if days > 0 {
		expires := now.Add(time.Duration(days) * 24 * time.Hour)
		out.AccessExpiresAt = &expires
	}
	return out, nil
}

// ApplyBlock blocks access or lifts a block back to what the payment status allows.
func ApplyBlock(e models.Enrollment, blocked bool) models.Enrollment {
	out := cloneEnrollment(e)
	switch {
	case blocked:
		out.AccessStatus = enums.AccessStatusBlocked
	case out.PaymentStatus == enums.PaymentStatusPaid:
		out.AccessStatus = enums.AccessStatusActive
	default:
		out.AccessStatus = enums.AccessStatusPending
	}
	return out
}

// CompleteLesson records lessonID as completed and recomputes progress.
// Access must evaluate to granted and the lesson must belong to the course.
func CompleteLesson(e models.Enrollment, lessonID uuid.UUID, courseLessonIDs []uuid.UUID, now time.Time) (models.Enrollment, error) {
	if decision := EvaluateAccess(e, now); decision != enums.AccessDecisionGranted {
		return e, accessDenied(decision)
	}
	if !containsID(courseLessonIDs, lessonID) {
		return e, pkgerrors.New(pkgerrors.CodeValidation, "lesson does not belong to course")
	}

	out := cloneEnrollment(e)
	if !out.HasCompleted(lessonID) {
		out.CompletedLessonIDs = append(out.CompletedLessonIDs, lessonID)
	}
	out.ProgressPercent = Progress(countMembers(out.CompletedLessonIDs, courseLessonIDs), len(courseLessonIDs))
	return out, nil
}

func accessDenied(decision enums.AccessDecision) error {
	return pkgerrors.New(pkgerrors.CodeAccessDenied, "course content is not available").
		WithDetails(map[string]any{"decision": decision})
}

func cloneEnrollment(e models.Enrollment) models.Enrollment {
	out := e
	out.CompletedLessonIDs = append([]uuid.UUID{}, e.CompletedLessonIDs...)
	if e.AccessExpiresAt != nil {
		t := *e.AccessExpiresAt
		out.AccessExpiresAt = &t
	}
	if e.ReviewedAt != nil {
		t := *e.ReviewedAt
		out.ReviewedAt = &t
	}
	return out
}

func containsID(ids []uuid.UUID, target uuid.UUID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

// countMembers counts completed ids still present in the course.
func countMembers(completed, course []uuid.UUID) int {
	n := 0
	for _, id := range completed {
		if containsID(course, id) {
			n++
		}
	}
	return n
}
