package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/academiaalbert/academia-backend/pkg/enums"
	"github.com/google/uuid"
)

var ErrDuplicateEnrollment = errors.New("profile holds more than one enrollment for the same course")

// Enrollment is one student's relationship to one course.
type Enrollment struct {
	CourseID           uuid.UUID           `json:"course_id"`
	AccessStatus       enums.AccessStatus  `json:"access_status"`
	PaymentStatus      enums.PaymentStatus `json:"payment_status"`
	PaymentMethod      enums.PaymentMethod `json:"payment_method"`
	ContactPhone       string              `json:"contact_phone"`
	PaymentProofText   string              `json:"payment_proof_text,omitempty"`
	ProgressPercent    int                 `json:"progress_percent"`
	CompletedLessonIDs []uuid.UUID         `json:"completed_lesson_ids"`
	RequestedAt        time.Time           `json:"requested_at"`
	AccessExpiresAt    *time.Time          `json:"access_expires_at,omitempty"`
	ReviewedAt         *time.Time          `json:"reviewed_at,omitempty"`
}

// Validate checks the shape of an enrollment loaded from storage.
func (e Enrollment) Validate() error {
	if e.CourseID == uuid.Nil {
		return errors.New("enrollment course_id is required")
	}
	if !e.AccessStatus.IsValid() {
		return fmt.Errorf("enrollment for course %s has invalid access status %q", e.CourseID, e.AccessStatus)
	}
	if !e.PaymentStatus.IsValid() {
		return fmt.Errorf("enrollment for course %s has invalid payment status %q", e.CourseID, e.PaymentStatus)
	}
	if e.PaymentMethod != "" && !e.PaymentMethod.IsValid() {
		return fmt.Errorf("enrollment for course %s has invalid payment method %q", e.CourseID, e.PaymentMethod)
	}
	if e.ProgressPercent < 0 || e.ProgressPercent > 100 {
		return fmt.Errorf("enrollment for course %s has progress %d outside 0-100", e.CourseID, e.ProgressPercent)
	}
	seen := make(map[uuid.UUID]struct{}, len(e.CompletedLessonIDs))
	for _, id := range e.CompletedLessonIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("enrollment for course %s lists lesson %s twice", e.CourseID, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// HasCompleted reports whether lessonID is already recorded.
func (e Enrollment) HasCompleted(lessonID uuid.UUID) bool {
	for _, id := range e.CompletedLessonIDs {
		if id == lessonID {
			return true
		}
	}
	return false
}
