package enrollments

import (
	"math"
	"time"

	"github.com/academiaalbert/academia-backend/pkg/db/models"
	"github.com/academiaalbert/academia-backend/pkg/enums"
)

// EvaluateAccess decides whether the enrollment's content may be viewed at now.
// Precedence: blocked, expired, pending review, granted. Anything else is blocked.
func EvaluateAccess(e models.Enrollment, now time.Time) enums.AccessDecision {
	if e.AccessStatus == enums.AccessStatusBlocked {
		return enums.AccessDecisionBlocked
	}
	if e.AccessExpiresAt != nil && e.AccessExpiresAt.Before(now) {
		return enums.AccessDecisionExpired
	}
	switch e.AccessStatus {
	case enums.AccessStatusPending:
		return enums.AccessDecisionPendingReview
	case enums.AccessStatusActive:
		return enums.AccessDecisionGranted
	default:
		return enums.AccessDecisionBlocked
	}
}

// Progress returns round(100 * completed / total), or 0 for a course without lessons.
func Progress(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// CertificateEligible is derived from progress and never stored.
func CertificateEligible(e models.Enrollment) bool {
	return e.ProgressPercent == 100
}
