package controllers

import (
	"net/http"
	"strings"

	"github.com/academiaalbert/academia-backend/api/responses"
	"github.com/academiaalbert/academia-backend/api/validators"
	"github.com/academiaalbert/academia-backend/internal/enrollments"
	"github.com/academiaalbert/academia-backend/pkg/enums"
	pkgerrors "github.com/academiaalbert/academia-backend/pkg/errors"
	"github.com/academiaalbert/academia-backend/pkg/logger"
)

const maxProofLength = 2000

type enrollmentRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
	ContactPhone  string `json:"contact_phone" validate:"required,phone"`
	ProofText     string `json:"proof_text" validate:"max=2000"`
}

func (r enrollmentRequest) toInput() (enrollments.RequestInput, error) {
	method, err := enums.ParsePaymentMethod(strings.ToUpper(strings.TrimSpace(r.PaymentMethod)))
	if err != nil {
		return enrollments.RequestInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_method")
	}
	return enrollments.RequestInput{
		PaymentMethod: method,
		ContactPhone:  strings.TrimSpace(r.ContactPhone),
		ProofText:     validators.SanitizeString(r.ProofText, maxProofLength),
	}, nil
}

type paymentReviewRequest struct {
	PaymentStatus      string `json:"payment_status" validate:"required"`
	AccessDurationDays *int   `json:"access_duration_days" validate:"omitempty,min=0"`
}

type blockRequest struct {
	Blocked *bool `json:"blocked" validate:"required"`
}

// MyEnrollments is the student dashboard.
func MyEnrollments(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("enrollment service"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views, err := svc.Dashboard(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

// EnrollmentRequest records a checkout submission awaiting payment review.
func EnrollmentRequest(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("enrollment service"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		courseID, err := validators.PathUUID(r, "courseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body enrollmentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		enrollment, err := svc.RequestEnrollment(r.Context(), userID, courseID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, enrollment)
	}
}

// CourseLearn opens the learning view. Access is evaluated on every call.
func CourseLearn(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("enrollment service"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		courseID, err := validators.PathUUID(r, "courseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.OpenCourse(r.Context(), userID, courseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func LessonComplete(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("enrollment service"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		courseID, err := validators.PathUUID(r, "courseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lessonID, err := validators.PathUUID(r, "lessonId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.MarkLessonComplete(r.Context(), userID, courseID, lessonID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// AdminPaymentReview applies an administrator's payment decision.
func AdminPaymentReview(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("enrollment service"))
			return
		}
		studentID, err := validators.PathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		courseID, err := validators.PathUUID(r, "courseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body paymentReviewRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParsePaymentStatus(strings.ToUpper(strings.TrimSpace(body.PaymentStatus)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_status"))
			return
		}
		enrollment, err := svc.ApprovePayment(r.Context(), enrollments.ApprovalInput{
			StudentID:          studentID,
			CourseID:           courseID,
			PaymentStatus:      status,
			AccessDurationDays: body.AccessDurationDays,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, enrollment)
	}
}

func AdminSetBlocked(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("enrollment service"))
			return
		}
		studentID, err := validators.PathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		courseID, err := validators.PathUUID(r, "courseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body blockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		enrollment, err := svc.SetBlocked(r.Context(), studentID, courseID, *body.Blocked)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, enrollment)
	}
}
