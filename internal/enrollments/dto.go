package enrollments

import (
	"strings"

	"github.com/academiaalbert/academia-backend/pkg/db/models"
	"github.com/academiaalbert/academia-backend/pkg/enums"
	"github.com/google/uuid"
)

// RequestInput is what a student submits at checkout.
type RequestInput struct {
	PaymentMethod enums.PaymentMethod
	ContactPhone  string
	ProofText     string
}

// ApprovalInput is an administrator's payment decision.
type ApprovalInput struct {
	StudentID          uuid.UUID
	CourseID           uuid.UUID
	PaymentStatus      enums.PaymentStatus
	AccessDurationDays *int
}

// EnrollmentView decorates an enrollment with read-time derived fields.
type EnrollmentView struct {
	models.Enrollment
	CourseTitle         string               `json:"course_title,omitempty"`
	CourseMissing       bool                 `json:"course_missing"`
	TotalLessons        int                  `json:"total_lessons"`
	AccessDecision      enums.AccessDecision `json:"access_decision"`
	CertificateEligible bool                 `json:"certificate_eligible"`
}

// LessonContent is a lesson as rendered in the learning viewer.
type LessonContent struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	VideoURL    *string   `json:"video_url,omitempty"`
	DocumentURL *string   `json:"document_url,omitempty"`
	RichText    *string   `json:"rich_text,omitempty"`
	Duration    string    `json:"duration"`
	Completed   bool      `json:"completed"`
}

// LearningView is returned when a student opens a course they may access.
type LearningView struct {
	CourseID   uuid.UUID             `json:"course_id"`
	Title      string                `json:"title"`
	Author     string                `json:"author"`
	Lessons    []LessonContent       `json:"lessons"`
	Ebooks     []models.Ebook        `json:"ebooks"`
	Quiz       []models.QuizQuestion `json:"quiz"`
	Enrollment EnrollmentView        `json:"enrollment"`
}

func newView(e models.Enrollment, course *models.Course, decision enums.AccessDecision) EnrollmentView {
	view := EnrollmentView{
		Enrollment:          e,
		AccessDecision:      decision,
		CertificateEligible: CertificateEligible(e),
	}
	if course == nil {
		view.CourseMissing = true
		return view
	}
	view.CourseTitle = course.Title
	view.TotalLessons = len(course.Lessons)
	return view
}

func newLearningView(course models.Course, view EnrollmentView) *LearningView {
	lessons := make([]LessonContent, 0, len(course.Lessons))
	for _, l := range course.Lessons {
		lessons = append(lessons, LessonContent{
			ID:          l.ID,
			Title:       l.Title,
			VideoURL:    l.VideoURL,
			DocumentURL: previewLink(l.DocumentURL),
			RichText:    l.RichText,
			Duration:    l.Duration,
			Completed:   view.HasCompleted(l.ID),
		})
	}
	return &LearningView{
		CourseID:   course.ID,
		Title:      course.Title,
		Author:     course.Author,
		Lessons:    lessons,
		Ebooks:     append([]models.Ebook{}, course.Ebooks...),
		Quiz:       append([]models.QuizQuestion{}, course.Quiz...),
		Enrollment: view,
	}
}

// previewLink turns a Google Drive "view" link into its embeddable preview form.
func previewLink(raw *string) *string {
	if raw == nil {
		return nil
	}
	link := *raw
	if strings.Contains(link, "drive.google.com") && strings.Contains(link, "/view") {
		link = strings.Replace(link, "/view", "/preview", 1)
	}
	return &link
}
