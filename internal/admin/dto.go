package admin

import (
	"github.com/academiaalbert/academia-backend/internal/users"
	"github.com/academiaalbert/academia-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReportFilename is the suggested download name for the CSV export.
const ReportFilename = "academia_albert_report.csv"

const topCoursesLimit = 5

// UserListParams filters the admin user listing.
type UserListParams struct {
	Role   enums.UserRole
	Limit  int
	Cursor string
}

// UserPage is one page of profiles with their enrollments.
type UserPage struct {
	Users      []users.UserDTO `json:"users"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// CourseStat counts enrollments for one course.
type CourseStat struct {
	CourseID    uuid.UUID `json:"course_id"`
	Title       string    `json:"title"`
	Enrollments int       `json:"enrollments"`
	Paid        int       `json:"paid"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalStudents   int             `json:"total_students"`
	PendingPayments int             `json:"pending_payments"`
	Revenue         decimal.Decimal `json:"revenue"`
	Courses         []CourseStat    `json:"courses"`
	TopCourses      []CourseStat    `json:"top_courses"`
}
