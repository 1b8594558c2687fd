package models

import (
	"strings"
	"time"

	"github.com/academiaalbert/academia-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// User is a profile row. Enrollments are embedded as one JSON column.
type User struct {
	ID           uuid.UUID                       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string                          `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string                          `gorm:"column:password_hash;not null"`
	FirstName    string                          `gorm:"column:first_name;not null"`
	LastName     string                          `gorm:"column:last_name;not null"`
	Phone        *string                         `gorm:"column:phone"`
	Role         enums.UserRole                  `gorm:"column:role;type:text;not null;default:'STUDENT'"`
	AvatarURL    *string                         `gorm:"column:avatar_url"`
	Enrollments  datatypes.JSONSlice[Enrollment] `gorm:"column:enrollments;type:jsonb;not null;default:'[]'"`
	Version      int64                           `gorm:"column:version;not null;default:1"`
	LastLoginAt  *time.Time                      `gorm:"column:last_login_at"`
	CreatedAt    time.Time                       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time                       `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "profiles" }

// DisplayName joins first and last name.
func (u User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// EnrollmentFor returns the index of the enrollment for courseID, or -1.
func (u User) EnrollmentFor(courseID uuid.UUID) int {
	for i, e := range u.Enrollments {
		if e.CourseID == courseID {
			return i
		}
	}
	return -1
}

// ValidateEnrollments rejects malformed embedded rows, including duplicate courses.
func (u User) ValidateEnrollments() error {
	seen := make(map[uuid.UUID]struct{}, len(u.Enrollments))
	for i := range u.Enrollments {
		if err := u.Enrollments[i].Validate(); err != nil {
			return err
		}
		if _, dup := seen[u.Enrollments[i].CourseID]; dup {
			return ErrDuplicateEnrollment
		}
		seen[u.Enrollments[i].CourseID] = struct{}{}
	}
	return nil
}
