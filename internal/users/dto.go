package users

import (
	"strings"
	"time"

	"github.com/academiaalbert/academia-backend/pkg/db/models"
	"github.com/academiaalbert/academia-backend/pkg/enums"
	pkgpagination "github.com/academiaalbert/academia-backend/pkg/pagination"
	"github.com/google/uuid"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID           `json:"id"`
	Email       string              `json:"email"`
	FirstName   string              `json:"first_name"`
	LastName    string              `json:"last_name"`
	Phone       *string             `json:"phone,omitempty"`
	Role        enums.UserRole      `json:"role"`
	AvatarURL   *string             `json:"avatar_url,omitempty"`
	Enrollments []models.Enrollment `json:"enrollments"`
	LastLoginAt *time.Time          `json:"last_login_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new profile.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	Role         enums.UserRole
}

// ListQuery filters the profile listing. Zero Role means every role.
type ListQuery struct {
	Role   enums.UserRole
	Limit  int
	Cursor *pkgpagination.Cursor
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	enrollments := make([]models.Enrollment, len(u.Enrollments))
	copy(enrollments, u.Enrollments)

	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		Role:        u.Role,
		AvatarURL:   u.AvatarURL,
		Enrollments: enrollments,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if !role.IsValid() {
		role = enums.UserRoleStudent
	}
	return &models.User{
		ID:           uuid.New(),
		Email:        NormalizeEmail(c.Email),
		PasswordHash: c.PasswordHash,
		FirstName:    strings.TrimSpace(c.FirstName),
		LastName:     strings.TrimSpace(c.LastName),
		Phone:        c.Phone,
		Role:         role,
		Enrollments:  []models.Enrollment{},
		Version:      1,
	}
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
