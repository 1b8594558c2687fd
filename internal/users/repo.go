package users

import (
	"context"
	"errors"
	"time"

	"github.com/academiaalbert/academia-backend/pkg/db/models"
	"github.com/academiaalbert/academia-backend/pkg/enums"
	pkgerrors "github.com/academiaalbert/academia-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrStaleProfile is returned when a profile changed since it was read.
var ErrStaleProfile = pkgerrors.New(pkgerrors.CodeConflict, "profile was modified by another request; reload and retry")

// Repository exposes profile persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new profile and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the profile matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a profile by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns profiles newest first using keyset pagination.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]models.User, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})
	if q.Role != "" {
		query = query.Where("role = ?", q.Role)
	}
	if q.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", q.Cursor.CreatedAt, q.Cursor.CreatedAt, q.Cursor.ID)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var rows []models.User
	if err := query.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAll returns every profile with the given role, or all when role is empty.
func (r *Repository) ListAll(ctx context.Context, role enums.UserRole) ([]models.User, error) {
	return r.List(ctx, ListQuery{Role: role})
}

// UpdateEnrollments replaces the embedded enrollments when the stored version
// still equals expectedVersion, and returns the new version.
func (r *Repository) UpdateEnrollments(ctx context.Context, id uuid.UUID, enrollments []models.Enrollment, expectedVersion int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]any{
			"enrollments": datatypes.JSONSlice[models.Enrollment](enrollments),
			"version":     gorm.Expr("version + 1"),
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, r.missingOrStale(ctx, id)
	}
	return expectedVersion + 1, nil
}

// UpdateRole sets the profile role, guarded by the same version counter.
func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, role enums.UserRole, expectedVersion int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]any{
			"role":       role,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, r.missingOrStale(ctx, id)
	}
	return expectedVersion + 1, nil
}

// UpdateLastLogin refreshes the profile's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// UpdatePasswordHash swaps in a hash written with the current argon2 costs.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("password_hash", hash).Error
}

// Delete removes the profile and, with it, its embedded enrollments.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) missingOrStale(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return ErrStaleProfile
}

// IsStale reports whether err is a version conflict raised by this repository.
func IsStale(err error) bool {
	return errors.Is(err, ErrStaleProfile)
}
