package admin

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/academiaalbert/academia-backend/internal/users"
	"github.com/academiaalbert/academia-backend/pkg/db/models"
	"github.com/academiaalbert/academia-backend/pkg/enums"
	pkgerrors "github.com/academiaalbert/academia-backend/pkg/errors"
	"github.com/academiaalbert/academia-backend/pkg/logger"
	"github.com/academiaalbert/academia-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type profilesRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, q users.ListQuery) ([]models.User, error)
	ListAll(ctx context.Context, role enums.UserRole) ([]models.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role enums.UserRole, expectedVersion int64) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type coursesRepository interface {
	ListAll(ctx context.Context) ([]models.Course, error)
}

// Service backs the administrator panel.
type Service interface {
	ListUsers(ctx context.Context, params UserListParams) (*UserPage, error)
	ToggleRole(ctx context.Context, actorID, userID uuid.UUID) (*users.UserDTO, error)
	DeleteUser(ctx context.Context, actorID, userID uuid.UUID) error
	Stats(ctx context.Context) (*Stats, error)
	ExportCSV(ctx context.Context, w io.Writer) error
}

type service struct {
	profiles profilesRepository
	courses  coursesRepository
	timeout  time.Duration
	logg     *logger.Logger
}

func NewService(profiles profilesRepository, courses coursesRepository, timeout time.Duration, logg *logger.Logger) (Service, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	if courses == nil {
		return nil, fmt.Errorf("courses repository required")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("store timeout must be positive")
	}
	return &service{profiles: profiles, courses: courses, timeout: timeout, logg: logg}, nil
}

func (s *service) ListUsers(ctx context.Context, params UserListParams) (*UserPage, error) {
	if params.Role != "" && !params.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role filter")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rows, err := s.profiles.List(callCtx, users.ListQuery{
		Role:   params.Role,
		Limit:  pagination.FetchLimit(params.Limit),
		Cursor: cursor,
	})
	if err != nil {
		return nil, pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "list users")
	}

	rows, next := pagination.TrimPage(rows, params.Limit, func(u models.User) pagination.Cursor {
		return pagination.Cursor{CreatedAt: u.CreatedAt, ID: u.ID}
	})
	page := &UserPage{Users: make([]users.UserDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		page.Users = append(page.Users, *users.FromModel(&rows[i]))
	}
	return page, nil
}

// ToggleRole flips STUDENT and ADMIN. An administrator cannot demote themselves.
func (s *service) ToggleRole(ctx context.Context, actorID, userID uuid.UUID) (*users.UserDTO, error) {
	if actorID == userID {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "administrators cannot change their own role")
	}
	profile, err := s.findProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	next := enums.UserRoleAdmin
	if profile.Role == enums.UserRoleAdmin {
		next = enums.UserRoleStudent
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	version, err := s.profiles.UpdateRole(callCtx, profile.ID, next, profile.Version)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "update role")
	}
	profile.Role = next
	profile.Version = version

	if s.logg != nil {
		logCtx := s.logg.WithUserID(ctx, userID.String())
		s.logg.Info(s.logg.WithField(logCtx, "role", next.String()), "admin.role_changed")
	}
	return users.FromModel(profile), nil
}

func (s *service) DeleteUser(ctx context.Context, actorID, userID uuid.UUID) error {
	if actorID == userID {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "administrators cannot delete their own account")
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.profiles.Delete(callCtx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "delete user")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "admin.user_deleted")
	}
	return nil
}

// Stats aggregates over every profile. Revenue sums the list price of each
// course with a PAID enrollment; enrollments for deleted courses add nothing.
func (s *service) Stats(ctx context.Context) (*Stats, error) {
	profiles, courses, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*CourseStat, len(courses))
	prices := make(map[uuid.UUID]decimal.Decimal, len(courses))
	stats := &Stats{Revenue: decimal.Zero, Courses: make([]CourseStat, 0, len(courses))}
	for _, c := range courses {
		stats.Courses = append(stats.Courses, CourseStat{CourseID: c.ID, Title: c.Title})
		prices[c.ID] = c.Price
	}
	for i := range stats.Courses {
		byID[stats.Courses[i].CourseID] = &stats.Courses[i]
	}

	for _, p := range profiles {
		if p.Role == enums.UserRoleStudent {
			stats.TotalStudents++
		}
		for _, e := range p.Enrollments {
			if e.PaymentStatus == enums.PaymentStatusPending {
				stats.PendingPayments++
			}
			stat, ok := byID[e.CourseID]
			if !ok {
				continue
			}
			stat.Enrollments++
			if e.PaymentStatus == enums.PaymentStatusPaid {
				stat.Paid++
				stats.Revenue = stats.Revenue.Add(prices[e.CourseID])
			}
		}
	}

	top := append([]CourseStat{}, stats.Courses...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Enrollments > top[j].Enrollments })
	if len(top) > topCoursesLimit {
		top = top[:topCoursesLimit]
	}
	stats.TopCourses = top
	return stats, nil
}

// ExportCSV writes one row per profile: Name, Email, Role, EnrollmentCount.
func (s *service) ExportCSV(ctx context.Context, w io.Writer) error {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	profiles, err := s.profiles.ListAll(callCtx, "")
	if err != nil {
		return pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "list users")
	}

	out := csv.NewWriter(w)
	if err := out.Write([]string{"Name", "Email", "Role", "EnrollmentCount"}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write csv header")
	}
	for _, p := range profiles {
		row := []string{p.DisplayName(), p.Email, p.Role.String(), strconv.Itoa(len(p.Enrollments))}
		if err := out.Write(row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write csv row")
		}
	}
	out.Flush()
	if err := out.Error(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flush csv")
	}
	return nil
}

func (s *service) snapshot(ctx context.Context) ([]models.User, []models.Course, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	profiles, err := s.profiles.ListAll(callCtx, "")
	if err != nil {
		return nil, nil, pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "list users")
	}
	courses, err := s.courses.ListAll(callCtx)
	if err != nil {
		return nil, nil, pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "list courses")
	}
	return profiles, courses, nil
}

func (s *service) findProfile(ctx context.Context, id uuid.UUID) (*models.User, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	profile, err := s.profiles.FindByID(callCtx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "lookup user")
	}
	return profile, nil
}
