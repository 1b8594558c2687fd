package courses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/academiaalbert/academia-backend/pkg/db/models"
	pkgerrors "github.com/academiaalbert/academia-backend/pkg/errors"
	"github.com/academiaalbert/academia-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const catalogCacheScope = "catalog"

type coursesRepository interface {
	Create(ctx context.Context, course *models.Course) error
	Save(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
	ListAll(ctx context.Context) ([]models.Course, error)
}

type profilesRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type catalogCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(scope string, parts ...string) string
}

// Service exposes catalog browsing, administration, and reviews.
type Service interface {
	List(ctx context.Context, params ListParams) ([]CourseSummary, error)
	Categories(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id uuid.UUID) (*CourseDetail, error)
	Create(ctx context.Context, input CourseInput) (*models.Course, error)
	Update(ctx context.Context, id uuid.UUID, input CourseInput) (*models.Course, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddReview(ctx context.Context, userID, courseID uuid.UUID, input ReviewInput) (*models.Comment, error)
}

type service struct {
	repo     coursesRepository
	profiles profilesRepository
	cache    catalogCache
	cacheTTL time.Duration
	timeout  time.Duration
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the catalog service. cache may be nil, in which case every read hits the store.
func NewService(repo coursesRepository, profiles profilesRepository, cache catalogCache, cacheTTL, timeout time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("courses repository required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("store timeout must be positive")
	}
	return &service{
		repo:     repo,
		profiles: profiles,
		cache:    cache,
		cacheTTL: cacheTTL,
		timeout:  timeout,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]CourseSummary, error) {
	catalog, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CourseSummary, 0, len(catalog))
	for _, c := range catalog {
		if matches(c, params) {
			out = append(out, toSummary(c))
		}
	}
	return out, nil
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	catalog, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	categories := []string{}
	for _, c := range catalog {
		name := strings.TrimSpace(c.Category)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		categories = append(categories, name)
	}
	sort.Strings(categories)
	return append([]string{AllCategories}, categories...), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CourseDetail, error) {
	course, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := toDetail(*course)
	return &detail, nil
}

func (s *service) Create(ctx context.Context, input CourseInput) (*models.Course, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	course := &models.Course{ID: uuid.New(), Comments: []models.Comment{}}
	input.apply(course)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Create(callCtx, course); err != nil {
		return nil, pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "create course")
	}
	s.invalidate(ctx)
	return course, nil
}

// Update replaces the editable fields of a course, inserting it when the id is unknown.
// Reviews are preserved.
func (s *service) Update(ctx context.Context, id uuid.UUID, input CourseInput) (*models.Course, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "course id is required")
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	course, err := s.find(ctx, id)
	if err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, err
		}
		course = &models.Course{ID: id, Comments: []models.Comment{}}
	}
	input.apply(course)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Save(callCtx, course); err != nil {
		return nil, pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "save course")
	}
	s.invalidate(ctx)
	return course, nil
}

// Delete removes the course. Existing enrollments are left in place and
// surface as missing courses when read.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "course id is required")
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Delete(callCtx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "course not found")
		}
		return pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "delete course")
	}
	s.invalidate(ctx)
	return nil
}

func (s *service) AddReview(ctx context.Context, userID, courseID uuid.UUID, input ReviewInput) (*models.Comment, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "text is required")
	}

	profileCtx, cancelProfile := context.WithTimeout(ctx, s.timeout)
	profile, err := s.profiles.FindByID(profileCtx, userID)
	cancelProfile()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "lookup profile")
	}

	course, err := s.find(ctx, courseID)
	if err != nil {
		return nil, err
	}
	for _, c := range course.Comments {
		if c.UserID == userID {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "course already reviewed by this user")
		}
	}

	rating := input.Rating
	comment := models.Comment{
		ID:         uuid.New(),
		UserID:     userID,
		UserName:   profile.DisplayName(),
		UserAvatar: profile.AvatarURL,
		Text:       text,
		Rating:     &rating,
		CreatedAt:  s.now().UTC(),
	}
	course.Comments = append([]models.Comment{comment}, course.Comments...)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Save(callCtx, course); err != nil {
		return nil, pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "save review")
	}
	s.invalidate(ctx)
	return &comment, nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "course id is required")
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	course, err := s.repo.FindByID(callCtx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "course not found")
		}
		return nil, pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "lookup course")
	}
	return course, nil
}

// catalog reads the full course list through the cache. Cache errors fall back to the store.
func (s *service) catalog(ctx context.Context) ([]models.Course, error) {
	key := ""
	if s.cache != nil {
		key = s.cache.CacheKey(catalogCacheScope, "all")
		if raw, err := s.cache.Get(ctx, key); err == nil {
			var cached []models.Course
			if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
				return cached, nil
			}
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rows, err := s.repo.ListAll(callCtx)
	if err != nil {
		return nil, pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "list courses")
	}

	if s.cache != nil {
		if payload, err := json.Marshal(rows); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil && s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "courses.cache_write_failed")
			}
		}
	}
	return rows, nil
}

func (s *service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cache.CacheKey(catalogCacheScope, "all")); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "courses.cache_invalidate_failed")
	}
}

func validateInput(in CourseInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if in.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if in.PromoPrice != nil {
		if in.PromoPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "promo_price must not be negative")
		}
		if in.PromoPrice.GreaterThan(in.Price) {
			return pkgerrors.New(pkgerrors.CodeValidation, "promo_price must not exceed price")
		}
	}
	seen := map[uuid.UUID]struct{}{}
	for _, l := range in.Lessons {
		if strings.TrimSpace(l.Title) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "lesson title is required")
		}
		if l.ID == nil {
			continue
		}
		if _, dup := seen[*l.ID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "lesson ids must be unique")
		}
		seen[*l.ID] = struct{}{}
	}
	return nil
}
