package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/academiaalbert/academia-backend/internal/admin"
	"github.com/academiaalbert/academia-backend/internal/courses"
	"github.com/academiaalbert/academia-backend/internal/enrollments"
	"github.com/academiaalbert/academia-backend/internal/users"
	pkgAuth "github.com/academiaalbert/academia-backend/pkg/auth"
	"github.com/academiaalbert/academia-backend/pkg/config"
	"github.com/academiaalbert/academia-backend/pkg/db/models"
	"github.com/academiaalbert/academia-backend/pkg/enums"
	"github.com/academiaalbert/academia-backend/pkg/metrics"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubSessions struct{}

func (stubSessions) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubCourses struct{}

func (stubCourses) List(ctx context.Context, params courses.ListParams) ([]courses.CourseSummary, error) {
	return []courses.CourseSummary{}, nil
}
func (stubCourses) Categories(ctx context.Context) ([]string, error) {
	return []string{courses.AllCategories}, nil
}
func (stubCourses) Get(ctx context.Context, id uuid.UUID) (*courses.CourseDetail, error) {
	return &courses.CourseDetail{}, nil
}
func (stubCourses) Create(ctx context.Context, input courses.CourseInput) (*models.Course, error) {
	return &models.Course{}, nil
}
func (stubCourses) Update(ctx context.Context, id uuid.UUID, input courses.CourseInput) (*models.Course, error) {
	return &models.Course{}, nil
}
func (stubCourses) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (stubCourses) AddReview(ctx context.Context, userID, courseID uuid.UUID, input courses.ReviewInput) (*models.Comment, error) {
	return &models.Comment{}, nil
}

type stubEnrollments struct{ enrollments.Service }

func (stubEnrollments) Dashboard(ctx context.Context, studentID uuid.UUID) ([]enrollments.EnrollmentView, error) {
	return []enrollments.EnrollmentView{}, nil
}

type stubAdmin struct{}

func (stubAdmin) ListUsers(ctx context.Context, params admin.UserListParams) (*admin.UserPage, error) {
	return &admin.UserPage{Users: []users.UserDTO{}}, nil
}
func (stubAdmin) ToggleRole(ctx context.Context, actorID, userID uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{}, nil
}
func (stubAdmin) DeleteUser(ctx context.Context, actorID, userID uuid.UUID) error { return nil }
func (stubAdmin) Stats(ctx context.Context) (*admin.Stats, error)              { return &admin.Stats{}, nil }
func (stubAdmin) ExportCSV(ctx context.Context, w io.Writer) error             { return nil }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "academia", ExpirationMinutes: 10},
		Payments: config.PaymentsConfig{
			MPesaAccount: "+258 840000000",
			EMolaAccount: "+258 860000000",
			BIMAccount:   "0001",
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	reg := prometheus.NewRegistry()
	metrics.NewEnrollmentMetrics(reg).IncTransition(metrics.EventRequested)
	return NewRouter(cfg, nil, stubPinger{}, nil, stubSessions{}, reg, Services{
		Courses:     stubCourses{},
		Enrollments: stubEnrollments{},
		Admin:       stubAdmin{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func serve(router http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPublicCatalogNeedsNoToken(t *testing.T) {
	router := newTestRouter(testConfig())
	for _, path := range []string{"/api/v1/courses", "/api/v1/courses/categories", "/api/v1/payment-accounts", "/health/live"} {
		if rec := serve(router, http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, rec.Code)
		}
	}
}

func TestReadinessReportsDependencyFailure(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(cfg, nil, stubPinger{err: context.DeadlineExceeded}, nil, stubSessions{}, nil, Services{})
	if rec := serve(router, http.MethodGet, "/health/ready", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}

func TestMetricsEndpointExposesEnrollmentCounters(t *testing.T) {
	rec := serve(newTestRouter(testConfig()), http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "academia_enrollment_transitions_total") {
		t.Fatal("expected enrollment counter in exposition")
	}
}

func TestStudentRoutesRequireJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	if rec := serve(router, http.MethodGet, "/api/v1/me/enrollments", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/api/v1/me/enrollments", buildToken(t, cfg, enums.UserRoleStudent)); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d", rec.Code)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	if rec := serve(router, http.MethodGet, "/api/admin/stats", buildToken(t, cfg, enums.UserRoleStudent)); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for student got %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/api/admin/stats", buildToken(t, cfg, enums.UserRoleAdmin)); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/api/admin/users", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", rec.Code)
	}
}
