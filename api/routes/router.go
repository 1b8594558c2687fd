package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/academiaalbert/academia-backend/api/controllers"
	"github.com/academiaalbert/academia-backend/api/middleware"
	"github.com/academiaalbert/academia-backend/internal/admin"
	"github.com/academiaalbert/academia-backend/internal/auth"
	"github.com/academiaalbert/academia-backend/internal/chat"
	"github.com/academiaalbert/academia-backend/internal/courses"
	"github.com/academiaalbert/academia-backend/internal/enrollments"
	"github.com/academiaalbert/academia-backend/pkg/auth/session"
	"github.com/academiaalbert/academia-backend/pkg/config"
	"github.com/academiaalbert/academia-backend/pkg/db"
	"github.com/academiaalbert/academia-backend/pkg/enums"
	"github.com/academiaalbert/academia-backend/pkg/logger"
	"github.com/academiaalbert/academia-backend/pkg/redis"
)

// Services groups the domain services mounted by the router.
type Services struct {
	Auth        auth.Service
	Courses     courses.Service
	Enrollments enrollments.Service
	Admin       admin.Service
	Chat        chat.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	gatherer prometheus.Gatherer,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins...),
	)

	// a nil *redis.Client must not reach the middleware as a non-nil interface
	var counters middleware.RateLimitStore
	var idem redis.IdempotencyStore
	if redisClient != nil {
		counters = redisClient
		idem = redisClient
	}

	loginPolicy := middleware.NewRateLimitPolicy("login", cfg.AuthRateLimit.LoginWindow, cfg.AuthRateLimit.LoginIPLimit, cfg.AuthRateLimit.LoginEmailLimit)
	registerPolicy := middleware.NewRateLimitPolicy("register", cfg.AuthRateLimit.RegisterWindow, cfg.AuthRateLimit.RegisterIPLimit, cfg.AuthRateLimit.RegisterEmailLimit)
	chatPolicy := middleware.NewRateLimitPolicy("chat", cfg.AuthRateLimit.ChatWindow, cfg.AuthRateLimit.ChatIPLimit, 0)

	deps := []controllers.Dependency{{Name: "postgres", Pinger: dbP}}
	if redisClient != nil {
		deps = append(deps, controllers.Dependency{Name: "redis", Pinger: redisClient})
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps...))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	requireAuth := middleware.Auth(cfg.JWT, sessions, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/courses", controllers.CoursesList(svc.Courses, logg))
		r.Get("/courses/categories", controllers.CourseCategories(svc.Courses, logg))
		r.Get("/courses/{courseId}", controllers.CourseGet(svc.Courses, logg))
		r.Get("/payment-accounts", controllers.PaymentAccounts(cfg.Payments))
		r.With(middleware.RateLimit(chatPolicy, counters, logg)).Post("/chat", controllers.ChatAsk(svc.Chat, logg))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimit(registerPolicy, counters, logg)).Post("/register", controllers.AuthRegister(svc.Auth, logg))
			r.With(middleware.RateLimit(loginPolicy, counters, logg)).Post("/login", controllers.AuthLogin(svc.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(svc.Auth, cfg.JWT, logg))
			r.Post("/logout", controllers.AuthLogout(svc.Auth, cfg.JWT, logg))
			r.With(requireAuth).Get("/session", controllers.AuthSession(svc.Auth, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(middleware.Idempotency(idem, logg))

			r.Get("/me/enrollments", controllers.MyEnrollments(svc.Enrollments, logg))
			r.Post("/courses/{courseId}/enrollments", controllers.EnrollmentRequest(svc.Enrollments, logg))
			r.Get("/courses/{courseId}/learn", controllers.CourseLearn(svc.Enrollments, logg))
			r.Post("/courses/{courseId}/lessons/{lessonId}/complete", controllers.LessonComplete(svc.Enrollments, logg))
			r.Post("/courses/{courseId}/reviews", controllers.CourseReview(svc.Courses, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		r.Use(middleware.Idempotency(idem, logg))

		r.Post("/courses", controllers.AdminCourseCreate(svc.Courses, logg))
		r.Put("/courses/{courseId}", controllers.AdminCourseUpdate(svc.Courses, logg))
		r.Delete("/courses/{courseId}", controllers.AdminCourseDelete(svc.Courses, logg))

		r.Get("/users", controllers.AdminUsers(svc.Admin, logg))
		r.Post("/users/{userId}/role", controllers.AdminToggleRole(svc.Admin, logg))
		r.Delete("/users/{userId}", controllers.AdminDeleteUser(svc.Admin, logg))
		r.Post("/users/{userId}/enrollments/{courseId}/payment", controllers.AdminPaymentReview(svc.Enrollments, logg))
		r.Post("/users/{userId}/enrollments/{courseId}/block", controllers.AdminSetBlocked(svc.Enrollments, logg))

		r.Get("/stats", controllers.AdminStats(svc.Admin, logg))
		r.Get("/reports/students.csv", controllers.AdminExportCSV(svc.Admin, logg))
	})

	return r
}
