package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/academiaalbert/academia-backend/internal/users"
	pkgAuth "github.com/academiaalbert/academia-backend/pkg/auth"
	"github.com/academiaalbert/academia-backend/pkg/auth/session"
	"github.com/academiaalbert/academia-backend/pkg/config"
	"github.com/academiaalbert/academia-backend/pkg/db"
	"github.com/academiaalbert/academia-backend/pkg/db/models"
	"github.com/academiaalbert/academia-backend/pkg/enums"
	pkgerrors "github.com/academiaalbert/academia-backend/pkg/errors"
	"github.com/academiaalbert/academia-backend/pkg/logger"
	"github.com/academiaalbert/academia-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const invalidCredentialsMessage = "invalid credentials"

// Service is the auth boundary: sign-up, sign-in, sign-out, refresh and session lookup.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*SessionResponse, error)
	Login(ctx context.Context, req LoginRequest) (*SessionResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*SessionResponse, error)
	Logout(ctx context.Context, accessTokenID string) error
	Session(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
}

type service struct {
	users       userRepository
	session     sessionManager
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	adminEmail  string
	timeout     time.Duration
	logg        *logger.Logger
	now         func() time.Time
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role enums.UserRole, expectedVersion int64) (int64, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (*session.Rotation, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	AdminEmail     string
	Timeout        time.Duration
	Logger         *logger.Logger
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &service{
		users:       params.UserRepo,
		session:     params.SessionManager,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		adminEmail:  users.NormalizeEmail(params.AdminEmail),
		timeout:     timeout,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*SessionResponse, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first_name and last_name are required")
	}
	if err := security.CheckPolicy(req.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.users.FindByEmail(callCtx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "check user email")
	}

	role := enums.UserRoleStudent
	if s.isAdminEmail(email) {
		role = enums.UserRoleAdmin
	}
	user, err := s.users.Create(callCtx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        trimmed(req.Phone),
		Role:         role,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "create user")
	}

	s.info(ctx, user, "auth.registered")
	return s.issue(ctx, user, s.now().UTC())
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*SessionResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if err := s.ensureAdminRole(ctx, user); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.users.UpdateLastLogin(callCtx, user.ID, now); err != nil {
		return nil, pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "update last login")
	}
	user.LastLoginAt = &now

	s.info(ctx, user, "auth.logged_in")
	return s.issue(ctx, user, now)
}

// Refresh rotates the refresh session and re-reads the profile so role
// changes take effect on the next access token.
func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*SessionResponse, error) {
	if strings.TrimSpace(req.AccessTokenID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	rotation, err := s.session.Rotate(ctx, req.AccessTokenID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.WrapExternal(pkgerrors.CodeDependency, err, "rotate session")
	}

	user, err := s.findUser(ctx, rotation.UserID)
	if err != nil {
		_ = s.session.Revoke(ctx, rotation.AccessID)
		return nil, err
	}

	accessToken, err := s.mint(user, rotation.AccessID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	return &SessionResponse{
		AccessToken:  accessToken,
		RefreshToken: rotation.RefreshToken,
		User:         users.FromModel(user),
	}, nil
}

func (s *service) Logout(ctx context.Context, accessTokenID string) error {
	if strings.TrimSpace(accessTokenID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if err := s.session.Revoke(ctx, accessTokenID); err != nil {
		return pkgerrors.WrapExternal(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) Session(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return users.FromModel(user), nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := users.NormalizeEmail(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	user, err := s.users.FindByEmail(callCtx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	s.upgradeHash(ctx, user, password)
	return user, nil
}

// upgradeHash rewrites the stored hash after argon2 cost changes. Failures only log:
// the sign-in already succeeded.
func (s *service) upgradeHash(ctx context.Context, user *models.User, password string) {
	if !security.NeedsRehash(user.PasswordHash, s.passwordCfg) {
		return
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err == nil {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err = s.users.UpdatePasswordHash(callCtx, user.ID, hash)
		cancel()
	}
	if err != nil {
		s.logg.Warn(s.logg.WithField(s.logg.WithUserID(ctx, user.ID.String()), "error", err.Error()), "auth.rehash_failed")
		return
	}
	user.PasswordHash = hash
}

// ensureAdminRole promotes the configured administrator account on sign-in.
func (s *service) ensureAdminRole(ctx context.Context, user *models.User) error {
	if !s.isAdminEmail(user.Email) || user.Role == enums.UserRoleAdmin {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	version, err := s.users.UpdateRole(callCtx, user.ID, enums.UserRoleAdmin, user.Version)
	if err != nil {
		return pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "promote admin")
	}
	user.Role = enums.UserRoleAdmin
	user.Version = version
	return nil
}

func (s *service) findUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	user, err := s.users.FindByID(callCtx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account no longer exists")
		}
		return nil, pkgerrors.WrapExternal(pkgerrors.CodePersistence, err, "lookup user")
	}
	return user, nil
}

func (s *service) issue(ctx context.Context, user *models.User, now time.Time) (*SessionResponse, error) {
	accessID := session.NewAccessID()
	accessToken, err := s.mint(user, accessID, now)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.session.Generate(ctx, accessID, user.ID)
	if err != nil {
		return nil, pkgerrors.WrapExternal(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return &SessionResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         users.FromModel(user),
	}, nil
}

func (s *service) mint(user *models.User, accessID string, now time.Time) (string, error) {
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, nil
}

func (s *service) isAdminEmail(email string) bool {
	return s.adminEmail != "" && users.NormalizeEmail(email) == s.adminEmail
}

func (s *service) info(ctx context.Context, user *models.User, msg string) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithUserID(ctx, user.ID.String())
	s.logg.Info(s.logg.WithActorRole(ctx, user.Role.String()), msg)
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
