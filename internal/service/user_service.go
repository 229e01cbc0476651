package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/uninotes-api/internal/dto"
	"github.com/noah-isme/uninotes-api/internal/models"
	"github.com/noah-isme/uninotes-api/internal/repository"
	appErrors "github.com/noah-isme/uninotes-api/pkg/errors"
	"github.com/noah-isme/uninotes-api/pkg/validation"
)

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, user models.User) (bool, error)
	Modify(ctx context.Context, email string, fn func(*models.User)) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
	Promote(ctx context.Context, email string) (bool, error)
	Demote(ctx context.Context, email string) (bool, error)
}

// UserService handles registration, profiles and role management.
type UserService struct {
	repo      userRepository
	sessions  sessionRepository
	logs      adminLogAppender
	cache     *CacheService
	validator *validation.Validator
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(repo userRepository, sessions sessionRepository, logs adminLogAppender, cache *CacheService, validate *validation.Validator, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	return &UserService{repo: repo, sessions: sessions, logs: logs, cache: cache, validator: validate, logger: logger}
}

// Register creates a regular user account.
func (s *UserService) Register(ctx context.Context, req dto.RegisterRequest) (*models.User, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = repository.NormalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := models.User{
		FullName:     req.FullName,
		Email:        req.Email,
		Faculty:      req.Faculty,
		Prodi:        req.Prodi,
		Role:         models.RoleUser,
		PasswordHash: hash,
	}
	inserted, err := s.repo.Insert(ctx, user)
	if err != nil {
		return nil, storeError(err, "failed to create user")
	}
	if !inserted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}

	s.invalidateStats(ctx)
	s.logger.Info("user registered", zap.String("email", user.Email))
	public := user.Public()
	return &public, nil
}

// UpdateProfile edits name and affiliation. Role and the super-admin flag are preserved.
// Notes already uploaded keep the profile values they were created with.
func (s *UserService) UpdateProfile(ctx context.Context, email string, req dto.UpdateProfileRequest) (*models.User, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	updated, err := s.repo.Modify(ctx, email, func(u *models.User) {
		u.FullName = req.FullName
		u.Faculty = req.Faculty
		u.Prodi = req.Prodi
	})
	if err != nil {
		return nil, storeError(err, "user not found")
	}

	s.refreshSession(ctx, *updated)
	s.invalidateStats(ctx)
	public := updated.Public()
	return &public, nil
}

// Get returns one user without the password hash.
func (s *UserService) Get(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	public := user.Public()
	return &public, nil
}

// List returns users matching filter.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	users, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "failed to list users")
	}
	for i := range users {
		users[i] = users[i].Public()
	}
	return users, nil
}

// Promote grants the admin role and logs promote_user when the role changed.
func (s *UserService) Promote(ctx context.Context, actor models.Actor, email string) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	changed, err := s.repo.Promote(ctx, email)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	return s.afterRoleChange(ctx, actor, email, changed, models.ActionPromoteUser)
}

// Demote returns an admin to the user role. The super admin is never demoted and
// an admin cannot demote themselves.
func (s *UserService) Demote(ctx context.Context, actor models.Actor, email string) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	if repository.NormalizeEmail(actor.Email) == repository.NormalizeEmail(email) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admins cannot demote themselves")
	}
	changed, err := s.repo.Demote(ctx, email)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	return s.afterRoleChange(ctx, actor, email, changed, models.ActionDemoteAdmin)
}

func (s *UserService) afterRoleChange(ctx context.Context, actor models.Actor, email string, changed bool, action string) (*models.User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	if changed {
		recordAdminAction(ctx, s.logs, s.logger, actor, action, user.Email)
		s.refreshSession(ctx, *user)
		s.invalidateStats(ctx)
	}
	public := user.Public()
	return &public, nil
}

// refreshSession rewrites the session record when it belongs to user.
func (s *UserService) refreshSession(ctx context.Context, user models.User) {
	if s.sessions == nil {
		return
	}
	current, err := s.sessions.Current(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn("failed to load session", zap.Error(err))
		return
	}
	if repository.NormalizeEmail(current.Email) != repository.NormalizeEmail(user.Email) {
		return
	}
	if err := s.sessions.Save(ctx, user); err != nil {
		s.logger.Warn("failed to refresh session", zap.String("email", user.Email), zap.Error(err))
	}
}

func (s *UserService) invalidateStats(ctx context.Context) {
	s.cache.Invalidate(ctx, StatsCacheKey)
}
