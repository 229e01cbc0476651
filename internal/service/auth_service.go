package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/uninotes-api/internal/dto"
	"github.com/noah-isme/uninotes-api/internal/models"
	"github.com/noah-isme/uninotes-api/internal/repository"
	appErrors "github.com/noah-isme/uninotes-api/pkg/errors"
	"github.com/noah-isme/uninotes-api/pkg/validation"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type sessionRepository interface {
	Current(ctx context.Context) (*models.User, error)
	Save(ctx context.Context, user models.User) error
	Clear(ctx context.Context) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthService provides authentication use cases.
type AuthService struct {
	users     authUserRepository
	sessions  sessionRepository
	validator *validation.Validator
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, sessions sessionRepository, validate *validation.Validator, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 24 * time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "uninotes-api"
	}
	return &AuthService{users: users, sessions: sessions, validator: validate, logger: logger, config: config, now: time.Now}
}

// HashPassword returns the bcrypt hash stored for password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login authenticates a user, issues an access token and records the session user.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, storeError(err, "failed to fetch user")
	}

	if user.PasswordHash == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	issuedAt := s.now().UTC()
	accessToken, err := s.generateAccessToken(user, issuedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	if err := s.sessions.Save(ctx, *user); err != nil {
		s.logger.Warn("failed to store session user", zap.String("email", user.Email), zap.Error(err))
	}

	return &models.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		User:        user.Public(),
	}, nil
}

// Logout clears the session user when it belongs to email.
func (s *AuthService) Logout(ctx context.Context, email string) error {
	current, err := s.sessions.Current(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return storeError(err, "failed to load session")
	}
	if repository.NormalizeEmail(current.Email) != repository.NormalizeEmail(email) {
		return nil
	}
	if err := s.sessions.Clear(ctx); err != nil {
		return storeError(err, "failed to clear session")
	}
	return nil
}

// CurrentSession returns the stored session user, or nil when nobody is signed in.
func (s *AuthService) CurrentSession(ctx context.Context) (*models.User, error) {
	user, err := s.sessions.Current(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err, "failed to load session")
	}
	return user, nil
}

// Me returns the profile of the authenticated caller.
func (s *AuthService) Me(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, storeError(err, "failed to fetch user")
	}
	public := user.Public()
	return &public, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithIssuer(s.config.Issuer))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// Authenticate validates token and refreshes role, name and super-admin flag from
// the stored account, so role changes apply to tokens issued before them.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, storeError(err, "failed to fetch user")
	}
	claims.Role = user.Role
	if claims.Role == "" {
		claims.Role = models.RoleUser
	}
	claims.FullName = user.FullName
	claims.IsSuperAdmin = user.IsSuperAdmin
	return claims, nil
}

func (s *AuthService) generateAccessToken(user *models.User, issuedAt time.Time) (string, error) {
	role := user.Role
	if role == "" {
		role = models.RoleUser
	}
	claims := &models.JWTClaims{
		Email:        user.Email,
		Role:         role,
		FullName:     user.FullName,
		IsSuperAdmin: user.IsSuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.Email,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}
