package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"contestsphere-server/access"
	"contestsphere-server/models"
	appErr "contestsphere-server/pkg/errors"
	"contestsphere-server/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

type AuthService struct {
	DB         *gorm.DB
	Clock      clockwork.Clock
	Secret     []byte
	TTL        time.Duration
	BcryptCost int
}

func NewAuthService(db *gorm.DB, clock clockwork.Clock, secret string, ttl time.Duration) *AuthService {
	return &AuthService{DB: db, Clock: clock, Secret: []byte(secret), TTL: ttl, BcryptCost: bcrypt.DefaultCost}
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Photo    string `json:"photo" validate:"omitempty,url"`
	Bio      string `json:"bio" validate:"max=1000"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Claims carries the role alongside the subject so clients can render
// role-specific UI without a round trip. Authorization always uses the
// stored role.
type Claims struct {
	Role access.Role `json:"role"`
	jwt.RegisteredClaims
}

// NormalizeEmail trims and case-folds an address for storage and lookup.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	in.Photo = strings.TrimSpace(in.Photo)
	in.Bio = strings.TrimSpace(in.Bio)
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	var n int64
	if err := s.DB.WithContext(ctx).Unscoped().Model(&models.User{}).Where("email = ?", in.Email).Count(&n).Error; err != nil {
		return nil, appErr.Internal(err, "failed to check email")
	}
	if n > 0 {
		return nil, appErr.Conflict("User already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.BcryptCost)
	if err != nil {
		return nil, appErr.Internal(err, "failed to hash password")
	}

	now := s.Clock.Now().UTC()
	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Photo:        in.Photo,
		Bio:          in.Bio,
		Role:         access.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, appErr.Conflict("User already exists")
		}
		return nil, appErr.Internal(err, "failed to create user")
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("user registered", zap.String("userId", user.ID))
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	var user models.User
	err := s.DB.WithContext(ctx).Where("email = ?", in.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErr.Validation("Invalid credentials")
	}
	if err != nil {
		return nil, appErr.Internal(err, "failed to load user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, appErr.Validation("Invalid credentials")
	}

	token, err := s.IssueToken(&user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: &user}, nil
}

func (s *AuthService) IssueToken(u *models.User) (string, error) {
	now := s.Clock.Now()
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", appErr.Internal(err, "failed to sign token")
	}
	return signed, nil
}

// Verify validates a bearer token and resolves the caller from the store, so
// role changes and deletions apply to tokens already issued.
func (s *AuthService) Verify(ctx context.Context, raw string) (access.Identity, error) {
	unauthorized := appErr.New(appErr.CodeUnauthorized, "Invalid or expired token")

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.Clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || claims.Subject == "" {
		return access.Anonymous, unauthorized
	}

	var user models.User
	err = s.DB.WithContext(ctx).Select("id", "role").Where("id = ?", claims.Subject).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return access.Anonymous, unauthorized
	}
	if err != nil {
		return access.Anonymous, appErr.Internal(err, "failed to load user")
	}
	return user.Identity(), nil
}
