// internal/domain/user/service.go
package user

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
	"gorm.io/gorm"
)

const passwordResetPrefix = "password_reset:"

// Mailer sends account emails
type Mailer interface {
	SendPasswordResetEmail(ctx context.Context, userEmail, userName, resetToken string, expiry time.Duration) error
	SendAccountBannedEmail(ctx context.Context, userEmail, userName, reason string) error
}

// Service handles user business logic
type Service struct {
	db              *gorm.DB
	redis           *redis.Client
	config          *config.Config
	passwordManager *auth.PasswordManager
	jwtManager      *auth.JWTManager
	mailer          Mailer
	log             logrus.FieldLogger
}

// NewService creates a new user service
func NewService(db *gorm.DB, rdb *redis.Client, cfg *config.Config, mailer Mailer, log logrus.FieldLogger) *Service {
	return &Service{
		db:              db,
		redis:           rdb,
		config:          cfg,
		passwordManager: auth.NewPasswordManager(cfg),
		jwtManager:      auth.NewJWTManager(cfg),
		mailer:          mailer,
		log:             log,
	}
}

// RegisterRequest represents user registration data
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"max=100"`
	LastName  string `json:"last_name" binding:"max=100"`
	Phone     string `json:"phone" binding:"max=20"`
}

// LoginRequest represents user login data
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest represents profile update data
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,max=100"`
	LastName  *string `json:"last_name" binding:"omitempty,max=100"`
	Phone     *string `json:"phone" binding:"omitempty,max=20"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User *User `json:"user"`
	auth.TokenPair
}

// Register creates a new user account
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hashedPassword, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return nil, apperror.Validation("%s", err.Error())
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&User{}).Unscoped().Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperror.Internal(err, "failed to check email")
	}
	if count > 0 {
		return nil, apperror.Validation("user with this email already exists")
	}

	now := time.Now().UTC()
	user := User{
		Email:       email,
		Password:    hashedPassword,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Phone:       strings.TrimSpace(req.Phone),
		IsActive:    true,
		LastLoginAt: &now,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, apperror.Internal(err, "failed to create user")
	}

	return s.authResponse(&user)
}

// Login authenticates a user by email and password
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	db := s.db.WithContext(ctx)

	var user User
	err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Unauthorized("invalid email or password")
	}
	if err != nil {
		return nil, apperror.Internal(err, "failed to load user")
	}

	if err := s.passwordManager.VerifyPassword(req.Password, user.Password); err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}
	if err := checkLoginAllowed(&user); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := db.Model(&user).Update("last_login_at", now).Error; err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("Failed to update last login")
	}
	user.LastLoginAt = &now

	return s.authResponse(&user)
}

// RefreshToken exchanges a refresh token for a new token pair
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperror.Unauthorized("invalid refresh token")
	}

	user, err := s.GetProfile(ctx, claims.UserID)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil, apperror.Unauthorized("invalid refresh token")
		}
		return nil, err
	}
	if err := checkLoginAllowed(user); err != nil {
		return nil, err
	}

	return s.authResponse(user)
}

// GetProfile retrieves a user
func (s *Service) GetProfile(ctx context.Context, userID uint) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("user not found")
	}
	if err != nil {
		return nil, apperror.Internal(err, "failed to load user")
	}
	return &user, nil
}

// UpdateProfile applies a partial update to the user's profile
func (s *Service) UpdateProfile(ctx context.Context, userID uint, req *UpdateProfileRequest) (*User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, apperror.Internal(err, "failed to update profile")
	}
	return s.GetProfile(ctx, userID)
}

// ChangePassword replaces the password after verifying the current one
func (s *Service) ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.passwordManager.VerifyPassword(currentPassword, user.Password); err != nil {
		return apperror.Validation("current password is incorrect")
	}

	return s.setPassword(ctx, user.ID, newPassword)
}

// ForgotPassword emails a single-use reset link. Unknown emails succeed
// silently so the endpoint cannot be used to probe accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	var user User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return apperror.Internal(err, "failed to load user")
	}
	if !user.IsActive || user.IsBanned() {
		return nil
	}

	token, err := auth.RandomToken(32)
	if err != nil {
		return apperror.Internal(err, "failed to generate reset token")
	}

	expiry := s.config.Security.PasswordResetExpiry
	if err := s.redis.Set(ctx, passwordResetPrefix+token, user.ID, expiry).Err(); err != nil {
		return apperror.Internal(err, "failed to store reset token")
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, user.GetDisplayName(), token, expiry); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Error("Failed to send password reset email")
	}
	return nil
}

// ResetPassword consumes a reset token and sets a new password
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := s.passwordManager.ValidatePassword(newPassword); err != nil {
		return apperror.Validation("%s", err.Error())
	}

	raw, err := s.redis.GetDel(ctx, passwordResetPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return apperror.Validation("invalid or expired reset token")
	}
	if err != nil {
		return apperror.Internal(err, "failed to read reset token")
	}

	userID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return apperror.Internal(err, "malformed reset token payload")
	}

	return s.setPassword(ctx, uint(userID), newPassword)
}

func (s *Service) setPassword(ctx context.Context, userID uint, password string) error {
	hashed, err := s.passwordManager.HashPassword(password)
	if err != nil {
		return apperror.Validation("%s", err.Error())
	}

	res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Update("password", hashed)
	if res.Error != nil {
		return apperror.Internal(res.Error, "failed to update password")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("user not found")
	}
	return nil
}

func (s *Service) authResponse(user *User) (*AuthResponse, error) {
	pair, err := s.jwtManager.IssuePair(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		return nil, apperror.Internal(err, "failed to issue tokens")
	}
	return &AuthResponse{User: user, TokenPair: *pair}, nil
}

func checkLoginAllowed(user *User) error {
	if user.IsBanned() {
		return apperror.Unauthorized("account is suspended")
	}
	if !user.IsActive {
		return apperror.Unauthorized("account is inactive")
	}
	return nil
}

