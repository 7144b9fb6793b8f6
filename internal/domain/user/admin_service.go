// internal/domain/user/admin_service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
	"gorm.io/gorm"
)

// AdminService handles admin operations on user accounts
type AdminService struct {
	db     *gorm.DB
	redis  *redis.Client
	mailer Mailer
	banTTL time.Duration
	log    logrus.FieldLogger
}

// NewAdminService creates a new admin service
func NewAdminService(db *gorm.DB, rdb *redis.Client, cfg *config.Config, mailer Mailer, log logrus.FieldLogger) *AdminService {
	return &AdminService{
		db:     db,
		redis:  rdb,
		mailer: mailer,
		banTTL: cfg.JWT.RefreshTokenExpiry,
		log:    log,
	}
}

// UserListRequest represents user list query parameters
type UserListRequest struct {
	pagination.Params
	Search string `form:"search"`
	Status string `form:"status" binding:"omitempty,oneof=active banned"`
}

// UserListResponse represents paginated user list response
type UserListResponse struct {
	Users      []User                `json:"users"`
	Pagination pagination.Pagination `json:"pagination"`
}

// BanRequest represents a ban decision
type BanRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// BannedKey is the Redis marker consulted by the auth middleware
func BannedKey(userID uint) string {
	return fmt.Sprintf("banned_user:%d", userID)
}

// ListUsers retrieves users with filtering and pagination
func (s *AdminService) ListUsers(ctx context.Context, req *UserListRequest) (*UserListResponse, error) {
	query := s.db.WithContext(ctx).Model(&User{})

	if search := strings.TrimSpace(req.Search); search != "" {
		term := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", term, term, term)
	}
	switch req.Status {
	case "active":
		query = query.Where("banned_at IS NULL")
	case "banned":
		query = query.Where("banned_at IS NOT NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperror.Internal(err, "failed to count users")
	}

	params := req.Params.Normalize()
	var users []User
	if err := query.Order("created_at DESC, id DESC").
		Offset(params.Offset()).Limit(params.Limit).
		Find(&users).Error; err != nil {
		return nil, apperror.Internal(err, "failed to retrieve users")
	}

	return &UserListResponse{
		Users:      users,
		Pagination: pagination.Build(params, total),
	}, nil
}

// Ban suspends an account. The Redis marker revokes tokens that were
// issued before the ban.
func (s *AdminService) Ban(ctx context.Context, adminID, userID uint, reason string) (*User, error) {
	if adminID == userID {
		return nil, apperror.Validation("administrators cannot ban themselves")
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin {
		return nil, apperror.Forbidden("administrator accounts cannot be banned")
	}

	now := time.Now().UTC()
	reason = strings.TrimSpace(reason)
	if err := s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"banned_at":  now,
		"ban_reason": reason,
	}).Error; err != nil {
		return nil, apperror.Internal(err, "failed to ban user")
	}
	user.BannedAt = &now
	user.BanReason = reason

	if err := s.redis.Set(ctx, BannedKey(userID), reason, s.banTTL).Err(); err != nil {
		return nil, apperror.Internal(err, "failed to record ban")
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "admin_id": adminID}).Info("User banned")

	if err := s.mailer.SendAccountBannedEmail(ctx, user.Email, user.GetDisplayName(), reason); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("Failed to send ban notice")
	}
	return user, nil
}

// Unban lifts a suspension
func (s *AdminService) Unban(ctx context.Context, userID uint) (*User, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"banned_at":  nil,
		"ban_reason": "",
	}).Error; err != nil {
		return nil, apperror.Internal(err, "failed to unban user")
	}
	user.BannedAt = nil
	user.BanReason = ""

	if err := s.redis.Del(ctx, BannedKey(userID)).Err(); err != nil {
		return nil, apperror.Internal(err, "failed to clear ban")
	}
	return user, nil
}

// IsBanned reports whether tokens for userID must be rejected
func (s *AdminService) IsBanned(ctx context.Context, userID uint) (bool, error) {
	n, err := s.redis.Exists(ctx, BannedKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *AdminService) load(ctx context.Context, userID uint) (*User, error) {
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
