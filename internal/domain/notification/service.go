// internal/domain/notification/service.go
package notification

import (
	"context"
	"errors"
	"time"

	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
	"gorm.io/gorm"
)

// Publisher pushes a stored notification to live clients
type Publisher interface {
	Publish(userID uint, n *Notification)
}

// Service handles notification business logic. Notifications are never
// edited after creation; only the read state changes.
type Service struct {
	db        *gorm.DB
	publisher Publisher
}

// NewService creates a new notification service. publisher may be nil.
func NewService(db *gorm.DB, publisher Publisher) *Service {
	return &Service{db: db, publisher: publisher}
}

// ListResponse is a page of notifications
type ListResponse struct {
	Notifications []Notification        `json:"notifications"`
	Pagination    pagination.Pagination `json:"pagination"`
}

// Create stores a notification. When tx is non-nil the row is written in
// that transaction and the caller is responsible for calling Deliver after
// commit.
func (s *Service) Create(ctx context.Context, tx *gorm.DB, userID uint, title, message string, typ Type) (*Notification, error) {
	db := tx
	if db == nil {
		db = s.db.WithContext(ctx)
	}

	n := Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
	}
	if err := db.Create(&n).Error; err != nil {
		return nil, apperror.Internal(err, "failed to create notification")
	}

	if tx == nil {
		s.Deliver(&n)
	}
	return &n, nil
}

// Deliver pushes n to the user's open connections
func (s *Service) Deliver(n *Notification) {
	if s.publisher == nil || n == nil {
		return
	}
	s.publisher.Publish(n.UserID, n)
}

// ListForUser returns the user's notifications, newest first
func (s *Service) ListForUser(ctx context.Context, userID uint, params pagination.Params) (*ListResponse, error) {
	params = params.Normalize()
	query := s.db.WithContext(ctx).Model(&Notification{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperror.Internal(err, "failed to count notifications")
	}

	var items []Notification
	if err := query.Order("created_at DESC, id DESC").
		Offset(params.Offset()).Limit(params.Limit).
		Find(&items).Error; err != nil {
		return nil, apperror.Internal(err, "failed to retrieve notifications")
	}

	return &ListResponse{Notifications: items, Pagination: pagination.Build(params, total)}, nil
}

// UnreadCount returns how many of the user's notifications are unread
func (s *Service) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, apperror.Internal(err, "failed to count unread notifications")
	}
	return count, nil
}

// MarkRead marks one of the user's notifications as read
func (s *Service) MarkRead(ctx context.Context, userID, id uint) (*Notification, error) {
	db := s.db.WithContext(ctx)

	var n Notification
	err := db.Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("notification not found")
	}
	if err != nil {
		return nil, apperror.Internal(err, "failed to retrieve notification")
	}
	if n.IsRead {
		return &n, nil
	}

	now := time.Now().UTC()
	if err := db.Model(&n).Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error; err != nil {
		return nil, apperror.Internal(err, "failed to mark notification read")
	}
	n.IsRead = true
	n.ReadAt = &now
	return &n, nil
}

// MarkAllRead marks every unread notification of the user as read
func (s *Service) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, apperror.Internal(res.Error, "failed to mark notifications read")
	}
	return res.RowsAffected, nil
}

// Delete removes one of the user's notifications
func (s *Service) Delete(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&Notification{})
	if res.Error != nil {
		return apperror.Internal(res.Error, "failed to delete notification")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("notification not found")
	}
	return nil
}
