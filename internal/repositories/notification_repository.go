package repositories

import (
	"errors"
	"time"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"gorm.io/gorm"
)

// ErrNotificationNotFound is returned when the notification does not exist or belongs to
// someone else.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(notification *models.Notification) error
	GetByRecipientID(recipientID string, page, limit int) ([]models.Notification, int64, error)
	GetGrouped(recipientID string) ([]models.Notification, []models.Notification, []models.Notification, []models.Notification, error)
	GetUnreadCount(recipientID string) (int64, error)
	MarkAsRead(notificationID uint, recipientID string) error
	MarkAllAsRead(recipientID string) error
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) CreateNotification(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

func (r *postgresNotificationRepository) GetByRecipientID(recipientID string, page, limit int) ([]models.Notification, int64, error) {
	notifications := []models.Notification{}
	var total int64

	if err := r.db.Model(&models.Notification{}).Where("to_user_id = ?", recipientID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := r.db.Where("to_user_id = ?", recipientID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&notifications).Error

	return notifications, total, err
}

func (r *postgresNotificationRepository) GetGrouped(recipientID string) (today, yesterday, thisWeek, older []models.Notification, retErr error) {
	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterdayStart := todayStart.AddDate(0, 0, -1)
	weekStart := todayStart.AddDate(0, 0, -7)

	if err := r.db.Where("to_user_id = ? AND created_at >= ?", recipientID, todayStart).
		Order("created_at DESC").Find(&today).Error; err != nil {
		return nil, nil, nil, nil, err
	}

	if err := r.db.Where("to_user_id = ? AND created_at >= ? AND created_at < ?", recipientID, yesterdayStart, todayStart).
		Order("created_at DESC").Find(&yesterday).Error; err != nil {
		return nil, nil, nil, nil, err
	}

	// excludes today and yesterday
	if err := r.db.Where("to_user_id = ? AND created_at >= ? AND created_at < ?", recipientID, weekStart, yesterdayStart).
		Order("created_at DESC").Find(&thisWeek).Error; err != nil {
		return nil, nil, nil, nil, err
	}

	if err := r.db.Where("to_user_id = ? AND created_at < ?", recipientID, weekStart).
		Order("created_at DESC").Limit(50).Find(&older).Error; err != nil {
		return nil, nil, nil, nil, err
	}

	return today, yesterday, thisWeek, older, nil
}

func (r *postgresNotificationRepository) GetUnreadCount(recipientID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).Where("to_user_id = ? AND read = false", recipientID).Count(&count).Error
	return count, err
}

func (r *postgresNotificationRepository) MarkAsRead(notificationID uint, recipientID string) error {
	res := r.db.Model(&models.Notification{}).
		Where("id = ? AND to_user_id = ?", notificationID, recipientID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *postgresNotificationRepository) MarkAllAsRead(recipientID string) error {
	return r.db.Model(&models.Notification{}).Where("to_user_id = ? AND read = false", recipientID).Update("read", true).Error
}
