package repositories

import (
	"github.com/anonto42/showyourbits/backend/internal/models"
	"gorm.io/gorm"
)

// MessageRepository defines the interface for direct message operations
type MessageRepository interface {
	CreateMessage(message *models.Message) error
	GetInbox(recipientID string, limit int) ([]models.Message, error)
	GetSent(senderID string, limit int) ([]models.Message, error)
	MarkAsRead(id uint, recipientID string) error
}

type postgresMessageRepository struct {
	db *gorm.DB
}

func NewPostgresMessageRepository(db *gorm.DB) MessageRepository {
	return &postgresMessageRepository{db: db}
}

func (r *postgresMessageRepository) CreateMessage(message *models.Message) error {
	return r.db.Create(message).Error
}

func (r *postgresMessageRepository) GetInbox(recipientID string, limit int) ([]models.Message, error) {
	messages := []models.Message{}
	err := r.db.Where("recipient_id = ?", recipientID).Order("created_at DESC").Limit(limit).Find(&messages).Error
	return messages, err
}

func (r *postgresMessageRepository) GetSent(senderID string, limit int) ([]models.Message, error) {
	messages := []models.Message{}
	err := r.db.Where("sender_id = ?", senderID).Order("created_at DESC").Limit(limit).Find(&messages).Error
	return messages, err
}

func (r *postgresMessageRepository) MarkAsRead(id uint, recipientID string) error {
	res := r.db.Model(&models.Message{}).Where("id = ? AND recipient_id = ?", id, recipientID).Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
