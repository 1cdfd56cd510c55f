package repositories

import (
	"github.com/anonto42/showyourbits/backend/internal/models"
	"gorm.io/gorm"
)

// JournalRepository defines the interface for journal operations
type JournalRepository interface {
	CreateEntry(entry *models.JournalEntry) error
	GetEntry(id uint, userID string) (*models.JournalEntry, error)
	GetEntriesByUserID(userID string) ([]models.JournalEntry, error)
	UpdateEntry(entry *models.JournalEntry) error
	DeleteEntry(id uint, userID string) error
}

type postgresJournalRepository struct {
	db *gorm.DB
}

func NewPostgresJournalRepository(db *gorm.DB) JournalRepository {
	return &postgresJournalRepository{db: db}
}

func (r *postgresJournalRepository) CreateEntry(entry *models.JournalEntry) error {
	return r.db.Create(entry).Error
}

func (r *postgresJournalRepository) GetEntry(id uint, userID string) (*models.JournalEntry, error) {
	var entry models.JournalEntry
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&entry).Error; err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}

func (r *postgresJournalRepository) GetEntriesByUserID(userID string) ([]models.JournalEntry, error) {
	entries := []models.JournalEntry{}
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&entries).Error
	return entries, err
}

func (r *postgresJournalRepository) UpdateEntry(entry *models.JournalEntry) error {
	return r.db.Model(entry).Update("content", entry.Content).Error
}

func (r *postgresJournalRepository) DeleteEntry(id uint, userID string) error {
	return deleteOwned(r.db, &models.JournalEntry{}, id, userID)
}
