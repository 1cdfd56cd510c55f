package repositories

import (
	"errors"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"gorm.io/gorm"
)

// ErrRecordNotFound is returned by owner-scoped lookups that match nothing. A record
// owned by another user is reported the same way.
var ErrRecordNotFound = errors.New("record not found")

// BitRepository defines the interface for bit data operations
type BitRepository interface {
	CreateBit(bit *models.Bit) error
	GetBit(id uint, userID string) (*models.Bit, error)
	GetBitsByUserID(userID string) ([]models.Bit, error)
	UpdateBit(bit *models.Bit) error
	DeleteBit(id uint, userID string) error
}

// PostgresBitRepository implements BitRepository for PostgreSQL
type PostgresBitRepository struct {
	db *gorm.DB
}

// NewPostgresBitRepository creates a new PostgresBitRepository
func NewPostgresBitRepository(db *gorm.DB) *PostgresBitRepository {
	return &PostgresBitRepository{db: db}
}

func (r *PostgresBitRepository) CreateBit(bit *models.Bit) error {
	return r.db.Create(bit).Error
}

func (r *PostgresBitRepository) GetBit(id uint, userID string) (*models.Bit, error) {
	var bit models.Bit
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&bit).Error; err != nil {
		return nil, notFound(err)
	}
	return &bit, nil
}

// GetBitsByUserID lists the user's bits newest first
func (r *PostgresBitRepository) GetBitsByUserID(userID string) ([]models.Bit, error) {
	bits := []models.Bit{}
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&bits).Error
	return bits, err
}

func (r *PostgresBitRepository) UpdateBit(bit *models.Bit) error {
	return r.db.Model(bit).Select("title", "content", "tags").Updates(bit).Error
}

func (r *PostgresBitRepository) DeleteBit(id uint, userID string) error {
	return deleteOwned(r.db, &models.Bit{}, id, userID)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}

func deleteOwned(db *gorm.DB, model interface{}, id uint, userID string) error {
	res := db.Where("id = ? AND user_id = ?", id, userID).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
