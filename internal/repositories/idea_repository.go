package repositories

import (
	"github.com/anonto42/showyourbits/backend/internal/models"
	"gorm.io/gorm"
)

// IdeaRepository defines the interface for idea bank operations
type IdeaRepository interface {
	CreateIdea(idea *models.Idea) error
	GetIdea(id uint, userID string) (*models.Idea, error)
	GetIdeasByUserID(userID string) ([]models.Idea, error)
	UpdateIdea(idea *models.Idea) error
	DeleteIdea(id uint, userID string) error
}

type postgresIdeaRepository struct {
	db *gorm.DB
}

func NewPostgresIdeaRepository(db *gorm.DB) IdeaRepository {
	return &postgresIdeaRepository{db: db}
}

func (r *postgresIdeaRepository) CreateIdea(idea *models.Idea) error {
	return r.db.Create(idea).Error
}

func (r *postgresIdeaRepository) GetIdea(id uint, userID string) (*models.Idea, error) {
	var idea models.Idea
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&idea).Error; err != nil {
		return nil, notFound(err)
	}
	return &idea, nil
}

func (r *postgresIdeaRepository) GetIdeasByUserID(userID string) ([]models.Idea, error) {
	ideas := []models.Idea{}
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&ideas).Error
	return ideas, err
}

func (r *postgresIdeaRepository) UpdateIdea(idea *models.Idea) error {
	return r.db.Model(idea).Select("title", "description", "tags").Updates(idea).Error
}

func (r *postgresIdeaRepository) DeleteIdea(id uint, userID string) error {
	return deleteOwned(r.db, &models.Idea{}, id, userID)
}
