package repositories

import (
	"github.com/anonto42/showyourbits/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExerciseRepository defines the interface for practice prompt operations
type ExerciseRepository interface {
	GetExercises() ([]models.Exercise, error)
	GetRandomExercise() (*models.Exercise, error)
	CreateExercise(exercise *models.Exercise) error
	SeedExercises(titles []string) (int64, error)
}

type postgresExerciseRepository struct {
	db *gorm.DB
}

func NewPostgresExerciseRepository(db *gorm.DB) ExerciseRepository {
	return &postgresExerciseRepository{db: db}
}

func (r *postgresExerciseRepository) GetExercises() ([]models.Exercise, error) {
	exercises := []models.Exercise{}
	err := r.db.Order("created_at ASC, id ASC").Find(&exercises).Error
	return exercises, err
}

func (r *postgresExerciseRepository) GetRandomExercise() (*models.Exercise, error) {
	var exercise models.Exercise
	if err := r.db.Order("RANDOM()").First(&exercise).Error; err != nil {
		return nil, notFound(err)
	}
	return &exercise, nil
}

func (r *postgresExerciseRepository) CreateExercise(exercise *models.Exercise) error {
	return r.db.Create(exercise).Error
}

// SeedExercises inserts the titles that are not stored yet and reports how many were added
func (r *postgresExerciseRepository) SeedExercises(titles []string) (int64, error) {
	rows := make([]models.Exercise, 0, len(titles))
	for _, t := range titles {
		rows = append(rows, models.Exercise{Title: t})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	res := r.db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "title"}}, DoNothing: true}).Create(&rows)
	return res.RowsAffected, res.Error
}
