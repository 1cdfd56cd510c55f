package repositories

import (
	"errors"
	"strings"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"gorm.io/gorm"
)

// ErrUserNotFound is returned when no profile matches.
var ErrUserNotFound = errors.New("user not found")

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(user *models.User) error
	GetUserByUID(uid string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUsers() ([]models.User, error)
	UpdateUser(user *models.User) error
	DeleteUser(uid string) error
	SearchUsers(query string) ([]models.User, error)
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// CreateUser creates a new user in PostgreSQL
func (r *PostgresUserRepository) CreateUser(user *models.User) error {
	return r.db.Create(user).Error
}

// GetUserByUID retrieves a user by the uid every other record refers to
func (r *PostgresUserRepository) GetUserByUID(uid string) (*models.User, error) {
	return r.first("uid = ?", uid)
}

// GetUserByEmail retrieves a user by email, case-insensitively
func (r *PostgresUserRepository) GetUserByEmail(email string) (*models.User, error) {
	return r.first("LOWER(email) = ?", strings.ToLower(email))
}

// GetUsers retrieves all users from PostgreSQL
func (r *PostgresUserRepository) GetUsers() ([]models.User, error) {
	users := []models.User{}
	if err := r.db.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser updates an existing user in PostgreSQL
func (r *PostgresUserRepository) UpdateUser(user *models.User) error {
	return r.db.Save(user).Error
}

// DeleteUser deletes a user by uid from PostgreSQL
func (r *PostgresUserRepository) DeleteUser(uid string) error {
	res := r.db.Where("uid = ?", uid).Delete(&models.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SearchUsers searches for users by username or email
func (r *PostgresUserRepository) SearchUsers(query string) ([]models.User, error) {
	users := []models.User{}
	like := "%" + query + "%"
	if err := r.db.Where("LOWER(username) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)", like, like).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *PostgresUserRepository) first(query string, args ...interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.Where(query, args...).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
