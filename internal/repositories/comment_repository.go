package repositories

import (
	"errors"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"gorm.io/gorm"
)

// ErrCommentNotFound is returned when no comment matches the id.
var ErrCommentNotFound = errors.New("comment not found")

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(comment *models.Comment) error
	GetCommentByID(id uint) (*models.Comment, error)
	GetCommentsByPostID(postID string) ([]models.Comment, error)
	UpdateComment(comment *models.Comment) error
	DeleteCommentWithReplies(id uint) error
	DeleteCommentsByPostID(postID string) error
	CountByPostID(postID string) (int64, error)
}

// PostgresCommentRepository implements CommentRepository for PostgreSQL
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

// CreateComment creates a new comment in PostgreSQL
func (r *PostgresCommentRepository) CreateComment(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

// GetCommentByID retrieves a comment by ID from PostgreSQL
func (r *PostgresCommentRepository) GetCommentByID(id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	if err := r.attachLikedBy([]*models.Comment{&comment}); err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetCommentsByPostID retrieves all comments of a post oldest first, with their likers
func (r *PostgresCommentRepository) GetCommentsByPostID(postID string) ([]models.Comment, error) {
	comments := []models.Comment{}
	if err := r.db.Where("post_id = ?", postID).Order("created_at asc, id asc").Find(&comments).Error; err != nil {
		return nil, err
	}
	ptrs := make([]*models.Comment, len(comments))
	for i := range comments {
		ptrs[i] = &comments[i]
	}
	if err := r.attachLikedBy(ptrs); err != nil {
		return nil, err
	}
	return comments, nil
}

// UpdateComment updates an existing comment in PostgreSQL
func (r *PostgresCommentRepository) UpdateComment(comment *models.Comment) error {
	return r.db.Model(comment).Update("content", comment.Content).Error
}

// DeleteCommentWithReplies deletes a comment, its direct replies and their likes
func (r *PostgresCommentRepository) DeleteCommentWithReplies(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&models.Comment{}).Where("id = ? OR parent_id = ?", id, id).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return ErrCommentNotFound
		}
		if err := tx.Where("comment_id IN ?", ids).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&models.Comment{}).Error
	})
}

// DeleteCommentsByPostID removes every comment of a deleted post
func (r *PostgresCommentRepository) DeleteCommentsByPostID(postID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		sub := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", postID)
		if err := tx.Where("comment_id IN (?)", sub).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		return tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error
	})
}

// CountByPostID counts the comment rows of a post, replies included
func (r *PostgresCommentRepository) CountByPostID(postID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

func (r *PostgresCommentRepository) attachLikedBy(comments []*models.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	ids := make([]uint, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
		c.LikedBy = []string{}
	}
	var likes []models.CommentLike
	if err := r.db.Where("comment_id IN ?", ids).Order("created_at asc").Find(&likes).Error; err != nil {
		return err
	}
	byComment := make(map[uint][]string, len(comments))
	for _, l := range likes {
		byComment[l.CommentID] = append(byComment[l.CommentID], l.UserID)
	}
	for _, c := range comments {
		if users, ok := byComment[c.ID]; ok {
			c.LikedBy = users
		}
	}
	return nil
}
