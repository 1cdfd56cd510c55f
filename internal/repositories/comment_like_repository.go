package repositories

import (
	"errors"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentLikeRepository defines the interface for comment like operations
type CommentLikeRepository interface {
	ToggleCommentLike(commentID uint, userID string) (liked bool, likes int, err error)
	HasUserLikedComment(commentID uint, userID string) (bool, error)
}

type postgresCommentLikeRepository struct {
	db *gorm.DB
}

func NewPostgresCommentLikeRepository(db *gorm.DB) CommentLikeRepository {
	return &postgresCommentLikeRepository{db: db}
}

// ToggleCommentLike adds or removes the user's like row and moves the comment's counter
// in the same transaction.
func (r *postgresCommentLikeRepository) ToggleCommentLike(commentID uint, userID string) (bool, int, error) {
	var liked bool
	var comment models.Comment
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&comment, commentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCommentNotFound
			}
			return err
		}

		res := tx.Where("comment_id = ? AND user_id = ?", commentID, userID).Delete(&models.CommentLike{})
		if res.Error != nil {
			return res.Error
		}
		delta := -1
		if res.RowsAffected == 0 {
			if err := tx.Create(&models.CommentLike{CommentID: commentID, UserID: userID}).Error; err != nil {
				return err
			}
			liked = true
			delta = 1
		}
		if err := tx.Model(&comment).Update("likes", gorm.Expr("GREATEST(likes + ?, 0)", delta)).Error; err != nil {
			return err
		}
		return tx.Select("likes").First(&comment, commentID).Error
	})
	if err != nil {
		return false, 0, err
	}
	return liked, comment.Likes, nil
}

func (r *postgresCommentLikeRepository) HasUserLikedComment(commentID uint, userID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.CommentLike{}).Where("comment_id = ? AND user_id = ?", commentID, userID).Count(&count).Error
	return count > 0, err
}
