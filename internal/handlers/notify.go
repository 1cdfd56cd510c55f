package handlers

import (
	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/anonto42/showyourbits/backend/internal/repositories"
	"go.uber.org/zap"
)

// notifyAuthor tells the post author about a like or comment. Acting on your own post
// notifies nobody. The write is best effort: a failure is logged and the caller's
// request still succeeds.
func notifyAuthor(repo repositories.NotificationRepository, logger *zap.Logger, kind string, post *models.Post, fromID, fromName string) {
	if repo == nil || post == nil || post.AuthorID == "" || post.AuthorID == fromID {
		return
	}
	n := &models.Notification{
		Type:         kind,
		PostID:       post.ID.Hex(),
		FromUserID:   fromID,
		FromUserName: fromName,
		ToUserID:     post.AuthorID,
	}
	if err := repo.CreateNotification(n); err != nil {
		logger.Warn("failed to create notification",
			zap.String("type", kind),
			zap.String("postId", n.PostID),
			zap.String("toUserId", n.ToUserID),
			zap.Error(err))
	}
}
