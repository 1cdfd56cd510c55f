// Package jobs holds background maintenance work.
package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CommentCounter counts the stored comments of a post.
type CommentCounter interface {
	CountByPostID(postID string) (int64, error)
}

// PostCounters lists posts and overwrites their comment counters.
type PostCounters interface {
	AllPostIDs(ctx context.Context) ([]string, error)
	SetCommentsCount(ctx context.Context, postID string, count int64) error
}

// CommentResync keeps each post's comments counter equal to its number of comment rows.
// The counter is only ever written from a fresh count, never incremented.
type CommentResync struct {
	posts    PostCounters
	comments CommentCounter
	interval time.Duration
	logger   *zap.Logger
}

// NewCommentResync creates the job. A non-positive interval disables the periodic run.
func NewCommentResync(posts PostCounters, comments CommentCounter, interval time.Duration, logger *zap.Logger) *CommentResync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentResync{posts: posts, comments: comments, interval: interval, logger: logger}
}

// ResyncPost recounts one post and stores the result.
func (j *CommentResync) ResyncPost(ctx context.Context, postID string) (int64, error) {
	n, err := j.comments.CountByPostID(postID)
	if err != nil {
		return 0, err
	}
	if err := j.posts.SetCommentsCount(ctx, postID, n); err != nil {
		return 0, err
	}
	return n, nil
}

// RunOnce recounts every post. A failing post is logged and skipped.
func (j *CommentResync) RunOnce(ctx context.Context) (int, error) {
	ids, err := j.posts.AllPostIDs(ctx)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if _, err := j.ResyncPost(ctx, id); err != nil {
			j.logger.Warn("comment count resync failed", zap.String("postId", id), zap.Error(err))
			continue
		}
		done++
	}
	return done, nil
}

// Start runs RunOnce on every tick until ctx is cancelled.
func (j *CommentResync) Start(ctx context.Context) {
	if j.interval <= 0 {
		return
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			n, err := j.RunOnce(ctx)
			if err != nil && ctx.Err() == nil {
				j.logger.Error("comment count resync aborted", zap.Error(err))
				continue
			}
			j.logger.Debug("comment counts resynced", zap.Int("posts", n), zap.Duration("took", time.Since(start)))
		}
	}
}
