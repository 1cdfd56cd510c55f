// Package app opens every backing service once for the server and the ops commands.
package app

import (
	"context"
	"fmt"

	"github.com/anonto42/showyourbits/backend/internal/jobs"
	"github.com/anonto42/showyourbits/backend/internal/mailer"
	"github.com/anonto42/showyourbits/backend/internal/router"
	"github.com/anonto42/showyourbits/backend/pkg/config"
	"github.com/anonto42/showyourbits/backend/pkg/firebase"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// App is the set of opened services.
type App struct {
	*router.Server
}

// Open connects the databases, applies migrations and indexes, then initializes Firebase
// and SMTP. Firebase and SMTP are optional: a failure is logged and the features that
// need them stay off.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := config.InitDB(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize databases: %w", err)
	}
	if err := router.Migrate(db.Postgres); err != nil {
		return nil, multierr.Append(err, db.CloseDB())
	}

	fb, err := firebase.InitFirebase(ctx, firebase.Options{
		CredentialsPath: cfg.FirebaseCredentialsPath,
		ProjectID:       cfg.FirebaseProjectID,
		StorageBucket:   cfg.FirebaseStorageBucket,
	})
	if err != nil {
		logger.Warn("firebase disabled", zap.Error(err))
		fb = nil
	}

	m, err := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPEmail,
		Password: cfg.SMTPPassword,
	})
	if err != nil {
		logger.Warn("mail disabled", zap.Error(err))
		m = nil
	}

	repos := router.NewRepositories(db.Postgres, db.Mongo.Database(cfg.MongoDatabase), fb)
	if err := repos.EnsureIndexes(ctx); err != nil {
		logger.Warn("post indexes not ensured", zap.Error(err))
	}
	if err := repos.Posts.CheckChangeStreams(ctx); err != nil {
		logger.Warn("live feed updates unavailable, MongoDB must run as a replica set", zap.Error(err))
	}

	return &App{Server: &router.Server{
		Config:        cfg,
		DB:            db,
		Repos:         repos,
		Firebase:      fb,
		Mailer:        m,
		CommentResync: jobs.NewCommentResync(repos.Posts, repos.Comments, cfg.CommentResyncInterval, logger.Named("comment-resync")),
		Logger:        logger,
	}}, nil
}

// Close releases Firebase and the database connections.
func (a *App) Close() error {
	var errs error
	if a.Firebase != nil {
		errs = multierr.Append(errs, a.Firebase.Close())
	}
	return multierr.Append(errs, a.DB.CloseDB())
}
