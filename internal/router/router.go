package router

import (
	"context"
	"fmt"

	"github.com/anonto42/showyourbits/backend/internal/handlers"
	"github.com/anonto42/showyourbits/backend/internal/jobs"
	"github.com/anonto42/showyourbits/backend/internal/mailer"
	"github.com/anonto42/showyourbits/backend/internal/middleware"
	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/anonto42/showyourbits/backend/internal/repositories"
	"github.com/anonto42/showyourbits/backend/pkg/config"
	"github.com/anonto42/showyourbits/backend/pkg/firebase"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate creates or updates the relational schema.
func Migrate(pgdb *gorm.DB) error {
	err := pgdb.AutoMigrate(
		&models.User{},
		&models.Comment{},
		&models.CommentLike{},
		&models.Notification{},
		&models.Bit{},
		&models.Idea{},
		&models.JournalEntry{},
		&models.Exercise{},
		&models.Message{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Repositories groups every store the API talks to. Feedback and Media are nil when
// Firebase is not configured.
type Repositories struct {
	Users         *repositories.PostgresUserRepository
	Posts         *repositories.MongoPostRepository
	Comments      *repositories.PostgresCommentRepository
	CommentLikes  repositories.CommentLikeRepository
	Notifications repositories.NotificationRepository
	Bits          *repositories.PostgresBitRepository
	Ideas         repositories.IdeaRepository
	Journal       repositories.JournalRepository
	Exercises     repositories.ExerciseRepository
	Messages      repositories.MessageRepository
	Feedback      *repositories.FirestoreFeedbackRepository
	Media         *repositories.FirebaseMediaStore
}

// NewRepositories builds the stores. fb may be nil.
func NewRepositories(pgdb *gorm.DB, mdb *mongo.Database, fb *firebase.App) *Repositories {
	r := &Repositories{
		Users:         repositories.NewPostgresUserRepository(pgdb),
		Posts:         repositories.NewMongoPostRepository(mdb),
		Comments:      repositories.NewPostgresCommentRepository(pgdb),
		CommentLikes:  repositories.NewPostgresCommentLikeRepository(pgdb),
		Notifications: repositories.NewPostgresNotificationRepository(pgdb),
		Bits:          repositories.NewPostgresBitRepository(pgdb),
		Ideas:         repositories.NewPostgresIdeaRepository(pgdb),
		Journal:       repositories.NewPostgresJournalRepository(pgdb),
		Exercises:     repositories.NewPostgresExerciseRepository(pgdb),
		Messages:      repositories.NewPostgresMessageRepository(pgdb),
	}
	if fb != nil {
		if fb.Firestore != nil {
			r.Feedback = repositories.NewFirestoreFeedbackRepository(fb.Firestore)
		}
		if fb.Bucket != nil {
			r.Media = repositories.NewFirebaseMediaStore(fb.Bucket, fb.BucketName)
		}
	}
	return r
}

// Server carries what SetupRoutes wires together.
type Server struct {
	Config        *config.Config
	DB            *config.DB
	Repos         *Repositories
	Firebase      *firebase.App
	Mailer        *mailer.SMTPMailer
	CommentResync *jobs.CommentResync
	Logger        *zap.Logger
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, s *Server) {
	cfg, repos, logger := s.Config, s.Repos, s.Logger

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck(map[string]handlers.Pinger{
		"postgres": s.DB.PingPostgres,
		"mongo":    s.DB.PingMongo,
	}))

	// Optional collaborators are passed as untyped nil so handlers see a nil interface.
	var identity handlers.FirebaseIdentity
	var verifier middleware.IDTokenVerifier
	if s.Firebase != nil && s.Firebase.AuthClient != nil {
		identity = s.Firebase.AuthClient
		verifier = s.Firebase.AuthClient
	}
	var mail handlers.Mailer
	if s.Mailer != nil {
		mail = s.Mailer
	}
	var feedbackRepo repositories.FeedbackRepository
	if repos.Feedback != nil {
		feedbackRepo = repos.Feedback
	}
	var media repositories.MediaStore
	if repos.Media != nil {
		media = repos.Media
	}

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(repos.Users, identity, mail, cfg.JWTSecret, logger)
	authHandler.RegisterAuthRoutes(authGroup)

	// --- Protected routes ---
	api := e.Group("/api/v1")
	api.Use(middleware.Authenticate(cfg.JWTSecret, verifier))

	handlers.NewUserHandler(repos.Users, repos.Posts, media, logger).RegisterProfileRoutes(api)
	handlers.NewPostHandler(repos.Posts, repos.Users, repos.Comments, logger).RegisterPostRoutes(api)
	handlers.NewLikeHandler(repos.Posts, repos.Users, repos.Notifications, logger).RegisterLikeRoutes(api)
	handlers.NewCommentHandler(
		repos.Comments, repos.CommentLikes, repos.Posts, repos.Users, repos.Notifications, s.CommentResync, logger,
	).RegisterCommentRoutes(api)
	handlers.NewFeedHandler(repos.Posts, cfg.FeedPageSize, cfg.FeedHighlightTTL, cfg.CORSOrigins, logger).RegisterFeedRoutes(api)
	handlers.NewNotificationHandler(repos.Notifications, repos.Users).RegisterNotificationRoutes(api)
	handlers.NewBitHandler(repos.Bits, repos.Posts, repos.Users).RegisterBitRoutes(api)
	handlers.NewIdeaHandler(repos.Ideas).RegisterIdeaRoutes(api)
	handlers.NewJournalHandler(repos.Journal).RegisterJournalRoutes(api)
	handlers.NewExerciseHandler(repos.Exercises).RegisterExerciseRoutes(api)
	handlers.NewMessageHandler(repos.Messages, repos.Users).RegisterMessageRoutes(api)
	if media != nil {
		handlers.NewMediaHandler(media, logger).RegisterMediaRoutes(api)
	} else {
		logger.Warn("storage bucket not configured, media uploads disabled")
	}
	if feedbackRepo != nil {
		handlers.NewFeedbackHandler(feedbackRepo).RegisterFeedbackRoutes(api)
	} else {
		logger.Warn("firestore not configured, feedback disabled")
	}

	// --- Admin portal ---
	var resetter handlers.PasswordResetter
	if identity != nil && mail != nil {
		resetter = authHandler
	}
	admin := api.Group("/admin", middleware.AdminOnly(repos.Users, cfg.IsAdminEmail))
	handlers.NewAdminHandler(
		repos.Users, repos.Posts, repos.Comments, repos.Exercises, feedbackRepo, resetter, logger,
	).RegisterAdminRoutes(admin)

	logger.Info("routes configured")
}

// EnsureIndexes prepares the document store for the feed queries.
func (r *Repositories) EnsureIndexes(ctx context.Context) error {
	return r.Posts.EnsureIndexes(ctx)
}
