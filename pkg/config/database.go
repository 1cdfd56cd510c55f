package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the database connections
type DB struct {
	Postgres *gorm.DB
	Mongo    *mongo.Client
	logger   *zap.Logger
}

// InitDB opens PostgreSQL and MongoDB. A failure on the second store closes the first.
func InitDB(cfg *Config, logger *zap.Logger) (*DB, error) {
	if cfg.PostgresConnStr == "" {
		return nil, fmt.Errorf("POSTGRES_CONN_STR environment variable not set")
	}
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI environment variable not set")
	}

	db := &DB{logger: logger}
	var err error
	db.Postgres, err = openPostgres(cfg.PostgresConnStr, cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	logger.Info("Connected to PostgreSQL")

	db.Mongo, err = openMongo(cfg.MongoURI)
	if err != nil {
		err = fmt.Errorf("connect mongo: %w", err)
		return nil, multierr.Append(err, db.CloseDB())
	}
	logger.Info("Connected to MongoDB", zap.String("database", cfg.MongoDatabase))

	return db, nil
}

func openPostgres(connStr, env string) (*gorm.DB, error) {
	level := gormlogger.Warn
	if env != "development" {
		level = gormlogger.Error
	}
	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func openMongo(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// PingPostgres checks the PostgreSQL connection.
func (db *DB) PingPostgres(ctx context.Context) error {
	sqlDB, err := db.Postgres.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// PingMongo checks the MongoDB connection.
func (db *DB) PingMongo(ctx context.Context) error {
	return db.Mongo.Ping(ctx, nil)
}

// CloseDB closes the database connections and reports every failure.
func (db *DB) CloseDB() error {
	var errs error
	if db.Postgres != nil {
		sqlDB, err := db.Postgres.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close postgres: %w", err))
		} else {
			db.logger.Info("PostgreSQL connection closed")
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close mongo: %w", err))
		} else {
			db.logger.Info("MongoDB connection closed")
		}
	}
	return errs
}
