package database

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/glebarez/sqlite"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"choreo-backend/internal/config"
	"choreo-backend/internal/model"
	"choreo-backend/internal/repository"
)

const connectTimeout = 10 * time.Second

// Store the repositories of one open backend
type Store struct {
	Driver      string
	Credentials repository.CredentialRepository
	Dances      repository.DanceRepository

	ping  func(ctx context.Context) error
	close func() error
}

// Ping checks that the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the connection.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open connects to the configured backend and prepares its schema.
func Open(cfg *config.StoreConfig) (*Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return openGorm(cfg.Driver, postgres.Open(cfg.PostgresDSN()), false)
	case config.DriverSQLite:
		return openGorm(cfg.Driver, sqlite.Open(cfg.SQLitePath), cfg.SQLitePath == ":memory:")
	case config.DriverMongo:
		return openMongo(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.Driver)
	}
}

func openGorm(driver string, dialector gorm.Dialector, inMemory bool) (*Store, error) {
	gormLogger := logger.New(
		log.StandardLog(log.StandardLogOptions{ForceLevel: log.WarnLevel}),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if inMemory {
		// every connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	}

	if err := db.AutoMigrate(&model.User{}, &model.Dance{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Info("Database connected", "driver", driver)

	return &Store{
		Driver:      driver,
		Credentials: repository.NewGormCredentialRepository(db),
		Dances:      repository.NewGormDanceRepository(db),
		ping: func(ctx context.Context) error {
			if err := sqlDB.PingContext(ctx); err != nil {
				return fmt.Errorf("failed to ping database: %w", err)
			}
			return nil
		},
		close: sqlDB.Close,
	}, nil
}

func openMongo(cfg *config.StoreConfig) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(cfg.DBName)
	dances, err := repository.NewMongoDanceRepository(ctx, db)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Info("Database connected", "driver", config.DriverMongo, "db", cfg.DBName)

	return &Store{
		Driver:      config.DriverMongo,
		Credentials: repository.NewMongoCredentialRepository(db),
		Dances:      dances,
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		close: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
			defer cancel()
			return client.Disconnect(ctx)
		},
	}, nil
}
