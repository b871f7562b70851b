// Package bootstrap assembles the store, repositories and services from a
// Config. Both the API server and freelinkctl build on it.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/internal/repositories"
	"github.com/anonto42/freelink/backend/internal/services"
	"github.com/anonto42/freelink/backend/pkg/config"
	"github.com/anonto42/freelink/backend/pkg/firebase"
	"github.com/anonto42/freelink/backend/pkg/lease"
	"github.com/anonto42/freelink/backend/pkg/store"
)

const firebasePollInterval = 2 * time.Second

// Container owns every long-lived dependency of the process.
type Container struct {
	Config   *config.Config
	Log      *slog.Logger
	DB       *config.DB
	Firebase *firebase.App
	Store    store.Store
	Locker   lease.Locker
	Location *time.Location

	Users         repositories.UserRepository
	Jobs          repositories.JobRepository
	Notifications repositories.NotificationRepository
	Messages      repositories.MessageRepository
	Ledger        repositories.LedgerRepository
	Deliveries    repositories.DeliveryRepository

	UserService    *services.UserService
	Blocks         *services.BlockService
	Notifier       *services.Notifier
	Projection     *services.ProjectionManager
	JobService     *services.JobService
	Sweeper        *services.Sweeper
	MessageService *services.MessageService
	LedgerService  *services.LedgerService
}

// New opens the configured backends and wires the services on top of them.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, err
	}

	c := &Container{Config: cfg, Log: logger, DB: db, Location: loc}

	if cfg.NeedsFirebase() {
		dbURL := ""
		if cfg.StoreBackend == config.StoreFirebase {
			dbURL = cfg.FirebaseDatabaseURL
		}
		c.Firebase, err = firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, dbURL)
		if err != nil {
			db.CloseDB()
			return nil, fmt.Errorf("failed to initialize Firebase: %w", err)
		}
	}

	var backend store.Store
	if cfg.StoreBackend == config.StoreFirebase {
		backend = store.NewFirebaseStore(c.Firebase.Database, firebasePollInterval)
		log.Println("Using Firebase Realtime Database store.")
	} else {
		backend = store.NewMemoryStore()
		log.Println("Using in-memory store.")
	}
	backend = store.WithTimeout(backend, cfg.StoreTimeout)
	if db.Redis != nil {
		backend = store.NewRedisFeed(backend, db.Redis, store.DefaultChangeChannel)
		c.Locker = lease.NewRedisLocker(db.Redis)
	} else {
		c.Locker = lease.NewLocalLocker()
	}
	c.Store = backend

	if err := c.initRepositories(); err != nil {
		db.CloseDB()
		return nil, err
	}
	c.initServices()
	return c, nil
}

func (c *Container) initRepositories() error {
	c.Users = repositories.NewUserRepository(c.Store)
	c.Jobs = repositories.NewJobRepository(c.Store)
	c.Notifications = repositories.NewNotificationRepository(c.Store)
	c.Messages = repositories.NewMessageRepository(c.Store)

	if c.DB.Postgres != nil {
		if err := c.DB.Postgres.AutoMigrate(&models.IncomeEntry{}, &models.Expense{}); err != nil {
			return fmt.Errorf("failed to auto migrate ledger models: %w", err)
		}
		log.Println("PostgreSQL auto-migrations completed for ledger models.")
		c.Ledger = repositories.NewPostgresLedgerRepository(c.DB.Postgres)
	} else {
		c.Ledger = repositories.NewMemoryLedgerRepository()
	}

	if c.DB.Mongo != nil {
		c.Deliveries = repositories.NewMongoDeliveryRepository(c.DB.Mongo.Database(c.Config.MongoDatabase))
	} else {
		c.Deliveries = repositories.NewMemoryDeliveryRepository()
	}
	return nil
}

func (c *Container) initServices() {
	c.UserService = services.NewUserService(c.Users, c.Log)
	c.Blocks = services.NewBlockService(c.Users, c.Log)
	c.Notifier = services.NewNotifier(c.Notifications, c.Users, c.Deliveries, services.NotifierConfig{
		Concurrency: c.Config.FanoutConcurrency,
		BatchSize:   c.Config.FanoutBatchSize,
		Attempts:    c.Config.DeliveryAttempts,
		Backoff:     200 * time.Millisecond,
	}, c.Log)
	c.Projection = services.NewProjectionManager(c.Jobs, c.Users, c.Log)
	c.JobService = services.NewJobService(c.Jobs, c.Users, c.Projection, c.Blocks, c.Notifier, c.Location, c.Log)
	c.Sweeper = services.NewSweeper(c.Jobs, c.JobService, c.Locker, c.Log)
	c.MessageService = services.NewMessageService(c.Messages, c.Users, c.Blocks, c.Notifier, c.Log)
	c.LedgerService = services.NewLedgerService(c.Ledger, c.Jobs, c.Notifier, c.Log)
}

// Close releases the external connections.
func (c *Container) Close() {
	c.DB.CloseDB()
}
