package container

import (
	"context"
	"fmt"
	"io"

	"gapfill/adapters/db/postgres/migrations"
	"gapfill/adapters/postgres"
	"gapfill/app"
	"gapfill/internal"
	"gapfill/internal/cleaning"
	"gapfill/internal/config"
	"gapfill/internal/errors"
	"gapfill/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure, nil when DATABASE_URL is unset
	DB *sqlx.DB

	// Repositories (data access layer)
	ImputationRepo ports.ImputationRepository

	// Services
	Imputation *app.ImputationService
}

// Option adjusts the container before the service is built
type Option func(*Container)

// WithRepository supplies a repository instead of connecting to Postgres
func WithRepository(repo ports.ImputationRepository) Option {
	return func(c *Container) { c.ImputationRepo = repo }
}

// New creates a container from cfg. When a database URL is configured the
// connection is opened, migrations are applied and jobs are persisted.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	level, ok := internal.ParseLogLevel(cfg.Log.Level)
	c := &Container{
		Config: cfg,
		Logger: internal.NewLogger(level),
	}
	if !ok {
		c.Logger.Warn("unknown LOG_LEVEL %q, using INFO", cfg.Log.Level)
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.ImputationRepo == nil && cfg.Database.URL != "" {
		if err := c.initDatabase(ctx); err != nil {
			return nil, err
		}
	}

	if err := c.initServices(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// initDatabase connects, migrates and builds the repository
func (c *Container) initDatabase(ctx context.Context) error {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.Config.Database.URL)
	if err != nil {
		return errors.DatabaseError("failed to connect to database", err)
	}

	migrator := migrations.NewMigrator(db.DB).WithOutput(io.Discard)
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return errors.DatabaseError("database migration failed", err)
	}

	c.DB = db
	c.ImputationRepo = postgres.NewImputationRepository(db)
	c.Logger.Info("persisting imputation jobs to Postgres")
	return nil
}

// initServices builds the imputation service from the configured policy
func (c *Container) initServices() error {
	rules, err := cleaning.ParseRules(c.Config.Data.SentinelRules)
	if err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}

	opts := []app.ServiceOption{
		app.WithWorkers(c.Config.Imputation.Workers),
		app.WithSentinelRules(rules),
		app.WithLogger(c.Logger.WithComponent("Imputation")),
	}
	if c.ImputationRepo != nil {
		opts = append(opts, app.WithRepository(c.ImputationRepo))
	}

	c.Imputation, err = app.NewImputationService(c.Config.Policy(), opts...)
	return err
}

// Close releases the database connection, if any
func (c *Container) Close() error {
	if c.DB == nil {
		return nil
	}
	err := c.DB.Close()
	c.DB = nil
	return err
}
