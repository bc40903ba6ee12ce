package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	appMigrations "github.com/mrniikke/fitness-challange/internal/app/migrations"
	appRepos "github.com/mrniikke/fitness-challange/internal/app/repositories"
	appServices "github.com/mrniikke/fitness-challange/internal/app/services"
	"github.com/mrniikke/fitness-challange/internal/config"
	"github.com/mrniikke/fitness-challange/internal/db"
	pkgAuth "github.com/mrniikke/fitness-challange/internal/pkg/auth"
	"github.com/mrniikke/fitness-challange/internal/pkg/broker"
	"github.com/mrniikke/fitness-challange/internal/pkg/cache"
	"github.com/mrniikke/fitness-challange/internal/pkg/calendar"
	"github.com/mrniikke/fitness-challange/internal/pkg/logger"
	"github.com/mrniikke/fitness-challange/internal/pkg/realtime"
)

// FeedSource pumps row changes into the hub until ctx is done
type FeedSource interface {
	Run(ctx context.Context) error
}

// Dependencies holds all the application dependencies
type Dependencies struct {
	Config     *config.Config
	Logger     zerolog.Logger
	DB         *db.PostgresDB
	Repos      *appRepos.Repositories
	Hub        *realtime.Hub
	Feed       FeedSource
	Cache      cache.ChallengeCache
	Publisher  broker.Publisher
	Calendar   *calendar.Calendar
	JWTService *pkgAuth.JWTService
	// Identity is nil when no access token is configured
	Identity pkgAuth.Identity
	Services *appServices.Services

	closers []func() error
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	lgr := logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
		File: logger.FileConfig{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.FileMaxSizeMB,
			MaxBackups: cfg.Logging.FileMaxBackups,
			MaxAgeDays: cfg.Logging.FileMaxAgeDays,
		},
	})

	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and applies the bundled migrations.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg, logger.Component("db"))
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	if !cfg.Database.AutoMigrate {
		return database, nil
	}

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(database.Pool, logger.Component("migrations"))
	if err := migrator.MigrateBundled(ctx); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		database.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	return database, nil
}

// BuildDependencies initializes stores, the change feed, the cache, the
// broker and the services.
func BuildDependencies(ctx context.Context, cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: lgr,
		DB:     database,
		Repos:  appRepos.NewRepositories(database),
	}

	deps.Calendar = calendar.New(calendar.SystemClock{}, cfg.Location())
	deps.Hub = realtime.NewHub(cfg.Realtime.QueueSize, logger.Component("hub"))
	deps.closers = append(deps.closers, func() error { deps.Hub.Close(); return nil })

	ttl, err := time.ParseDuration(cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid auth token ttl: %w", err)
	}
	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.Auth.Secret,
		AccessTokenExp: ttl,
		TokenIssuer:    cfg.Auth.Issuer,
	})

	identity := pkgAuth.StaticIdentity{}
	if cfg.Auth.AccessToken != "" {
		identity, err = pkgAuth.SessionIdentity(deps.JWTService, cfg.Auth.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("invalid access token: %w", err)
		}
		deps.Identity = identity
		lgr.Info().Str("userID", identity.User.ID.String()).Msg("Acting user resolved from access token")
	}

	if err := deps.setupCache(ctx, cfg); err != nil {
		deps.Close()
		return nil, err
	}
	if err := deps.setupBroker(cfg); err != nil {
		deps.Close()
		return nil, err
	}
	deps.setupFeed(cfg)

	start, end, err := cfg.ReminderWindow()
	if err != nil {
		deps.Close()
		return nil, err
	}

	deps.Services = appServices.New(appServices.Deps{
		Store:     deps.Repos,
		Cache:     deps.Cache,
		Feed:      deps.Hub,
		Publisher: deps.Publisher,
		Calendar:  deps.Calendar,
		Identity:  identity,
		InboxSize: cfg.Notifications.InboxSize,
		Reminders: appServices.ReminderWindow{Start: start, End: end},
		Logger:    lgr,
	})

	return deps, nil
}

func (d *Dependencies) setupCache(ctx context.Context, cfg *config.Config) error {
	if cfg.Cache.Driver != "redis" {
		d.Cache = cache.NewMemory(cfg.Cache.TTL)
		return nil
	}

	redisCache, err := cache.NewRedis(ctx, cache.RedisOptions{
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
		TTL:      cfg.Cache.TTL,
	})
	if err != nil {
		d.Logger.Error().Err(err).Str("addr", cfg.Cache.Addr).Msg("Failed to connect to redis")
		return fmt.Errorf("failed to initialize challenge cache: %w", err)
	}
	d.Cache = redisCache
	d.closers = append(d.closers, redisCache.Close)
	d.Logger.Info().Str("addr", cfg.Cache.Addr).Msg("Challenge cache backed by redis")
	return nil
}

func (d *Dependencies) setupBroker(cfg *config.Config) error {
	if !cfg.Broker.Enabled {
		d.Publisher = broker.Nop{}
		return nil
	}

	publisher, err := broker.NewAMQPPublisher(broker.AMQPConfig{
		URL:        cfg.Broker.URL,
		Exchange:   cfg.Broker.Exchange,
		RoutingKey: cfg.Broker.RoutingKey,
	}, logger.Component("broker"))
	if err != nil {
		d.Logger.Error().Err(err).Msg("Failed to connect to broker")
		return fmt.Errorf("failed to initialize broker: %w", err)
	}
	d.Publisher = publisher
	d.closers = append(d.closers, publisher.Close)
	return nil
}

func (d *Dependencies) setupFeed(cfg *config.Config) {
	reconnect := realtime.Reconnect{Every: cfg.Realtime.ReconnectEvery, Burst: cfg.Realtime.ReconnectBurst}

	switch cfg.Realtime.Source {
	case "websocket":
		d.Feed = realtime.NewClient(cfg.Realtime.URL, cfg.Realtime.Channel, cfg.Realtime.APIKey, d.Hub, reconnect, logger.Component("realtime-client"))
	default:
		d.Feed = realtime.NewListener(d.DB.Pool, cfg.Realtime.Channel, d.Hub, reconnect, logger.Component("realtime-listener"))
	}
	d.Logger.Info().Str("source", cfg.Realtime.Source).Str("channel", cfg.Realtime.Channel).Msg("Change feed configured")
}

// Close releases the hub, cache and broker connections. The database is
// closed by its owner.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.Logger.Warn().Err(err).Msg("Failed to release dependency")
		}
	}
	d.closers = nil
}
