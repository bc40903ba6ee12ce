package worker

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mrniikke/fitness-challange/internal/app/models"
	"github.com/mrniikke/fitness-challange/internal/bootstrap"
)

// Worker runs the change-feed relay, the notification watcher and the
// reminder loop until it receives a termination signal.
type Worker struct {
	deps   *bootstrap.Dependencies
	logger zerolog.Logger
}

// NewWorker creates and initializes a new worker instance by calling bootstrap functions.
func NewWorker(configPath string) (*Worker, error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config or setup logger: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	database, err := bootstrap.SetupDatabase(ctx, cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	deps, err := bootstrap.BuildDependencies(ctx, cfg, database, lgr)
	if err != nil {
		// Attempt to close DB pool if DI fails
		database.Close()
		return nil, fmt.Errorf("failed to setup dependencies: %w", err)
	}

	return &Worker{deps: deps, logger: lgr}, nil
}

// Run blocks until SIGINT/SIGTERM or until a component fails, then shuts down.
func (w *Worker) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		w.logger.Info().Msg("Change feed starting")
		return w.deps.Feed.Run(ctx)
	})

	if w.deps.Config.Reminders.Enabled {
		g.Go(func() error {
			w.logger.Info().Dur("interval", w.deps.Config.Reminders.Interval).Msg("Reminder loop starting")
			return w.deps.Services.Reminders.Run(ctx, w.deps.Config.Reminders.Interval)
		})
	}

	if w.deps.Identity != nil {
		g.Go(func() error {
			return w.watch(ctx)
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Error().Err(err).Msg("Worker component failed, shutting down...")
	} else {
		w.logger.Info().Msg("Received shutdown signal, shutting down...")
		err = nil
	}

	if shutdownErr := w.Shutdown(); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	return err
}

// watch follows every group of the acting user and logs the notifications
// that reach the inbox.
func (w *Worker) watch(ctx context.Context) error {
	svc := w.deps.Services
	userID := w.deps.Identity.CurrentUser().ID

	svc.Inbox.OnChange(func(items []models.Notification) {
		if len(items) == 0 {
			return
		}
		latest := items[0]
		w.logger.Info().
			Str("type", string(latest.Type)).
			Str("groupID", latest.GroupID.String()).
			Str("title", latest.Title).
			Str("message", latest.Message).
			Msg("Notification")
	})

	groupIDs, err := w.deps.Repos.ListGroupIDsForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list groups of %s: %w", userID, err)
	}
	for _, groupID := range groupIDs {
		if err := svc.Watcher.Watch(ctx, groupID); err != nil {
			return fmt.Errorf("failed to watch group %s: %w", groupID, err)
		}
		if _, err := svc.Standings.Refresh(ctx, groupID); err != nil {
			w.logger.Warn().Err(err).Str("groupID", groupID.String()).Msg("Initial standings refresh failed")
		}
	}
	w.logger.Info().Str("userID", userID.String()).Int("groups", len(groupIDs)).Msg("Watching groups")

	<-ctx.Done()
	svc.Watcher.StopAll()
	return nil
}

// Shutdown stops the hub and closes every connection.
func (w *Worker) Shutdown() error {
	w.logger.Info().Msg("Releasing dependencies...")
	w.deps.Close()

	if w.deps.DB != nil {
		w.logger.Info().Msg("Closing database connection pool...")
		w.deps.DB.Close()
		w.logger.Info().Msg("Database connection pool closed.")
	}

	w.logger.Info().Msg("Worker shutdown process complete.")
	return nil
}
