package realtime

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Reconnect paces the connection attempts of a change-feed source
type Reconnect struct {
	Every time.Duration
	Burst int
}

func (r Reconnect) limiter() *rate.Limiter {
	every, burst := r.Every, r.Burst
	if every <= 0 {
		every = 2 * time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(every), burst)
}

// keepAlive runs connect until ctx is done, waiting on the limiter before
// every attempt so a failing endpoint is not hammered.
func keepAlive(ctx context.Context, r Reconnect, logger zerolog.Logger, connect func(ctx context.Context) error) error {
	limiter := r.limiter()
	for attempt := 1; ; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}

		err := connect(ctx)
		if ctx.Err() != nil {
			return nil
		}
		logger.Warn().Err(err).Int("attempt", attempt).Msg("Change feed disconnected, reconnecting")
	}
}
