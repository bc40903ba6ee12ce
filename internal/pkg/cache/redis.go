package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mrniikke/fitness-challange/internal/app/models"
)

const keyPrefix = "fitchallenge:challenges:"

// RedisOptions configures the Redis client
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis is a ChallengeCache shared between processes
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to Redis and verifies the connection
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{client: client, ttl: opts.TTL}, nil
}

func key(groupID uuid.UUID) string {
	return keyPrefix + groupID.String()
}

// Get returns the cached challenges of a group
func (r *Redis) Get(ctx context.Context, groupID uuid.UUID) ([]models.Challenge, bool, error) {
	data, err := r.client.Get(ctx, key(groupID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read challenge cache: %w", err)
	}

	var challenges []models.Challenge
	if err := json.Unmarshal(data, &challenges); err != nil {
		// A corrupt entry is treated as a miss and overwritten by the next Set
		return nil, false, nil
	}
	return challenges, true, nil
}

// Set replaces the cached challenges of a group
func (r *Redis) Set(ctx context.Context, groupID uuid.UUID, challenges []models.Challenge) error {
	data, err := json.Marshal(challenges)
	if err != nil {
		return fmt.Errorf("failed to encode challenges: %w", err)
	}
	if err := r.client.Set(ctx, key(groupID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write challenge cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached challenges of a group
func (r *Redis) Invalidate(ctx context.Context, groupID uuid.UUID) error {
	if err := r.client.Del(ctx, key(groupID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate challenge cache: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (r *Redis) Close() error {
	return r.client.Close()
}
