package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	// PingTries bounds the startup ping attempts; values below 1 mean 5.
	PingTries uint
}

// New connects to Redis and waits for it to answer a ping, retrying with
// exponential backoff.
func New(ctx context.Context, cfg Config) (*redis.Client, error) {
	const op = "redis.New"

	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := redis.NewClient(opts)

	tries := cfg.PingTries
	if tries < 1 {
		tries = 5
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second

	_, err := backoff.Retry(ctx, func() (string, error) {
		ctxPing, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()

		return client.Ping(ctxPing).Result()
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(tries),
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return client, nil
}
