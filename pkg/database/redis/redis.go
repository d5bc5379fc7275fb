package redis

import (
	"context"
	"fmt"
	"net"

	"adserver/pkg/config"
	"adserver/pkg/logger"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
)

// Options maps the service config onto client options. Read and write
// timeouts follow the dial timeout; per-call deadlines are set by callers
// through their contexts.
func Options(c config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         net.JoinHostPort(c.RedisHost, c.RedisPort),
		Password:     c.RedisPassword,
		DB:           c.RedisDB,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.DialTimeout,
		WriteTimeout: c.DialTimeout,
		PoolSize:     c.PoolSize,
		MinIdleConns: max(c.PoolSize/4, 1),
	}
}

// Connect opens a client and pings it until Redis answers or the connect
// attempts run out. Redis usually starts next to the server, so a cold
// start gets a few tries before giving up.
func Connect(ctx context.Context, c config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(Options(c))

	ping := func() (struct{}, error) {
		pctx, cancel := context.WithTimeout(ctx, c.DialTimeout)
		defer cancel()

		err := client.Ping(pctx).Err()
		if err != nil {
			logger.Warn("redis ping failed", "addr", client.Options().Addr, "error", err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, ping,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(c.ConnectAttempts)),
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", client.Options().Addr, err)
	}
	return client, nil
}

func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
