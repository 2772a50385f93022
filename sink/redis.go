package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"logforge/core"
)

// RedisOptions configures the Redis stream sink.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	// MaxLen trims the stream to approximately this many entries.
	// 0 disables trimming.
	MaxLen   int64
	PoolSize int
}

// Redis appends records to a Redis stream so downstream consumers can
// replay them in generation order.
type Redis struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *zap.SugaredLogger
}

// NewRedis connects to Redis and returns the sink.
func NewRedis(opts RedisOptions, logger *zap.SugaredLogger) (*Redis, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: opts.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Infow("Connected to Redis", "addr", opts.Addr, "stream", opts.Stream)

	return &Redis{
		client: client,
		stream: opts.Stream,
		maxLen: opts.MaxLen,
		logger: logger,
	}, nil
}

// Name identifies the sink.
func (s *Redis) Name() string { return "redis" }

// WriteBatch appends the records to the stream in one pipeline round trip.
func (s *Redis) WriteBatch(ctx context.Context, records []*core.LogRecord) error {
	if len(records) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", rec.ID, err)
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: s.stream,
			MaxLen: s.maxLen,
			Approx: true,
			Values: map[string]interface{}{
				"id":     rec.ID,
				"source": string(rec.SourceType),
				"level":  string(rec.Level),
				"record": data,
			},
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to stream %s: %w", s.stream, err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *Redis) Close(ctx context.Context) error {
	return s.client.Close()
}
