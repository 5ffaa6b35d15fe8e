package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"streamguard/pkg/engine"
)

// Options configures where the watcher finds its manifest.
type Options struct {
	Addr      string
	Password  string
	DB        int
	ConfigKey string
	Channel   string
}

// Watcher keeps a pipeline in sync with the manifest stored in Redis.
type Watcher struct {
	redisClient *redis.Client
	pipeline    *engine.Pipeline
	configKey   string
	channel     string
	logger      zerolog.Logger
}

func NewWatcher(opts Options, pipeline *engine.Pipeline) *Watcher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &Watcher{
		redisClient: rdb,
		pipeline:    pipeline,
		configKey:   opts.ConfigKey,
		channel:     opts.Channel,
		logger:      log.With().Str("component", "control").Logger(),
	}
}

// Start loads the current manifest and subscribes to update announcements.
// It returns once the subscription is confirmed; updates are handled in the background
// until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info().Str("key", w.configKey).Str("channel", w.channel).Msg("Starting config watcher")

	if err := w.Reload(ctx); err != nil {
		w.logger.Error().Err(err).Msg("Initial config load failed")
	}

	pubsub := w.redisClient.Subscribe(ctx, w.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", w.channel, err)
	}
	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				w.logger.Info().Str("payload", msg.Payload).Msg("Received update signal")
				if err := w.Reload(ctx); err != nil {
					w.logger.Error().Err(err).Msg("Config reload failed")
				}
			}
		}
	}()
	return nil
}

// Reload fetches the manifest and applies its first pipeline. A missing key keeps the
// current state. Rules that fail to build are logged and skipped.
func (w *Watcher) Reload(ctx context.Context) error {
	val, err := w.redisClient.Get(ctx, w.configKey).Result()
	if errors.Is(err, redis.Nil) {
		w.logger.Info().Msg("No config found in Redis, keeping current state")
		return nil
	} else if err != nil {
		return fmt.Errorf("fetch config: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal([]byte(val), &manifest); err != nil {
		return fmt.Errorf("invalid config JSON: %w", err)
	}
	if len(manifest.Pipelines) == 0 {
		return nil
	}
	cfg := manifest.Pipelines[0]

	chain, err := BuildChain(cfg)
	if err != nil {
		w.logger.Warn().Err(err).Str("pipeline", cfg.Name).Msg("Skipped invalid processor rules")
	}
	w.pipeline.UpdateChain(chain)
	w.pipeline.UpdateOutput(BuildOutput(cfg))
	w.pipeline.UpdateBatchSize(batchSize(cfg))

	w.logger.Info().
		Str("version", manifest.Version).
		Str("pipeline", cfg.Name).
		Int("processors", chain.Len()).
		Msg("Config applied")
	return nil
}

// Close releases the Redis client.
func (w *Watcher) Close() error {
	return w.redisClient.Close()
}
