package memberlock

import (
	"github.com/vitalis-health/vitalis/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("memberlock",
	fx.Provide(NewRedisClient, New),
)

// NewRedisClient returns nil when redis is not configured; the locker then
// falls back to process-local mutexes.
func NewRedisClient(cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Info("redis not configured, member locks are process-local")
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}
