package keylock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix    = "appointments:lock:"
	defaultPollInterval = 25 * time.Millisecond
)

// releaseScript удаляет ключ, только если он принадлежит владельцу токена
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Logger интерфейс для логирования
type Logger interface {
	Warn(format string, v ...interface{})
}

// Redis распределённая блокировка на SET NX PX
// TTL ограничивает время жизни блокировки, если процесс упал, не освободив её
type Redis struct {
	client       *redis.Client
	ttl          time.Duration
	pollInterval time.Duration
	prefix       string
	log          Logger
}

// NewRedis создает распределённый менеджер блокировок
func NewRedis(client *redis.Client, ttl time.Duration, log Logger) *Redis {
	return &Redis{
		client:       client,
		ttl:          ttl,
		pollInterval: defaultPollInterval,
		prefix:       defaultKeyPrefix,
		log:          log,
	}
}

// Acquire берёт блокировку key, опрашивая redis не дольше wait
func (r *Redis) Acquire(ctx context.Context, key string, wait time.Duration) (Unlock, error) {
	redisKey := r.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("keylock: redis SETNX %s: %w", redisKey, err)
		}
		if ok {
			return r.unlockFunc(redisKey, token), nil
		}

		if time.Now().Add(r.pollInterval).After(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}
}

func (r *Redis) unlockFunc(redisKey, token string) Unlock {
	var once sync.Once
	return func() {
		once.Do(func() {
			// Контекст запроса к этому моменту может быть отменён
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			if err := releaseScript.Run(ctx, r.client, []string{redisKey}, token).Err(); err != nil {
				r.log.Warn("keylock: failed to release %s: %v", redisKey, err)
			}
		})
	}
}
