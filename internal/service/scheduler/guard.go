package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/m04kA/SMC-FieldBookingService/pkg/redislock"
)

// RedisGuard блокировка запуска через Redis
type RedisGuard struct {
	locker *redislock.Locker
	key    string
	ttl    time.Duration
}

// NewRedisGuard создает блокировку на ключе key. ttl должен превышать максимальную длительность запуска.
func NewRedisGuard(locker *redislock.Locker, key string, ttl time.Duration) *RedisGuard {
	return &RedisGuard{locker: locker, key: key, ttl: ttl}
}

// TryLock захватывает ключ
func (g *RedisGuard) TryLock(ctx context.Context) (func(ctx context.Context) error, bool, error) {
	lock, err := g.locker.Obtain(ctx, g.key, g.ttl)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return lock.Release, true, nil
}
