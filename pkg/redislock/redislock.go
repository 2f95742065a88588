// Package redislock реализует простую распределённую блокировку на Redis:
// SET NX PX с уникальным токеном и снятие только владельцем через Lua-скрипт.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotObtained блокировка занята другим владельцем
	ErrNotObtained = errors.New("redislock: lock not obtained")

	// ErrNotHeld блокировка уже истекла или принадлежит другому владельцу
	ErrNotHeld = errors.New("redislock: lock not held")

	// ErrRedis ошибка обращения к Redis
	ErrRedis = errors.New("redislock: redis error")
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker выдаёт блокировки
type Locker struct {
	rdb   *redis.Client
	token func() string
}

// New создает Locker поверх клиента Redis
func New(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb, token: uuid.NewString}
}

// WithTokenGenerator подменяет генератор токенов (для тестов)
func (l *Locker) WithTokenGenerator(fn func() string) *Locker {
	l.token = fn
	return l
}

// Lock захваченная блокировка
type Lock struct {
	rdb   *redis.Client
	key   string
	token string
}

// Obtain пытается захватить ключ на ttl. Возвращает ErrNotObtained, если ключ занят.
func (l *Locker) Obtain(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	token := l.token()

	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: setnx %s: %v", ErrRedis, key, err)
	}
	if !ok {
		return nil, ErrNotObtained
	}

	return &Lock{rdb: l.rdb, key: key, token: token}, nil
}

// Key возвращает ключ блокировки
func (lk *Lock) Key() string {
	return lk.key
}

// Release снимает блокировку, если она всё ещё принадлежит владельцу
func (lk *Lock) Release(ctx context.Context) error {
	deleted, err := releaseScript.Run(ctx, lk.rdb, []string{lk.key}, lk.token).Int64()
	if err != nil {
		return fmt.Errorf("%w: release %s: %v", ErrRedis, lk.key, err)
	}
	if deleted == 0 {
		return ErrNotHeld
	}
	return nil
}
