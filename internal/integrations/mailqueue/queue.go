// Package mailqueue ставит письма в очередь Redis; отправкой занимается отдельный почтовый воркер
package mailqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKey список Redis, из которого читает почтовый воркер
const DefaultKey = "emails"

// Job задача на отправку письма
type Job struct {
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// Queue очередь писем
type Queue struct {
	rdb *redis.Client
	key string
	now func() time.Time
}

// New создает очередь поверх клиента Redis
func New(rdb *redis.Client, key string) *Queue {
	if key == "" {
		key = DefaultKey
	}
	return &Queue{rdb: rdb, key: key, now: time.Now}
}

// Enqueue ставит письмо в очередь
func (q *Queue) Enqueue(ctx context.Context, to, name, subject, body string) error {
	job := Job{
		To:      to,
		Name:    name,
		Subject: subject,
		Body:    body,
		Created: q.now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("%w: marshal job: %v", ErrEnqueue, err)
	}

	if err := q.rdb.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("%w: lpush %s: %v", ErrEnqueue, q.key, err)
	}

	return nil
}

// Len длина очереди
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}
