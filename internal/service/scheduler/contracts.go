package scheduler

import (
	"context"
	"time"

	"github.com/m04kA/SMC-FieldBookingService/internal/service/reaper"
)

// Task периодическая задача
type Task interface {
	Tick(ctx context.Context, now time.Time) (*reaper.Effects, error)
}

// Guard межпроцессная блокировка запуска.
// ok=false означает, что задачу сейчас выполняет другой экземпляр.
type Guard interface {
	TryLock(ctx context.Context) (unlock func(ctx context.Context) error, ok bool, err error)
}

// Metrics интерфейс метрик запусков
type Metrics interface {
	RecordReaperRun(result string, duration time.Duration)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
	Debug(format string, v ...interface{})
}
