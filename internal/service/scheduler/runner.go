// Package scheduler запускает reaper по таймеру без пересекающихся запусков
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Результаты запуска для метрик
const (
	ResultOK             = "ok"
	ResultError          = "error"
	ResultSkippedOverlap = "skipped_overlap"
	ResultSkippedLocked  = "skipped_locked"
)

// Runner периодически вызывает Task.Tick.
// Пока предыдущий запуск не завершился, новые тики пропускаются.
type Runner struct {
	task     Task
	interval time.Duration
	timeout  time.Duration
	guard    Guard
	metrics  Metrics
	logger   Logger
	now      func() time.Time

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewRunner создает новый Runner. timeout ограничивает один запуск; 0 означает interval.
func NewRunner(task Task, interval, timeout time.Duration, metrics Metrics, logger Logger) *Runner {
	if timeout <= 0 {
		timeout = interval
	}
	return &Runner{
		task:     task,
		interval: interval,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// WithGuard включает межпроцессную блокировку
func (r *Runner) WithGuard(guard Guard) *Runner {
	r.guard = guard
	return r
}

// Start запускает цикл и блокируется до отмены ctx, затем дожидается текущего запуска
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("Reaper: scheduler started, interval=%s", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.wg.Wait()
			r.logger.Info("Reaper: scheduler stopped")
			return
		case <-ticker.C:
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				r.RunOnce(ctx)
			}()
		}
	}
}

// RunOnce выполняет один запуск. Возвращает false, если запуск был пропущен.
func (r *Runner) RunOnce(ctx context.Context) bool {
	if !r.running.CompareAndSwap(false, true) {
		r.metrics.RecordReaperRun(ResultSkippedOverlap, 0)
		r.logger.Warn("Reaper: previous run still in progress, skipping tick")
		return false
	}
	defer r.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if r.guard != nil {
		unlock, ok, err := r.guard.TryLock(ctx)
		if err != nil {
			r.metrics.RecordReaperRun(ResultError, 0)
			r.logger.Error("Reaper: failed to acquire run lock: %v", err)
			return false
		}
		if !ok {
			r.metrics.RecordReaperRun(ResultSkippedLocked, 0)
			r.logger.Debug("Reaper: another instance holds the run lock, skipping tick")
			return false
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				r.logger.Warn("Reaper: failed to release run lock: %v", err)
			}
		}()
	}

	started := r.now()
	effects, err := r.task.Tick(ctx, started)
	duration := r.now().Sub(started)

	if err != nil {
		r.metrics.RecordReaperRun(ResultError, duration)
		r.logger.Error("Reaper: run failed: %v", err)
		return true
	}

	r.metrics.RecordReaperRun(ResultOK, duration)
	if len(effects.Upcoming)+len(effects.StartingNow)+len(effects.Expired) > 0 {
		r.logger.Info("Reaper: upcoming=%v, starting=%v, expired=%v, notify_failures=%d",
			effects.Upcoming, effects.StartingNow, effects.Expired, effects.NotifyFailures)
	}
	return true
}
