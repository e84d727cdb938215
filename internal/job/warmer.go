package job

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/d60-Lab/newsmeme/pkg/logger"
)

// Warmer 周期性重建缓存
type Warmer interface {
	Warm(ctx context.Context) error
}

// Scheduler 封装 cron，只在 server 进程中运行
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
}

func NewScheduler(timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		timeout: timeout,
	}
}

// AddWarmer 按 spec（cron 表达式或 @every 5m）注册一个预热任务
func (s *Scheduler) AddWarmer(spec, name string, w Warmer) error {
	_, err := s.cron.AddFunc(spec, func() { s.run(name, w) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

func (s *Scheduler) run(name string, w Warmer) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	start := time.Now()
	if err := w.Warm(ctx); err != nil {
		logger.Warn("warm job failed", zap.String("job", name), zap.Error(err))
		return
	}
	logger.Debug("warm job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
