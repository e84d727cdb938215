package monitor

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/d60-Lab/newsmeme/config"
)

var enabled bool

// InitSentry DSN 为空时不启用
func InitSentry(cfg config.SentryConfig, release string) error {
	if cfg.DSN == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     release,
		SampleRate:  cfg.SampleRate,
	}); err != nil {
		return err
	}
	enabled = true
	return nil
}

// CaptureError 上报错误；请求上下文里有 hub 时优先使用
func CaptureError(ctx context.Context, err error) {
	if !enabled || err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.CaptureException(err)
}

// CapturePanic 上报 panic 值
func CapturePanic(ctx context.Context, v interface{}) {
	if !enabled {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.Recover(v)
}

// Flush 退出前等待事件发送
func Flush(timeout time.Duration) {
	if enabled {
		sentry.Flush(timeout)
	}
}
