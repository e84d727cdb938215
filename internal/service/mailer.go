package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/d60-Lab/newsmeme/pkg/logger"
)

// Message 站内通知邮件
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer 不真正投递，只记录日志
type LogMailer struct {
	sender string
}

func NewLogMailer(sender string) *LogMailer { return &LogMailer{sender: sender} }

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = m.sender
	}
	logger.Info("mail sent",
		zap.String("from", msg.From),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_len", len(msg.Body)),
	)
	return nil
}

// MemoryMailer 保存已发送邮件，测试使用
type MemoryMailer struct {
	mu   sync.Mutex
	sent []Message
}

func (m *MemoryMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *MemoryMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}

// notify 邮件失败只记录，不影响已提交的操作
func notify(ctx context.Context, mailer Mailer, msg Message) {
	if mailer == nil || len(msg.To) == 0 {
		return
	}
	if err := mailer.Send(ctx, msg); err != nil {
		logger.Warn("send mail failed", zap.String("subject", msg.Subject), zap.Error(err))
	}
}
