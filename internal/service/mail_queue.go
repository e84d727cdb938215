package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/newsmeme/pkg/logger"
)

// MailQueue 本地异步投递：Send 只入队，后台 worker 调用下游 Mailer。
// 队列满时丢弃并记录日志。
type MailQueue struct {
	next    Mailer
	ch      chan Message
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewMailQueue(next Mailer, queueSize int) *MailQueue {
	if queueSize <= 0 {
		queueSize = 1000
	}
	return &MailQueue{next: next, ch: make(chan Message, queueSize), timeout: 10 * time.Second}
}

func (q *MailQueue) Send(_ context.Context, msg Message) error {
	select {
	case q.ch <- msg:
	default:
		logger.Warn("mail queue full, drop message", zap.String("subject", msg.Subject), zap.Strings("to", msg.To))
	}
	return nil
}

// Start 启动 workers 个投递协程；返回的停止函数会等待队列排空或 ctx 结束
func (q *MailQueue) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 2
	}
	stopCh := make(chan struct{})
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case msg := <-q.ch:
					q.deliver(msg)
				case <-stopCh:
					// 退出前把剩余消息发完
					for {
						select {
						case msg := <-q.ch:
							q.deliver(msg)
						default:
							return
						}
					}
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		close(stopCh)
		done := make(chan struct{})
		go func() {
			q.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (q *MailQueue) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if err := q.next.Send(ctx, msg); err != nil {
		logger.Warn("deliver mail failed", zap.String("subject", msg.Subject), zap.Error(err))
	}
}

// QueueLen 当前队列长度（采样值）
func (q *MailQueue) QueueLen() int { return len(q.ch) }
