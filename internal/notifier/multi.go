package notifier

import (
	"context"
	"errors"

	"relief-coordinator/internal/models"
)

// Channel 单个通知通道
type Channel interface {
	Send(ctx context.Context, recipient *models.User, subject, body string) error
}

// Multi 组合多个通道，全部尝试后汇总错误
type Multi struct {
	channels []Channel
}

// NewMulti 组合通知通道（nil 通道被忽略）
func NewMulti(channels ...Channel) *Multi {
	m := &Multi{}
	for _, ch := range channels {
		if ch != nil {
			m.channels = append(m.channels, ch)
		}
	}
	return m
}

// Send 向所有通道发送；单通道失败不阻止其余通道
func (m *Multi) Send(ctx context.Context, recipient *models.User, subject, body string) error {
	var errs []error
	for _, ch := range m.channels {
		if err := ch.Send(ctx, recipient, subject, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Empty 是否没有任何可用通道
func (m *Multi) Empty() bool {
	return len(m.channels) == 0
}
