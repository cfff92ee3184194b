// Package dispatcher 告警持久化与通知分发
// Raise 同步持久化告警并发布到 Redis Streams，随后异步向全体用户扇出
// 通知；通知通道的任何失败只记日志，绝不影响触发方的业务结果
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"relief-coordinator/internal/common/redisx"
	"relief-coordinator/internal/config"
	"relief-coordinator/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertStore 告警存取
type AlertStore interface {
	CreateAlert(ctx context.Context, alert *models.Alert) error
	ListAlertsForUser(ctx context.Context, userID string) ([]*models.Alert, error)
	MarkSeen(ctx context.Context, alertID, userID string, seenAt time.Time) error
	GetSeenBy(ctx context.Context, alertID string) ([]models.SeenEntry, error)
}

// UserLister 通知接收者来源
type UserLister interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// Notifier 单个通知通道（邮件、MQTT 推送等）
type Notifier interface {
	Send(ctx context.Context, recipient *models.User, subject, body string) error
}

// Dispatcher 告警分发器
type Dispatcher struct {
	config      *config.Config
	alerts      AlertStore
	users       UserLister
	notifier    Notifier
	redisClient *redis.Client
	logger      *zap.Logger
	wg          sync.WaitGroup
}

// NewDispatcher 创建分发器
// notifier 或 redisClient 为 nil 时跳过对应通道
func NewDispatcher(cfg *config.Config, alerts AlertStore, users UserLister, notifier Notifier, redisClient *redis.Client, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		config:      cfg,
		alerts:      alerts,
		users:       users,
		notifier:    notifier,
		redisClient: redisClient,
		logger:      logger,
	}
}

// Raise 触发一条告警
// 持久化失败返回错误；事件流发布与通知扇出尽力而为
func (d *Dispatcher) Raise(ctx context.Context, alertType models.AlertType, title, message, reportID string) (*models.Alert, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: alert title is required", models.ErrValidation)
	}

	alert := &models.Alert{
		AlertID:   uuid.New().String(),
		Title:     title,
		Message:   message,
		ReportID:  reportID,
		AlertType: alertType,
		CreatedAt: time.Now(),
	}

	if err := d.alerts.CreateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to persist alert: %w", err)
	}

	d.publishEvent(ctx, alert)

	if d.notifier != nil {
		d.wg.Add(1)
		go d.fanOut(alert)
	}

	return alert, nil
}

// publishEvent 发布告警事件到 Redis Streams（看板等下游消费）
func (d *Dispatcher) publishEvent(ctx context.Context, alert *models.Alert) {
	if d.redisClient == nil {
		return
	}
	if _, err := redisx.PublishJSONToStream(ctx, d.redisClient, d.config.Dispatch.StreamKey, alert); err != nil {
		d.logger.Warn("Failed to publish alert event",
			zap.String("alert_id", alert.AlertID),
			zap.String("stream", d.config.Dispatch.StreamKey),
			zap.Error(err),
		)
	}
}

// fanOut 向全体用户并发发送通知
// 与触发请求解耦：用独立上下文，受 FanoutWorkers 并发上限约束
func (d *Dispatcher) fanOut(alert *models.Alert) {
	defer d.wg.Done()

	ctx := context.Background()
	users, err := d.users.ListUsers(ctx)
	if err != nil {
		d.logger.Warn("Failed to list notification recipients",
			zap.String("alert_id", alert.AlertID),
			zap.Error(err),
		)
		return
	}

	subject := "ALERT: " + alert.Title
	timeout := time.Duration(d.config.Dispatch.SendTimeoutSec) * time.Second
	workers := d.config.Dispatch.FanoutWorkers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, user := range users {
		wg.Add(1)
		sem <- struct{}{}
		go func(user *models.User) {
			defer wg.Done()
			defer func() { <-sem }()

			sendCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			if err := d.notifier.Send(sendCtx, user, subject, alert.Message); err != nil {
				d.logger.Warn("Failed to notify user",
					zap.String("alert_id", alert.AlertID),
					zap.String("user_id", user.UserID),
					zap.Error(err),
				)
			}
		}(user)
	}
	wg.Wait()

	d.logger.Info("Alert fan-out complete",
		zap.String("alert_id", alert.AlertID),
		zap.String("alert_type", string(alert.AlertType)),
		zap.Int("recipients", len(users)),
	)
}

// Wait 等待在途的通知扇出完成（优雅关闭用）
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// ListAlertsFor 列出用户可见的告警（含该用户的已读标记）
func (d *Dispatcher) ListAlertsFor(ctx context.Context, userID string) ([]*models.Alert, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", models.ErrValidation)
	}
	return d.alerts.ListAlertsForUser(ctx, userID)
}

// MarkSeen 标记告警已读（重复标记幂等）
func (d *Dispatcher) MarkSeen(ctx context.Context, alertID, userID string) error {
	if alertID == "" {
		return fmt.Errorf("%w: alert_id is required", models.ErrValidation)
	}
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", models.ErrValidation)
	}
	return d.alerts.MarkSeen(ctx, alertID, userID, time.Now())
}

// SeenBy 返回一条告警的全部已读标记（管理端回执视图）
func (d *Dispatcher) SeenBy(ctx context.Context, alertID string) ([]models.SeenEntry, error) {
	if alertID == "" {
		return nil, fmt.Errorf("%w: alert_id is required", models.ErrValidation)
	}
	return d.alerts.GetSeenBy(ctx, alertID)
}
