package reconciler

import (
	"context"
	"fmt"
	"time"

	"relief-coordinator/internal/config"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LockManager 每报告互斥锁（Redis SET NX + TTL）
// 并发认捐对同一报告是读-改-写流程，必须串行化，否则后写者会覆盖
// 前写者的 fulfilled 增量
type LockManager struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewLockManager 创建锁管理器
func NewLockManager(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) *LockManager {
	return &LockManager{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// releaseScript 仅持有者可释放（token 比对后删除）
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Acquire 获取报告锁，返回释放函数
// 在 LockWaitMs 内以 LockRetryMs 间隔重试；超时返回错误
func (m *LockManager) Acquire(ctx context.Context, reportID string) (func(), error) {
	if reportID == "" {
		return nil, fmt.Errorf("report_id is required")
	}

	key := m.config.Reconcile.LockKeyPrefix + reportID
	token := uuid.New().String()
	ttl := time.Duration(m.config.Reconcile.LockTTLSec) * time.Second
	retry := time.Duration(m.config.Reconcile.LockRetryMs) * time.Millisecond
	deadline := time.Now().Add(time.Duration(m.config.Reconcile.LockWaitMs) * time.Millisecond)

	for {
		ok, err := m.redisClient.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire report lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timed out acquiring lock for report %s", reportID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retry):
		}
	}

	release := func() {
		// 释放用独立上下文：请求被取消也要归还锁
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := releaseScript.Run(releaseCtx, m.redisClient, []string{key}, token).Err(); err != nil && err != redis.Nil {
			m.logger.Warn("Failed to release report lock",
				zap.String("report_id", reportID),
				zap.Error(err),
			)
		}
	}

	return release, nil
}
