// Package service 救援协调服务（整合各层）
package service

import (
	"context"
	"database/sql"
	"fmt"

	"relief-coordinator/internal/common/database"
	"relief-coordinator/internal/common/redisx"
	"relief-coordinator/internal/config"
	"relief-coordinator/internal/dispatcher"
	"relief-coordinator/internal/models"
	"relief-coordinator/internal/notifier"
	"relief-coordinator/internal/reconciler"
	"relief-coordinator/internal/repository"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ReportStore 报告存取
type ReportStore interface {
	CreateReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, reportID string) (*models.Report, error)
	UpdateReport(ctx context.Context, report *models.Report) error
	DeleteReport(ctx context.Context, reportID string) error
	ListReports(ctx context.Context) ([]*models.Report, error)
}

// UserStore 用户存取
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// AlertDispatcher 告警触发与查询
type AlertDispatcher interface {
	Raise(ctx context.Context, alertType models.AlertType, title, message, reportID string) (*models.Alert, error)
	ListAlertsFor(ctx context.Context, userID string) ([]*models.Alert, error)
	MarkSeen(ctx context.Context, alertID, userID string) error
	SeenBy(ctx context.Context, alertID string) ([]models.SeenEntry, error)
	Wait()
}

// DonationReconciler 捐赠对账
type DonationReconciler interface {
	Pledge(ctx context.Context, in *reconciler.PledgeInput) (*models.DonationRecord, error)
	AdvanceStatus(ctx context.Context, reportID string, index int, next models.DonationStatus) error
}

// ReliefService 救援协调服务
type ReliefService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger

	// 各层组件
	reports   ReportStore
	users     UserStore
	alerts    AlertDispatcher
	donations DonationReconciler
	push      *notifier.MQTTNotifier
}

// NewReliefService 创建救援协调服务
func NewReliefService(cfg *config.Config, logger *zap.Logger) (*ReliefService, error) {
	// 1. 连接数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, err
	}

	// 2. 连接 Redis
	redisClient := redisx.NewRedisClient(&cfg.Redis)
	if err := redisx.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 3. 创建 Repository 层
	reportsRepo := repository.NewReportsRepository(db, logger)
	usersRepo := repository.NewUsersRepository(db, logger)
	alertsRepo := repository.NewAlertsRepository(db, logger)

	// 4. 组装通知通道（按配置启用）
	var push *notifier.MQTTNotifier
	var channels []notifier.Channel
	if cfg.SMTP.Enabled {
		channels = append(channels, notifier.NewEmailNotifier(&cfg.SMTP))
	}
	if cfg.MQTT.Enabled {
		push, err = notifier.NewMQTTNotifier(&cfg.MQTT)
		if err != nil {
			return nil, err
		}
		channels = append(channels, push)
	}
	var send dispatcher.Notifier
	if multi := notifier.NewMulti(channels...); !multi.Empty() {
		send = multi
	}

	// 5. 创建 Dispatcher 和 Reconciler
	disp := dispatcher.NewDispatcher(cfg, alertsRepo, usersRepo, send, redisClient, logger)
	locks := reconciler.NewLockManager(cfg, redisClient, logger)
	recon := reconciler.NewReconciler(locks, reportsRepo, usersRepo, disp, logger)

	return &ReliefService{
		config:      cfg,
		db:          db,
		redisClient: redisClient,
		logger:      logger,
		reports:     reportsRepo,
		users:       usersRepo,
		alerts:      disp,
		donations:   recon,
		push:        push,
	}, nil
}

// Stop 停止服务（等待在途通知后释放连接）
func (s *ReliefService) Stop() error {
	s.logger.Info("Stopping relief coordinator service")

	s.alerts.Wait()

	if s.push != nil {
		s.push.Close()
	}

	if err := database.Close(s.db); err != nil {
		s.logger.Error("Failed to close database",
			zap.Error(err),
		)
	}

	if err := redisx.Close(s.redisClient); err != nil {
		s.logger.Error("Failed to close redis",
			zap.Error(err),
		)
	}

	return nil
}
