package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"relief-coordinator/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// AlertsRepository 告警仓库
// 已读标记存独立的 alert_seen 表：复合主键保证幂等追加，并发标记互不覆盖
type AlertsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertsRepository 创建告警仓库
func NewAlertsRepository(db *sql.DB, logger *zap.Logger) *AlertsRepository {
	return &AlertsRepository{
		db:     db,
		logger: logger,
	}
}

// CreateAlert 持久化告警
func (r *AlertsRepository) CreateAlert(ctx context.Context, alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert is required")
	}
	if alert.AlertID == "" {
		return fmt.Errorf("alert_id is required")
	}
	if alert.ReportID == "" {
		return fmt.Errorf("report_id is required")
	}

	query := `
		INSERT INTO alerts (
			alert_id,
			title,
			message,
			report_id,
			alert_type,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		alert.AlertID,
		alert.Title,
		alert.Message,
		alert.ReportID,
		alert.AlertType,
		alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

// ListAlertsForUser 按创建时间倒序列出告警，并带上该用户的已读时间
func (r *AlertsRepository) ListAlertsForUser(ctx context.Context, userID string) ([]*models.Alert, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	query := `
		SELECT
			a.alert_id,
			a.title,
			a.message,
			a.report_id,
			a.alert_type,
			a.created_at,
			s.seen_at
		FROM alerts a
		LEFT JOIN alert_seen s
		       ON s.alert_id = a.alert_id AND s.user_id = $1
		ORDER BY a.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*models.Alert{}
	for rows.Next() {
		var alert models.Alert
		var seenAt sql.NullTime

		err := rows.Scan(
			&alert.AlertID,
			&alert.Title,
			&alert.Message,
			&alert.ReportID,
			&alert.AlertType,
			&alert.CreatedAt,
			&seenAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}

		alert.SeenBy = []models.SeenEntry{}
		if seenAt.Valid {
			alert.SeenBy = append(alert.SeenBy, models.SeenEntry{
				UserID: userID,
				SeenAt: seenAt.Time,
			})
		}

		alerts = append(alerts, &alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, nil
}

// MarkSeen 幂等追加已读标记
// 重复标记命中主键冲突被忽略；不同用户的并发标记彼此独立
func (r *AlertsRepository) MarkSeen(ctx context.Context, alertID, userID string, seenAt time.Time) error {
	if alertID == "" {
		return fmt.Errorf("alert_id is required")
	}
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}

	query := `
		INSERT INTO alert_seen (alert_id, user_id, seen_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (alert_id, user_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query, alertID, userID, seenAt)
	if err != nil {
		// 外键违例：告警或用户不存在
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return fmt.Errorf("%w: alert %s or user %s", models.ErrNotFound, alertID, userID)
		}
		return fmt.Errorf("failed to mark alert seen: %w", err)
	}

	return nil
}

// GetSeenBy 获取一条告警的全部已读标记
func (r *AlertsRepository) GetSeenBy(ctx context.Context, alertID string) ([]models.SeenEntry, error) {
	if alertID == "" {
		return nil, fmt.Errorf("alert_id is required")
	}

	query := `
		SELECT user_id, seen_at
		FROM alert_seen
		WHERE alert_id = $1
		ORDER BY seen_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to query seen entries: %w", err)
	}
	defer rows.Close()

	entries := []models.SeenEntry{}
	for rows.Next() {
		var entry models.SeenEntry
		if err := rows.Scan(&entry.UserID, &entry.SeenAt); err != nil {
			return nil, fmt.Errorf("failed to scan seen entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate seen entries: %w", err)
	}

	return entries, nil
}
