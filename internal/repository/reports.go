package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"relief-coordinator/internal/models"

	"go.uber.org/zap"
)

// ReportsRepository 灾情报告仓库
type ReportsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReportsRepository 创建报告仓库
func NewReportsRepository(db *sql.DB, logger *zap.Logger) *ReportsRepository {
	return &ReportsRepository{
		db:     db,
		logger: logger,
	}
}

const reportColumns = `
		report_id,
		name,
		disaster_type,
		message,
		lat,
		lng,
		status,
		image,
		reported_by,
		requirements,
		donations,
		created_at,
		updated_at`

// CreateReport 创建报告
func (r *ReportsRepository) CreateReport(ctx context.Context, report *models.Report) error {
	if report == nil {
		return fmt.Errorf("report is required")
	}
	if report.ReportID == "" {
		return fmt.Errorf("report_id is required")
	}

	requirementsJSON, donationsJSON, err := marshalReportJSON(report)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO reports (` + reportColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`

	_, err = r.db.ExecContext(ctx, query,
		report.ReportID,
		report.Name,
		report.DisasterType,
		report.Message,
		report.Location.Lat,
		report.Location.Lng,
		report.Status,
		report.Image,
		report.ReportedBy,
		requirementsJSON,
		donationsJSON,
		report.CreatedAt,
		report.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	return nil
}

// GetReport 根据 report_id 获取报告
func (r *ReportsRepository) GetReport(ctx context.Context, reportID string) (*models.Report, error) {
	if reportID == "" {
		return nil, fmt.Errorf("report_id is required")
	}

	query := `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE report_id = $1
	`

	row := r.db.QueryRowContext(ctx, query, reportID)
	report, err := scanReport(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: report %s", models.ErrNotFound, reportID)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return report, nil
}

// UpdateReport 全量更新报告（需求台账与捐赠序列作为一个单元写回）
func (r *ReportsRepository) UpdateReport(ctx context.Context, report *models.Report) error {
	if report == nil {
		return fmt.Errorf("report is required")
	}
	if report.ReportID == "" {
		return fmt.Errorf("report_id is required")
	}

	requirementsJSON, donationsJSON, err := marshalReportJSON(report)
	if err != nil {
		return err
	}

	query := `
		UPDATE reports
		SET name = $2,
		    disaster_type = $3,
		    message = $4,
		    lat = $5,
		    lng = $6,
		    status = $7,
		    image = $8,
		    requirements = $9,
		    donations = $10,
		    updated_at = CURRENT_TIMESTAMP
		WHERE report_id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		report.ReportID,
		report.Name,
		report.DisasterType,
		report.Message,
		report.Location.Lat,
		report.Location.Lng,
		report.Status,
		report.Image,
		requirementsJSON,
		donationsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: report %s", models.ErrNotFound, report.ReportID)
	}

	return nil
}

// DeleteReport 删除报告（管理员显式移除，硬删除）
func (r *ReportsRepository) DeleteReport(ctx context.Context, reportID string) error {
	if reportID == "" {
		return fmt.Errorf("report_id is required")
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM reports WHERE report_id = $1`, reportID)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: report %s", models.ErrNotFound, reportID)
	}

	return nil
}

// ListReports 按创建时间倒序列出全部报告
func (r *ReportsRepository) ListReports(ctx context.Context) ([]*models.Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM reports
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := []*models.Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}

	return reports, nil
}

// scanner 兼容 *sql.Row 和 *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row scanner) (*models.Report, error) {
	var report models.Report
	var image sql.NullString
	var requirementsJSON, donationsJSON []byte

	err := row.Scan(
		&report.ReportID,
		&report.Name,
		&report.DisasterType,
		&report.Message,
		&report.Location.Lat,
		&report.Location.Lng,
		&report.Status,
		&image,
		&report.ReportedBy,
		&requirementsJSON,
		&donationsJSON,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if image.Valid {
		report.Image = &image.String
	}

	// 处理 JSONB 字段
	if len(requirementsJSON) > 0 {
		if err := json.Unmarshal(requirementsJSON, &report.Requirements); err != nil {
			return nil, fmt.Errorf("failed to unmarshal requirements: %w", err)
		}
	}
	report.Donations = []models.DonationRecord{}
	if len(donationsJSON) > 0 {
		if err := json.Unmarshal(donationsJSON, &report.Donations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal donations: %w", err)
		}
	}

	return &report, nil
}

func marshalReportJSON(report *models.Report) ([]byte, []byte, error) {
	requirementsJSON, err := json.Marshal(report.Requirements)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal requirements: %w", err)
	}
	donations := report.Donations
	if donations == nil {
		donations = []models.DonationRecord{}
	}
	donationsJSON, err := json.Marshal(donations)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal donations: %w", err)
	}
	return requirementsJSON, donationsJSON, nil
}
