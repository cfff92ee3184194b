package service

import (
	"context"
	"fmt"
	"time"

	"relief-coordinator/internal/ledger"
	"relief-coordinator/internal/models"
	"relief-coordinator/internal/reconciler"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReportInput 报告提交/编辑表单
type ReportInput struct {
	Name         string                    `json:"name"`
	DisasterType string                    `json:"disaster_type"`
	Message      string                    `json:"message"`
	Location     models.Location           `json:"location"`
	Status       string                    `json:"status,omitempty"`
	Image        *string                   `json:"image,omitempty"`
	ReportedBy   string                    `json:"reported_by"`
	Requirements *ledger.RequirementsInput `json:"requirements,omitempty"`
}

// Validate 校验报告表单
func (in *ReportInput) Validate() error {
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", models.ErrValidation)
	}
	if in.DisasterType == "" {
		return fmt.Errorf("%w: disaster_type is required", models.ErrValidation)
	}
	if in.Message == "" {
		return fmt.Errorf("%w: message is required", models.ErrValidation)
	}
	if in.ReportedBy == "" {
		return fmt.Errorf("%w: reported_by is required", models.ErrValidation)
	}
	return nil
}

// SubmitReport 提交灾情报告
// 创建报告（需求台账以 fulfilled=0 起始）并触发 new_disaster 告警
func (s *ReliefService) SubmitReport(ctx context.Context, in *ReportInput) (*models.Report, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	status := models.ReportPending
	if in.Status != "" {
		parsed, err := models.ParseReportStatus(in.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	now := time.Now()
	report := &models.Report{
		ReportID:     uuid.New().String(),
		Name:         in.Name,
		DisasterType: in.DisasterType,
		Message:      in.Message,
		Location:     in.Location,
		Status:       status,
		Image:        in.Image,
		ReportedBy:   in.ReportedBy,
		Requirements: ledger.Build(in.Requirements),
		Donations:    []models.DonationRecord{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.reports.CreateReport(ctx, report); err != nil {
		return nil, err
	}

	s.raiseAlert(ctx, models.AlertNewDisaster,
		fmt.Sprintf("New Disaster: %s", report.Name),
		fmt.Sprintf("A new %s disaster has been reported: %s", report.DisasterType, report.Message),
		report.ReportID,
	)

	return report, nil
}

// EditReport 编辑灾情报告
// 需求按表单重建但保留各类别已累计的 fulfilled；状态迁入 resolved 时
// 触发一次 update 告警（已 resolved 的报告重复保存不再触发）
func (s *ReliefService) EditReport(ctx context.Context, reportID string, in *ReportInput) (*models.Report, error) {
	if reportID == "" {
		return nil, fmt.Errorf("%w: report_id is required", models.ErrValidation)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	report, err := s.reports.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	wasResolved := report.Status == models.ReportResolved

	if in.Status != "" {
		status, err := models.ParseReportStatus(in.Status)
		if err != nil {
			return nil, err
		}
		report.Status = status
	}

	report.Name = in.Name
	report.DisasterType = in.DisasterType
	report.Message = in.Message
	report.Location = in.Location
	if in.Image != nil {
		report.Image = in.Image
	}
	report.Requirements = ledger.MergeForEdit(&report.Requirements, in.Requirements)
	report.UpdatedAt = time.Now()

	if err := s.reports.UpdateReport(ctx, report); err != nil {
		return nil, err
	}

	if report.Status == models.ReportResolved && !wasResolved {
		s.raiseAlert(ctx, models.AlertUpdate,
			fmt.Sprintf("Disaster Resolved: %s", report.Name),
			fmt.Sprintf("The %s disaster %q has been marked as resolved.", report.DisasterType, report.Name),
			report.ReportID,
		)
	}

	return report, nil
}

// GetReport 查询单个报告
func (s *ReliefService) GetReport(ctx context.Context, reportID string) (*models.Report, error) {
	if reportID == "" {
		return nil, fmt.Errorf("%w: report_id is required", models.ErrValidation)
	}
	return s.reports.GetReport(ctx, reportID)
}

// DeleteReport 删除报告（管理员操作，级联删除其告警）
func (s *ReliefService) DeleteReport(ctx context.Context, reportID string) error {
	if reportID == "" {
		return fmt.Errorf("%w: report_id is required", models.ErrValidation)
	}
	return s.reports.DeleteReport(ctx, reportID)
}

// 报告列表过滤器
const (
	FilterAll       = "all"
	FilterNeeds     = "needs"
	FilterFulfilled = "fulfilled"
)

// FilterReports 按需求满足情况过滤报告列表（最新在前）
func (s *ReliefService) FilterReports(ctx context.Context, filter string) ([]*models.Report, error) {
	if filter == "" {
		filter = FilterAll
	}
	switch filter {
	case FilterAll, FilterNeeds, FilterFulfilled:
	default:
		return nil, fmt.Errorf("%w: invalid filter %q", models.ErrValidation, filter)
	}

	reports, err := s.reports.ListReports(ctx)
	if err != nil {
		return nil, err
	}
	if filter == FilterAll {
		return reports, nil
	}

	filtered := make([]*models.Report, 0, len(reports))
	for _, report := range reports {
		outstanding := ledger.HasOutstandingNeed(&report.Requirements)
		if (filter == FilterNeeds && outstanding) || (filter == FilterFulfilled && !outstanding) {
			filtered = append(filtered, report)
		}
	}
	return filtered, nil
}

// PledgeDonation 登记认捐
func (s *ReliefService) PledgeDonation(ctx context.Context, reportID, donorID string, category models.Category, quantity float64) (*models.DonationRecord, error) {
	return s.donations.Pledge(ctx, &reconciler.PledgeInput{
		ReportID: reportID,
		DonorID:  donorID,
		Category: category,
		Quantity: quantity,
	})
}

// AdvanceDonationStatus 推进捐赠状态（接受旧词汇，归一化后校验前进性）
func (s *ReliefService) AdvanceDonationStatus(ctx context.Context, reportID string, index int, status string) error {
	next, err := models.ParseDonationStatus(status)
	if err != nil {
		return err
	}
	return s.donations.AdvanceStatus(ctx, reportID, index, next)
}

// raiseAlert 触发告警；失败只记日志，不影响主流程
func (s *ReliefService) raiseAlert(ctx context.Context, alertType models.AlertType, title, message, reportID string) {
	if _, err := s.alerts.Raise(ctx, alertType, title, message, reportID); err != nil {
		s.logger.Warn("Failed to raise alert",
			zap.String("alert_type", string(alertType)),
			zap.String("report_id", reportID),
			zap.Error(err),
		)
	}
}
