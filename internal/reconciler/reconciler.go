// Package reconciler 捐赠对账：认捐与状态迁移
// 认捐是对报告的读-改-写，按报告加 Redis 锁串行化；报告侧为主记录，
// 捐赠者侧为镜像，主记录写成功后镜像失败只告警不回滚
package reconciler

import (
	"context"
	"fmt"
	"time"

	"relief-coordinator/internal/ledger"
	"relief-coordinator/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReportStore 报告存取
type ReportStore interface {
	GetReport(ctx context.Context, reportID string) (*models.Report, error)
	UpdateReport(ctx context.Context, report *models.Report) error
}

// DonorStore 捐赠者侧镜像存取
type DonorStore interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	AppendDonationMade(ctx context.Context, userID string, record models.DonationMade) error
	UpdateDonationStatus(ctx context.Context, userID, donationID string, status models.DonationStatus) error
}

// AlertRaiser 告警触发（派发失败不影响对账结果）
type AlertRaiser interface {
	Raise(ctx context.Context, alertType models.AlertType, title, message, reportID string) (*models.Alert, error)
}

// Reconciler 捐赠对账器
type Reconciler struct {
	locks   *LockManager
	reports ReportStore
	donors  DonorStore
	alerts  AlertRaiser
	logger  *zap.Logger
}

// NewReconciler 创建对账器
func NewReconciler(locks *LockManager, reports ReportStore, donors DonorStore, alerts AlertRaiser, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		locks:   locks,
		reports: reports,
		donors:  donors,
		alerts:  alerts,
		logger:  logger,
	}
}

// PledgeInput 认捐请求
type PledgeInput struct {
	ReportID string          `json:"report_id"`
	DonorID  string          `json:"donor_id"`
	Category models.Category `json:"category"`
	Quantity float64         `json:"quantity"`
}

// Validate 校验认捐请求
func (in *PledgeInput) Validate() error {
	if in.ReportID == "" {
		return fmt.Errorf("%w: report_id is required", models.ErrValidation)
	}
	if in.DonorID == "" {
		return fmt.Errorf("%w: donor_id is required", models.ErrValidation)
	}
	if !models.IsValidCategory(in.Category) || in.Category == models.CategoryOther {
		return fmt.Errorf("%w: invalid donation category %q", models.ErrValidation, in.Category)
	}
	if in.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", models.ErrValidation)
	}
	return nil
}

// Pledge 登记一笔认捐
// 报告锁内：加载报告与捐赠者 → 校验类别已配置 → 追加记录并累加 fulfilled →
// 重算台账 → 持久化
// 锁外：镜像到捐赠者历史、触发 donation_received 告警（两者均尽力而为）
func (r *Reconciler) Pledge(ctx context.Context, in *PledgeInput) (*models.DonationRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	release, err := r.locks.Acquire(ctx, in.ReportID)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize pledge: %w", err)
	}

	record, report, donor, err := r.pledgeLocked(ctx, in)
	release()
	if err != nil {
		return nil, err
	}

	r.mirrorPledge(ctx, in.DonorID, record, in.ReportID)
	r.raisePledgeAlert(ctx, report, donor, record)

	return record, nil
}

func (r *Reconciler) pledgeLocked(ctx context.Context, in *PledgeInput) (*models.DonationRecord, *models.Report, *models.User, error) {
	report, err := r.reports.GetReport(ctx, in.ReportID)
	if err != nil {
		return nil, nil, nil, err
	}

	// 主记录写之前确认捐赠者存在：错误的 donor_id 直接报 not found，
	// 而不是留下一条永远无法镜像的认捐
	donor, err := r.donors.GetUser(ctx, in.DonorID)
	if err != nil {
		return nil, nil, nil, err
	}

	req := report.Requirements.Get(in.Category)
	if req == nil {
		return nil, nil, nil, fmt.Errorf("%w: category %q is not configured on report %s",
			models.ErrUnknownCategory, in.Category, in.ReportID)
	}

	record := models.DonationRecord{
		DonationID: uuid.New().String(),
		DonorID:    in.DonorID,
		Category:   in.Category,
		Quantity:   in.Quantity,
		Status:     models.DonationPledged,
		DonatedOn:  time.Now(),
	}
	report.Donations = append(report.Donations, record)
	req.Fulfilled += in.Quantity
	ledger.Recompute(&report.Requirements)

	if err := r.reports.UpdateReport(ctx, report); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to persist pledge: %w", err)
	}

	return &record, report, donor, nil
}

// mirrorPledge 写捐赠者侧镜像；失败记对账告警，不回滚认捐
func (r *Reconciler) mirrorPledge(ctx context.Context, donorID string, record *models.DonationRecord, reportID string) {
	mirror := models.DonationMade{
		DonationID: record.DonationID,
		ReportID:   reportID,
		Category:   record.Category,
		Quantity:   record.Quantity,
		Status:     record.Status,
		DonatedOn:  record.DonatedOn,
	}
	if err := r.donors.AppendDonationMade(ctx, donorID, mirror); err != nil {
		r.logger.Warn("Donor mirror out of sync after pledge",
			zap.String("report_id", reportID),
			zap.String("donor_id", donorID),
			zap.String("donation_id", record.DonationID),
			zap.Error(err),
		)
	}
}

func (r *Reconciler) raisePledgeAlert(ctx context.Context, report *models.Report, donor *models.User, record *models.DonationRecord) {
	if r.alerts == nil {
		return
	}
	title := fmt.Sprintf("Donation received for %s", report.Name)
	message := fmt.Sprintf("%s has pledged %g %s for disaster report %q.",
		donor.DisplayName(), record.Quantity, record.Category, report.Name)
	if _, err := r.alerts.Raise(ctx, models.AlertDonationReceived, title, message, report.ReportID); err != nil {
		r.logger.Warn("Failed to raise donation alert",
			zap.String("report_id", report.ReportID),
			zap.String("donation_id", record.DonationID),
			zap.Error(err),
		)
	}
}

// AdvanceStatus 推进报告内第 index 条捐赠记录的状态
// 仅允许前进迁移；成功后按 donation_id 同步捐赠者侧镜像
func (r *Reconciler) AdvanceStatus(ctx context.Context, reportID string, index int, next models.DonationStatus) error {
	if reportID == "" {
		return fmt.Errorf("%w: report_id is required", models.ErrValidation)
	}

	release, err := r.locks.Acquire(ctx, reportID)
	if err != nil {
		return fmt.Errorf("failed to serialize status update: %w", err)
	}

	record, err := r.advanceLocked(ctx, reportID, index, next)
	release()
	if err != nil {
		return err
	}

	if err := r.donors.UpdateDonationStatus(ctx, record.DonorID, record.DonationID, next); err != nil {
		r.logger.Warn("Donor mirror out of sync after status update",
			zap.String("report_id", reportID),
			zap.String("donor_id", record.DonorID),
			zap.String("donation_id", record.DonationID),
			zap.String("status", string(next)),
			zap.Error(err),
		)
	}

	return nil
}

func (r *Reconciler) advanceLocked(ctx context.Context, reportID string, index int, next models.DonationStatus) (*models.DonationRecord, error) {
	report, err := r.reports.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(report.Donations) {
		return nil, fmt.Errorf("%w: donation index %d out of range for report %s",
			models.ErrNotFound, index, reportID)
	}

	record := &report.Donations[index]
	if !record.Status.CanAdvanceTo(next) {
		return nil, fmt.Errorf("%w: donation status cannot move from %s to %s",
			models.ErrInvalidTransition, record.Status, next)
	}
	record.Status = next

	if err := r.reports.UpdateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to persist status update: %w", err)
	}

	return record, nil
}
