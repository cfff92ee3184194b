package models

import "fmt"

// ReportStatus 报告生命周期状态
type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportCritical ReportStatus = "critical"
	ReportResolved ReportStatus = "resolved"
)

// ParseReportStatus 解析并校验报告状态
func ParseReportStatus(s string) (ReportStatus, error) {
	switch ReportStatus(s) {
	case ReportPending, ReportCritical, ReportResolved:
		return ReportStatus(s), nil
	}
	return "", fmt.Errorf("%w: invalid report status %q", ErrValidation, s)
}

// DonationStatus 捐赠记录状态（统一枚举）
// pledged → delivered → confirmed，单调前进，不可回退
type DonationStatus string

const (
	DonationPledged   DonationStatus = "pledged"
	DonationDelivered DonationStatus = "delivered"
	DonationConfirmed DonationStatus = "confirmed"
)

// donationStatusRank 状态序号（用于前进校验）
var donationStatusRank = map[DonationStatus]int{
	DonationPledged:   0,
	DonationDelivered: 1,
	DonationConfirmed: 2,
}

// CanAdvanceTo 仅允许严格前进的状态迁移
func (s DonationStatus) CanAdvanceTo(next DonationStatus) bool {
	from, ok := donationStatusRank[s]
	if !ok {
		return false
	}
	to, ok := donationStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// legacyDonationStatus 边界映射表
// 旧系统存在两套词汇（报告侧 pending/delivered/confirmed 与捐赠实体侧
// pledged/in-transit/delivered/verified），统一归一化到规范枚举
var legacyDonationStatus = map[string]DonationStatus{
	"pending":    DonationPledged,
	"pledged":    DonationPledged,
	"in-transit": DonationPledged,
	"delivered":  DonationDelivered,
	"confirmed":  DonationConfirmed,
	"verified":   DonationConfirmed,
}

// ParseDonationStatus 解析捐赠状态（接受旧词汇，返回规范值）
func ParseDonationStatus(s string) (DonationStatus, error) {
	if status, ok := legacyDonationStatus[s]; ok {
		return status, nil
	}
	return "", fmt.Errorf("%w: invalid donation status %q", ErrValidation, s)
}

// AlertType 告警类型
type AlertType string

const (
	AlertNewDisaster      AlertType = "new_disaster"
	AlertUpdate           AlertType = "update"
	AlertDonationNeeded   AlertType = "donation_needed" // 保留枚举值；当前没有任何流程触发
	AlertDonationReceived AlertType = "donation_received"
)

// UserType 用户角色
type UserType string

const (
	UserDonor UserType = "donor"
	UserAdmin UserType = "admin"
)
