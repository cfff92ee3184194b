package models

import "time"

// DonationMade 捐赠者侧的捐赠历史镜像
// 与报告内嵌记录通过 DonationID 关联，状态在每次迁移时同步
type DonationMade struct {
	DonationID string         `json:"donation_id"`
	ReportID   string         `json:"report_id"`
	Category   Category       `json:"category"`
	Quantity   float64        `json:"quantity"`
	Status     DonationStatus `json:"status"`
	DonatedOn  time.Time      `json:"donated_on"`
}

// User 用户（对应 users 表）
type User struct {
	UserID        string         `json:"user_id" db:"user_id"`
	Username      string         `json:"username" db:"username"`
	Email         string         `json:"email" db:"email"`
	Name          string         `json:"name" db:"name"`
	Phone         string         `json:"phone,omitempty" db:"phone"`
	UserType      UserType       `json:"user_type" db:"user_type"`
	DonationsMade []DonationMade `json:"donations_made"` // JSONB，仅 donor 使用
	RegisteredOn  time.Time      `json:"registered_on" db:"registered_on"`
}

// DisplayName 通知文案中的称呼（优先 name，回退 username）
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
