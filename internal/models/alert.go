package models

import "time"

// SeenEntry 单个用户的已读标记（每用户至多一条）
type SeenEntry struct {
	UserID string    `json:"user_id"`
	SeenAt time.Time `json:"seen_at"`
}

// Alert 告警（对应 alerts 表；已读状态存 alert_seen 表，读取时填充）
type Alert struct {
	AlertID   string      `json:"alert_id" db:"alert_id"`
	Title     string      `json:"title" db:"title"`
	Message   string      `json:"message" db:"message"`
	ReportID  string      `json:"report_id" db:"report_id"`
	AlertType AlertType   `json:"alert_type" db:"alert_type"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	SeenBy    []SeenEntry `json:"seen_by"`
}

// SeenByUser 检查指定用户是否已读
func (a *Alert) SeenByUser(userID string) bool {
	for _, entry := range a.SeenBy {
		if entry.UserID == userID {
			return true
		}
	}
	return false
}
