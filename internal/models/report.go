package models

import (
	"time"
)

// Category 救援物资类别（固定枚举）
type Category string

const (
	CategoryFood       Category = "food"
	CategoryWater      Category = "water"
	CategoryMedicine   Category = "medicine"
	CategoryClothing   Category = "clothing"
	CategoryShelter    Category = "shelter"
	CategoryVolunteers Category = "volunteers"
	CategoryOther      Category = "other"
)

// QuantifiedCategories 可量化类别（不含 other）
var QuantifiedCategories = []Category{
	CategoryFood,
	CategoryWater,
	CategoryMedicine,
	CategoryClothing,
	CategoryShelter,
	CategoryVolunteers,
}

// IsValidCategory 检查类别是否属于固定枚举
func IsValidCategory(c Category) bool {
	switch c {
	case CategoryFood, CategoryWater, CategoryMedicine, CategoryClothing,
		CategoryShelter, CategoryVolunteers, CategoryOther:
		return true
	}
	return false
}

// Requirement 可量化的物资需求
// remaining_needed 是派生值：max(0, quantity - fulfilled)，由 ledger.Recompute 维护
type Requirement struct {
	Needed          bool    `json:"needed"`
	Quantity        float64 `json:"quantity"`
	Fulfilled       float64 `json:"fulfilled"`
	RemainingNeeded float64 `json:"remaining_needed"`
}

// OtherRequirement 非量化需求（布尔满足）
type OtherRequirement struct {
	Needed    bool   `json:"needed"`
	Details   string `json:"details,omitempty"`
	Fulfilled bool   `json:"fulfilled"`
}

// RequirementSet 报告的需求台账（每类别一项；表单未提交的类别为 nil，不默认填充）
type RequirementSet struct {
	Food       *Requirement      `json:"food,omitempty"`
	Water      *Requirement      `json:"water,omitempty"`
	Medicine   *Requirement      `json:"medicine,omitempty"`
	Clothing   *Requirement      `json:"clothing,omitempty"`
	Shelter    *Requirement      `json:"shelter,omitempty"`
	Volunteers *Requirement      `json:"volunteers,omitempty"`
	Other      *OtherRequirement `json:"other,omitempty"`
}

// Get 按类别取可量化需求（other 不在此列；缺失返回 nil）
func (s *RequirementSet) Get(c Category) *Requirement {
	if s == nil {
		return nil
	}
	switch c {
	case CategoryFood:
		return s.Food
	case CategoryWater:
		return s.Water
	case CategoryMedicine:
		return s.Medicine
	case CategoryClothing:
		return s.Clothing
	case CategoryShelter:
		return s.Shelter
	case CategoryVolunteers:
		return s.Volunteers
	}
	return nil
}

// Has 检查类别是否在台账中配置过（含 other）
func (s *RequirementSet) Has(c Category) bool {
	if s == nil {
		return false
	}
	if c == CategoryOther {
		return s.Other != nil
	}
	return s.Get(c) != nil
}

// Location 地理位置
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DonationRecord 报告内嵌的捐赠记录
// DonationID 是稳定的认捐标识，用于关联捐赠者侧的镜像记录
type DonationRecord struct {
	DonationID string         `json:"donation_id"`
	DonorID    string         `json:"donor_id"`
	Category   Category       `json:"category"`
	Quantity   float64        `json:"quantity"`
	Status     DonationStatus `json:"status"`
	DonatedOn  time.Time      `json:"donated_on"`
}

// Report 灾情报告（对应 reports 表）
type Report struct {
	ReportID     string           `json:"report_id" db:"report_id"`
	Name         string           `json:"name" db:"name"`
	DisasterType string           `json:"disaster_type" db:"disaster_type"`
	Message      string           `json:"message" db:"message"`
	Location     Location         `json:"location"`
	Status       ReportStatus     `json:"status" db:"status"`
	Image        *string          `json:"image,omitempty" db:"image"`
	ReportedBy   string           `json:"reported_by" db:"reported_by"`
	Requirements RequirementSet   `json:"requirements"` // JSONB
	Donations    []DonationRecord `json:"donations"`    // JSONB
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}
