// Package ledger 维护报告的物资需求台账
// 台账规则：remaining_needed = max(0, quantity - fulfilled)，
// 每次 quantity 或 fulfilled 变化后重算；fulfilled 超过 quantity 时允许
// 超额（不截断 fulfilled），remaining_needed 钳制为 0。
package ledger

import (
	"relief-coordinator/internal/models"
)

// CategoryInput 表单提交的单类别需求块
type CategoryInput struct {
	Needed   bool    `json:"needed"`
	Quantity float64 `json:"quantity"`
	Details  string  `json:"details,omitempty"` // 仅 other 使用
}

// RequirementsInput 表单提交的需求部分
// 未出现的类别保持 nil：台账中同样省略，不默认为 needed=false
type RequirementsInput struct {
	Food       *CategoryInput `json:"food,omitempty"`
	Water      *CategoryInput `json:"water,omitempty"`
	Medicine   *CategoryInput `json:"medicine,omitempty"`
	Clothing   *CategoryInput `json:"clothing,omitempty"`
	Shelter    *CategoryInput `json:"shelter,omitempty"`
	Volunteers *CategoryInput `json:"volunteers,omitempty"`
	Other      *CategoryInput `json:"other,omitempty"`
}

func (in *RequirementsInput) get(c models.Category) *CategoryInput {
	if in == nil {
		return nil
	}
	switch c {
	case models.CategoryFood:
		return in.Food
	case models.CategoryWater:
		return in.Water
	case models.CategoryMedicine:
		return in.Medicine
	case models.CategoryClothing:
		return in.Clothing
	case models.CategoryShelter:
		return in.Shelter
	case models.CategoryVolunteers:
		return in.Volunteers
	}
	return nil
}

// Recompute 重算台账中每个已配置类别的 remaining_needed
// 幂等：输入不变时重复调用结果不变
func Recompute(set *models.RequirementSet) {
	if set == nil {
		return
	}
	for _, c := range models.QuantifiedCategories {
		req := set.Get(c)
		if req == nil {
			continue
		}
		if !req.Needed {
			req.RemainingNeeded = 0
			continue
		}
		remaining := req.Quantity - req.Fulfilled
		if remaining < 0 {
			remaining = 0
		}
		req.RemainingNeeded = remaining
	}
}

// HasOutstandingNeed 报告是否仍有未满足的需求
// 可量化类别：needed 且 remaining_needed > 0；other：needed 且未满足
func HasOutstandingNeed(set *models.RequirementSet) bool {
	if set == nil {
		return false
	}
	for _, c := range models.QuantifiedCategories {
		req := set.Get(c)
		if req != nil && req.Needed && req.RemainingNeeded > 0 {
			return true
		}
	}
	if set.Other != nil && set.Other.Needed && !set.Other.Fulfilled {
		return true
	}
	return false
}

// Build 从提交的表单构建新台账（创建路径）
// 出现的类别以 fulfilled=0 起始；未出现的类别省略
func Build(in *RequirementsInput) models.RequirementSet {
	var set models.RequirementSet
	assign(&set, in, func(models.Category) float64 { return 0 })
	if in != nil && in.Other != nil {
		set.Other = &models.OtherRequirement{
			Needed:  in.Other.Needed,
			Details: in.Other.Details,
		}
	}
	Recompute(&set)
	return set
}

// MergeForEdit 从编辑表单重建台账
// needed/quantity/details 以表单为准，已累计的 fulfilled 按类别保留；
// 表单中省略的类别从台账中移除（与创建路径同样的不对称性）
func MergeForEdit(existing *models.RequirementSet, in *RequirementsInput) models.RequirementSet {
	var set models.RequirementSet
	assign(&set, in, func(c models.Category) float64 {
		if existing == nil {
			return 0
		}
		if prev := existing.Get(c); prev != nil {
			return prev.Fulfilled
		}
		return 0
	})
	if in != nil && in.Other != nil {
		fulfilled := false
		if existing != nil && existing.Other != nil {
			fulfilled = existing.Other.Fulfilled
		}
		set.Other = &models.OtherRequirement{
			Needed:    in.Other.Needed,
			Details:   in.Other.Details,
			Fulfilled: fulfilled,
		}
	}
	Recompute(&set)
	return set
}

// assign 填充可量化类别，fulfilled 初值由 carry 决定
func assign(set *models.RequirementSet, in *RequirementsInput, carry func(models.Category) float64) {
	for _, c := range models.QuantifiedCategories {
		block := in.get(c)
		if block == nil {
			continue
		}
		qty := block.Quantity
		if qty < 0 {
			qty = 0
		}
		req := &models.Requirement{
			Needed:    block.Needed,
			Quantity:  qty,
			Fulfilled: carry(c),
		}
		switch c {
		case models.CategoryFood:
			set.Food = req
		case models.CategoryWater:
			set.Water = req
		case models.CategoryMedicine:
			set.Medicine = req
		case models.CategoryClothing:
			set.Clothing = req
		case models.CategoryShelter:
			set.Shelter = req
		case models.CategoryVolunteers:
			set.Volunteers = req
		}
	}
}
