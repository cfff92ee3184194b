package ledger

import (
	"testing"

	"relief-coordinator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecompute_Basic(t *testing.T) {
	set := &models.RequirementSet{
		Food: &models.Requirement{Needed: true, Quantity: 100, Fulfilled: 30},
	}

	Recompute(set)

	assert.Equal(t, float64(70), set.Food.RemainingNeeded)
}

func TestRecompute_ClampsAtZero(t *testing.T) {
	// 超额认捐：fulfilled 超过 quantity 时 remaining 钳制为 0，不得为负
	set := &models.RequirementSet{
		Water: &models.Requirement{Needed: true, Quantity: 50, Fulfilled: 80},
	}

	Recompute(set)

	assert.Equal(t, float64(0), set.Water.RemainingNeeded)
	assert.Equal(t, float64(80), set.Water.Fulfilled)
}

func TestRecompute_Idempotent(t *testing.T) {
	set := &models.RequirementSet{
		Medicine: &models.Requirement{Needed: true, Quantity: 20, Fulfilled: 5},
	}

	Recompute(set)
	first := *set.Medicine
	Recompute(set)

	assert.Equal(t, first, *set.Medicine)
}

func TestRecompute_NotNeededCategory(t *testing.T) {
	set := &models.RequirementSet{
		Clothing: &models.Requirement{Needed: false, Quantity: 10, Fulfilled: 0, RemainingNeeded: 10},
	}

	Recompute(set)

	assert.Equal(t, float64(0), set.Clothing.RemainingNeeded)
}

func TestHasOutstandingNeed(t *testing.T) {
	set := &models.RequirementSet{
		Food:  &models.Requirement{Needed: true, Quantity: 100, Fulfilled: 100},
		Water: &models.Requirement{Needed: true, Quantity: 50, Fulfilled: 20, RemainingNeeded: 30},
	}
	Recompute(set)

	assert.True(t, HasOutstandingNeed(set))

	set.Water.Fulfilled = 50
	Recompute(set)

	assert.False(t, HasOutstandingNeed(set))
}

func TestHasOutstandingNeed_OtherCategory(t *testing.T) {
	set := &models.RequirementSet{
		Other: &models.OtherRequirement{Needed: true, Details: "rescue boats"},
	}

	assert.True(t, HasOutstandingNeed(set))

	set.Other.Fulfilled = true

	assert.False(t, HasOutstandingNeed(set))
}

func TestHasOutstandingNeed_EmptySet(t *testing.T) {
	assert.False(t, HasOutstandingNeed(&models.RequirementSet{}))
	assert.False(t, HasOutstandingNeed(nil))
}

func TestBuild_OmittedCategoryStaysAbsent(t *testing.T) {
	// 表单未提交 water 块：台账中 water 必须缺失，而不是 needed=false
	in := &RequirementsInput{
		Food: &CategoryInput{Needed: true, Quantity: 100},
	}

	set := Build(in)

	require.NotNil(t, set.Food)
	assert.Nil(t, set.Water)
	assert.False(t, set.Has(models.CategoryWater))
	assert.Equal(t, float64(0), set.Food.Fulfilled)
	assert.Equal(t, float64(100), set.Food.RemainingNeeded)
}

func TestBuild_OtherCategory(t *testing.T) {
	in := &RequirementsInput{
		Other: &CategoryInput{Needed: true, Details: "generators"},
	}

	set := Build(in)

	require.NotNil(t, set.Other)
	assert.True(t, set.Other.Needed)
	assert.Equal(t, "generators", set.Other.Details)
	assert.False(t, set.Other.Fulfilled)
}

func TestBuild_NegativeQuantityClamped(t *testing.T) {
	in := &RequirementsInput{
		Shelter: &CategoryInput{Needed: true, Quantity: -5},
	}

	set := Build(in)

	require.NotNil(t, set.Shelter)
	assert.Equal(t, float64(0), set.Shelter.Quantity)
}

func TestMergeForEdit_PreservesFulfilled(t *testing.T) {
	existing := &models.RequirementSet{
		Food: &models.Requirement{Needed: true, Quantity: 100, Fulfilled: 40, RemainingNeeded: 60},
	}
	in := &RequirementsInput{
		Food: &CategoryInput{Needed: true, Quantity: 200},
	}

	set := MergeForEdit(existing, in)

	require.NotNil(t, set.Food)
	assert.Equal(t, float64(40), set.Food.Fulfilled)
	assert.Equal(t, float64(160), set.Food.RemainingNeeded)
}

func TestMergeForEdit_OmittedCategoryRemoved(t *testing.T) {
	existing := &models.RequirementSet{
		Food:  &models.Requirement{Needed: true, Quantity: 100, Fulfilled: 40},
		Water: &models.Requirement{Needed: true, Quantity: 50, Fulfilled: 10},
	}
	in := &RequirementsInput{
		Food: &CategoryInput{Needed: true, Quantity: 100},
	}

	set := MergeForEdit(existing, in)

	assert.NotNil(t, set.Food)
	assert.Nil(t, set.Water)
}

func TestMergeForEdit_PreservesOtherFulfilled(t *testing.T) {
	existing := &models.RequirementSet{
		Other: &models.OtherRequirement{Needed: true, Details: "boats", Fulfilled: true},
	}
	in := &RequirementsInput{
		Other: &CategoryInput{Needed: true, Details: "boats and fuel"},
	}

	set := MergeForEdit(existing, in)

	require.NotNil(t, set.Other)
	assert.True(t, set.Other.Fulfilled)
	assert.Equal(t, "boats and fuel", set.Other.Details)
}

func TestPledgeScenario_OverFulfillment(t *testing.T) {
	// 场景：food{quantity:100, fulfilled:0}，先捐 40 再捐 70
	set := &models.RequirementSet{
		Food: &models.Requirement{Needed: true, Quantity: 100},
	}
	Recompute(set)
	require.Equal(t, float64(100), set.Food.RemainingNeeded)

	set.Food.Fulfilled += 40
	Recompute(set)
	assert.Equal(t, float64(40), set.Food.Fulfilled)
	assert.Equal(t, float64(60), set.Food.RemainingNeeded)

	set.Food.Fulfilled += 70
	Recompute(set)
	assert.Equal(t, float64(110), set.Food.Fulfilled)
	assert.Equal(t, float64(0), set.Food.RemainingNeeded)
}
