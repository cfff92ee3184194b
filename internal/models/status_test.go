package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDonationStatus_CanAdvanceTo(t *testing.T) {
	assert.True(t, DonationPledged.CanAdvanceTo(DonationDelivered))
	assert.True(t, DonationDelivered.CanAdvanceTo(DonationConfirmed))
	assert.True(t, DonationPledged.CanAdvanceTo(DonationConfirmed))

	// 不允许回退或原地迁移
	assert.False(t, DonationConfirmed.CanAdvanceTo(DonationDelivered))
	assert.False(t, DonationDelivered.CanAdvanceTo(DonationPledged))
	assert.False(t, DonationPledged.CanAdvanceTo(DonationPledged))
}

func TestParseDonationStatus_LegacyVocabulary(t *testing.T) {
	// 两套旧词汇统一映射到规范枚举
	cases := map[string]DonationStatus{
		"pending":    DonationPledged,
		"pledged":    DonationPledged,
		"in-transit": DonationPledged,
		"delivered":  DonationDelivered,
		"confirmed":  DonationConfirmed,
		"verified":   DonationConfirmed,
	}
	for input, want := range cases {
		got, err := ParseDonationStatus(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestParseDonationStatus_Unknown(t *testing.T) {
	_, err := ParseDonationStatus("shipped")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseReportStatus(t *testing.T) {
	for _, s := range []string{"pending", "critical", "resolved"} {
		got, err := ParseReportStatus(s)
		require.NoError(t, err)
		assert.Equal(t, ReportStatus(s), got)
	}

	_, err := ParseReportStatus("closed")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAlert_SeenByUser(t *testing.T) {
	alert := &Alert{
		SeenBy: []SeenEntry{{UserID: "u1"}},
	}

	assert.True(t, alert.SeenByUser("u1"))
	assert.False(t, alert.SeenByUser("u2"))
}
