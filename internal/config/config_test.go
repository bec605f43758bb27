package config

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	os.Unsetenv("ATTRIBUTION_WINDOW_DAYS")
	os.Unsetenv("PAYOUT_MIN_THRESHOLD")
	os.Unsetenv("PAYOUT_ELIGIBLE_AFTER_COMPLETION")

	cfg := LoadConfig()

	assert.Equal(t, 30*24*time.Hour, cfg.Referral.AttributionWindow)
	assert.Equal(t, 60*time.Minute, cfg.Referral.ExpirySweepInterval)
	assert.True(t, cfg.Payout.DefaultMinThreshold.Equal(decimal.NewFromInt(50)))
	assert.True(t, cfg.Payout.EligibleAfterCompletion)
	assert.Equal(t, 24, cfg.Payout.BatchIntervalHours)

	fee, ok := cfg.Payout.ProcessingFees["paypal"]
	require.True(t, ok)
	assert.True(t, fee.Equal(decimal.NewFromInt(1)))
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ATTRIBUTION_WINDOW_DAYS", "7")
	t.Setenv("PAYOUT_MIN_THRESHOLD", "25.50")
	t.Setenv("PAYOUT_ELIGIBLE_AFTER_COMPLETION", "false")

	cfg := LoadConfig()

	assert.Equal(t, 7*24*time.Hour, cfg.Referral.AttributionWindow)

	want, _ := decimal.NewFromString("25.50")
	assert.True(t, cfg.Payout.DefaultMinThreshold.Equal(want))
	assert.False(t, cfg.Payout.EligibleAfterCompletion)
}

func TestGetEnvDecimalFallsBackOnGarbage(t *testing.T) {
	t.Setenv("PAYOUT_FEE_WISE", "not-a-number")

	cfg := LoadConfig()

	want, _ := decimal.NewFromString("2.50")
	assert.True(t, cfg.Payout.ProcessingFees["wise"].Equal(want))
}
