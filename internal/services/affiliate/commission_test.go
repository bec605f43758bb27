package affiliate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/voyara/backend/internal/models"
)

func TestRateForTier(t *testing.T) {
	engine := NewAccrualEngine(nil, nil)

	tests := []struct {
		tier models.AffiliateTier
		want string
	}{
		{models.AffiliateTierStarter, "0.05"},
		{models.AffiliateTierBronze, "0.06"},
		{models.AffiliateTierSilver, "0.08"},
		{models.AffiliateTierGold, "0.1"},
		{models.AffiliateTierPlatinum, "0.12"},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			want, _ := decimal.NewFromString(tt.want)
			assert.True(t, engine.RateForTier(tt.tier).Equal(want))
		})
	}
}

func TestRateForTierUnknownFallsBackToStarter(t *testing.T) {
	engine := NewAccrualEngine(nil, nil)
	assert.True(t, engine.RateForTier(models.AffiliateTier("mystery")).Equal(decimal.NewFromFloat(0.05)))
}

func TestComputeCommission(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		rate   string
		want   string
	}{
		{"whole dollars", "1000.00", "0.05", "50.00"},
		{"rounds to cents", "333.33", "0.08", "26.67"},
		{"rounds half up", "125.50", "0.10", "12.55"},
		{"sub-cent booking", "0.01", "0.05", "0.00"},
		{"platinum rate", "2499.99", "0.12", "300.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, _ := decimal.NewFromString(tt.amount)
			rate, _ := decimal.NewFromString(tt.rate)
			want, _ := decimal.NewFromString(tt.want)

			got := ComputeCommission(amount, rate)
			assert.True(t, got.Equal(want), "got %s, want %s", got, want)
		})
	}
}

func TestComputeCommissionExactness(t *testing.T) {
	// 0.1 + 0.2 style float drift must not appear in money math
	amount, _ := decimal.NewFromString("19.99")
	rate, _ := decimal.NewFromString("0.06")

	got := ComputeCommission(amount, rate)
	want, _ := decimal.NewFromString("1.20")
	assert.True(t, got.Equal(want), "got %s, want %s", got, want)
}
