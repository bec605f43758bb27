package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPayoutStatusSettleable(t *testing.T) {
	assert.True(t, PayoutStatusPending.Settleable())
	assert.True(t, PayoutStatusProcessing.Settleable())
	assert.False(t, PayoutStatusPaid.Settleable())
	assert.False(t, PayoutStatusFailed.Settleable())
}
