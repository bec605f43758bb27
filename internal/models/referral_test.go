package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReferralStatusRank(t *testing.T) {
	assert.Equal(t, 0, ReferralStatusClick.Rank())
	assert.Equal(t, 1, ReferralStatusSignedUp.Rank())
	assert.Equal(t, 2, ReferralStatusBooked.Rank())
	assert.Equal(t, 3, ReferralStatusCompleted.Rank())
	assert.Equal(t, -1, ReferralStatusExpired.Rank())
	assert.Equal(t, -1, ReferralStatus("bogus").Rank())
}

func TestReferralStatusCanAdvanceTo(t *testing.T) {
	tests := []struct {
		name string
		from ReferralStatus
		to   ReferralStatus
		want bool
	}{
		{"click to signed_up", ReferralStatusClick, ReferralStatusSignedUp, true},
		{"signed_up to booked", ReferralStatusSignedUp, ReferralStatusBooked, true},
		{"booked to completed", ReferralStatusBooked, ReferralStatusCompleted, true},
		{"click jumps to booked when the signup event was lost", ReferralStatusClick, ReferralStatusBooked, true},
		{"signed_up jumps to completed", ReferralStatusSignedUp, ReferralStatusCompleted, true},
		{"booked back to signed_up", ReferralStatusBooked, ReferralStatusSignedUp, false},
		{"completed is terminal", ReferralStatusCompleted, ReferralStatusBooked, false},
		{"expired is terminal", ReferralStatusExpired, ReferralStatusSignedUp, false},
		{"same status", ReferralStatusBooked, ReferralStatusBooked, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanAdvanceTo(tt.to))
		})
	}
}

func TestReferralStatusCanExpire(t *testing.T) {
	assert.True(t, ReferralStatusClick.CanExpire())
	assert.True(t, ReferralStatusSignedUp.CanExpire())

	// Booked and beyond survive the window lapsing
	assert.False(t, ReferralStatusBooked.CanExpire())
	assert.False(t, ReferralStatusCompleted.CanExpire())
	assert.False(t, ReferralStatusExpired.CanExpire())
}
