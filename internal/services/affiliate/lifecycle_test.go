package affiliate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyara/backend/internal/models"
)

func TestTargetStatusMapping(t *testing.T) {
	assert.Equal(t, models.ReferralStatusSignedUp, targetStatus[EventSignedUp])
	assert.Equal(t, models.ReferralStatusBooked, targetStatus[EventBooked])
	assert.Equal(t, models.ReferralStatusCompleted, targetStatus[EventCompleted])
}

func TestCorrelateRejectsUnknownEventType(t *testing.T) {
	m := NewLifecycle(nil, nil)

	_, err := m.Correlate("clk_abc", Event{Type: EventType("cancelled")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown correlation event type")
}

func TestActivityForStatus(t *testing.T) {
	assert.Equal(t, models.ActivityReferralSignedUp, activityForStatus(models.ReferralStatusSignedUp))
	assert.Equal(t, models.ActivityReferralBooked, activityForStatus(models.ReferralStatusBooked))
	assert.Equal(t, models.ActivityReferralCompleted, activityForStatus(models.ReferralStatusCompleted))
	assert.Equal(t, models.ActivityReferralExpired, activityForStatus(models.ReferralStatusExpired))
}
