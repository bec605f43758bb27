package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateClickID(t *testing.T) {
	id, err := GenerateClickID()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, "clk_"))
	assert.Len(t, id, len("clk_")+32)

	// Tokens must be non-enumerable
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := GenerateClickID()
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate click ID generated")
		seen[id] = true
	}
}

func TestGenerateTrackingID(t *testing.T) {
	id, err := GenerateTrackingID()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, "trk_"))
	assert.Len(t, id, len("trk_")+24)
}

func TestGenerateReferralCode(t *testing.T) {
	code, err := GenerateReferralCode("Sunny Tours")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(code, "SUNNY-TOURS-"))

	suffix := strings.TrimPrefix(code, "SUNNY-TOURS-")
	assert.Len(t, suffix, 4)
	for _, r := range suffix {
		assert.NotContains(t, "0O1I", string(r), "ambiguous character in code suffix")
	}
}

func TestGenerateReferralCodeTruncatesLongNames(t *testing.T) {
	code, err := GenerateReferralCode("Wanderlust Adventure Travels International")
	require.NoError(t, err)

	// 12-char base, dash, 4-char suffix
	assert.Len(t, code, 17)
}

func TestGenerateReferralCodeEmptyName(t *testing.T) {
	code, err := GenerateReferralCode("")
	require.NoError(t, err)
	assert.NotEmpty(t, code)
}

func TestNormalizeReferralCode(t *testing.T) {
	assert.Equal(t, "SUNNY-TOURS-AB2C", NormalizeReferralCode("  sunny-tours-ab2c "))
	assert.Equal(t, "", NormalizeReferralCode("   "))
}
