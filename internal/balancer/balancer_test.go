package balancer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/personachat/backend/internal/personality"
)

func TestDecideFirstSessionIsControl(t *testing.T) {
	got := Decide(0, 0)

	assert.True(t, got.IsControl)
	assert.Equal(t, personality.NeutralPrompt, got.PersonalityOverride)
}

func TestDecideUnderweightControlForcesControl(t *testing.T) {
	got := Decide(10, 3)

	assert.True(t, got.IsControl)
	assert.Equal(t, personality.NeutralPrompt, got.PersonalityOverride)
}

func TestDecideOverweightControlGivesTreatment(t *testing.T) {
	got := Decide(10, 6)

	assert.False(t, got.IsControl)
	assert.Empty(t, got.PersonalityOverride)
}

func TestDecideExactBalanceGivesTreatment(t *testing.T) {
	// The boundary rule is >= 0.5 means treatment.
	got := Decide(10, 5)

	assert.False(t, got.IsControl)
}
