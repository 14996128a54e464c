package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskOrdering(t *testing.T) {
	assert.True(t, RiskLow < RiskMedium)
	assert.True(t, RiskMedium < RiskHigh)
	assert.True(t, RiskHigh < RiskCritical)

	assert.Equal(t, RiskHigh, MaxRisk(RiskHigh, RiskLow))
	assert.Equal(t, RiskHigh, MaxRisk(RiskLow, RiskHigh))
	assert.Equal(t, RiskCritical, MaxRisk(RiskCritical, RiskCritical))
}

func TestSensitivityOrdering(t *testing.T) {
	assert.True(t, SensitivityPublic < SensitivityInternal)
	assert.True(t, SensitivityInternal < SensitivityConfidential)
	assert.True(t, SensitivityConfidential < SensitivityRestricted)

	assert.Equal(t, SensitivityRestricted, MaxSensitivity(SensitivityInternal, SensitivityRestricted))
}

func TestStringNames(t *testing.T) {
	assert.Equal(t, "critical", RiskCritical.String())
	assert.Equal(t, "restricted", SensitivityRestricted.String())

	// Out-of-range values fall back to the safe floor.
	assert.Equal(t, "low", RiskLevel(42).String())
	assert.Equal(t, "internal", DataSensitivity(42).String())
}

func TestRegistry(t *testing.T) {
	assert.True(t, Known(EventAuthLoginFailed))
	assert.Equal(t, CategoryAuth, EventAuthLoginFailed.Category())
	assert.Equal(t, RiskHigh, EventAuthLoginFailed.DefaultRisk())

	assert.Equal(t, RiskCritical, EventSecurityBruteForceBlock.DefaultRisk())
	assert.Equal(t, CategorySecurity, EventSecurityBruteForceBlock.Category())

	// Unknown events classify conservatively instead of panicking.
	assert.False(t, Known(EventType("no.such.event")))
	assert.Equal(t, CategoryData, EventType("no.such.event").Category())
	assert.Equal(t, RiskLow, EventType("no.such.event").DefaultRisk())
}

func TestEveryRegisteredEventHasACategory(t *testing.T) {
	valid := map[EventCategory]bool{
		CategoryAuth:     true,
		CategoryData:     true,
		CategorySecurity: true,
		CategoryAdmin:    true,
	}
	for eventType, entry := range registry {
		assert.True(t, valid[entry.Category], "event %s has invalid category %q", eventType, entry.Category)
	}
}
