package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func baseMapping() SchemeBenefitMapping {
	limit := 5000.0
	return SchemeBenefitMapping{
		IsCovered:          true,
		CoveragePercentage: 80,
		AnnualLimit:        &limit,
		DeductibleAmount:   100,
		CopayAmount:        20,
		RequiresPreAuth:    true,
	}
}

func TestApplyChain_LaterLayerWins(t *testing.T) {
	base := baseMapping()
	layers := []OverrideLayer{
		FieldOverrideLayer("corporate", FieldOverride{
			CoveragePercentage: floatPtr(90),
			AnnualLimit:        floatPtr(8000),
		}),
		FieldOverrideLayer("grade", FieldOverride{
			CoveragePercentage: floatPtr(95),
		}),
	}

	resolved := ApplyChain(base, layers)
	assert.Equal(t, 95.0, resolved.CoveragePercentage)
	require.NotNil(t, resolved.AnnualLimit)
	assert.Equal(t, 8000.0, *resolved.AnnualLimit)
	// untouched fields survive every layer
	assert.Equal(t, 100.0, resolved.DeductibleAmount)
	assert.Equal(t, 20.0, resolved.CopayAmount)
}

func TestApplyChain_RemoveAnnualLimit(t *testing.T) {
	resolved := ApplyChain(baseMapping(), []OverrideLayer{
		FieldOverrideLayer("corporate", FieldOverride{RemoveAnnualLimit: true}),
	})
	assert.Nil(t, resolved.AnnualLimit)
}

func TestApplyChain_CorporateCanNarrow(t *testing.T) {
	resolved := ApplyChain(baseMapping(), []OverrideLayer{
		FieldOverrideLayer("corporate", FieldOverride{IsCovered: boolPtr(false)}),
	})
	assert.False(t, resolved.IsCovered)
}

func TestRiderLayer_OnlyWidens(t *testing.T) {
	rider := BenefitRider{
		Name:              "Gold Top-Up",
		CoverageUplift:    30,
		AnnualLimitUplift: 2000,
		WaivesPreAuth:     true,
	}

	resolved := ApplyChain(baseMapping(), []OverrideLayer{RiderLayer(rider)})
	assert.Equal(t, 100.0, resolved.CoveragePercentage, "coverage clamps at 100")
	require.NotNil(t, resolved.AnnualLimit)
	assert.Equal(t, 7000.0, *resolved.AnnualLimit)
	assert.False(t, resolved.RequiresPreAuth)
	assert.True(t, resolved.IsCovered)
}

func TestRiderLayer_RemovesAnnualLimit(t *testing.T) {
	rider := BenefitRider{Name: "Unlimited", RemovesAnnualLimit: true}
	resolved := ApplyChain(baseMapping(), []OverrideLayer{RiderLayer(rider)})
	assert.Nil(t, resolved.AnnualLimit)
}

func TestApplyChain_Deterministic(t *testing.T) {
	layers := []OverrideLayer{
		FieldOverrideLayer("corporate", FieldOverride{CoveragePercentage: floatPtr(90)}),
		FieldOverrideLayer("grade", FieldOverride{DeductibleAmount: floatPtr(0)}),
		RiderLayer(BenefitRider{Name: "Top-Up", CoverageUplift: 5}),
	}

	first := ApplyChain(baseMapping(), layers)
	second := ApplyChain(baseMapping(), layers)
	assert.Equal(t, first, second)

	// the base mapping is never mutated
	base := baseMapping()
	_ = ApplyChain(base, layers)
	assert.Equal(t, baseMapping(), base)
}

func TestApplyChain_NilApplySkipped(t *testing.T) {
	resolved := ApplyChain(baseMapping(), []OverrideLayer{{Name: "noop"}})
	assert.Equal(t, baseMapping(), resolved)
}

func TestPeriodWindow(t *testing.T) {
	service := mustParse(t, "2025-06-15")

	start, end := PeriodWindow(PeriodAnnual, service)
	assert.Equal(t, mustParse(t, "2025-01-01"), start)
	assert.Equal(t, mustParse(t, "2026-01-01"), end)

	start, end = PeriodWindow(PeriodMonthly, service)
	assert.Equal(t, mustParse(t, "2025-06-01"), start)
	assert.Equal(t, mustParse(t, "2025-07-01"), end)

	start, end = PeriodWindow(PeriodLifetime, service)
	assert.True(t, start.Before(mustParse(t, "1999-01-01")))
	assert.True(t, end.After(mustParse(t, "2100-01-01")))
}

func mustParse(t *testing.T, day string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", day)
	require.NoError(t, err)
	return parsed.UTC()
}
