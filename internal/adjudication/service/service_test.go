package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	adjdomain "github.com/vitalis-health/vitalis/internal/adjudication/domain"
	benefitdomain "github.com/vitalis-health/vitalis/internal/benefit/domain"
	benefitrepo "github.com/vitalis-health/vitalis/internal/benefit/repository"
	claimdomain "github.com/vitalis-health/vitalis/internal/claim/domain"
	claimrepo "github.com/vitalis-health/vitalis/internal/claim/repository"
	"github.com/vitalis-health/vitalis/internal/clock"
	"github.com/vitalis-health/vitalis/internal/config"
	memberdomain "github.com/vitalis-health/vitalis/internal/member/domain"
	memberrepo "github.com/vitalis-health/vitalis/internal/member/repository"
	"github.com/vitalis-health/vitalis/internal/memberlock"
	"github.com/vitalis-health/vitalis/internal/migration"
	rulesdomain "github.com/vitalis-health/vitalis/internal/rules/domain"
	rulesrepo "github.com/vitalis-health/vitalis/internal/rules/repository"
	schemedomain "github.com/vitalis-health/vitalis/internal/scheme/domain"
	schemerepo "github.com/vitalis-health/vitalis/internal/scheme/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	t    *testing.T
	db   *gorm.DB
	node *snowflake.Node
	clk  *clock.FakeClock
	svc  adjdomain.Service

	scheme schemedomain.Scheme
	tier   schemedomain.PlanTier
}

var fixtureSeq int

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fixtureSeq++
	dsn := fmt.Sprintf("file:adjtest%d?mode=memory&cache=shared", fixtureSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC))

	svc := NewService(ServiceParam{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clk,
		Config: config.NewStaticAdjudicationConfigHolder(config.DefaultAdjudicationConfig()),

		Members:     memberrepo.New(db),
		Schemes:     schemerepo.New(db),
		Benefits:    benefitrepo.New(db),
		Utilization: benefitrepo.NewUtilization(db, node),
		Claims:      claimrepo.New(db),
		Rules:       rulesrepo.New(db),

		Locks: memberlock.New(nil),
	})

	f := &fixture{t: t, db: db, node: node, clk: clk, svc: svc}
	f.scheme = schemedomain.Scheme{
		ID:         node.Generate(),
		Name:       "Essential Care",
		IsActive:   true,
		LaunchDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		MinAge:     18,
		MaxAge:     75,
	}
	f.tier = schemedomain.PlanTier{
		ID:                 node.Generate(),
		SchemeID:           f.scheme.ID,
		Name:               "Silver",
		IsActive:           true,
		OverallAnnualLimit: 50000,
	}
	require.NoError(t, db.Create(&f.scheme).Error)
	require.NoError(t, db.Create(&f.tier).Error)
	return f
}

func (f *fixture) createMember(dob time.Time) memberdomain.Member {
	f.t.Helper()
	member := memberdomain.Member{
		ID:            f.node.Generate(),
		FullName:      "Test Member",
		DateOfBirth:   dob,
		Gender:        "female",
		SchemeID:      &f.scheme.ID,
		PlanTierID:    &f.tier.ID,
		PremiumStatus: memberdomain.PremiumStatusCurrent,
	}
	require.NoError(f.t, f.db.Create(&member).Error)
	return member
}

func (f *fixture) createBenefit(category string, mapping benefitdomain.SchemeBenefitMapping) benefitdomain.EnhancedBenefit {
	f.t.Helper()
	benefit := benefitdomain.EnhancedBenefit{
		ID:       f.node.Generate(),
		Name:     category + " care",
		Category: category,
	}
	require.NoError(f.t, f.db.Create(&benefit).Error)

	mapping.ID = f.node.Generate()
	mapping.SchemeID = f.scheme.ID
	mapping.PlanTierID = f.tier.ID
	mapping.BenefitID = benefit.ID
	mapping.IsCovered = true
	require.NoError(f.t, f.db.Create(&mapping).Error)
	return benefit
}

func (f *fixture) createClaim(memberID snowflake.ID, category string, amount float64) claimdomain.Claim {
	f.t.Helper()
	claim := claimdomain.Claim{
		ID:                  f.node.Generate(),
		MemberID:            memberID,
		ProviderID:          f.node.Generate(),
		ProviderNetworkTier: claimdomain.NetworkTierStandard,
		ServiceCategory:     category,
		ServiceDate:         time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		SubmissionDate:      time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
		Amount:              amount,
		Status:              claimdomain.StatusSubmitted,
	}
	require.NoError(f.t, f.db.Create(&claim).Error)
	return claim
}

func (f *fixture) addUsage(memberID, benefitID snowflake.ID, subCategory, period string, amount float64, count int) {
	f.t.Helper()
	start, end := benefitdomain.PeriodWindow(period, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(f.t, f.db.Create(&benefitdomain.BenefitUtilization{
		ID:          f.node.Generate(),
		MemberID:    memberID,
		BenefitID:   benefitID,
		SubCategory: subCategory,
		Period:      period,
		PeriodStart: start,
		PeriodEnd:   end,
		UsedAmount:  amount,
		UsageCount:  count,
	}).Error)
}

func (f *fixture) createSubClaim(memberID snowflake.ID, category, subCategory string, amount float64) claimdomain.Claim {
	f.t.Helper()
	claim := f.createClaim(memberID, category, amount)
	require.NoError(f.t, f.db.Model(&claimdomain.Claim{}).
		Where("id = ?", claim.ID).Update("service_sub_category", subCategory).Error)
	claim.ServiceSubCategory = subCategory
	return claim
}

func (f *fixture) addLimit(limit benefitdomain.BenefitLimit) benefitdomain.BenefitLimit {
	f.t.Helper()
	limit.ID = f.node.Generate()
	require.NoError(f.t, f.db.Create(&limit).Error)
	return limit
}

func (f *fixture) createRule(rule rulesdomain.BenefitRule) rulesdomain.BenefitRule {
	f.t.Helper()
	rule.ID = f.node.Generate()
	rule.IsActive = true
	if rule.EffectiveDate.IsZero() {
		rule.EffectiveDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	require.NoError(f.t, f.db.Create(&rule).Error)
	return rule
}

func assertMoneyInvariants(t *testing.T, result *adjdomain.AdjudicationResult) {
	t.Helper()
	assert.GreaterOrEqual(t, result.ApprovedAmount, 0.0)
	assert.LessOrEqual(t, result.ApprovedAmount, result.OriginalAmount)
	assert.InDelta(t, result.ApprovedAmount, result.MemberResponsibility+result.InsurerResponsibility, 0.01)
}

func TestAdjudicate_ApprovedWithCoinsurance(t *testing.T) {
	f := newFixture(t)
	member := f.createMember(time.Date(1990, 3, 10, 0, 0, 0, 0, time.UTC))
	f.createBenefit("outpatient", benefitdomain.SchemeBenefitMapping{
		CoveragePercentage: 80,
	})
	claim := f.createClaim(member.ID, "outpatient", 1000)

	result, err := f.svc.Adjudicate(context.Background(), claim.ID)
	require.NoError(t, err)

	assert.Equal(t, adjdomain.DecisionApproved, result.Decision)
	assert.Equal(t, 1000.0, result.ApprovedAmount)
	assert.Equal(t, 200.0, result.CostSharing.Coinsurance)
	assert.Equal(t, 200.0, result.MemberResponsibility)
	assert.Equal(t, 800.0, result.InsurerResponsibility)
	assert.False(t, result.RequiresManualReview)
	assertMoneyInvariants(t, result)

	// claim status and record persisted
	var stored claimdomain.Claim
	require.NoError(t, f.db.First(&stored, "id = ?", claim.ID).Error)
	assert.Equal(t, claimdomain.StatusApproved, stored.Status)

	var record claimdomain.AdjudicationRecord
	require.NoError(t, f.db.First(&record, "claim_id = ?", claim.ID).Error)
	assert.Equal(t, 1000.0, record.ApprovedAmount)

	// approved amount folded into utilization
	var usage benefitdomain.BenefitUtilization
	require.NoError(t, f.db.First(&usage, "member_id = ? AND sub_category = ''", member.ID).Error)
	assert.Equal(t, 1000.0, usage.UsedAmount)
	assert.Equal(t, 1, usage.UsageCount)
}

func TestAdjudicate_EligibilityDenial_UnderAge(t *testing.T) {
	f := newFixture(t)
	member := f.createMember(time.Date(2008, 1, 15, 0, 0, 0, 0, time.UTC)) // 17 at service date
	benefit := f.createBenefit("outpatient", benefitdomain.SchemeBenefitMapping{
		CoveragePercentage: 80,
	})
	claim := f.createClaim(member.ID, "outpatient", 1000)

	result, err := f.svc.Adjudicate(context.Background(), claim.ID)
	require.NoError(t, err)

	assert.Equal(t, adjdomain.DecisionDenied, result.Decision)
	assert.Equal(t, 0.0, result.ApprovedAmount)
	assert.Equal(t, 1000.0, result.MemberResponsibility)
	assert.False(t, result.Eligibility.IsEligible)

	found := false
	for _, reason := range result.DenialReasons {
		if strings.Contains(reason, "age") {
			found = true
		}
	}
	assert.True(t, found, "expected an age denial reason, got %v", result.DenialReasons)

	// stages after eligibility never ran
	assert.Empty(t, result.Benefits)
	assert.Empty(t, result.RuleLogs)

	var logCount int64
	require.NoError(t, f.db.Model(&rulesdomain.RuleExecutionLog{}).Count(&logCount).Error)
	assert.Zero(t, logCount)

	// no utilization written for a denied claim
	var usageCount int64
	require.NoError(t, f.db.Model(&benefitdomain.BenefitUtilization{}).
		Where("benefit_id = ?", benefit.ID).Count(&usageCount).Error)
	assert.Zero(t, usageCount)
}

func TestAdjudicate_LapsedPremiumDenies(t *testing.T) {
	f := newFixture(t)
	member := f.createMember(time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, f.db.Model(&memberdomain.Member{}).
		Where("id = ?", member.ID).
		Update("premium_status", memberdomain.PremiumStatusLapsed).Error)
	f.createBenefit("outpatient", benefitdomain.SchemeBenefitMapping{CoveragePercentage: 100})
	claim := f.createClaim(member.ID, "outpatient", 500)

	result, err := f.svc.Adjudicate(context.Background(), claim.ID)
	require.NoError(t, err)

	assert.Equal(t, adjdomain.DecisionDenied, result.Decision)
	assert.Contains(t, result.DenialReasons, "premium payment is not current")
}

func TestAdjudicate_GracePremiumWarnsButApproves(t *testing.T) {
	f := newFixture(t)
	member := f.createMember(time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, f.db.Model(&memberdomain.Member{}).
		Where("id = ?", member.ID).
		Update("premium_status", memberdomain.PremiumStatusGrace).Error)
	f.createBenefit("outpatient", benefitdomain.SchemeBenefitMapping{CoveragePercentage: 100})
	claim := f.createClaim(member.ID, "outpatient", 500)

	result, err := f.svc.Adjudicate(context.Background(), claim.ID)
	require.NoError(t, err)

	assert.Equal(t, adjdomain.DecisionApproved, result.Decision)
	assert.Contains(t, result.Eligibility.Warnings, "premium payment is in grace period")
}

func TestAdjudicate_BenefitLimitUsesPreClaimUsage(t *testing.T) {
	f := newFixture(t)
	member := f.createMember(time.Date(1985, 5, 5, 0, 0, 0, 0, time.UTC))
	limit := 5000.0
	benefit := f.createBenefit("outpatient", benefitdomain.SchemeBenefitMapping{
		CoveragePercentage: 100,
		AnnualLimit:        &limit,
	})
	f.addUsage(member.ID, benefit.ID, "", benefitdomain.PeriodAnnual, 4800, 3)
	claim := f.createClaim(member.ID, "outpatient", 400)

	result, err := f.svc.Adjudicate(context.Background(), claim.ID)
	require.NoError(t, err)

	// 4800 used of 5000: the pre-claim check passes, so the claim pays in
	// full even though post-claim usage lands above the limit.
	assert.Equal(t, adjdomain.DecisionApproved, result.Decision)
	assert.Equal(t, 400.0, result.ApprovedAmount)

	var check *adjdomain.LimitCheckResult
	for i := range result.LimitChecks {
		if result.LimitChecks[i].LimitType == benefitdomain.LimitTypeBenefitAnnual {
			check = &result.LimitChecks[i]
		}
	}
	require.NotNil(t, check)
	assert.False(t, check.IsExceeded)
	assert.Equal(t, 200.0, check.RemainingAmount)
	assertMoneyInvariants(t, result)
}

func TestAdjudicate_ExhaustedBenefitLimitDenies(t *testing.T) {
	f := newFixture(t)
	member := f.createMember(time.Date(1985, 5, 5, 0, 0, 0, 0, time.UTC))
	limit := 5000.0
	benefit := f.createBenefit("outpatient", benefitdomain.SchemeBenefitMapping{
		CoveragePercentage: 100,
		AnnualLimit:        &limit,
	})
	f.addUsage(member.ID, benefit.ID, "", benefitdomain.PeriodAnnual, 5200, 4)
	claim := f.createClaim(member.ID, "outpatient", 400)

	result, err := f.svc.Adjudicate(context.Background(), claim.ID)
	require.NoError(t, err)

	assert.Equal(t, adjdomain.DecisionDenied, result.Decision)
	assert.Equal(t, 0.0, result.ApprovedAmount)
	assertMoneyInvariants(t, result)
}

func TestAdjudicate_NoCoveredBenefitDenies(t *testing.T) {
	f := newFixture(t)
	member := f.createMember(time.Date(1985, 5, 5, 0, 0, 0, 0, time.UTC))
	f.createBenefit("outpatient", benefitdomain.SchemeBenefitMapping{CoveragePercentage: 80})
	claim := f.createClaim(member.ID, "dental", 250)

	result, err := f.svc.Adjudicate(context.Background(), claim.ID)
	require.NoError(t, err)

	assert.Equal(t, adjdomain.DecisionDenied, result.Decision)
	assert.Contains(t, result.DenialReasons, "no covered benefit applies to the claimed service")
}

func TestAdjudicate_MandatoryRuleFailureHaltsAndDenies(t *testing.T) {
	f := newFixture(t)
	member := f.createMember(time.Date(1985, 5, 5, 0, 0, 0, 0, time.UTC))
	f.createBenefit("outpatient", benefitdomain.SchemeBenefitMapping{CoveragePercentage: 100})

	// priority 10, mandatory, condition false for this claim
	f.createRule(rulesdomain.BenefitRule{
		Name:         "Pre-auth on file",
		RulePriority: 10,
		IsMandatory:  true,
		Condition:    datatypes.JSON(`{"compare":{"field":"claim.hasPreAuth","op":"eq","value":true}}`),
		Action:       datatypes.JSON(`[{"op":"add_note","text":"pre-auth verified"}]`),
	})
	// priority 5 must never run
	f.createRule(rulesdomain.BenefitRule{
		Name:         "Courtesy note",
		RulePriority: 5,
		Condition:    datatypes.JSON(`{"compare":{"field":"claim.amount","op":"gt","value":0}}`),
		Action:       datatypes.JSON(`[{"op":"add_note","text":"claim reviewed"}]`),
	})

	claim := f.createClaim(member.ID, "outpatient", 600)
	result, err := f.svc.Adjudicate(context.Background(), claim.ID)
	require.NoError(t, err)

	assert.Equal(t, adjdomain.DecisionDenied, result.Decision)
	assert.Equal(t, 0.0, result.ApprovedAmount)
	assert.Contains(t, result.DenialReasons, "a mandatory adjudication rule failed")

	require.Len(t, result.RuleLogs, 1)
	assert.Equal(t, "Pre-auth on file", result.RuleLogs[0].RuleName)
	assert.Equal(t, rulesdomain.ResultFail, result.RuleLogs[0].Result)

	var logCount int64
	require.NoError(t, f.db.Model(&rulesdomain.RuleExecutionLog{}).Count(&logCount).Error)
	assert.EqualValues(t, 1, logCount)
}

func TestAdjudicate_RuleMultiplyApproved(t *testing.T) {
	f := newFixture(t)
	member := f.createMember(time.Date(1985, 5, 5, 0, 0, 0, 0, time.UTC))
	f.createBenefit("outpatient", benefitdomain.SchemeBenefitMapping{CoveragePercentage: 100})
	f.createRule(rulesdomain.BenefitRule{
		Name:         "Standard network cap",
		RulePriority: 5,
		Condition:    datatypes.JSON(`{"compare":{"field":"claim.networkTier","op":"eq","value":"standard"}}`),
		Action:       datatypes.JSON(`[{"op":"multiply_approved","value":0.5}]`),
	})

	claim := f.createClaim(member.ID, "outpatient", 800)
	result, err := f.svc.Adjudicate(context.Background(), claim.ID)
	require.NoError(t, err)

	assert.Equal(t, adjdomain.DecisionPartiallyApproved, result.Decision)
	assert.Equal(t, 400.0, result.ApprovedAmount)
	assertMoneyInvariants(t, result)

	var stored claimdomain.Claim
	require.NoError(t, f.db.First(&stored, "id = ?", claim.ID).Error)
	assert.Equal(t, claimdomain.StatusPartiallyApproved, stored.Status)
}

func TestAdjudicate_HighValueClaimFlagsReview(t *testing.T) {
	f := newFixture(t)
	member := f.createMember(time.Date(1985, 5, 5, 0, 0, 0, 0, time.UTC))
	f.createBenefit("inpatient", benefitdomain.SchemeBenefitMapping{CoveragePercentage: 100})
	claim := f.createClaim(member.ID, "inpatient", 12000)

	result, err := f.svc.Adjudicate(context.Background(), claim.ID)
	require.NoError(t, err)

	assert.Equal(t, adjdomain.DecisionApproved, result.Decision)
	assert.True(t, result.RequiresManualReview)
}

func TestAdjudicate_ClaimNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Adjudicate(context.Background(), f.node.Generate())
	assert.ErrorIs(t, err, claimdomain.ErrClaimNotFound)
}

func TestAdjudicate_Reproducible(t *testing.T) {
	f := newFixture(t)
	member := f.createMember(time.Date(1990, 3, 10, 0, 0, 0, 0, time.UTC))
	f.createBenefit("outpatient", benefitdomain.SchemeBenefitMapping{
		CoveragePercentage:    80,
		DeductibleAmount:      50,
		CopayAmount:           20,
		CoinsurancePercentage: 20,
	})
	claim := f.createClaim(member.ID, "outpatient", 1000)

	first, err := f.svc.Adjudicate(context.Background(), claim.ID)
	require.NoError(t, err)

	// wipe the persisted side effects and run again on identical inputs
	require.NoError(t, f.db.Where("1 = 1").Delete(&claimdomain.AdjudicationRecord{}).Error)
	require.NoError(t, f.db.Where("1 = 1").Delete(&benefitdomain.BenefitUtilization{}).Error)
	require.NoError(t, f.db.Model(&claimdomain.Claim{}).
		Where("id = ?", claim.ID).Update("status", claimdomain.StatusSubmitted).Error)

	second, err := f.svc.Adjudicate(context.Background(), claim.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Decision, second.Decision)
	assert.Equal(t, first.ApprovedAmount, second.ApprovedAmount)
	assert.Equal(t, first.CostSharing, second.CostSharing)
	assert.Equal(t, first.Benefits, second.Benefits)
}

func TestAdjudicate_RepeatRejectedWithoutDoubleCounting(t *testing.T) {
	f := newFixture(t)
	member := f.createMember(time.Date(1985, 5, 5, 0, 0, 0, 0, time.UTC))
	limit := 5000.0
	benefit := f.createBenefit("outpatient", benefitdomain.SchemeBenefitMapping{
		CoveragePercentage: 100,
		AnnualLimit:        &limit,
	})
	claim := f.createClaim(member.ID, "outpatient", 1000)

	first, err := f.svc.Adjudicate(context.Background(), claim.ID)
	require.NoError(t, err)
	assert.Equal(t, adjdomain.DecisionApproved, first.Decision)

	_, err = f.svc.Adjudicate(context.Background(), claim.ID)
	assert.ErrorIs(t, err, claimdomain.ErrClaimAlreadyAdjudicated)

	// the second call left the usage ledger untouched
	var usage benefitdomain.BenefitUtilization
	require.NoError(t, f.db.First(&usage,
		"member_id = ? AND benefit_id = ? AND sub_category = ''", member.ID, benefit.ID).Error)
	assert.Equal(t, 1000.0, usage.UsedAmount)
	assert.Equal(t, 1, usage.UsageCount)

	var recordCount int64
	require.NoError(t, f.db.Model(&claimdomain.AdjudicationRecord{}).
		Where("claim_id = ?", claim.ID).Count(&recordCount).Error)
	assert.EqualValues(t, 1, recordCount)
}

func TestAdjudicate_BrokenRuleLoggedAsError(t *testing.T) {
	f := newFixture(t)
	member := f.createMember(time.Date(1985, 5, 5, 0, 0, 0, 0, time.UTC))
	f.createBenefit("outpatient", benefitdomain.SchemeBenefitMapping{CoveragePercentage: 100})
	f.createRule(rulesdomain.BenefitRule{
		Name:         "References unknown field",
		RulePriority: 5,
		Condition:    datatypes.JSON(`{"compare":{"field":"claim.nonexistent","op":"gt","value":1}}`),
		Action:       datatypes.JSON(`[{"op":"require_review"}]`),
	})

	claim := f.createClaim(member.ID, "outpatient", 600)
	result, err := f.svc.Adjudicate(context.Background(), claim.ID)
	require.NoError(t, err)

	// a broken non-mandatory rule never blocks payment but is flagged
	assert.Equal(t, adjdomain.DecisionApproved, result.Decision)
	assert.Equal(t, 600.0, result.ApprovedAmount)
	assert.True(t, result.RequiresManualReview)

	require.Len(t, result.RuleLogs, 1)
	assert.Equal(t, rulesdomain.ResultError, result.RuleLogs[0].Result)
	assert.NotEmpty(t, result.RuleLogs[0].Error)
}

func TestAdjudicate_RuleNotesSurfaced(t *testing.T) {
	f := newFixture(t)
	member := f.createMember(time.Date(1985, 5, 5, 0, 0, 0, 0, time.UTC))
	f.createBenefit("outpatient", benefitdomain.SchemeBenefitMapping{CoveragePercentage: 100})
	f.createRule(rulesdomain.BenefitRule{
		Name:         "Courtesy note",
		RulePriority: 5,
		Condition:    datatypes.JSON(`{"compare":{"field":"claim.amount","op":"gt","value":0}}`),
		Action:       datatypes.JSON(`[{"op":"add_note","text":"itemized invoice verified"}]`),
	})

	claim := f.createClaim(member.ID, "outpatient", 300)
	result, err := f.svc.Adjudicate(context.Background(), claim.ID)
	require.NoError(t, err)

	assert.Equal(t, adjdomain.DecisionApproved, result.Decision)
	assert.Contains(t, result.Notes, "itemized invoice verified")

	var record claimdomain.AdjudicationRecord
	require.NoError(t, f.db.First(&record, "claim_id = ?", claim.ID).Error)
	assert.Contains(t, string(record.Notes), "itemized invoice verified")
}

func TestAdjudicate_MonthlySubLimitReadsMonthlyWindow(t *testing.T) {
	f := newFixture(t)
	member := f.createMember(time.Date(1985, 5, 5, 0, 0, 0, 0, time.UTC))
	benefit := f.createBenefit("outpatient", benefitdomain.SchemeBenefitMapping{CoveragePercentage: 100})
	f.addLimit(benefitdomain.BenefitLimit{
		BenefitID:   benefit.ID,
		LimitType:   benefitdomain.LimitTypeSubLimit,
		SubCategory: "physiotherapy",
		Period:      benefitdomain.PeriodMonthly,
		LimitAmount: 500,
	})
	// annual benefit usage must not leak into the monthly sub-limit check
	f.addUsage(member.ID, benefit.ID, "", benefitdomain.PeriodAnnual, 2000, 5)
	f.addUsage(member.ID, benefit.ID, "physiotherapy", benefitdomain.PeriodMonthly, 450, 2)

	claim := f.createSubClaim(member.ID, "outpatient", "physiotherapy", 100)
	result, err := f.svc.Adjudicate(context.Background(), claim.ID)
	require.NoError(t, err)

	var check *adjdomain.LimitCheckResult
	for i := range result.LimitChecks {
		if result.LimitChecks[i].LimitType == benefitdomain.LimitTypeSubLimit {
			check = &result.LimitChecks[i]
		}
	}
	require.NotNil(t, check)
	assert.Equal(t, 450.0, check.CurrentUsage)
	assert.Equal(t, 50.0, check.RemainingAmount)
	assert.False(t, check.IsExceeded)

	// accrual lands in the window matching the limit's cadence
	var monthly benefitdomain.BenefitUtilization
	require.NoError(t, f.db.First(&monthly,
		"member_id = ? AND benefit_id = ? AND sub_category = ? AND period = ?",
		member.ID, benefit.ID, "physiotherapy", benefitdomain.PeriodMonthly).Error)
	assert.Equal(t, 550.0, monthly.UsedAmount)

	var annual benefitdomain.BenefitUtilization
	require.NoError(t, f.db.First(&annual,
		"member_id = ? AND benefit_id = ? AND sub_category = '' AND period = ?",
		member.ID, benefit.ID, benefitdomain.PeriodAnnual).Error)
	assert.Equal(t, 2100.0, annual.UsedAmount)
}
