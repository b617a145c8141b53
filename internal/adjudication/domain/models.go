// Package domain defines the adjudication pipeline's intermediate and final
// shapes: the per-claim context, eligibility outcome, resolved benefits,
// limit checks, cost sharing and the synthesized result.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	benefitdomain "github.com/vitalis-health/vitalis/internal/benefit/domain"
	claimdomain "github.com/vitalis-health/vitalis/internal/claim/domain"
	memberdomain "github.com/vitalis-health/vitalis/internal/member/domain"
	rulesdomain "github.com/vitalis-health/vitalis/internal/rules/domain"
	schemedomain "github.com/vitalis-health/vitalis/internal/scheme/domain"
)

// Overall decisions.
const (
	DecisionApproved          = "APPROVED"
	DecisionPartiallyApproved = "PARTIALLY_APPROVED"
	DecisionDenied            = "DENIED"
)

// Context holds everything the engine needs for one claim. It is assembled
// once by the context builder and treated as immutable by every later stage.
type Context struct {
	Claim  claimdomain.Claim
	Member memberdomain.Member

	Scheme       *schemedomain.Scheme
	PlanTier     *schemedomain.PlanTier
	Corporate    *schemedomain.CorporateSchemeConfig
	GradeBenefit *schemedomain.EmployeeGradeBenefit

	RiderSelections []benefitdomain.MemberRiderSelection
	Mappings        []benefitdomain.SchemeBenefitMapping
	Limits          []benefitdomain.BenefitLimit
	Utilization     []benefitdomain.BenefitUtilization
	Rules           []rulesdomain.BenefitRule

	// Now is the adjudication wall-clock instant, fixed at context build.
	Now time.Time
}

// UsedAmount returns the member's amount-based usage for a benefit within
// the given period's window, zero when no utilization row covers the claim's
// service date. Each period kind keeps its own row, so a monthly limit never
// reads annual usage.
func (c Context) UsedAmount(benefitID snowflake.ID, subCategory, period string) float64 {
	for _, row := range c.Utilization {
		if row.BenefitID == benefitID && row.SubCategory == subCategory &&
			row.Period == period && row.Covers(c.Claim.ServiceDate) {
			return row.UsedAmount
		}
	}
	return 0
}

// UsageCount returns the member's occurrence count for a benefit within the
// given period's window.
func (c Context) UsageCount(benefitID snowflake.ID, period string) int {
	for _, row := range c.Utilization {
		if row.BenefitID == benefitID && row.SubCategory == "" &&
			row.Period == period && row.Covers(c.Claim.ServiceDate) {
			return row.UsageCount
		}
	}
	return 0
}

// TotalUsedAmount sums annual amount-based usage across all benefits,
// feeding the overall annual limit check.
func (c Context) TotalUsedAmount() float64 {
	var total float64
	for _, row := range c.Utilization {
		if row.SubCategory == "" && row.Period == benefitdomain.PeriodAnnual && row.Covers(c.Claim.ServiceDate) {
			total += row.UsedAmount
		}
	}
	return total
}

// EligibilityResult is stage two's output. Reasons are denial grounds;
// warnings ride along without blocking.
type EligibilityResult struct {
	IsEligible bool     `json:"isEligible"`
	Reasons    []string `json:"reasons,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// BenefitApplicationDetail is one applicable benefit after the override
// chain has been applied.
type BenefitApplicationDetail struct {
	BenefitID   snowflake.ID `json:"benefitId"`
	BenefitName string       `json:"benefitName"`
	Category    string       `json:"category"`

	Mapping benefitdomain.SchemeBenefitMapping `json:"-"`

	CoveragePercentage float64  `json:"coveragePercentage"`
	AnnualLimit        *float64 `json:"annualLimit,omitempty"`
	UsedAmount         float64  `json:"usedAmount"`
	RemainingLimit     *float64 `json:"remainingLimit,omitempty"`

	// AppliedLayers names the override layers that touched this mapping,
	// in application order.
	AppliedLayers []string `json:"appliedLayers,omitempty"`
}

// LimitCheckResult is one limit instance's evaluation. Exceeding a limit is
// input to the synthesizer, not a denial by itself.
type LimitCheckResult struct {
	LimitType   string       `json:"limitType"`
	BenefitID   snowflake.ID `json:"benefitId,omitempty"`
	BenefitName string       `json:"benefitName,omitempty"`
	SubCategory string       `json:"subCategory,omitempty"`
	Period      string       `json:"period,omitempty"`

	LimitAmount     float64 `json:"limitAmount"`
	CurrentUsage    float64 `json:"currentUsage"`
	RemainingAmount float64 `json:"remainingAmount"`
	IsExceeded      bool    `json:"isExceeded"`
}

// CostSharingBreakdown is stage five's output.
type CostSharingBreakdown struct {
	Deductible      float64 `json:"deductible"`
	Copay           float64 `json:"copay"`
	Coinsurance     float64 `json:"coinsurance"`
	NetworkDiscount float64 `json:"networkDiscount"`

	// TotalMemberResponsibility is deductible + copay + coinsurance; the
	// network discount reduces the insurer's outlay, not the member's.
	TotalMemberResponsibility float64 `json:"totalMemberResponsibility"`
}

// RuleSummary is the applied-rule digest embedded in the result.
type RuleSummary struct {
	RuleID    snowflake.ID `json:"ruleId"`
	RuleName  string       `json:"ruleName"`
	Priority  int          `json:"priority"`
	Mandatory bool         `json:"mandatory"`
	Result    string       `json:"result"`
	Error     string       `json:"error,omitempty"`
}

// AdjudicationResult is the synthesized decision for one claim.
type AdjudicationResult struct {
	ClaimID  snowflake.ID `json:"claimId"`
	MemberID snowflake.ID `json:"memberId"`

	OriginalAmount        float64 `json:"originalAmount"`
	ApprovedAmount        float64 `json:"approvedAmount"`
	MemberResponsibility  float64 `json:"memberResponsibility"`
	InsurerResponsibility float64 `json:"insurerResponsibility"`

	Decision             string `json:"decision"`
	RequiresManualReview bool   `json:"requiresManualReview"`

	DenialReasons []string `json:"denialReasons,omitempty"`

	// Notes are adjudicator annotations added by rules.
	Notes []string `json:"notes,omitempty"`

	Eligibility EligibilityResult          `json:"eligibility"`
	Benefits    []BenefitApplicationDetail `json:"benefits,omitempty"`
	LimitChecks []LimitCheckResult         `json:"limitChecks,omitempty"`
	CostSharing CostSharingBreakdown       `json:"costSharing"`
	RuleLogs    []RuleSummary              `json:"ruleLogs,omitempty"`

	Explanation string   `json:"explanation"`
	NextSteps   []string `json:"nextSteps,omitempty"`

	AdjudicatedAt  time.Time     `json:"adjudicatedAt"`
	ProcessingTime time.Duration `json:"-"`
}
