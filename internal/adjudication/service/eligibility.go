package service

import (
	"fmt"

	"github.com/vitalis-health/vitalis/internal/adjudication/domain"
	memberdomain "github.com/vitalis-health/vitalis/internal/member/domain"
)

// verifyEligibility runs the ordered checks, accumulating every failing
// reason rather than stopping at the first.
func (s *Service) verifyEligibility(ectx *domain.Context) domain.EligibilityResult {
	result := domain.EligibilityResult{}

	if ectx.Member.SchemeID == nil || ectx.Scheme == nil {
		result.Reasons = append(result.Reasons, "member has no assigned scheme")
	} else {
		if !ectx.Scheme.IsActive {
			result.Reasons = append(result.Reasons, fmt.Sprintf("scheme %s is not active", ectx.Scheme.Name))
		}
		if !ectx.Scheme.WithinWindow(ectx.Claim.ServiceDate) {
			result.Reasons = append(result.Reasons, fmt.Sprintf("scheme %s is outside its coverage window", ectx.Scheme.Name))
		}

		age := ectx.Member.AgeAt(ectx.Claim.ServiceDate)
		if age < ectx.Scheme.MinAge || age > ectx.Scheme.MaxAge {
			result.Reasons = append(result.Reasons,
				fmt.Sprintf("member age %d is outside the scheme age range %d-%d", age, ectx.Scheme.MinAge, ectx.Scheme.MaxAge))
		}
	}

	if ectx.Member.PlanTierID == nil || ectx.PlanTier == nil {
		result.Reasons = append(result.Reasons, "member has no plan tier")
	} else if !ectx.PlanTier.IsActive {
		result.Reasons = append(result.Reasons, fmt.Sprintf("plan tier %s is not active", ectx.PlanTier.Name))
	}

	if ectx.Member.IsCorporate() && ectx.Corporate != nil && !ectx.Corporate.WithinWindow(ectx.Claim.ServiceDate) {
		result.Reasons = append(result.Reasons, "corporate scheme configuration is outside its effective window")
	}

	switch ectx.Member.PremiumStatus {
	case memberdomain.PremiumStatusCurrent:
	case memberdomain.PremiumStatusGrace:
		result.Warnings = append(result.Warnings, "premium payment is in grace period")
	default:
		result.Reasons = append(result.Reasons, "premium payment is not current")
	}

	result.IsEligible = len(result.Reasons) == 0
	return result
}

// denialResult is the short-circuit outcome when eligibility fails: nothing
// is payable and the member bears the full claim amount. Stages three to six
// never run, so no rule logs exist.
func (s *Service) denialResult(ectx *domain.Context, eligibility domain.EligibilityResult) *domain.AdjudicationResult {
	return &domain.AdjudicationResult{
		ClaimID:  ectx.Claim.ID,
		MemberID: ectx.Member.ID,

		OriginalAmount:       ectx.Claim.Amount,
		ApprovedAmount:       0,
		MemberResponsibility: ectx.Claim.Amount,

		Decision:      domain.DecisionDenied,
		DenialReasons: eligibility.Reasons,
		Eligibility:   eligibility,

		Explanation: "Claim denied: the member is not eligible for coverage. " + joinReasons(eligibility.Reasons),
		NextSteps: []string{
			"Review the eligibility reasons with member services.",
			"Resubmit the claim once the eligibility issue is resolved.",
		},

		AdjudicatedAt: ectx.Now,
	}
}

func joinReasons(reasons []string) string {
	out := ""
	for i, reason := range reasons {
		if i > 0 {
			out += "; "
		}
		out += reason
	}
	return out
}
