package service

import (
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/vitalis-health/vitalis/internal/adjudication/domain"
	benefitdomain "github.com/vitalis-health/vitalis/internal/benefit/domain"
	claimdomain "github.com/vitalis-health/vitalis/internal/claim/domain"
	rulesdomain "github.com/vitalis-health/vitalis/internal/rules/domain"
	"github.com/vitalis-health/vitalis/internal/rules/expr"
	"gorm.io/datatypes"
)

// synthesize folds every stage's output into the final decision. The
// approved amount starts at the claim amount, drops to zero when no covered
// benefit applies, is capped by each exceeded benefit annual limit's
// remaining headroom, honors rule mutations, and is forced to zero when a
// mandatory rule failed.
func (s *Service) synthesize(
	ectx *domain.Context,
	eligibility domain.EligibilityResult,
	benefits []domain.BenefitApplicationDetail,
	limits []domain.LimitCheckResult,
	costSharing domain.CostSharingBreakdown,
	outcome expr.Outcome,
	logs []*rulesdomain.RuleExecutionLog,
	mandatoryFailed bool,
) *domain.AdjudicationResult {
	original := ectx.Claim.Amount
	approved := original
	var denialReasons []string

	if len(benefits) == 0 {
		approved = 0
		denialReasons = append(denialReasons, "no covered benefit applies to the claimed service")
	}

	for _, limit := range limits {
		if limit.LimitType != benefitdomain.LimitTypeBenefitAnnual || !limit.IsExceeded {
			continue
		}
		if approved > limit.RemainingAmount {
			approved = limit.RemainingAmount
		}
	}

	if outcome.ApprovedAmount < approved {
		approved = outcome.ApprovedAmount
	}
	denialReasons = append(denialReasons, outcome.DenialReasons...)

	if mandatoryFailed {
		approved = 0
		denialReasons = append(denialReasons, "a mandatory adjudication rule failed")
	}
	if approved < 0 {
		approved = 0
	}
	approved = round2(approved)

	decision := domain.DecisionPartiallyApproved
	switch {
	case approved == round2(original):
		decision = domain.DecisionApproved
	case approved == 0:
		decision = domain.DecisionDenied
	}

	anyRuleFailed := false
	for _, entry := range logs {
		if entry.Result != rulesdomain.ResultPass {
			anyRuleFailed = true
			break
		}
	}
	anySubLimitExceeded := false
	for _, limit := range limits {
		if limit.LimitType == benefitdomain.LimitTypeSubLimit && limit.IsExceeded {
			anySubLimitExceeded = true
			break
		}
	}
	requiresReview := outcome.RequiresManualReview ||
		anyRuleFailed ||
		anySubLimitExceeded ||
		original > s.cfg.Current().HighValueThreshold

	primaryMapping, hasPrimary := primaryMapping(benefits)
	if hasPrimary && primaryMapping.RequiresPreAuth && !ectx.Claim.HasPreAuthorization {
		requiresReview = true
		eligibility.Warnings = append(eligibility.Warnings, "benefit requires pre-authorization; none on file")
	}
	if hasPrimary && primaryMapping.RequiresReferral && !ectx.Claim.HasReferral {
		requiresReview = true
		eligibility.Warnings = append(eligibility.Warnings, "benefit requires a referral; none on file")
	}

	memberShare := costSharing.TotalMemberResponsibility
	if memberShare > approved {
		memberShare = approved
	}
	insurerShare := round2(approved - memberShare)

	result := &domain.AdjudicationResult{
		ClaimID:  ectx.Claim.ID,
		MemberID: ectx.Member.ID,

		OriginalAmount:        round2(original),
		ApprovedAmount:        approved,
		MemberResponsibility:  round2(memberShare),
		InsurerResponsibility: insurerShare,

		Decision:             decision,
		RequiresManualReview: requiresReview,
		DenialReasons:        denialReasons,
		Notes:                outcome.Notes,

		Eligibility: eligibility,
		Benefits:    benefits,
		LimitChecks: limits,
		CostSharing: costSharing,
		RuleLogs:    summarizeLogs(logs),

		AdjudicatedAt: ectx.Now,
	}
	result.Explanation = explain(result)
	result.NextSteps = nextSteps(result)
	return result
}

func primaryMapping(benefits []domain.BenefitApplicationDetail) (benefitdomain.SchemeBenefitMapping, bool) {
	if len(benefits) == 0 {
		return benefitdomain.SchemeBenefitMapping{}, false
	}
	return benefits[0].Mapping, true
}

func summarizeLogs(logs []*rulesdomain.RuleExecutionLog) []domain.RuleSummary {
	if len(logs) == 0 {
		return nil
	}
	summaries := make([]domain.RuleSummary, 0, len(logs))
	for _, entry := range logs {
		summaries = append(summaries, domain.RuleSummary{
			RuleID:    entry.RuleID,
			RuleName:  entry.RuleName,
			Priority:  entry.Priority,
			Mandatory: entry.Mandatory,
			Result:    entry.Result,
			Error:     entry.Error,
		})
	}
	return summaries
}

func explain(result *domain.AdjudicationResult) string {
	switch result.Decision {
	case domain.DecisionApproved:
		return fmt.Sprintf("Claim approved in full for %.2f. Member responsibility %.2f, insurer responsibility %.2f.",
			result.ApprovedAmount, result.MemberResponsibility, result.InsurerResponsibility)
	case domain.DecisionPartiallyApproved:
		return fmt.Sprintf("Claim partially approved: %.2f of %.2f. %s",
			result.ApprovedAmount, result.OriginalAmount, joinReasons(result.DenialReasons))
	default:
		return "Claim denied. " + joinReasons(result.DenialReasons)
	}
}

func nextSteps(result *domain.AdjudicationResult) []string {
	var steps []string
	switch result.Decision {
	case domain.DecisionApproved:
		steps = append(steps, "No further action required; payment will be processed.")
	case domain.DecisionPartiallyApproved:
		steps = append(steps, "Review the benefit limit breakdown for the unpaid portion.")
		steps = append(steps, "The member may appeal the partial payment within 30 days.")
	default:
		steps = append(steps, "Review the denial reasons.")
		steps = append(steps, "The member may appeal the decision within 30 days.")
	}
	if result.RequiresManualReview {
		steps = append(steps, "A claims examiner will review this decision before payment.")
	}
	return steps
}

// buildRecord converts the in-memory result into its persisted form.
func buildRecord(id snowflake.ID, result *domain.AdjudicationResult) (*claimdomain.AdjudicationRecord, error) {
	denialReasons, err := marshalJSON(result.DenialReasons)
	if err != nil {
		return nil, err
	}
	notes, err := marshalJSON(result.Notes)
	if err != nil {
		return nil, err
	}
	costSharing, err := marshalJSON(result.CostSharing)
	if err != nil {
		return nil, err
	}
	limitChecks, err := marshalJSON(result.LimitChecks)
	if err != nil {
		return nil, err
	}
	appliedRules, err := marshalJSON(result.RuleLogs)
	if err != nil {
		return nil, err
	}
	steps, err := marshalJSON(result.NextSteps)
	if err != nil {
		return nil, err
	}

	return &claimdomain.AdjudicationRecord{
		ID:      id,
		ClaimID: result.ClaimID,

		OriginalAmount:        result.OriginalAmount,
		ApprovedAmount:        result.ApprovedAmount,
		MemberResponsibility:  result.MemberResponsibility,
		InsurerResponsibility: result.InsurerResponsibility,

		Decision:             result.Decision,
		RequiresManualReview: result.RequiresManualReview,

		DenialReasons: denialReasons,
		Notes:         notes,
		CostSharing:   costSharing,
		LimitChecks:   limitChecks,
		AppliedRules:  appliedRules,
		NextSteps:     steps,

		Explanation:   result.Explanation,
		AdjudicatedAt: result.AdjudicatedAt,
	}, nil
}

func marshalJSON(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
