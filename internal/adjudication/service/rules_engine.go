package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vitalis-health/vitalis/internal/adjudication/domain"
	rulesdomain "github.com/vitalis-health/vitalis/internal/rules/domain"
	"github.com/vitalis-health/vitalis/internal/rules/expr"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// executeRules evaluates configured rules against the pipeline's
// intermediate outputs. Rules arrive sorted by priority descending with
// insertion order breaking ties. A mandatory rule that does not pass halts
// evaluation; later rules are neither executed nor logged. A rule whose
// condition or action document cannot be parsed or evaluated is logged as
// ERROR with the error captured, distinct from a condition that evaluated
// false.
func (s *Service) executeRules(
	ctx context.Context,
	ectx *domain.Context,
	eligibility domain.EligibilityResult,
	benefits []domain.BenefitApplicationDetail,
	limits []domain.LimitCheckResult,
	costSharing domain.CostSharingBreakdown,
) (expr.Outcome, []*rulesdomain.RuleExecutionLog, bool) {
	outcome := expr.Outcome{ApprovedAmount: ectx.Claim.Amount}
	execCtx := buildExecutionContext(ectx, eligibility, benefits, limits, costSharing)

	var logs []*rulesdomain.RuleExecutionLog
	mandatoryFailed := false

	for _, rule := range ectx.Rules {
		entry := &rulesdomain.RuleExecutionLog{
			ID:          s.genID.Generate(),
			ClaimID:     ectx.Claim.ID,
			RuleID:      rule.ID,
			RuleName:    rule.Name,
			Priority:    rule.RulePriority,
			Mandatory:   rule.IsMandatory,
			EvaluatedAt: s.clock.Now(),
		}
		started := time.Now()

		result, actions, evalErr := evaluateRule(rule, execCtx, &outcome)
		entry.Result = result
		entry.DurationMicros = time.Since(started).Microseconds()
		if evalErr != nil {
			entry.Error = evalErr.Error()
		}
		if modified := outcomeModifications(result, actions); modified != nil {
			entry.ModifiedFields = modified
		}

		logs = append(logs, entry)
		s.metrics.RecordRuleExecution(ctx, result)

		if result != rulesdomain.ResultPass && rule.IsMandatory {
			mandatoryFailed = true
			s.log.Info("mandatory rule did not pass, halting rule execution",
				zap.String("rule", rule.Name),
				zap.String("result", result),
				zap.Int("priority", rule.RulePriority),
			)
			break
		}
	}

	return outcome, logs, mandatoryFailed
}

// evaluateRule parses and evaluates one rule; on a passing condition it
// applies the rule's actions to the outcome and returns them for the audit
// entry. Broken condition or action documents yield ERROR.
func evaluateRule(rule rulesdomain.BenefitRule, execCtx map[string]any, outcome *expr.Outcome) (string, []expr.Action, error) {
	cond, err := expr.ParseCondition(rule.Condition)
	if err != nil {
		return rulesdomain.ResultError, nil, err
	}

	passed, err := expr.Eval(cond, execCtx)
	if err != nil {
		return rulesdomain.ResultError, nil, err
	}
	if !passed {
		return rulesdomain.ResultFail, nil, nil
	}

	actions, err := expr.ParseActions(rule.Action)
	if err != nil {
		return rulesdomain.ResultError, nil, err
	}
	for _, action := range actions {
		if _, err := expr.Apply(action, outcome); err != nil {
			return rulesdomain.ResultError, nil, err
		}
	}
	return rulesdomain.ResultPass, actions, nil
}

// outcomeModifications records which decision fields a passing rule touched.
func outcomeModifications(result string, actions []expr.Action) datatypes.JSON {
	if result != rulesdomain.ResultPass || len(actions) == 0 {
		return nil
	}
	fields := make([]string, 0, len(actions))
	for _, action := range actions {
		switch action.Op {
		case expr.ActionCapApproved, expr.ActionMultiplyApproved:
			fields = append(fields, "approvedAmount")
		case expr.ActionDeny:
			fields = append(fields, "denialReasons")
		case expr.ActionRequireReview:
			fields = append(fields, "requiresManualReview")
		case expr.ActionAddNote:
			fields = append(fields, "notes")
		}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

// buildExecutionContext flattens the pipeline outputs into the dotted-path
// document rule conditions evaluate against.
func buildExecutionContext(
	ectx *domain.Context,
	eligibility domain.EligibilityResult,
	benefits []domain.BenefitApplicationDetail,
	limits []domain.LimitCheckResult,
	costSharing domain.CostSharingBreakdown,
) map[string]any {
	exceededCount := 0
	for _, limit := range limits {
		if limit.IsExceeded {
			exceededCount++
		}
	}

	var totalRemaining float64
	for _, benefit := range benefits {
		if benefit.RemainingLimit != nil {
			totalRemaining += *benefit.RemainingLimit
		}
	}

	return map[string]any{
		"claim": map[string]any{
			"amount":          ectx.Claim.Amount,
			"serviceCategory": ectx.Claim.ServiceCategory,
			"subCategory":     ectx.Claim.ServiceSubCategory,
			"networkTier":     ectx.Claim.ProviderNetworkTier,
			"hasPreAuth":      ectx.Claim.HasPreAuthorization,
			"hasReferral":     ectx.Claim.HasReferral,
		},
		"member": map[string]any{
			"age":           ectx.Member.AgeAt(ectx.Claim.ServiceDate),
			"gender":        ectx.Member.Gender,
			"isCorporate":   ectx.Member.IsCorporate(),
			"premiumStatus": ectx.Member.PremiumStatus,
		},
		"eligibility": map[string]any{
			"isEligible": eligibility.IsEligible,
		},
		"benefits": map[string]any{
			"coveredCount":   len(benefits),
			"totalRemaining": totalRemaining,
		},
		"limits": map[string]any{
			"anyExceeded":   exceededCount > 0,
			"exceededCount": exceededCount,
		},
		"costSharing": map[string]any{
			"deductible":      costSharing.Deductible,
			"copay":           costSharing.Copay,
			"coinsurance":     costSharing.Coinsurance,
			"networkDiscount": costSharing.NetworkDiscount,
			"total":           costSharing.TotalMemberResponsibility,
		},
	}
}
