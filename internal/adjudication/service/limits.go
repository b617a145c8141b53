package service

import (
	"github.com/vitalis-health/vitalis/internal/adjudication/domain"
	benefitdomain "github.com/vitalis-health/vitalis/internal/benefit/domain"
)

// checkLimits evaluates every limit instance independently against pre-claim
// usage. Exceeding a limit never denies by itself; the synthesizer decides
// what it costs. IsExceeded compares usage already on the books, not the
// projection after this claim.
func (s *Service) checkLimits(ectx *domain.Context, benefits []domain.BenefitApplicationDetail) []domain.LimitCheckResult {
	var results []domain.LimitCheckResult

	if ectx.PlanTier != nil && ectx.PlanTier.OverallAnnualLimit > 0 {
		total := ectx.TotalUsedAmount()
		results = append(results, limitResult(domain.LimitCheckResult{
			LimitType:    benefitdomain.LimitTypeOverallAnnual,
			Period:       benefitdomain.PeriodAnnual,
			LimitAmount:  ectx.PlanTier.OverallAnnualLimit,
			CurrentUsage: total,
		}))
	}

	age := ectx.Member.AgeAt(ectx.Claim.ServiceDate)

	for _, benefit := range benefits {
		if benefit.AnnualLimit != nil {
			results = append(results, limitResult(domain.LimitCheckResult{
				LimitType:    benefitdomain.LimitTypeBenefitAnnual,
				BenefitID:    benefit.BenefitID,
				BenefitName:  benefit.BenefitName,
				Period:       benefitdomain.PeriodAnnual,
				LimitAmount:  *benefit.AnnualLimit,
				CurrentUsage: benefit.UsedAmount,
			}))
		}

		for _, limit := range ectx.Limits {
			if limit.BenefitID != benefit.BenefitID {
				continue
			}
			switch limit.LimitType {
			case benefitdomain.LimitTypeSubLimit:
				results = append(results, limitResult(domain.LimitCheckResult{
					LimitType:    benefitdomain.LimitTypeSubLimit,
					BenefitID:    benefit.BenefitID,
					BenefitName:  benefit.BenefitName,
					SubCategory:  limit.SubCategory,
					Period:       limit.Period,
					LimitAmount:  limit.LimitAmount,
					CurrentUsage: ectx.UsedAmount(benefit.BenefitID, limit.SubCategory, limit.Period),
				}))
			case benefitdomain.LimitTypeFrequency:
				results = append(results, limitResult(domain.LimitCheckResult{
					LimitType:    benefitdomain.LimitTypeFrequency,
					BenefitID:    benefit.BenefitID,
					BenefitName:  benefit.BenefitName,
					Period:       limit.Period,
					LimitAmount:  float64(limit.MaxOccurrences),
					CurrentUsage: float64(ectx.UsageCount(benefit.BenefitID, limit.Period)),
				}))
			case benefitdomain.LimitTypeAgeBased:
				if !limit.AppliesToAge(age, ectx.Member.Gender) {
					continue
				}
				results = append(results, limitResult(domain.LimitCheckResult{
					LimitType:    benefitdomain.LimitTypeAgeBased,
					BenefitID:    benefit.BenefitID,
					BenefitName:  benefit.BenefitName,
					Period:       limit.Period,
					LimitAmount:  limit.LimitAmount,
					CurrentUsage: ectx.UsedAmount(benefit.BenefitID, "", limit.Period),
				}))
			}
		}
	}

	return results
}

func limitResult(r domain.LimitCheckResult) domain.LimitCheckResult {
	remaining := r.LimitAmount - r.CurrentUsage
	if remaining < 0 {
		remaining = 0
	}
	r.RemainingAmount = remaining
	r.IsExceeded = r.CurrentUsage > r.LimitAmount
	return r
}
