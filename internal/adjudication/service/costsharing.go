package service

import (
	"github.com/vitalis-health/vitalis/internal/adjudication/domain"
)

// computeCostSharing applies the four components in their fixed order:
// deductible, copay, coinsurance, network discount. Each stage's base
// depends on the previous one. Corporate overrides, when present, replace
// computed components last.
func (s *Service) computeCostSharing(ectx *domain.Context, benefits []domain.BenefitApplicationDetail) domain.CostSharingBreakdown {
	amount := ectx.Claim.Amount
	breakdown := domain.CostSharingBreakdown{}

	// (1) deductible: maximum configured value, never summed
	for _, benefit := range benefits {
		if d := benefit.Mapping.DeductibleAmount; d > breakdown.Deductible {
			breakdown.Deductible = d
		}
	}

	// (2) copay: fixed amount or claim percentage, maximum applies
	for _, benefit := range benefits {
		copay := benefit.Mapping.CopayAmount
		if pct := benefit.Mapping.CopayPercentage; pct > 0 {
			if byPct := amount * pct / 100; byPct > copay {
				copay = byPct
			}
		}
		if copay > breakdown.Copay {
			breakdown.Copay = copay
		}
	}

	// (3) coinsurance: maximum applicable rate on the post-deductible,
	// post-copay base. A benefit covered at N% implies an N-complement
	// member share when no explicit coinsurance is configured.
	var rate float64
	for _, benefit := range benefits {
		r := benefit.Mapping.CoinsurancePercentage
		if implied := 100 - benefit.Mapping.CoveragePercentage; implied > r {
			r = implied
		}
		if r > rate {
			rate = r
		}
	}
	base := amount - breakdown.Deductible - breakdown.Copay
	if base < 0 {
		base = 0
	}
	breakdown.Coinsurance = base * rate / 100

	// (4) network discount: independent of the member components
	rates := s.cfg.Current().NetworkDiscountRates
	breakdown.NetworkDiscount = amount * rates[ectx.Claim.ProviderNetworkTier]

	// (5) corporate overrides replace any computed component
	if corp := ectx.Corporate; corp != nil {
		if corp.DeductibleOverride != nil {
			breakdown.Deductible = *corp.DeductibleOverride
		}
		if corp.CopayOverride != nil {
			breakdown.Copay = *corp.CopayOverride
		}
		if corp.CoinsuranceOverride != nil {
			breakdown.Coinsurance = base * *corp.CoinsuranceOverride / 100
		}
		if corp.NetworkDiscountOverride != nil {
			breakdown.NetworkDiscount = amount * *corp.NetworkDiscountOverride
		}
	}

	breakdown.Deductible = round2(breakdown.Deductible)
	breakdown.Copay = round2(breakdown.Copay)
	breakdown.Coinsurance = round2(breakdown.Coinsurance)
	breakdown.NetworkDiscount = round2(breakdown.NetworkDiscount)
	breakdown.TotalMemberResponsibility = round2(breakdown.Deductible + breakdown.Copay + breakdown.Coinsurance)
	return breakdown
}
