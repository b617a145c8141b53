package service

import (
	"github.com/vitalis-health/vitalis/internal/adjudication/domain"
	benefitdomain "github.com/vitalis-health/vitalis/internal/benefit/domain"
	schemedomain "github.com/vitalis-health/vitalis/internal/scheme/domain"
)

// resolveBenefits merges the override layers into the final applicable
// benefit list. The layering order is fixed: scheme base, corporate, grade,
// rider. Later layers win on conflicting fields; riders only widen. The
// input mappings arrive ordered by benefit id, so resolving the same
// configuration twice yields an identical list.
func (s *Service) resolveBenefits(ectx *domain.Context) []domain.BenefitApplicationDetail {
	corporateOverrides := s.layerOverrides(ectx.Corporate)
	gradeOverrides := s.gradeLayerOverrides(ectx.GradeBenefit)

	details := make([]domain.BenefitApplicationDetail, 0, len(ectx.Mappings))
	for _, base := range ectx.Mappings {
		var layers []benefitdomain.OverrideLayer
		var applied []string

		key := base.BenefitID.String()
		if override, ok := corporateOverrides[key]; ok {
			layers = append(layers, benefitdomain.FieldOverrideLayer("corporate", toFieldOverride(override)))
			applied = append(applied, "corporate")
		}
		if override, ok := gradeOverrides[key]; ok {
			layers = append(layers, benefitdomain.FieldOverrideLayer("grade", toFieldOverride(override)))
			applied = append(applied, "grade")
		}
		for _, selection := range ectx.RiderSelections {
			if selection.Rider.BenefitID != base.BenefitID {
				continue
			}
			layers = append(layers, benefitdomain.RiderLayer(selection.Rider))
			applied = append(applied, "rider:"+selection.Rider.Name)
		}

		resolved := benefitdomain.ApplyChain(base, layers)
		if !resolved.IsCovered {
			continue
		}
		if resolved.Benefit.Category != ectx.Claim.ServiceCategory {
			continue
		}

		used := ectx.UsedAmount(resolved.BenefitID, "", benefitdomain.PeriodAnnual)
		detail := domain.BenefitApplicationDetail{
			BenefitID:          resolved.BenefitID,
			BenefitName:        resolved.Benefit.Name,
			Category:           resolved.Benefit.Category,
			Mapping:            resolved,
			CoveragePercentage: resolved.CoveragePercentage,
			UsedAmount:         used,
			AppliedLayers:      applied,
		}
		if resolved.AnnualLimit != nil {
			limit := *resolved.AnnualLimit
			remaining := limit - used
			if remaining < 0 {
				remaining = 0
			}
			detail.AnnualLimit = &limit
			detail.RemainingLimit = &remaining
		}
		details = append(details, detail)
	}
	return details
}

func (s *Service) layerOverrides(corporate *schemedomain.CorporateSchemeConfig) map[string]schemedomain.MappingOverride {
	if corporate == nil {
		return nil
	}
	overrides, err := corporate.Overrides()
	if err != nil {
		s.log.Warn("invalid corporate benefit overrides, layer skipped")
		return nil
	}
	return overrides
}

func (s *Service) gradeLayerOverrides(grade *schemedomain.EmployeeGradeBenefit) map[string]schemedomain.MappingOverride {
	if grade == nil {
		return nil
	}
	overrides, err := grade.Overrides()
	if err != nil {
		s.log.Warn("invalid grade benefit overrides, layer skipped")
		return nil
	}
	return overrides
}

func toFieldOverride(o schemedomain.MappingOverride) benefitdomain.FieldOverride {
	return benefitdomain.FieldOverride{
		IsCovered:             o.IsCovered,
		CoveragePercentage:    o.CoveragePercentage,
		AnnualLimit:           o.AnnualLimit,
		RemoveAnnualLimit:     o.RemoveAnnualLimit,
		DeductibleAmount:      o.DeductibleAmount,
		CopayAmount:           o.CopayAmount,
		CopayPercentage:       o.CopayPercentage,
		CoinsurancePercentage: o.CoinsurancePercentage,
		RequiresPreAuth:       o.RequiresPreAuth,
		RequiresReferral:      o.RequiresReferral,
		NetworkRestriction:    o.NetworkRestriction,
	}
}
