package domain

// OverrideLayer is one step of the benefit override chain: a named pure
// rewrite of a mapping. Layers compose left to right; a later layer wins on
// any field it sets.
type OverrideLayer struct {
	Name  string
	Apply func(SchemeBenefitMapping) SchemeBenefitMapping
}

// ApplyChain folds the layers over the base mapping in order. The fixed
// ordering (scheme base, corporate, grade, rider) keeps decisions
// reproducible; callers build the slice in that order.
func ApplyChain(base SchemeBenefitMapping, layers []OverrideLayer) SchemeBenefitMapping {
	resolved := base
	for _, layer := range layers {
		if layer.Apply == nil {
			continue
		}
		resolved = layer.Apply(resolved)
	}
	return resolved
}

// FieldOverrideLayer builds a layer from a field-level override document,
// used for the corporate and grade steps.
type FieldOverride struct {
	IsCovered             *bool
	CoveragePercentage    *float64
	AnnualLimit           *float64
	RemoveAnnualLimit     bool
	DeductibleAmount      *float64
	CopayAmount           *float64
	CopayPercentage       *float64
	CoinsurancePercentage *float64
	RequiresPreAuth       *bool
	RequiresReferral      *bool
	NetworkRestriction    *string
}

func FieldOverrideLayer(name string, o FieldOverride) OverrideLayer {
	return OverrideLayer{
		Name: name,
		Apply: func(m SchemeBenefitMapping) SchemeBenefitMapping {
			if o.IsCovered != nil {
				m.IsCovered = *o.IsCovered
			}
			if o.CoveragePercentage != nil {
				m.CoveragePercentage = *o.CoveragePercentage
			}
			if o.RemoveAnnualLimit {
				m.AnnualLimit = nil
			} else if o.AnnualLimit != nil {
				limit := *o.AnnualLimit
				m.AnnualLimit = &limit
			}
			if o.DeductibleAmount != nil {
				m.DeductibleAmount = *o.DeductibleAmount
			}
			if o.CopayAmount != nil {
				m.CopayAmount = *o.CopayAmount
			}
			if o.CopayPercentage != nil {
				m.CopayPercentage = *o.CopayPercentage
			}
			if o.CoinsurancePercentage != nil {
				m.CoinsurancePercentage = *o.CoinsurancePercentage
			}
			if o.RequiresPreAuth != nil {
				m.RequiresPreAuth = *o.RequiresPreAuth
			}
			if o.RequiresReferral != nil {
				m.RequiresReferral = *o.RequiresReferral
			}
			if o.NetworkRestriction != nil {
				m.NetworkRestriction = *o.NetworkRestriction
			}
			return m
		},
	}
}

// RiderLayer builds the rider step. Riders only widen: coverage percentage
// and annual limits can go up or away, pre-auth can be waived, and a rider
// never flips a covered benefit to uncovered.
func RiderLayer(rider BenefitRider) OverrideLayer {
	return OverrideLayer{
		Name: "rider:" + rider.Name,
		Apply: func(m SchemeBenefitMapping) SchemeBenefitMapping {
			if rider.CoverageUplift > 0 {
				m.CoveragePercentage += rider.CoverageUplift
				if m.CoveragePercentage > 100 {
					m.CoveragePercentage = 100
				}
			}
			if rider.RemovesAnnualLimit {
				m.AnnualLimit = nil
			} else if rider.AnnualLimitUplift > 0 && m.AnnualLimit != nil {
				raised := *m.AnnualLimit + rider.AnnualLimitUplift
				m.AnnualLimit = &raised
			}
			if rider.WaivesPreAuth {
				m.RequiresPreAuth = false
			}
			return m
		},
	}
}
