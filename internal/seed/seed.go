// Package seed loads a small demo book of business so a fresh install can
// adjudicate claims immediately.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	benefitdomain "github.com/vitalis-health/vitalis/internal/benefit/domain"
	claimdomain "github.com/vitalis-health/vitalis/internal/claim/domain"
	memberdomain "github.com/vitalis-health/vitalis/internal/member/domain"
	rulesdomain "github.com/vitalis-health/vitalis/internal/rules/domain"
	schemedomain "github.com/vitalis-health/vitalis/internal/scheme/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const demoSchemeName = "Vitalis Essential Care"

// EnsureDemoData seeds a scheme, plan tier, benefit catalog, rules and two
// members with submitted claims. It is idempotent: a second startup is a
// no-op when the demo scheme already exists.
func EnsureDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing schemedomain.Scheme
		err := tx.Where("name = ?", demoSchemeName).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return insertDemoData(tx, node)
	})
}

func insertDemoData(tx *gorm.DB, node *snowflake.Node) error {
	now := time.Now().UTC()

	scheme := schemedomain.Scheme{
		ID:         node.Generate(),
		Name:       demoSchemeName,
		IsActive:   true,
		LaunchDate: now.AddDate(-2, 0, 0),
		MinAge:     18,
		MaxAge:     75,
	}
	tier := schemedomain.PlanTier{
		ID:                 node.Generate(),
		SchemeID:           scheme.ID,
		Name:               "Silver",
		IsActive:           true,
		OverallAnnualLimit: 50000,
	}

	outpatient := benefitdomain.EnhancedBenefit{ID: node.Generate(), Name: "Outpatient Care", Category: "outpatient"}
	inpatient := benefitdomain.EnhancedBenefit{ID: node.Generate(), Name: "Inpatient Care", Category: "inpatient"}
	dental := benefitdomain.EnhancedBenefit{ID: node.Generate(), Name: "Dental Care", Category: "dental"}

	annualLimit := func(v float64) *float64 { return &v }

	mappings := []benefitdomain.SchemeBenefitMapping{
		{
			ID:                    node.Generate(),
			SchemeID:              scheme.ID,
			PlanTierID:            tier.ID,
			BenefitID:             outpatient.ID,
			IsCovered:             true,
			CoveragePercentage:    80,
			AnnualLimit:           annualLimit(5000),
			DeductibleAmount:      0,
			CoinsurancePercentage: 20,
		},
		{
			ID:                 node.Generate(),
			SchemeID:           scheme.ID,
			PlanTierID:         tier.ID,
			BenefitID:          inpatient.ID,
			IsCovered:          true,
			CoveragePercentage: 90,
			AnnualLimit:        annualLimit(30000),
			DeductibleAmount:   500,
			RequiresPreAuth:    true,
		},
		{
			ID:                 node.Generate(),
			SchemeID:           scheme.ID,
			PlanTierID:         tier.ID,
			BenefitID:          dental.ID,
			IsCovered:          true,
			CoveragePercentage: 50,
			AnnualLimit:        annualLimit(1000),
			CopayAmount:        25,
		},
	}

	limits := []benefitdomain.BenefitLimit{
		{
			ID:          node.Generate(),
			BenefitID:   outpatient.ID,
			LimitType:   benefitdomain.LimitTypeSubLimit,
			LimitAmount: 500,
			Period:      benefitdomain.PeriodAnnual,
			SubCategory: "physiotherapy",
		},
		{
			ID:             node.Generate(),
			BenefitID:      dental.ID,
			LimitType:      benefitdomain.LimitTypeFrequency,
			LimitAmount:    2,
			Period:         benefitdomain.PeriodAnnual,
			MaxOccurrences: 2,
		},
	}

	rules := []rulesdomain.BenefitRule{
		{
			ID:           node.Generate(),
			Name:         "High value claim review",
			Description:  "Flags large claims for a human examiner.",
			RulePriority: 10,
			IsActive:     true,
			Condition:    datatypes.JSON(`{"compare":{"field":"claim.amount","op":"gt","value":10000}}`),
			Action:       datatypes.JSON(`[{"op":"require_review","reason":"high value claim"}]`),
			EffectiveDate: now.AddDate(-1, 0, 0),
		},
		{
			ID:           node.Generate(),
			Name:         "Out of network cap",
			Description:  "Caps out-of-network claims at 60% of the billed amount.",
			RulePriority: 5,
			IsActive:     true,
			Condition:    datatypes.JSON(`{"compare":{"field":"claim.networkTier","op":"eq","value":"out_of_network"}}`),
			Action:       datatypes.JSON(`[{"op":"multiply_approved","value":0.6}]`),
			EffectiveDate: now.AddDate(-1, 0, 0),
		},
	}

	members := []memberdomain.Member{
		{
			ID:            node.Generate(),
			FullName:      "Amira Tan",
			DateOfBirth:   time.Date(1985, 4, 12, 0, 0, 0, 0, time.UTC),
			Gender:        "female",
			SchemeID:      &scheme.ID,
			PlanTierID:    &tier.ID,
			PremiumStatus: memberdomain.PremiumStatusCurrent,
		},
		{
			ID:            node.Generate(),
			FullName:      "Daniel Okoye",
			DateOfBirth:   time.Date(1972, 11, 3, 0, 0, 0, 0, time.UTC),
			Gender:        "male",
			SchemeID:      &scheme.ID,
			PlanTierID:    &tier.ID,
			PremiumStatus: memberdomain.PremiumStatusCurrent,
		},
	}

	claims := []claimdomain.Claim{
		{
			ID:                  node.Generate(),
			MemberID:            members[0].ID,
			ProviderID:          node.Generate(),
			ProviderNetworkTier: claimdomain.NetworkTierPreferred,
			ServiceCategory:     "outpatient",
			ServiceDate:         now.AddDate(0, 0, -7),
			SubmissionDate:      now.AddDate(0, 0, -5),
			Amount:              1000,
			Status:              claimdomain.StatusSubmitted,
		},
		{
			ID:                  node.Generate(),
			MemberID:            members[1].ID,
			ProviderID:          node.Generate(),
			ProviderNetworkTier: claimdomain.NetworkTierStandard,
			ServiceCategory:     "dental",
			ServiceDate:         now.AddDate(0, 0, -3),
			SubmissionDate:      now.AddDate(0, 0, -2),
			Amount:              300,
			Status:              claimdomain.StatusSubmitted,
		},
	}

	if err := tx.Create(&scheme).Error; err != nil {
		return err
	}
	if err := tx.Create(&tier).Error; err != nil {
		return err
	}
	for _, benefit := range []*benefitdomain.EnhancedBenefit{&outpatient, &inpatient, &dental} {
		if err := tx.Create(benefit).Error; err != nil {
			return err
		}
	}
	if err := tx.Create(&mappings).Error; err != nil {
		return err
	}
	if err := tx.Create(&limits).Error; err != nil {
		return err
	}
	if err := tx.Create(&rules).Error; err != nil {
		return err
	}
	if err := tx.Create(&members).Error; err != nil {
		return err
	}
	return tx.Create(&claims).Error
}
