package migration

import (
	benefitdomain "github.com/vitalis-health/vitalis/internal/benefit/domain"
	claimdomain "github.com/vitalis-health/vitalis/internal/claim/domain"
	memberdomain "github.com/vitalis-health/vitalis/internal/member/domain"
	rulesdomain "github.com/vitalis-health/vitalis/internal/rules/domain"
	schemedomain "github.com/vitalis-health/vitalis/internal/scheme/domain"
	"gorm.io/gorm"
)

// AutoMigrate creates the schema from the gorm models, used for non-postgres
// dialects (notably the in-memory sqlite used by tests).
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&memberdomain.Member{},
		&schemedomain.Scheme{},
		&schemedomain.PlanTier{},
		&schemedomain.CorporateSchemeConfig{},
		&schemedomain.EmployeeGradeBenefit{},
		&benefitdomain.EnhancedBenefit{},
		&benefitdomain.SchemeBenefitMapping{},
		&benefitdomain.BenefitLimit{},
		&benefitdomain.BenefitRider{},
		&benefitdomain.MemberRiderSelection{},
		&benefitdomain.BenefitUtilization{},
		&claimdomain.Claim{},
		&claimdomain.AdjudicationRecord{},
		&rulesdomain.BenefitRule{},
		&rulesdomain.RuleExecutionLog{},
	)
}
