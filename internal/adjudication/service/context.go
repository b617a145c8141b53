package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/vitalis-health/vitalis/internal/adjudication/domain"
	claimdomain "github.com/vitalis-health/vitalis/internal/claim/domain"
	memberdomain "github.com/vitalis-health/vitalis/internal/member/domain"
)

// buildContext loads everything one adjudication needs. A missing claim or
// member is a precondition failure, not an adjudication outcome.
func (s *Service) buildContext(ctx context.Context, claimID snowflake.ID) (*domain.Context, error) {
	claim, err := s.claims.FindByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("load claim %s: %w", claimID, err)
	}
	if claim == nil {
		return nil, claimdomain.ErrClaimNotFound
	}
	// A claim is adjudicated once. Allowing repeats would fold the approved
	// amount into the member's utilization a second time.
	if claim.Status != claimdomain.StatusSubmitted {
		return nil, claimdomain.ErrClaimAlreadyAdjudicated
	}

	member, err := s.members.FindByID(ctx, claim.MemberID)
	if err != nil {
		return nil, fmt.Errorf("load member %s: %w", claim.MemberID, err)
	}
	if member == nil {
		return nil, memberdomain.ErrMemberNotFound
	}

	ectx := &domain.Context{
		Claim:  *claim,
		Member: *member,
		Now:    s.clock.Now(),
	}

	if member.SchemeID != nil {
		scheme, err := s.schemes.FindSchemeByID(ctx, *member.SchemeID)
		if err != nil {
			return nil, fmt.Errorf("load scheme: %w", err)
		}
		ectx.Scheme = scheme
	}
	if member.PlanTierID != nil {
		tier, err := s.schemes.FindPlanTierByID(ctx, *member.PlanTierID)
		if err != nil {
			return nil, fmt.Errorf("load plan tier: %w", err)
		}
		ectx.PlanTier = tier
	}

	if member.IsCorporate() && member.SchemeID != nil {
		corporate, err := s.schemes.FindCorporateConfig(ctx, *member.CompanyID, *member.SchemeID)
		if err != nil {
			return nil, fmt.Errorf("load corporate config: %w", err)
		}
		ectx.Corporate = corporate
		if corporate != nil {
			grade, err := s.schemes.FindGradeBenefit(ctx, corporate.ID, member.EmployeeGrade)
			if err != nil {
				return nil, fmt.Errorf("load grade benefit: %w", err)
			}
			ectx.GradeBenefit = grade
		}
	}

	if ectx.Scheme != nil && ectx.PlanTier != nil {
		mappings, err := s.benefits.ListMappings(ctx, ectx.Scheme.ID, ectx.PlanTier.ID)
		if err != nil {
			return nil, fmt.Errorf("load benefit mappings: %w", err)
		}
		ectx.Mappings = mappings

		benefitIDs := make([]snowflake.ID, 0, len(mappings))
		for _, mapping := range mappings {
			benefitIDs = append(benefitIDs, mapping.BenefitID)
		}
		limits, err := s.benefits.ListLimits(ctx, benefitIDs)
		if err != nil {
			return nil, fmt.Errorf("load benefit limits: %w", err)
		}
		ectx.Limits = limits
	}

	selections, err := s.benefits.ListRiderSelections(ctx, member.ID, claim.ServiceDate)
	if err != nil {
		return nil, fmt.Errorf("load rider selections: %w", err)
	}
	ectx.RiderSelections = selections

	utilization, err := s.utilization.ListForMember(ctx, member.ID, claim.ServiceDate)
	if err != nil {
		return nil, fmt.Errorf("load utilization: %w", err)
	}
	ectx.Utilization = utilization

	rules, err := s.rules.ListApplicable(ctx, claim.ServiceCategory, ectx.Now)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	ectx.Rules = rules

	return ectx, nil
}
