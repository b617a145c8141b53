package service

import (
	"context"
	"math"
	"slices"

	"github.com/bwmarrin/snowflake"
	"github.com/vitalis-health/vitalis/internal/adjudication/domain"
	benefitdomain "github.com/vitalis-health/vitalis/internal/benefit/domain"
	claimdomain "github.com/vitalis-health/vitalis/internal/claim/domain"
	"github.com/vitalis-health/vitalis/internal/clock"
	"github.com/vitalis-health/vitalis/internal/config"
	memberdomain "github.com/vitalis-health/vitalis/internal/member/domain"
	"github.com/vitalis-health/vitalis/internal/memberlock"
	"github.com/vitalis-health/vitalis/internal/observability/metrics"
	rulesdomain "github.com/vitalis-health/vitalis/internal/rules/domain"
	schemedomain "github.com/vitalis-health/vitalis/internal/scheme/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	cfg   *config.AdjudicationConfigHolder

	members     memberdomain.Repository
	schemes     schemedomain.Repository
	benefits    benefitdomain.Repository
	utilization benefitdomain.UtilizationRepository
	claims      claimdomain.Repository
	rules       rulesdomain.Repository

	locks   *memberlock.Locker
	metrics *metrics.Metrics
}

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config *config.AdjudicationConfigHolder

	Members     memberdomain.Repository
	Schemes     schemedomain.Repository
	Benefits    benefitdomain.Repository
	Utilization benefitdomain.UtilizationRepository
	Claims      claimdomain.Repository
	Rules       rulesdomain.Repository

	Locks   *memberlock.Locker
	Metrics *metrics.Metrics `optional:"true"`
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("adjudication.service"),
		genID: p.GenID,
		clock: p.Clock,
		cfg:   p.Config,

		members:     p.Members,
		schemes:     p.Schemes,
		benefits:    p.Benefits,
		utilization: p.Utilization,
		claims:      p.Claims,
		rules:       p.Rules,

		locks:   p.Locks,
		metrics: p.Metrics,
	}
}

// Adjudicate runs the pipeline: context, eligibility, benefit resolution,
// limit checks, cost sharing, rules, synthesis, then persists the record and
// folds the approved amount into the member's utilization.
func (s *Service) Adjudicate(ctx context.Context, claimID snowflake.ID) (*domain.AdjudicationResult, error) {
	started := s.clock.Now()

	ectx, err := s.buildContext(ctx, claimID)
	if err != nil {
		s.metrics.RecordAdjudicationError(ctx, errorReason(err))
		return nil, err
	}

	log := s.log.With(
		zap.String("claim_id", ectx.Claim.ID.String()),
		zap.String("member_id", ectx.Member.ID.String()),
	)

	eligibility := s.verifyEligibility(ectx)
	if !eligibility.IsEligible {
		result := s.denialResult(ectx, eligibility)
		result.ProcessingTime = s.clock.Now().Sub(started)
		if err := s.persist(ctx, ectx, result, nil); err != nil {
			return nil, err
		}
		log.Info("claim denied on eligibility", zap.Strings("reasons", eligibility.Reasons))
		s.metrics.RecordAdjudication(ctx, result.Decision, result.ProcessingTime)
		return result, nil
	}

	benefits := s.resolveBenefits(ectx)
	limits := s.checkLimits(ectx, benefits)
	costSharing := s.computeCostSharing(ectx, benefits)
	outcome, logs, mandatoryFailed := s.executeRules(ctx, ectx, eligibility, benefits, limits, costSharing)

	result := s.synthesize(ectx, eligibility, benefits, limits, costSharing, outcome, logs, mandatoryFailed)
	result.ProcessingTime = s.clock.Now().Sub(started)

	if err := s.persist(ctx, ectx, result, logs); err != nil {
		return nil, err
	}

	log.Info("claim adjudicated",
		zap.String("decision", result.Decision),
		zap.Float64("approved_amount", result.ApprovedAmount),
		zap.Bool("manual_review", result.RequiresManualReview),
		zap.Duration("elapsed", result.ProcessingTime),
	)
	s.metrics.RecordAdjudication(ctx, result.Decision, result.ProcessingTime)
	return result, nil
}

// persist writes the adjudication record, rule logs and, for payable
// decisions, the utilization delta. The member lock serializes the
// utilization read-modify-write against sibling claims of the same member.
func (s *Service) persist(ctx context.Context, ectx *domain.Context, result *domain.AdjudicationResult, logs []*rulesdomain.RuleExecutionLog) error {
	release, err := s.locks.Acquire(ctx, ectx.Member.ID.String())
	if err != nil {
		return err
	}
	defer release()

	record, err := buildRecord(s.genID.Generate(), result)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.claims.RecordAdjudication(ctx, tx, record, claimStatus(result.Decision)); err != nil {
			return err
		}
		if err := s.rules.InsertLogs(ctx, tx, logs); err != nil {
			return err
		}
		if result.ApprovedAmount <= 0 || len(result.Benefits) == 0 {
			return nil
		}

		primary := result.Benefits[0]
		delta := benefitdomain.UsageDelta{
			MemberID:    ectx.Member.ID,
			BenefitID:   primary.BenefitID,
			Amount:      result.ApprovedAmount,
			ServiceDate: ectx.Claim.ServiceDate,
		}
		for _, period := range accrualPeriods(ectx.Limits, primary.BenefitID, "") {
			delta.Period = period
			if err := s.utilization.ApplyUsage(ctx, tx, delta); err != nil {
				return err
			}
		}
		if sub := ectx.Claim.ServiceSubCategory; sub != "" {
			delta.SubCategory = sub
			for _, period := range accrualPeriods(ectx.Limits, primary.BenefitID, sub) {
				delta.Period = period
				if err := s.utilization.ApplyUsage(ctx, tx, delta); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// accrualPeriods returns the period windows usage must accrue into so every
// configured limit on the benefit reads a window of its own cadence: always
// annual, plus each non-annual period a limit in scope declares. Scope is
// the claimed sub-category for sub_limit rows and the benefit total
// otherwise.
func accrualPeriods(limits []benefitdomain.BenefitLimit, benefitID snowflake.ID, subCategory string) []string {
	periods := []string{benefitdomain.PeriodAnnual}
	for _, limit := range limits {
		if limit.BenefitID != benefitID || limit.Period == "" || limit.Period == benefitdomain.PeriodAnnual {
			continue
		}
		if subCategory == "" {
			if limit.LimitType == benefitdomain.LimitTypeSubLimit {
				continue
			}
		} else if limit.LimitType != benefitdomain.LimitTypeSubLimit || limit.SubCategory != subCategory {
			continue
		}
		if !slices.Contains(periods, limit.Period) {
			periods = append(periods, limit.Period)
		}
	}
	return periods
}

func claimStatus(decision string) string {
	switch decision {
	case domain.DecisionApproved:
		return claimdomain.StatusApproved
	case domain.DecisionPartiallyApproved:
		return claimdomain.StatusPartiallyApproved
	default:
		return claimdomain.StatusDenied
	}
}

func errorReason(err error) string {
	switch err {
	case claimdomain.ErrClaimNotFound:
		return "claim_not_found"
	case claimdomain.ErrClaimAlreadyAdjudicated:
		return "claim_already_adjudicated"
	case memberdomain.ErrMemberNotFound:
		return "member_not_found"
	default:
		return "context_build_failed"
	}
}

// round2 normalizes money to cents.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
