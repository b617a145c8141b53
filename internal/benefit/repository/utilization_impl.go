package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/vitalis-health/vitalis/internal/benefit/domain"
	"gorm.io/gorm"
)

type utilizationRepository struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewUtilization(db *gorm.DB, genID *snowflake.Node) domain.UtilizationRepository {
	return &utilizationRepository{db: db, genID: genID}
}

func (r *utilizationRepository) ListForMember(ctx context.Context, memberID snowflake.ID, at time.Time) ([]domain.BenefitUtilization, error) {
	var rows []domain.BenefitUtilization
	err := r.db.WithContext(ctx).
		Where("member_id = ? AND period_start <= ? AND period_end > ?", memberID, at, at).
		Order("benefit_id asc, sub_category asc").
		Find(&rows).Error
	return rows, err
}

func (r *utilizationRepository) ApplyUsage(ctx context.Context, tx *gorm.DB, usage domain.UsageDelta) error {
	if tx == nil {
		tx = r.db
	}
	if usage.MemberID == 0 || usage.BenefitID == 0 {
		return errors.New("usage delta missing member or benefit")
	}
	if usage.Period == "" {
		usage.Period = domain.PeriodAnnual
	}

	start, end := domain.PeriodWindow(usage.Period, usage.ServiceDate)

	var row domain.BenefitUtilization
	err := tx.WithContext(ctx).
		Where("member_id = ? AND benefit_id = ? AND sub_category = ? AND period = ? AND period_start = ?",
			usage.MemberID, usage.BenefitID, usage.SubCategory, usage.Period, start).
		First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		row = domain.BenefitUtilization{
			ID:          r.genID.Generate(),
			MemberID:    usage.MemberID,
			BenefitID:   usage.BenefitID,
			SubCategory: usage.SubCategory,
			Period:      usage.Period,
			PeriodStart: start,
			PeriodEnd:   end,
		}
	}

	row.UsedAmount += usage.Amount
	row.UsageCount++
	row.UpdatedAt = time.Now().UTC()

	return tx.WithContext(ctx).Save(&row).Error
}
