package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/vitalis-health/vitalis/internal/member/domain"
	"github.com/vitalis-health/vitalis/pkg/repository"
	"gorm.io/gorm"
)

type memberRepository struct {
	store repository.Repository[domain.Member]
}

func New(db *gorm.DB) domain.Repository {
	return &memberRepository{store: repository.ProvideStore[domain.Member](db)}
}

func (r *memberRepository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Member, error) {
	return r.store.FindOne(ctx, &domain.Member{ID: id})
}
