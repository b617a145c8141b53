package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	FindByID(ctx context.Context, id snowflake.ID) (*Member, error)
}

var ErrMemberNotFound = errors.New("member_not_found")
