package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/affilia/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, click *Click) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Click, error)
	MarkConverted(ctx context.Context, db *gorm.DB, id, leadID snowflake.ID) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Click, error)
}

type ListFilter struct {
	AffiliateID snowflake.ID
	Code        string
}
