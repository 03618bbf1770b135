package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/affilia/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, affiliate *Affiliate) error
	InsertEdge(ctx context.Context, db *gorm.DB, edge *ReferralEdge) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Affiliate, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Affiliate, error)
	FindEdge(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID) (*ReferralEdge, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Affiliate, error)
}

type ListFilter struct {
	Status Status
	Tier   Tier
}
