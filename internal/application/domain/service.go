package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, application *Application) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Application, error)
	FindByReference(ctx context.Context, db *gorm.DB, referenceID string) (*Application, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status) error

	// SetAttribution writes the affiliate fields exactly once: the update is
	// predicated on affiliate_id still being NULL and reports how many rows
	// changed so the caller can detect a lost race.
	SetAttribution(ctx context.Context, db *gorm.DB, id, affiliateID snowflake.ID, code string, at time.Time) (int64, error)
}

type CreateRequest struct {
	ReferenceID   string
	FundingAmount string
}

type Service interface {
	Create(context.Context, CreateRequest) (Application, error)
	Approve(ctx context.Context, id string) (Application, error)
	GetByID(ctx context.Context, id string) (Application, error)
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidReference = errors.New("invalid_reference")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrNotFound         = errors.New("not_found")
	ErrReferenceTaken   = errors.New("reference_taken")
)
