package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/affilia/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *RetryRecord) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*RetryRecord, error)
	ListByStatus(ctx context.Context, db *gorm.DB, status Status, page pagination.Pagination) ([]*RetryRecord, error)
	UpdateOutcome(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, errorMessage string, completedAt *time.Time) error
}

type ListRequest struct {
	PageToken string
	PageSize  int32
	Status    string
}

type ListResponse struct {
	pagination.PageInfo
	Records []RetryRecord `json:"records"`
}

type RetryResult struct {
	Record  RetryRecord `json:"record"`
	Outcome string      `json:"outcome"`
	Detail  string      `json:"detail,omitempty"`
}

// Service is the operator-facing retry queue. Retries are triggered one at a
// time by admin tooling; nothing here runs on a timer.
type Service interface {
	ListPending(context.Context, ListRequest) (ListResponse, error)
	Retry(ctx context.Context, id string) (RetryResult, error)
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrNotFound         = errors.New("not_found")
	ErrAlreadyCompleted = errors.New("already_completed")
	ErrRetryLocked      = errors.New("retry_locked")
)
