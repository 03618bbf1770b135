package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/affilia/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, commission *Commission) error
	FindByAttribution(ctx context.Context, db *gorm.DB, applicationID, affiliateID snowflake.ID, level int) (*Commission, error)
	ListByApplication(ctx context.Context, db *gorm.DB, applicationID snowflake.ID) ([]Commission, error)
	ListByAffiliate(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID, page pagination.Pagination) ([]*Commission, error)
}

type Outcome string

const (
	OutcomeAttributed        Outcome = "attributed"
	OutcomeAlreadyAttributed Outcome = "already_attributed"
	OutcomeDeferred          Outcome = "deferred"
)

type AttributeRequest struct {
	ApplicationID string
	ReferenceID   string
	ReferralCode  string
	FundingAmount decimal.Decimal

	// ClickID, when known, has its converted flag set inside the same
	// transaction. Its absence never fails attribution.
	ClickID string
}

type AttributionResult struct {
	Outcome     Outcome      `json:"outcome"`
	Detail      string       `json:"detail,omitempty"`
	Commissions []Commission `json:"commissions,omitempty"`
}

// Engine runs the idempotent conversion-to-commission workflow. Terminal
// conditions (unknown code, ineligible affiliate, graph cycle, bad input)
// come back as errors and are never retried; transient failures come back
// as an OutcomeDeferred result after exactly one retry record is written.
type Engine interface {
	Attribute(ctx context.Context, req AttributeRequest) (AttributionResult, error)
	ListByApplication(ctx context.Context, applicationID string) ([]Commission, error)
	ListByAffiliate(ctx context.Context, affiliateID string, pageToken string, pageSize int32) ([]Commission, error)
}
