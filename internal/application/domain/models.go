package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusDeclined  Status = "declined"
)

// Application mirrors the funding application owned by the external
// application subsystem. The engine reads funding amount and status, and
// writes the affiliate attribution fields exactly once.
type Application struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	ReferenceID   string          `gorm:"not null;uniqueIndex:ux_applications_reference" json:"reference_id"`
	FundingAmount decimal.Decimal `gorm:"type:decimal(38,18);not null" json:"funding_amount"`
	Status        Status          `gorm:"type:text;not null;default:'submitted';index" json:"status"`
	AffiliateID   *snowflake.ID   `gorm:"index" json:"affiliate_id,omitempty"`
	AffiliateCode *string         `gorm:"type:text" json:"affiliate_code,omitempty"`
	AttributedAt  *time.Time      `json:"attributed_at,omitempty"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Application) TableName() string { return "applications" }
