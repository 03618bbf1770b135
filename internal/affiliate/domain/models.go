package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// RateMultiplier scales the affiliate's own level-1 commission rate.
// Upline levels always use the raw schedule percentage.
func (t Tier) RateMultiplier() decimal.Decimal {
	switch t {
	case TierSilver:
		return decimal.NewFromFloat(1.1)
	case TierGold:
		return decimal.NewFromFloat(1.25)
	case TierPlatinum:
		return decimal.NewFromFloat(1.5)
	default:
		return decimal.NewFromInt(1)
	}
}

func (t Tier) Valid() bool {
	switch t {
	case TierBronze, TierSilver, TierGold, TierPlatinum:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusSuspended Status = "suspended"
)

type Affiliate struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name           string            `gorm:"not null" json:"name"`
	Email          string            `gorm:"not null" json:"email"`
	Code           string            `gorm:"not null;uniqueIndex:ux_affiliates_code" json:"code"`
	Tier           Tier              `gorm:"type:text;not null;default:'bronze'" json:"tier"`
	Status         Status            `gorm:"type:text;not null;default:'pending';index" json:"status"`
	PaymentMethod  string            `gorm:"type:text" json:"payment_method,omitempty"`
	PaymentDetails datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"payment_details,omitempty"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Affiliate) TableName() string { return "affiliates" }

// ReferralEdge links a child affiliate to its sponsor. One parent per child;
// the graph is a forest, validated acyclic at registration time.
type ReferralEdge struct {
	AffiliateID snowflake.ID `gorm:"primaryKey" json:"affiliate_id"`
	SponsorID   snowflake.ID `gorm:"not null;index" json:"sponsor_id"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ReferralEdge) TableName() string { return "referral_edges" }
