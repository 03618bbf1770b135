package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type CommissionStatus string

const (
	CommissionPending CommissionStatus = "pending"
	CommissionPaid    CommissionStatus = "paid"
)

// Commission is one monetary credit owed to one affiliate for one level of
// one converted application. The (application_id, affiliate_id, level)
// unique index makes attribution idempotent per application/affiliate pair;
// the paid transition belongs to an external payout process.
type Commission struct {
	ID            snowflake.ID     `gorm:"primaryKey" json:"id"`
	AffiliateID   snowflake.ID     `gorm:"not null;index;uniqueIndex:ux_commissions_attribution,priority:2" json:"affiliate_id"`
	ApplicationID snowflake.ID     `gorm:"not null;index;uniqueIndex:ux_commissions_attribution,priority:1" json:"application_id"`
	Level         int              `gorm:"not null;uniqueIndex:ux_commissions_attribution,priority:3" json:"level"`
	Amount        decimal.Decimal  `gorm:"type:decimal(38,18);not null" json:"amount"`
	RateApplied   decimal.Decimal  `gorm:"type:decimal(38,18);not null" json:"rate_applied"`
	Status        CommissionStatus `gorm:"type:text;not null;default:'pending';index" json:"status"`
	PayoutDate    *time.Time       `json:"payout_date,omitempty"`
	CreatedAt     time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Commission) TableName() string { return "commissions" }
