package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Click is one immutable row of the referral visit ledger. Rows are only
// ever mutated to flip the converted flag once a lead is attributed.
type Click struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	AffiliateID snowflake.ID  `gorm:"not null;index" json:"affiliate_id"`
	Code        string        `gorm:"not null;index" json:"code"`
	IPAddress   string        `gorm:"type:text" json:"ip_address,omitempty"`
	UserAgent   string        `gorm:"type:text" json:"user_agent,omitempty"`
	LandingPage string        `gorm:"type:text" json:"landing_page,omitempty"`
	Converted   bool          `gorm:"not null;default:false" json:"converted"`
	LeadID      *snowflake.ID `gorm:"index" json:"lead_id,omitempty"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (Click) TableName() string { return "clicks" }
