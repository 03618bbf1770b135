package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// RateLevel is one row of the MLM schedule: the share of the funding amount
// paid at a given upline level. Percentages are independent shares, not a
// split of a fixed pool, so they need not sum to 100.
type RateLevel struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	Level       int             `gorm:"not null;uniqueIndex:ux_rate_levels_level" json:"level"`
	Percentage  decimal.Decimal `gorm:"type:decimal(38,18);not null" json:"percentage"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (RateLevel) TableName() string { return "rate_levels" }

// Schedule is a consistent snapshot of the whole table, ordered by level.
type Schedule []RateLevel

// RateForLevel returns the percentage configured for level, or false when
// the schedule does not reach that deep.
func (s Schedule) RateForLevel(level int) (decimal.Decimal, bool) {
	for _, row := range s {
		if row.Level == level {
			return row.Percentage, true
		}
	}
	return decimal.Decimal{}, false
}
