package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	ratescheduledomain "github.com/smallbiznis/affilia/internal/rateschedule/domain"
	"gorm.io/gorm"
)

// EnsureDefaultRateSchedule seeds a five level schedule on first boot so a
// fresh install can attribute conversions without any configuration. An
// existing schedule, even a partial one, is left untouched.
func EnsureDefaultRateSchedule(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	defaults := []struct {
		pct  string
		desc string
	}{
		{"60", "Direct referrer"},
		{"20", "Level 2 upline"},
		{"10", "Level 3 upline"},
		{"5", "Level 4 upline"},
		{"5", "Level 5 upline"},
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.WithContext(ctx).
			Model(&ratescheduledomain.RateLevel{}).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		for i, row := range defaults {
			pct, err := decimal.NewFromString(row.pct)
			if err != nil {
				return err
			}
			level := ratescheduledomain.RateLevel{
				ID:          node.Generate(),
				Level:       i + 1,
				Percentage:  pct,
				Description: row.desc,
				CreatedAt:   now,
			}
			if err := tx.WithContext(ctx).Create(&level).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
