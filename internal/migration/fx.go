package migration

import (
	affiliatedomain "github.com/smallbiznis/affilia/internal/affiliate/domain"
	applicationdomain "github.com/smallbiznis/affilia/internal/application/domain"
	attributiondomain "github.com/smallbiznis/affilia/internal/attribution/domain"
	clickdomain "github.com/smallbiznis/affilia/internal/click/domain"
	"github.com/smallbiznis/affilia/internal/config"
	"github.com/smallbiznis/affilia/internal/events"
	ratescheduledomain "github.com/smallbiznis/affilia/internal/rateschedule/domain"
	retryqueuedomain "github.com/smallbiznis/affilia/internal/retryqueue/domain"
	"github.com/smallbiznis/affilia/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migration",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql are dev conveniences; let gorm build the
			// schema from the models instead of the versioned SQL.
			if err := conn.AutoMigrate(
				&affiliatedomain.Affiliate{},
				&affiliatedomain.ReferralEdge{},
				&clickdomain.Click{},
				&applicationdomain.Application{},
				&attributiondomain.Commission{},
				&ratescheduledomain.RateLevel{},
				&retryqueuedomain.RetryRecord{},
				&events.Event{},
			); err != nil {
				return err
			}
		}

		return seed.EnsureDefaultRateSchedule(conn)
	}),
)
