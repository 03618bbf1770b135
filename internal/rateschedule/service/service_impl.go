package service

import (
	"context"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/affilia/internal/clock"
	"github.com/smallbiznis/affilia/internal/rateschedule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("rateschedule.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Current(ctx context.Context) (domain.Schedule, error) {
	return s.repo.FindAll(ctx, s.db)
}

func (s *Service) Replace(ctx context.Context, inputs []domain.LevelInput) (domain.Schedule, error) {
	if len(inputs) == 0 {
		return nil, domain.ErrEmptySchedule
	}

	sorted := make([]domain.LevelInput, len(inputs))
	copy(sorted, inputs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })

	hundred := decimal.NewFromInt(100)
	now := s.clock.Now()
	levels := make([]domain.RateLevel, 0, len(sorted))
	for i, input := range sorted {
		// Levels must run 1..N without gaps so fan-out depth is well defined.
		if input.Level != i+1 {
			return nil, domain.ErrLevelGap
		}
		pct, err := decimal.NewFromString(strings.TrimSpace(input.Percentage))
		if err != nil || !pct.IsPositive() || pct.GreaterThan(hundred) {
			return nil, domain.ErrInvalidPercentage
		}
		levels = append(levels, domain.RateLevel{
			ID:          s.genID.Generate(),
			Level:       input.Level,
			Percentage:  pct,
			Description: strings.TrimSpace(input.Description),
			CreatedAt:   now,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.ReplaceAll(ctx, tx, levels)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("rate schedule replaced", zap.Int("levels", len(levels)))
	return domain.Schedule(levels), nil
}
