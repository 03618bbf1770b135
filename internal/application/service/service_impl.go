package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/affilia/internal/application/domain"
	"github.com/smallbiznis/affilia/internal/clock"
	"github.com/smallbiznis/affilia/pkg/db"
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
		log:   p.Log.Named("application.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Application, error) {
	reference := strings.TrimSpace(req.ReferenceID)
	if reference == "" {
		return domain.Application{}, domain.ErrInvalidReference
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.FundingAmount))
	if err != nil || !amount.IsPositive() {
		return domain.Application{}, domain.ErrInvalidAmount
	}

	now := s.clock.Now()
	application := domain.Application{
		ID:            s.genID.Generate(),
		ReferenceID:   reference,
		FundingAmount: amount,
		Status:        domain.StatusSubmitted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Insert(ctx, s.db, &application); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Application{}, domain.ErrReferenceTaken
		}
		return domain.Application{}, err
	}

	return application, nil
}

func (s *Service) Approve(ctx context.Context, rawID string) (domain.Application, error) {
	id, err := parseID(rawID)
	if err != nil {
		return domain.Application{}, err
	}

	application, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Application{}, err
	}
	if application == nil {
		return domain.Application{}, domain.ErrNotFound
	}
	if application.Status == domain.StatusApproved {
		return *application, nil
	}

	if err := s.repo.UpdateStatus(ctx, s.db, id, domain.StatusApproved); err != nil {
		return domain.Application{}, err
	}

	application.Status = domain.StatusApproved
	application.UpdatedAt = s.clock.Now()
	return *application, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Application, error) {
	id, err := parseID(rawID)
	if err != nil {
		return domain.Application{}, err
	}

	application, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Application{}, err
	}
	if application == nil {
		return domain.Application{}, domain.ErrNotFound
	}
	return *application, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
