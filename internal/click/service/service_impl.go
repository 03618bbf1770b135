package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	affiliatedomain "github.com/smallbiznis/affilia/internal/affiliate/domain"
	"github.com/smallbiznis/affilia/internal/click/domain"
	"github.com/smallbiznis/affilia/internal/clock"
	"github.com/smallbiznis/affilia/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Registry affiliatedomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	registry affiliatedomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("click.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		registry: p.Registry,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordRequest) (domain.Click, error) {
	affiliate, err := s.registry.ResolveCode(ctx, req.Code)
	if err != nil {
		return domain.Click{}, err
	}

	click := domain.Click{
		ID:          s.genID.Generate(),
		AffiliateID: affiliate.ID,
		Code:        affiliate.Code,
		IPAddress:   strings.TrimSpace(req.IPAddress),
		UserAgent:   strings.TrimSpace(req.UserAgent),
		LandingPage: strings.TrimSpace(req.LandingPage),
		CreatedAt:   s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, s.db, &click); err != nil {
		return domain.Click{}, err
	}

	s.log.Debug("click recorded",
		zap.String("click_id", click.ID.String()),
		zap.String("affiliate_id", click.AffiliateID.String()),
	)
	return click, nil
}

// MarkConverted is a best-effort annotation; commission computation does not
// depend on it.
func (s *Service) MarkConverted(ctx context.Context, clickID, leadID string) error {
	id, err := parseID(clickID)
	if err != nil {
		return err
	}
	lead, err := parseID(leadID)
	if err != nil {
		return err
	}

	click, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if click == nil {
		return domain.ErrNotFound
	}

	return s.repo.MarkConverted(ctx, s.db, id, lead)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{Code: strings.TrimSpace(req.Code)}
	if raw := strings.TrimSpace(req.AffiliateID); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.AffiliateID = id
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(click *domain.Click) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        click.ID.String(),
			CreatedAt: click.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	clicks := make([]domain.Click, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		clicks = append(clicks, *item)
	}

	resp := domain.ListResponse{Clicks: clicks}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
