package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/affilia/internal/affiliate/domain"
	"github.com/smallbiznis/affilia/internal/clock"
	"github.com/smallbiznis/affilia/internal/config"
	"github.com/smallbiznis/affilia/pkg/db"
	"github.com/smallbiznis/affilia/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg   config.Config
	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	cfg   config.Config
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		cfg:   p.Cfg,
		db:    p.DB,
		log:   p.Log.Named("affiliate.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.Affiliate, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Affiliate{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Affiliate{}, domain.ErrInvalidEmail
	}

	tier := domain.TierBronze
	if raw := strings.TrimSpace(req.Tier); raw != "" {
		tier = domain.Tier(raw)
		if !tier.Valid() {
			return domain.Affiliate{}, domain.ErrInvalidTier
		}
	}

	id := s.genID.Generate()
	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = generateCode(id)
	}

	var sponsorID snowflake.ID
	if raw := strings.TrimSpace(req.SponsorID); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil || parsed == 0 {
			return domain.Affiliate{}, domain.ErrInvalidID
		}
		sponsorID = parsed
	}

	details := datatypes.JSONMap{}
	for k, v := range req.PaymentDetails {
		details[k] = v
	}

	now := s.clock.Now()
	affiliate := domain.Affiliate{
		ID:             id,
		Name:           name,
		Email:          email,
		Code:           code,
		Tier:           tier,
		Status:         domain.StatusPending,
		PaymentMethod:  strings.TrimSpace(req.PaymentMethod),
		PaymentDetails: details,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if sponsorID != 0 {
			if err := s.validateSponsorChain(ctx, tx, id, sponsorID); err != nil {
				return err
			}
		}

		if err := s.repo.Insert(ctx, tx, &affiliate); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrCodeTaken
			}
			return err
		}

		if sponsorID != 0 {
			return s.repo.InsertEdge(ctx, tx, &domain.ReferralEdge{
				AffiliateID: id,
				SponsorID:   sponsorID,
				CreatedAt:   now,
			})
		}
		return nil
	})
	if err != nil {
		return domain.Affiliate{}, err
	}

	s.log.Info("affiliate registered",
		zap.String("affiliate_id", affiliate.ID.String()),
		zap.String("code", affiliate.Code),
		zap.String("tier", string(affiliate.Tier)),
	)
	return affiliate, nil
}

// validateSponsorChain rejects edges that would break the forest invariant:
// self-sponsorship, chains deeper than the configured maximum, and walks that
// revisit a node (pre-existing cycle upstream).
func (s *Service) validateSponsorChain(ctx context.Context, tx *gorm.DB, childID, sponsorID snowflake.ID) error {
	if childID == sponsorID {
		return domain.ErrSelfSponsorship
	}

	sponsor, err := s.repo.FindByID(ctx, tx, sponsorID)
	if err != nil {
		return err
	}
	if sponsor == nil {
		return domain.ErrSponsorNotFound
	}

	maxDepth := s.cfg.Attribution.MaxUplineDepth
	seen := map[snowflake.ID]struct{}{childID: {}}
	current := sponsorID
	for depth := 1; current != 0; depth++ {
		if depth > maxDepth {
			return domain.ErrSponsorDepth
		}
		if _, ok := seen[current]; ok {
			return domain.ErrCycleDetected
		}
		seen[current] = struct{}{}

		edge, err := s.repo.FindEdge(ctx, tx, current)
		if err != nil {
			return err
		}
		if edge == nil {
			return nil
		}
		current = edge.SponsorID
	}
	return nil
}

func (s *Service) Approve(ctx context.Context, id string) (domain.Affiliate, error) {
	return s.transition(ctx, id, domain.StatusApproved)
}

func (s *Service) Suspend(ctx context.Context, id string) (domain.Affiliate, error) {
	return s.transition(ctx, id, domain.StatusSuspended)
}

func (s *Service) transition(ctx context.Context, rawID string, target domain.Status) (domain.Affiliate, error) {
	id, err := parseID(rawID)
	if err != nil {
		return domain.Affiliate{}, err
	}

	affiliate, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Affiliate{}, err
	}
	if affiliate == nil {
		return domain.Affiliate{}, domain.ErrNotFound
	}

	switch {
	case affiliate.Status == target:
		return *affiliate, nil
	case target == domain.StatusApproved && affiliate.Status != domain.StatusPending:
		return domain.Affiliate{}, domain.ErrInvalidTransition
	}

	if err := s.repo.UpdateStatus(ctx, s.db, id, target); err != nil {
		return domain.Affiliate{}, err
	}

	affiliate.Status = target
	affiliate.UpdatedAt = s.clock.Now()
	s.log.Info("affiliate status changed",
		zap.String("affiliate_id", affiliate.ID.String()),
		zap.String("status", string(target)),
	)
	return *affiliate, nil
}

func (s *Service) ResolveCode(ctx context.Context, code string) (domain.Affiliate, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Affiliate{}, domain.ErrInvalidCode
	}

	affiliate, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return domain.Affiliate{}, err
	}
	if affiliate == nil {
		return domain.Affiliate{}, domain.ErrCodeNotFound
	}
	if affiliate.Status != domain.StatusApproved {
		return domain.Affiliate{}, domain.ErrAffiliateIneligible
	}
	return *affiliate, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Affiliate, error) {
	id, err := parseID(rawID)
	if err != nil {
		return domain.Affiliate{}, err
	}

	affiliate, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Affiliate{}, err
	}
	if affiliate == nil {
		return domain.Affiliate{}, domain.ErrNotFound
	}
	return *affiliate, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Status: domain.Status(strings.TrimSpace(req.Status)),
		Tier:   domain.Tier(strings.TrimSpace(req.Tier)),
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(affiliate *domain.Affiliate) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        affiliate.ID.String(),
			CreatedAt: affiliate.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	affiliates := make([]domain.Affiliate, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		affiliates = append(affiliates, *item)
	}

	resp := domain.ListResponse{Affiliates: affiliates}
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

func generateCode(id snowflake.ID) string {
	return "AF" + strings.ToUpper(strconv.FormatInt(int64(id), 36))
}
