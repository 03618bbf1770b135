package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	affiliatedomain "github.com/smallbiznis/affilia/internal/affiliate/domain"
	applicationdomain "github.com/smallbiznis/affilia/internal/application/domain"
	"github.com/smallbiznis/affilia/internal/attribution/domain"
	clickdomain "github.com/smallbiznis/affilia/internal/click/domain"
	"github.com/smallbiznis/affilia/internal/clock"
	"github.com/smallbiznis/affilia/internal/config"
	"github.com/smallbiznis/affilia/internal/events"
	ratescheduledomain "github.com/smallbiznis/affilia/internal/rateschedule/domain"
	retrydomain "github.com/smallbiznis/affilia/internal/retryqueue/domain"
	"github.com/smallbiznis/affilia/internal/upline"
	"github.com/smallbiznis/affilia/pkg/db"
	"github.com/smallbiznis/affilia/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidApplicationID = errors.New("invalid_application_id")
	ErrInvalidAmount        = errors.New("invalid_funding_amount")

	// errDuplicateAttribution aborts the transaction when another workflow
	// won the race; the caller re-reads and reports AlreadyAttributed.
	errDuplicateAttribution = errors.New("duplicate_attribution")
)

type Params struct {
	fx.In

	Cfg       config.Config
	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Registry  affiliatedomain.Service
	Upline    *upline.Resolver
	Schedule  ratescheduledomain.Service
	AppRepo   applicationdomain.Repository
	ClickRepo clickdomain.Repository
	RetryRepo retrydomain.Repository
	Emitter   events.Emitter
	Metrics   *Metrics `optional:"true"`
}

type Service struct {
	cfg       config.Config
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	registry  affiliatedomain.Service
	upline    *upline.Resolver
	schedule  ratescheduledomain.Service
	appRepo   applicationdomain.Repository
	clickRepo clickdomain.Repository
	retryRepo retrydomain.Repository
	emitter   events.Emitter
	metrics   *Metrics
}

func New(p Params) domain.Engine {
	return &Service{
		cfg:       p.Cfg,
		db:        p.DB,
		log:       p.Log.Named("attribution.engine"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		registry:  p.Registry,
		upline:    p.Upline,
		schedule:  p.Schedule,
		appRepo:   p.AppRepo,
		clickRepo: p.ClickRepo,
		retryRepo: p.RetryRepo,
		emitter:   p.Emitter,
		metrics:   p.Metrics,
	}
}

func (s *Service) Attribute(ctx context.Context, req domain.AttributeRequest) (domain.AttributionResult, error) {
	start := time.Now()

	applicationID, err := snowflake.ParseString(strings.TrimSpace(req.ApplicationID))
	if err != nil || applicationID == 0 {
		return domain.AttributionResult{}, ErrInvalidApplicationID
	}
	if !req.FundingAmount.IsPositive() {
		return domain.AttributionResult{}, ErrInvalidAmount
	}

	// Step 1: resolve the referral code. Unknown and ineligible codes are
	// terminal; they never produce a retry record.
	affiliate, err := s.registry.ResolveCode(ctx, req.ReferralCode)
	if err != nil {
		switch {
		case errors.Is(err, affiliatedomain.ErrCodeNotFound),
			errors.Is(err, affiliatedomain.ErrAffiliateIneligible),
			errors.Is(err, affiliatedomain.ErrInvalidCode):
			s.metrics.observe("terminal", -1, time.Since(start).Seconds())
			return domain.AttributionResult{}, err
		default:
			return s.deferAttribution(ctx, req, applicationID, err, start)
		}
	}

	// Step 2: idempotency. A level-1 commission for this pair means the
	// whole fan-out already committed.
	existing, err := s.repo.FindByAttribution(ctx, s.db, applicationID, affiliate.ID, 1)
	if err != nil {
		return s.deferAttribution(ctx, req, applicationID, err, start)
	}
	if existing != nil {
		return s.alreadyAttributed(ctx, applicationID, start)
	}

	// Step 3: upline. A cycle is a data-integrity defect, alerted and never
	// silently retried.
	members, err := s.upline.Resolve(ctx, nil, affiliate.ID, s.cfg.Attribution.MaxUplineDepth)
	if err != nil {
		if errors.Is(err, affiliatedomain.ErrCycleDetected) {
			s.metrics.observe("cycle_detected", -1, time.Since(start).Seconds())
			return domain.AttributionResult{}, err
		}
		return s.deferAttribution(ctx, req, applicationID, err, start)
	}

	// Step 4: one consistent schedule snapshot for the whole run.
	schedule, err := s.schedule.Current(ctx)
	if err != nil {
		return s.deferAttribution(ctx, req, applicationID, err, start)
	}
	if len(schedule) == 0 {
		return s.deferAttribution(ctx, req, applicationID, errors.New("rate schedule is empty"), start)
	}

	// Step 5: fan out. Missing upline levels and ineligible upline members
	// are skipped, never redistributed.
	now := s.clock.Now()
	commissions := s.computeFanout(members, schedule, applicationID, req.FundingAmount, now)

	// Step 6: one atomic unit: commission rows, application attribution
	// fields, and the click's converted flag.
	clickID := parseOptionalID(req.ClickID)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		application, err := s.appRepo.FindByID(ctx, tx, applicationID)
		if err != nil {
			return err
		}
		if application == nil {
			// Application row not yet committed by the caller; transient.
			return errors.New("application not found")
		}

		for i := range commissions {
			if err := s.repo.Insert(ctx, tx, &commissions[i]); err != nil {
				if db.IsDuplicateKeyErr(err) {
					return errDuplicateAttribution
				}
				return err
			}
		}

		rows, err := s.appRepo.SetAttribution(ctx, tx, applicationID, affiliate.ID, affiliate.Code, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return errDuplicateAttribution
		}

		if clickID != 0 {
			if err := s.clickRepo.MarkConverted(ctx, tx, clickID, applicationID); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, errDuplicateAttribution) {
		return s.alreadyAttributed(ctx, applicationID, start)
	}
	if err != nil {
		return s.deferAttribution(ctx, req, applicationID, err, start)
	}

	// Step 7: emit facts post-commit; delivery is external.
	s.emitter.ConversionRecorded(ctx, events.ConversionRecorded{
		AffiliateID:   affiliate.ID.String(),
		ApplicationID: applicationID.String(),
		ReferenceID:   req.ReferenceID,
	})
	for _, commission := range commissions {
		s.emitter.CommissionCreated(ctx, events.CommissionCreated{
			CommissionID:  commission.ID.String(),
			AffiliateID:   commission.AffiliateID.String(),
			ApplicationID: applicationID.String(),
			Level:         commission.Level,
			Amount:        commission.Amount.String(),
			Rate:          commission.RateApplied.String(),
		})
	}

	s.metrics.observe(string(domain.OutcomeAttributed), len(commissions), time.Since(start).Seconds())
	s.log.Info("application attributed",
		zap.String("application_id", applicationID.String()),
		zap.String("affiliate_id", affiliate.ID.String()),
		zap.Int("levels", len(commissions)),
	)

	return domain.AttributionResult{
		Outcome:     domain.OutcomeAttributed,
		Commissions: commissions,
	}, nil
}

var hundred = decimal.NewFromInt(100)

func (s *Service) computeFanout(members []upline.Member, schedule ratescheduledomain.Schedule, applicationID snowflake.ID, funding decimal.Decimal, now time.Time) []domain.Commission {
	minorUnit := s.cfg.Attribution.CurrencyMinorUnit
	commissions := make([]domain.Commission, 0, len(members))
	for _, member := range members {
		rate, ok := schedule.RateForLevel(member.Level)
		if !ok {
			continue
		}
		if member.Level > 1 && member.Affiliate.Status != affiliatedomain.StatusApproved {
			// Pending/suspended upline members earn nothing; their share is
			// not redistributed.
			continue
		}
		if member.Level == 1 {
			rate = rate.Mul(member.Affiliate.Tier.RateMultiplier())
		}
		amount := funding.Mul(rate).Div(hundred).RoundBank(minorUnit)
		commissions = append(commissions, domain.Commission{
			ID:            s.genID.Generate(),
			AffiliateID:   member.Affiliate.ID,
			ApplicationID: applicationID,
			Level:         member.Level,
			Amount:        amount,
			RateApplied:   rate,
			Status:        domain.CommissionPending,
			CreatedAt:     now,
		})
	}
	return commissions
}

func (s *Service) alreadyAttributed(ctx context.Context, applicationID snowflake.ID, start time.Time) (domain.AttributionResult, error) {
	commissions, err := s.repo.ListByApplication(ctx, s.db, applicationID)
	if err != nil {
		return domain.AttributionResult{}, err
	}
	s.metrics.observe(string(domain.OutcomeAlreadyAttributed), -1, time.Since(start).Seconds())
	return domain.AttributionResult{
		Outcome:     domain.OutcomeAlreadyAttributed,
		Detail:      "application already attributed",
		Commissions: commissions,
	}, nil
}

// deferAttribution records exactly one retry record for this attempt and
// reports OutcomeDeferred. If even the retry write fails there is nothing
// durable left to do but log.
func (s *Service) deferAttribution(ctx context.Context, req domain.AttributeRequest, applicationID snowflake.ID, cause error, start time.Time) (domain.AttributionResult, error) {
	if domain.RetryEnqueueSuppressed(ctx) {
		s.metrics.observe(string(domain.OutcomeDeferred), -1, time.Since(start).Seconds())
		return domain.AttributionResult{
			Outcome: domain.OutcomeDeferred,
			Detail:  cause.Error(),
		}, nil
	}

	record := retrydomain.RetryRecord{
		ID:            s.genID.Generate(),
		ApplicationID: applicationID,
		ReferenceID:   strings.TrimSpace(req.ReferenceID),
		ReferralCode:  strings.TrimSpace(req.ReferralCode),
		FundingAmount: req.FundingAmount,
		ErrorMessage:  cause.Error(),
		Context: datatypes.JSONMap{
			"referral_code":  req.ReferralCode,
			"funding_amount": req.FundingAmount.String(),
		},
		Status:    retrydomain.StatusPending,
		CreatedAt: s.clock.Now(),
	}
	if clickID := parseOptionalID(req.ClickID); clickID != 0 {
		record.ClickID = &clickID
	}

	if err := s.retryRepo.Insert(ctx, s.db, &record); err != nil {
		s.log.Error("enqueue attribution retry",
			zap.String("application_id", applicationID.String()),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
	} else {
		s.log.Warn("attribution deferred",
			zap.String("application_id", applicationID.String()),
			zap.String("retry_id", record.ID.String()),
			zap.Error(cause),
		)
	}

	s.metrics.observe(string(domain.OutcomeDeferred), -1, time.Since(start).Seconds())
	return domain.AttributionResult{
		Outcome: domain.OutcomeDeferred,
		Detail:  cause.Error(),
	}, nil
}

func (s *Service) ListByApplication(ctx context.Context, rawID string) ([]domain.Commission, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil || id == 0 {
		return nil, ErrInvalidApplicationID
	}
	return s.repo.ListByApplication(ctx, s.db, id)
}

func (s *Service) ListByAffiliate(ctx context.Context, rawID string, pageToken string, pageSize int32) ([]domain.Commission, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil || id == 0 {
		return nil, ErrInvalidApplicationID
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	items, err := s.repo.ListByAffiliate(ctx, s.db, id, pagination.Pagination{
		PageToken: pageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return nil, err
	}
	commissions := make([]domain.Commission, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		commissions = append(commissions, *item)
	}
	return commissions, nil
}

func parseOptionalID(value string) snowflake.ID {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	id, err := snowflake.ParseString(value)
	if err != nil {
		return 0
	}
	return id
}
