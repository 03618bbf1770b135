package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	attributiondomain "github.com/smallbiznis/affilia/internal/attribution/domain"
	"github.com/smallbiznis/affilia/internal/clock"
	"github.com/smallbiznis/affilia/internal/config"
	"github.com/smallbiznis/affilia/internal/lock"
	"github.com/smallbiznis/affilia/internal/retryqueue/domain"
	"github.com/smallbiznis/affilia/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg    config.Config
	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Repo   domain.Repository
	Engine attributiondomain.Engine
	Locker *lock.Locker `optional:"true"`
}

type Service struct {
	cfg    config.Config
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	repo   domain.Repository
	engine attributiondomain.Engine
	locker *lock.Locker
}

func New(p Params) domain.Service {
	return &Service{
		cfg:    p.Cfg,
		db:     p.DB,
		log:    p.Log.Named("retryqueue.service"),
		clock:  p.Clock,
		repo:   p.Repo,
		engine: p.Engine,
		locker: p.Locker,
	}
}

func (s *Service) ListPending(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	status := domain.StatusPending
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status = domain.Status(raw)
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.ListByStatus(ctx, s.db, status, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(record *domain.RetryRecord) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        record.ID.String(),
			CreatedAt: record.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	records := make([]domain.RetryRecord, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		records = append(records, *item)
	}

	resp := domain.ListResponse{Records: records}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// Retry re-invokes the attribution engine with the stored inputs. A
// completed record is final; anything else stays retryable until it
// succeeds. The per-application lock keeps two operators from driving the
// same application concurrently; correctness still rests on the storage
// unique constraint.
func (s *Service) Retry(ctx context.Context, rawID string) (domain.RetryResult, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil || id == 0 {
		return domain.RetryResult{}, domain.ErrInvalidID
	}

	record, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.RetryResult{}, err
	}
	if record == nil {
		return domain.RetryResult{}, domain.ErrNotFound
	}
	if record.Status == domain.StatusCompleted {
		return domain.RetryResult{}, domain.ErrAlreadyCompleted
	}

	lockKey := fmt.Sprintf("attribution:retry:%s", record.ApplicationID.String())
	lockTTL := time.Duration(s.cfg.Attribution.RetryLockTTLSeconds) * time.Second
	token, acquired, err := s.locker.TryLock(ctx, lockKey, lockTTL)
	if err != nil {
		return domain.RetryResult{}, err
	}
	if !acquired {
		return domain.RetryResult{}, domain.ErrRetryLocked
	}
	defer func() {
		if err := s.locker.Release(ctx, lockKey, token); err != nil {
			s.log.Warn("release retry lock", zap.String("key", lockKey), zap.Error(err))
		}
	}()

	req := attributiondomain.AttributeRequest{
		ApplicationID: record.ApplicationID.String(),
		ReferenceID:   record.ReferenceID,
		ReferralCode:  record.ReferralCode,
		FundingAmount: record.FundingAmount,
	}
	if record.ClickID != nil {
		req.ClickID = record.ClickID.String()
	}

	result, attrErr := s.engine.Attribute(attributiondomain.SuppressRetryEnqueue(ctx), req)

	now := s.clock.Now()
	switch {
	case attrErr != nil:
		// Terminal failure: record it and leave the record retryable in
		// case the underlying data is repaired.
		if err := s.repo.UpdateOutcome(ctx, s.db, id, domain.StatusFailed, attrErr.Error(), nil); err != nil {
			return domain.RetryResult{}, err
		}
		record.Status = domain.StatusFailed
		record.ErrorMessage = attrErr.Error()
		s.log.Warn("retry failed",
			zap.String("retry_id", id.String()),
			zap.String("application_id", record.ApplicationID.String()),
			zap.Error(attrErr),
		)
		return domain.RetryResult{Record: *record, Outcome: "failed", Detail: attrErr.Error()}, nil

	case result.Outcome == attributiondomain.OutcomeDeferred:
		if err := s.repo.UpdateOutcome(ctx, s.db, id, domain.StatusFailed, result.Detail, nil); err != nil {
			return domain.RetryResult{}, err
		}
		record.Status = domain.StatusFailed
		record.ErrorMessage = result.Detail
		return domain.RetryResult{Record: *record, Outcome: "failed", Detail: result.Detail}, nil

	default:
		// Attributed or AlreadyAttributed: both count as success.
		if err := s.repo.UpdateOutcome(ctx, s.db, id, domain.StatusCompleted, record.ErrorMessage, &now); err != nil {
			return domain.RetryResult{}, err
		}
		record.Status = domain.StatusCompleted
		record.CompletedAt = &now
		s.log.Info("retry completed",
			zap.String("retry_id", id.String()),
			zap.String("application_id", record.ApplicationID.String()),
			zap.String("outcome", string(result.Outcome)),
		)
		return domain.RetryResult{Record: *record, Outcome: string(result.Outcome)}, nil
	}
}
