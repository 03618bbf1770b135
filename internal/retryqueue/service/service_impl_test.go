package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	attributiondomain "github.com/smallbiznis/affilia/internal/attribution/domain"
	"github.com/smallbiznis/affilia/internal/clock"
	"github.com/smallbiznis/affilia/internal/config"
	"github.com/smallbiznis/affilia/internal/retryqueue/domain"
	"github.com/smallbiznis/affilia/internal/retryqueue/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type engineStub struct {
	result     attributiondomain.AttributionResult
	err        error
	calls      int
	lastReq    attributiondomain.AttributeRequest
	suppressed bool
}

func (e *engineStub) Attribute(ctx context.Context, req attributiondomain.AttributeRequest) (attributiondomain.AttributionResult, error) {
	e.calls++
	e.lastReq = req
	e.suppressed = attributiondomain.RetryEnqueueSuppressed(ctx)
	if e.err != nil {
		return attributiondomain.AttributionResult{}, e.err
	}
	return e.result, nil
}

func (e *engineStub) ListByApplication(context.Context, string) ([]attributiondomain.Commission, error) {
	return nil, nil
}

func (e *engineStub) ListByAffiliate(context.Context, string, string, int32) ([]attributiondomain.Commission, error) {
	return nil, nil
}

func setupRetryQueue(t *testing.T, engine attributiondomain.Engine) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&domain.RetryRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	svc := New(Params{
		Cfg: config.Config{
			Attribution: config.AttributionConfig{RetryLockTTLSeconds: 30},
		},
		DB:     db,
		Log:    zap.NewNop(),
		Clock:  clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Repo:   repository.Provide(),
		Engine: engine,
	})
	return svc, db, node
}

func seedRetry(t *testing.T, db *gorm.DB, node *snowflake.Node, status domain.Status) domain.RetryRecord {
	t.Helper()
	record := domain.RetryRecord{
		ID:            node.Generate(),
		ApplicationID: node.Generate(),
		ReferenceID:   "LOAN-900",
		ReferralCode:  "ANA2026",
		FundingAmount: decimal.RequireFromString("1000"),
		ErrorMessage:  "rate schedule is empty",
		Status:        status,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, db.Create(&record).Error)
	return record
}

func TestRetryCompletesOnAttribution(t *testing.T) {
	engine := &engineStub{
		result: attributiondomain.AttributionResult{Outcome: attributiondomain.OutcomeAttributed},
	}
	svc, db, node := setupRetryQueue(t, engine)
	record := seedRetry(t, db, node, domain.StatusPending)

	result, err := svc.Retry(context.Background(), record.ID.String())
	require.NoError(t, err)
	require.Equal(t, string(attributiondomain.OutcomeAttributed), result.Outcome)
	require.Equal(t, domain.StatusCompleted, result.Record.Status)
	require.NotNil(t, result.Record.CompletedAt)

	// The engine must receive the stored inputs, with enqueue suppressed so
	// a second failure cannot mint a second record.
	require.Equal(t, 1, engine.calls)
	require.True(t, engine.suppressed)
	require.Equal(t, record.ApplicationID.String(), engine.lastReq.ApplicationID)
	require.Equal(t, "ANA2026", engine.lastReq.ReferralCode)
	require.True(t, record.FundingAmount.Equal(engine.lastReq.FundingAmount))

	var stored domain.RetryRecord
	require.NoError(t, db.First(&stored, "id = ?", record.ID).Error)
	require.Equal(t, domain.StatusCompleted, stored.Status)
}

func TestRetryAlreadyAttributedCountsAsSuccess(t *testing.T) {
	engine := &engineStub{
		result: attributiondomain.AttributionResult{Outcome: attributiondomain.OutcomeAlreadyAttributed},
	}
	svc, db, node := setupRetryQueue(t, engine)
	record := seedRetry(t, db, node, domain.StatusPending)

	result, err := svc.Retry(context.Background(), record.ID.String())
	require.NoError(t, err)
	require.Equal(t, string(attributiondomain.OutcomeAlreadyAttributed), result.Outcome)
	require.Equal(t, domain.StatusCompleted, result.Record.Status)
}

func TestRetryTerminalFailureStaysRetryable(t *testing.T) {
	engine := &engineStub{err: errors.New("code_not_found")}
	svc, db, node := setupRetryQueue(t, engine)
	record := seedRetry(t, db, node, domain.StatusPending)

	result, err := svc.Retry(context.Background(), record.ID.String())
	require.NoError(t, err)
	require.Equal(t, "failed", result.Outcome)
	require.Equal(t, domain.StatusFailed, result.Record.Status)

	// The record is failed, not completed: once the data is repaired the
	// same record can be driven again.
	engine.err = nil
	engine.result = attributiondomain.AttributionResult{Outcome: attributiondomain.OutcomeAttributed}

	result, err = svc.Retry(context.Background(), record.ID.String())
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, result.Record.Status)
}

func TestRetryDeferredMarksFailed(t *testing.T) {
	engine := &engineStub{
		result: attributiondomain.AttributionResult{
			Outcome: attributiondomain.OutcomeDeferred,
			Detail:  "application not found",
		},
	}
	svc, db, node := setupRetryQueue(t, engine)
	record := seedRetry(t, db, node, domain.StatusPending)

	result, err := svc.Retry(context.Background(), record.ID.String())
	require.NoError(t, err)
	require.Equal(t, "failed", result.Outcome)
	require.Equal(t, "application not found", result.Detail)

	// No second record: deferral inside the driver never re-enqueues.
	var count int64
	require.NoError(t, db.Model(&domain.RetryRecord{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRetryGuards(t *testing.T) {
	engine := &engineStub{}
	svc, db, node := setupRetryQueue(t, engine)

	_, err := svc.Retry(context.Background(), "garbage")
	require.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = svc.Retry(context.Background(), node.Generate().String())
	require.ErrorIs(t, err, domain.ErrNotFound)

	completed := seedRetry(t, db, node, domain.StatusCompleted)
	_, err = svc.Retry(context.Background(), completed.ID.String())
	require.ErrorIs(t, err, domain.ErrAlreadyCompleted)

	require.Equal(t, 0, engine.calls)
}

func TestListPendingDefaultsToPendingStatus(t *testing.T) {
	engine := &engineStub{}
	svc, db, node := setupRetryQueue(t, engine)

	seedRetry(t, db, node, domain.StatusPending)
	seedRetry(t, db, node, domain.StatusCompleted)
	seedRetry(t, db, node, domain.StatusFailed)

	resp, err := svc.ListPending(context.Background(), domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)
	require.Equal(t, domain.StatusPending, resp.Records[0].Status)

	resp, err = svc.ListPending(context.Background(), domain.ListRequest{Status: "failed"})
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)
	require.Equal(t, domain.StatusFailed, resp.Records[0].Status)
}
