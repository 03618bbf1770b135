package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/affilia/internal/application/domain"
	"github.com/smallbiznis/affilia/internal/application/repository"
	"github.com/smallbiznis/affilia/internal/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupApplications(t *testing.T) (domain.Service, domain.Repository, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&domain.Application{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	repo := repository.Provide()
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  repo,
	})
	return svc, repo, db, node
}

func TestCreateApplication(t *testing.T) {
	svc, _, _, _ := setupApplications(t)
	ctx := context.Background()

	application, err := svc.Create(ctx, domain.CreateRequest{
		ReferenceID:   "LOAN-001",
		FundingAmount: "125000.50",
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusSubmitted, application.Status)
	require.Nil(t, application.AffiliateID)
}

func TestCreateApplicationValidation(t *testing.T) {
	svc, _, _, _ := setupApplications(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{FundingAmount: "100"})
	require.ErrorIs(t, err, domain.ErrInvalidReference)

	_, err = svc.Create(ctx, domain.CreateRequest{ReferenceID: "LOAN-002", FundingAmount: "0"})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Create(ctx, domain.CreateRequest{ReferenceID: "LOAN-003", FundingAmount: "-5"})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Create(ctx, domain.CreateRequest{ReferenceID: "LOAN-004", FundingAmount: "abc"})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestCreateApplicationDuplicateReference(t *testing.T) {
	svc, _, _, _ := setupApplications(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{ReferenceID: "LOAN-005", FundingAmount: "100"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateRequest{ReferenceID: "LOAN-005", FundingAmount: "200"})
	require.ErrorIs(t, err, domain.ErrReferenceTaken)
}

func TestApproveApplicationIdempotent(t *testing.T) {
	svc, _, _, _ := setupApplications(t)
	ctx := context.Background()

	application, err := svc.Create(ctx, domain.CreateRequest{ReferenceID: "LOAN-006", FundingAmount: "100"})
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, application.ID.String())
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, approved.Status)

	again, err := svc.Approve(ctx, application.ID.String())
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, again.Status)
}

func TestSetAttributionWritesOnce(t *testing.T) {
	svc, repo, db, node := setupApplications(t)
	ctx := context.Background()

	application, err := svc.Create(ctx, domain.CreateRequest{ReferenceID: "LOAN-007", FundingAmount: "100"})
	require.NoError(t, err)

	first := node.Generate()
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	rows, err := repo.SetAttribution(ctx, db, application.ID, first, "FIRST", at)
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)

	// A second writer loses: zero rows changed, original attribution stands.
	second := node.Generate()
	rows, err = repo.SetAttribution(ctx, db, application.ID, second, "SECOND", at.Add(time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 0, rows)

	stored, err := repo.FindByID(ctx, db, application.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AffiliateID)
	require.Equal(t, first, *stored.AffiliateID)
	require.Equal(t, "FIRST", *stored.AffiliateCode)
}
