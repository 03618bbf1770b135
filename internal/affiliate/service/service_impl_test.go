package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/affilia/internal/affiliate/domain"
	"github.com/smallbiznis/affilia/internal/affiliate/repository"
	"github.com/smallbiznis/affilia/internal/clock"
	"github.com/smallbiznis/affilia/internal/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupRegistry(t *testing.T) (domain.Service, *gorm.DB) {
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

	if err := db.AutoMigrate(&domain.Affiliate{}, &domain.ReferralEdge{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	svc := New(Params{
		Cfg: config.Config{
			Attribution: config.AttributionConfig{MaxUplineDepth: 3},
		},
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
	return svc, db
}

func TestRegisterGeneratesCode(t *testing.T) {
	svc, _ := setupRegistry(t)
	ctx := context.Background()

	affiliate, err := svc.Register(ctx, domain.RegisterRequest{
		Name:  "Ana",
		Email: "ana@example.com",
	})
	require.NoError(t, err)
	require.NotEmpty(t, affiliate.Code)
	require.Equal(t, domain.StatusPending, affiliate.Status)
	require.Equal(t, domain.TierBronze, affiliate.Tier)
}

func TestRegisterRejectsDuplicateCode(t *testing.T) {
	svc, _ := setupRegistry(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, domain.RegisterRequest{
		Name:  "Ana",
		Email: "ana@example.com",
		Code:  "SHARED",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, domain.RegisterRequest{
		Name:  "Ben",
		Email: "ben@example.com",
		Code:  "SHARED",
	})
	require.ErrorIs(t, err, domain.ErrCodeTaken)
}

func TestRegisterValidatesInput(t *testing.T) {
	svc, _ := setupRegistry(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, domain.RegisterRequest{Email: "x@example.com"})
	require.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Register(ctx, domain.RegisterRequest{Name: "X", Email: "not-an-email"})
	require.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = svc.Register(ctx, domain.RegisterRequest{Name: "X", Email: "x@example.com", Tier: "diamond"})
	require.ErrorIs(t, err, domain.ErrInvalidTier)
}

func TestRegisterSponsorValidation(t *testing.T) {
	svc, _ := setupRegistry(t)
	ctx := context.Background()

	sponsor, err := svc.Register(ctx, domain.RegisterRequest{
		Name:  "Root",
		Email: "root@example.com",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, domain.RegisterRequest{
		Name:      "Orphan",
		Email:     "orphan@example.com",
		SponsorID: "999999999999999999",
	})
	require.ErrorIs(t, err, domain.ErrSponsorNotFound)

	child, err := svc.Register(ctx, domain.RegisterRequest{
		Name:      "Child",
		Email:     "child@example.com",
		SponsorID: sponsor.ID.String(),
	})
	require.NoError(t, err)

	grandchild, err := svc.Register(ctx, domain.RegisterRequest{
		Name:      "Grandchild",
		Email:     "grandchild@example.com",
		SponsorID: child.ID.String(),
	})
	require.NoError(t, err)

	// Max depth 3: a registration may have at most three ancestors.
	deepest, err := svc.Register(ctx, domain.RegisterRequest{
		Name:      "Deepest",
		Email:     "deepest@example.com",
		SponsorID: grandchild.ID.String(),
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, domain.RegisterRequest{
		Name:      "TooDeep",
		Email:     "toodeep@example.com",
		SponsorID: deepest.ID.String(),
	})
	require.ErrorIs(t, err, domain.ErrSponsorDepth)
}

func TestStatusTransitions(t *testing.T) {
	svc, _ := setupRegistry(t)
	ctx := context.Background()

	affiliate, err := svc.Register(ctx, domain.RegisterRequest{
		Name:  "Ana",
		Email: "ana@example.com",
	})
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, affiliate.ID.String())
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, approved.Status)

	// Re-approving an approved affiliate is a no-op, not an error.
	again, err := svc.Approve(ctx, affiliate.ID.String())
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, again.Status)

	suspended, err := svc.Suspend(ctx, affiliate.ID.String())
	require.NoError(t, err)
	require.Equal(t, domain.StatusSuspended, suspended.Status)

	// Suspension is terminal for approval purposes.
	_, err = svc.Approve(ctx, affiliate.ID.String())
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestResolveCode(t *testing.T) {
	svc, _ := setupRegistry(t)
	ctx := context.Background()

	affiliate, err := svc.Register(ctx, domain.RegisterRequest{
		Name:  "Ana",
		Email: "ana@example.com",
		Code:  "ANA2026",
	})
	require.NoError(t, err)

	_, err = svc.ResolveCode(ctx, "ANA2026")
	require.ErrorIs(t, err, domain.ErrAffiliateIneligible)

	_, err = svc.Approve(ctx, affiliate.ID.String())
	require.NoError(t, err)

	resolved, err := svc.ResolveCode(ctx, "ANA2026")
	require.NoError(t, err)
	require.Equal(t, affiliate.ID, resolved.ID)

	_, err = svc.ResolveCode(ctx, "UNKNOWN")
	require.ErrorIs(t, err, domain.ErrCodeNotFound)

	_, err = svc.ResolveCode(ctx, "")
	require.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestListFiltersByStatus(t *testing.T) {
	svc, _ := setupRegistry(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, domain.RegisterRequest{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, domain.RegisterRequest{Name: "Ben", Email: "ben@example.com"})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, first.ID.String())
	require.NoError(t, err)

	resp, err := svc.List(ctx, domain.ListRequest{Status: string(domain.StatusApproved)})
	require.NoError(t, err)
	require.Len(t, resp.Affiliates, 1)
	require.Equal(t, first.ID, resp.Affiliates[0].ID)
}
