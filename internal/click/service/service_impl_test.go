package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	affiliatedomain "github.com/smallbiznis/affilia/internal/affiliate/domain"
	"github.com/smallbiznis/affilia/internal/click/domain"
	"github.com/smallbiznis/affilia/internal/click/repository"
	"github.com/smallbiznis/affilia/internal/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type registryStub struct {
	affiliate affiliatedomain.Affiliate
	err       error
}

func (r *registryStub) Register(context.Context, affiliatedomain.RegisterRequest) (affiliatedomain.Affiliate, error) {
	return affiliatedomain.Affiliate{}, nil
}

func (r *registryStub) Approve(context.Context, string) (affiliatedomain.Affiliate, error) {
	return affiliatedomain.Affiliate{}, nil
}

func (r *registryStub) Suspend(context.Context, string) (affiliatedomain.Affiliate, error) {
	return affiliatedomain.Affiliate{}, nil
}

func (r *registryStub) ResolveCode(context.Context, string) (affiliatedomain.Affiliate, error) {
	if r.err != nil {
		return affiliatedomain.Affiliate{}, r.err
	}
	return r.affiliate, nil
}

func (r *registryStub) GetByID(context.Context, string) (affiliatedomain.Affiliate, error) {
	return affiliatedomain.Affiliate{}, nil
}

func (r *registryStub) List(context.Context, affiliatedomain.ListRequest) (affiliatedomain.ListResponse, error) {
	return affiliatedomain.ListResponse{}, nil
}

func setupClickService(t *testing.T, registry affiliatedomain.Service) (domain.Service, *gorm.DB) {
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

	if err := db.AutoMigrate(&domain.Click{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Repo:     repository.Provide(),
		Registry: registry,
	})
	return svc, db
}

func TestRecordResolvesCode(t *testing.T) {
	node, _ := snowflake.NewNode(2)
	affiliate := affiliatedomain.Affiliate{
		ID:     node.Generate(),
		Code:   "ANA2026",
		Status: affiliatedomain.StatusApproved,
	}
	svc, db := setupClickService(t, &registryStub{affiliate: affiliate})
	ctx := context.Background()

	click, err := svc.Record(ctx, domain.RecordRequest{
		Code:        "ANA2026",
		IPAddress:   "203.0.113.7",
		UserAgent:   "curl/8.0",
		LandingPage: "/landing",
	})
	require.NoError(t, err)
	require.Equal(t, affiliate.ID, click.AffiliateID)
	require.Equal(t, "ANA2026", click.Code)
	require.False(t, click.Converted)

	var count int64
	require.NoError(t, db.Model(&domain.Click{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRecordRejectsUnknownCode(t *testing.T) {
	svc, db := setupClickService(t, &registryStub{err: affiliatedomain.ErrCodeNotFound})
	ctx := context.Background()

	_, err := svc.Record(ctx, domain.RecordRequest{Code: "NOSUCH"})
	require.ErrorIs(t, err, affiliatedomain.ErrCodeNotFound)

	var count int64
	require.NoError(t, db.Model(&domain.Click{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestMarkConvertedFlipsOnce(t *testing.T) {
	node, _ := snowflake.NewNode(2)
	affiliate := affiliatedomain.Affiliate{
		ID:     node.Generate(),
		Code:   "ANA2026",
		Status: affiliatedomain.StatusApproved,
	}
	svc, db := setupClickService(t, &registryStub{affiliate: affiliate})
	ctx := context.Background()

	click, err := svc.Record(ctx, domain.RecordRequest{Code: "ANA2026"})
	require.NoError(t, err)

	firstLead := node.Generate()
	require.NoError(t, svc.MarkConverted(ctx, click.ID.String(), firstLead.String()))

	// A later conversion attempt must not overwrite the original lead.
	secondLead := node.Generate()
	require.NoError(t, svc.MarkConverted(ctx, click.ID.String(), secondLead.String()))

	var stored domain.Click
	require.NoError(t, db.First(&stored, "id = ?", click.ID).Error)
	require.True(t, stored.Converted)
	require.NotNil(t, stored.LeadID)
	require.Equal(t, firstLead, *stored.LeadID)
}

func TestMarkConvertedUnknownClick(t *testing.T) {
	node, _ := snowflake.NewNode(2)
	svc, _ := setupClickService(t, &registryStub{})
	ctx := context.Background()

	err := svc.MarkConverted(ctx, node.Generate().String(), node.Generate().String())
	require.ErrorIs(t, err, domain.ErrNotFound)

	err = svc.MarkConverted(ctx, "garbage", node.Generate().String())
	require.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestListFiltersByCode(t *testing.T) {
	node, _ := snowflake.NewNode(2)
	affiliate := affiliatedomain.Affiliate{
		ID:     node.Generate(),
		Code:   "ANA2026",
		Status: affiliatedomain.StatusApproved,
	}
	svc, db := setupClickService(t, &registryStub{affiliate: affiliate})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Record(ctx, domain.RecordRequest{Code: "ANA2026"})
		require.NoError(t, err)
	}
	// One click under a different code, inserted directly.
	require.NoError(t, db.Create(&domain.Click{
		ID:          node.Generate(),
		AffiliateID: node.Generate(),
		Code:        "OTHER",
		CreatedAt:   time.Now().UTC(),
	}).Error)

	resp, err := svc.List(ctx, domain.ListRequest{Code: "ANA2026"})
	require.NoError(t, err)
	require.Len(t, resp.Clicks, 3)
}
