package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/affilia/internal/clock"
	"github.com/smallbiznis/affilia/internal/rateschedule/domain"
	"github.com/smallbiznis/affilia/internal/rateschedule/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupSchedule(t *testing.T) domain.Service {
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

	if err := db.AutoMigrate(&domain.RateLevel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestReplaceAndCurrent(t *testing.T) {
	svc := setupSchedule(t)
	ctx := context.Background()

	_, err := svc.Replace(ctx, []domain.LevelInput{
		{Level: 1, Percentage: "60"},
		{Level: 2, Percentage: "20"},
		{Level: 3, Percentage: "10"},
	})
	require.NoError(t, err)

	schedule, err := svc.Current(ctx)
	require.NoError(t, err)
	require.Len(t, schedule, 3)

	rate, ok := schedule.RateForLevel(2)
	require.True(t, ok)
	require.True(t, decimal.RequireFromString("20").Equal(rate))

	_, ok = schedule.RateForLevel(4)
	require.False(t, ok)
}

func TestReplaceSwapsWholeTable(t *testing.T) {
	svc := setupSchedule(t)
	ctx := context.Background()

	_, err := svc.Replace(ctx, []domain.LevelInput{
		{Level: 1, Percentage: "60"},
		{Level: 2, Percentage: "20"},
	})
	require.NoError(t, err)

	_, err = svc.Replace(ctx, []domain.LevelInput{
		{Level: 1, Percentage: "50"},
	})
	require.NoError(t, err)

	schedule, err := svc.Current(ctx)
	require.NoError(t, err)
	require.Len(t, schedule, 1)
	require.True(t, decimal.RequireFromString("50").Equal(schedule[0].Percentage))
}

func TestReplaceValidation(t *testing.T) {
	svc := setupSchedule(t)
	ctx := context.Background()

	_, err := svc.Replace(ctx, nil)
	require.ErrorIs(t, err, domain.ErrEmptySchedule)

	_, err = svc.Replace(ctx, []domain.LevelInput{
		{Level: 1, Percentage: "60"},
		{Level: 3, Percentage: "10"},
	})
	require.ErrorIs(t, err, domain.ErrLevelGap)

	_, err = svc.Replace(ctx, []domain.LevelInput{
		{Level: 1, Percentage: "0"},
	})
	require.ErrorIs(t, err, domain.ErrInvalidPercentage)

	_, err = svc.Replace(ctx, []domain.LevelInput{
		{Level: 1, Percentage: "101"},
	})
	require.ErrorIs(t, err, domain.ErrInvalidPercentage)

	_, err = svc.Replace(ctx, []domain.LevelInput{
		{Level: 1, Percentage: "abc"},
	})
	require.ErrorIs(t, err, domain.ErrInvalidPercentage)
}

func TestReplaceAcceptsUnsortedInput(t *testing.T) {
	svc := setupSchedule(t)
	ctx := context.Background()

	schedule, err := svc.Replace(ctx, []domain.LevelInput{
		{Level: 2, Percentage: "20"},
		{Level: 1, Percentage: "60"},
	})
	require.NoError(t, err)
	require.Len(t, schedule, 2)
	require.Equal(t, 1, schedule[0].Level)
	require.Equal(t, 2, schedule[1].Level)
}
