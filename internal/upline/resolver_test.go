package upline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	affiliatedomain "github.com/smallbiznis/affilia/internal/affiliate/domain"
	affiliaterepository "github.com/smallbiznis/affilia/internal/affiliate/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupResolver(t *testing.T) (*Resolver, *gorm.DB, *snowflake.Node) {
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

	if err := db.AutoMigrate(&affiliatedomain.Affiliate{}, &affiliatedomain.ReferralEdge{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	resolver := NewResolver(Params{
		DB:   db,
		Log:  zap.NewNop(),
		Repo: affiliaterepository.Provide(),
	})
	return resolver, db, node
}

func seedNode(t *testing.T, db *gorm.DB, node *snowflake.Node, code string, sponsorID snowflake.ID) affiliatedomain.Affiliate {
	t.Helper()
	now := time.Now().UTC()
	affiliate := affiliatedomain.Affiliate{
		ID:        node.Generate(),
		Name:      code,
		Email:     code + "@example.com",
		Code:      code,
		Tier:      affiliatedomain.TierBronze,
		Status:    affiliatedomain.StatusApproved,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, db.Create(&affiliate).Error)
	if sponsorID != 0 {
		require.NoError(t, db.Create(&affiliatedomain.ReferralEdge{
			AffiliateID: affiliate.ID,
			SponsorID:   sponsorID,
			CreatedAt:   now,
		}).Error)
	}
	return affiliate
}

func TestResolveWalksToRoot(t *testing.T) {
	resolver, db, node := setupResolver(t)
	ctx := context.Background()

	root := seedNode(t, db, node, "ROOT", 0)
	mid := seedNode(t, db, node, "MID", root.ID)
	leaf := seedNode(t, db, node, "LEAF", mid.ID)

	members, err := resolver.Resolve(ctx, nil, leaf.ID, 5)
	require.NoError(t, err)
	require.Len(t, members, 3)

	require.Equal(t, leaf.ID, members[0].Affiliate.ID)
	require.Equal(t, 1, members[0].Level)
	require.Equal(t, mid.ID, members[1].Affiliate.ID)
	require.Equal(t, 2, members[1].Level)
	require.Equal(t, root.ID, members[2].Affiliate.ID)
	require.Equal(t, 3, members[2].Level)
}

func TestResolveStopsAtMaxDepth(t *testing.T) {
	resolver, db, node := setupResolver(t)
	ctx := context.Background()

	root := seedNode(t, db, node, "ROOT", 0)
	mid := seedNode(t, db, node, "MID", root.ID)
	leaf := seedNode(t, db, node, "LEAF", mid.ID)

	members, err := resolver.Resolve(ctx, nil, leaf.ID, 2)
	require.NoError(t, err)
	require.Len(t, members, 2)
	require.Equal(t, 2, members[1].Level)
}

func TestResolveDetectsCycle(t *testing.T) {
	resolver, db, node := setupResolver(t)
	ctx := context.Background()

	a := seedNode(t, db, node, "A", 0)
	b := seedNode(t, db, node, "B", a.ID)
	require.NoError(t, db.Create(&affiliatedomain.ReferralEdge{
		AffiliateID: a.ID,
		SponsorID:   b.ID,
		CreatedAt:   time.Now().UTC(),
	}).Error)

	_, err := resolver.Resolve(ctx, nil, b.ID, 5)
	require.ErrorIs(t, err, affiliatedomain.ErrCycleDetected)
}

func TestResolveStopsAtDanglingEdge(t *testing.T) {
	resolver, db, node := setupResolver(t)
	ctx := context.Background()

	// Leaf points at a sponsor row that does not exist.
	leaf := seedNode(t, db, node, "LEAF", node.Generate())

	members, err := resolver.Resolve(ctx, nil, leaf.ID, 5)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, leaf.ID, members[0].Affiliate.ID)
}
