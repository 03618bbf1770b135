package upline

import (
	"context"

	"github.com/bwmarrin/snowflake"
	affiliatedomain "github.com/smallbiznis/affilia/internal/affiliate/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Member is one rung of an affiliate's upline. Level 1 is the affiliate
// itself, level 2 its sponsor, and so on.
type Member struct {
	Affiliate affiliatedomain.Affiliate
	Level     int
}

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo affiliatedomain.Repository
}

type Resolver struct {
	db   *gorm.DB
	log  *zap.Logger
	repo affiliatedomain.Repository
}

func NewResolver(p Params) *Resolver {
	return &Resolver{
		db:   p.DB,
		log:  p.Log.Named("upline.resolver"),
		repo: p.Repo,
	}
}

// Resolve walks sponsor edges starting at affiliateID, stopping at maxDepth
// or at the root, whichever comes first. A revisited node fails fast with
// ErrCycleDetected: edges are validated acyclic at registration, so a cycle
// here signals a data-integrity defect upstream.
func (r *Resolver) Resolve(ctx context.Context, tx *gorm.DB, affiliateID snowflake.ID, maxDepth int) ([]Member, error) {
	if tx == nil {
		tx = r.db
	}
	if maxDepth <= 0 {
		maxDepth = 1
	}

	members := make([]Member, 0, maxDepth)
	seen := make(map[snowflake.ID]struct{}, maxDepth)
	current := affiliateID

	for level := 1; level <= maxDepth && current != 0; level++ {
		if _, ok := seen[current]; ok {
			r.log.Error("cycle detected in referral graph",
				zap.String("affiliate_id", affiliateID.String()),
				zap.String("revisited_id", current.String()),
			)
			return nil, affiliatedomain.ErrCycleDetected
		}
		seen[current] = struct{}{}

		affiliate, err := r.repo.FindByID(ctx, tx, current)
		if err != nil {
			return nil, err
		}
		if affiliate == nil {
			// Dangling edge; stop the walk rather than fabricate a level.
			break
		}
		members = append(members, Member{Affiliate: *affiliate, Level: level})

		edge, err := r.repo.FindEdge(ctx, tx, current)
		if err != nil {
			return nil, err
		}
		if edge == nil {
			break
		}
		current = edge.SponsorID
	}

	return members, nil
}

var Module = fx.Module("upline.resolver",
	fx.Provide(NewResolver),
)
