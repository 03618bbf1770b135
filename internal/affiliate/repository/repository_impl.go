package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/affilia/internal/affiliate/domain"
	"github.com/smallbiznis/affilia/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, affiliate *domain.Affiliate) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO affiliates (id, name, email, code, tier, status, payment_method, payment_details, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		affiliate.ID,
		affiliate.Name,
		affiliate.Email,
		affiliate.Code,
		affiliate.Tier,
		affiliate.Status,
		affiliate.PaymentMethod,
		affiliate.PaymentDetails,
		affiliate.CreatedAt,
		affiliate.UpdatedAt,
	).Error
}

func (r *repo) InsertEdge(ctx context.Context, db *gorm.DB, edge *domain.ReferralEdge) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO referral_edges (affiliate_id, sponsor_id, created_at)
		 VALUES (?, ?, ?)`,
		edge.AffiliateID,
		edge.SponsorID,
		edge.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Affiliate, error) {
	var affiliate domain.Affiliate
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, code, tier, status, payment_method, payment_details, created_at, updated_at
		 FROM affiliates WHERE id = ?`,
		id,
	).Scan(&affiliate).Error
	if err != nil {
		return nil, err
	}
	if affiliate.ID == 0 {
		return nil, nil
	}
	return &affiliate, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Affiliate, error) {
	var affiliate domain.Affiliate
	// Exact, case-sensitive match; codes are unique by construction.
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, code, tier, status, payment_method, payment_details, created_at, updated_at
		 FROM affiliates WHERE code = ?`,
		code,
	).Scan(&affiliate).Error
	if err != nil {
		return nil, err
	}
	if affiliate.ID == 0 || affiliate.Code != code {
		return nil, nil
	}
	return &affiliate, nil
}

func (r *repo) FindEdge(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID) (*domain.ReferralEdge, error) {
	var edge domain.ReferralEdge
	err := db.WithContext(ctx).Raw(
		`SELECT affiliate_id, sponsor_id, created_at FROM referral_edges WHERE affiliate_id = ?`,
		affiliateID,
	).Scan(&edge).Error
	if err != nil {
		return nil, err
	}
	if edge.AffiliateID == 0 {
		return nil, nil
	}
	return &edge, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status) error {
	return db.WithContext(ctx).Exec(
		`UPDATE affiliates SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status,
		id,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Affiliate, error) {
	var affiliates []*domain.Affiliate
	stmt := db.WithContext(ctx).Model(&domain.Affiliate{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Tier != "" {
		stmt = stmt.Where("tier = ?", filter.Tier)
	}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	limit := page.PageSize
	if limit <= 0 {
		limit = 50
	}
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&affiliates).Error
	if err != nil {
		return nil, err
	}
	return affiliates, nil
}
