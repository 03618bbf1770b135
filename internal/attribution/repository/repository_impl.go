package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/affilia/internal/attribution/domain"
	"github.com/smallbiznis/affilia/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, commission *domain.Commission) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO commissions (id, affiliate_id, application_id, level, amount, rate_applied, status, payout_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		commission.ID,
		commission.AffiliateID,
		commission.ApplicationID,
		commission.Level,
		commission.Amount,
		commission.RateApplied,
		commission.Status,
		commission.PayoutDate,
		commission.CreatedAt,
	).Error
}

func (r *repo) FindByAttribution(ctx context.Context, db *gorm.DB, applicationID, affiliateID snowflake.ID, level int) (*domain.Commission, error) {
	var commission domain.Commission
	err := db.WithContext(ctx).Raw(
		`SELECT id, affiliate_id, application_id, level, amount, rate_applied, status, payout_date, created_at
		 FROM commissions WHERE application_id = ? AND affiliate_id = ? AND level = ?`,
		applicationID,
		affiliateID,
		level,
	).Scan(&commission).Error
	if err != nil {
		return nil, err
	}
	if commission.ID == 0 {
		return nil, nil
	}
	return &commission, nil
}

func (r *repo) ListByApplication(ctx context.Context, db *gorm.DB, applicationID snowflake.ID) ([]domain.Commission, error) {
	var commissions []domain.Commission
	err := db.WithContext(ctx).Raw(
		`SELECT id, affiliate_id, application_id, level, amount, rate_applied, status, payout_date, created_at
		 FROM commissions WHERE application_id = ? ORDER BY level ASC`,
		applicationID,
	).Scan(&commissions).Error
	if err != nil {
		return nil, err
	}
	return commissions, nil
}

func (r *repo) ListByAffiliate(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID, page pagination.Pagination) ([]*domain.Commission, error) {
	var commissions []*domain.Commission
	stmt := db.WithContext(ctx).
		Model(&domain.Commission{}).
		Where("affiliate_id = ?", affiliateID)
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
		Find(&commissions).Error
	if err != nil {
		return nil, err
	}
	return commissions, nil
}
