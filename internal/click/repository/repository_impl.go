package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/affilia/internal/click/domain"
	"github.com/smallbiznis/affilia/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, click *domain.Click) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO clicks (id, affiliate_id, code, ip_address, user_agent, landing_page, converted, lead_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		click.ID,
		click.AffiliateID,
		click.Code,
		click.IPAddress,
		click.UserAgent,
		click.LandingPage,
		click.Converted,
		click.LeadID,
		click.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Click, error) {
	var click domain.Click
	err := db.WithContext(ctx).Raw(
		`SELECT id, affiliate_id, code, ip_address, user_agent, landing_page, converted, lead_id, created_at
		 FROM clicks WHERE id = ?`,
		id,
	).Scan(&click).Error
	if err != nil {
		return nil, err
	}
	if click.ID == 0 {
		return nil, nil
	}
	return &click, nil
}

// MarkConverted flips the flag at most once; a click already converted is
// left untouched.
func (r *repo) MarkConverted(ctx context.Context, db *gorm.DB, id, leadID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE clicks SET converted = ?, lead_id = ? WHERE id = ? AND converted = ?`,
		true,
		leadID,
		id,
		false,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Click, error) {
	var clicks []*domain.Click
	stmt := db.WithContext(ctx).Model(&domain.Click{})
	if filter.AffiliateID != 0 {
		stmt = stmt.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if filter.Code != "" {
		stmt = stmt.Where("code = ?", filter.Code)
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
		Find(&clicks).Error
	if err != nil {
		return nil, err
	}
	return clicks, nil
}
