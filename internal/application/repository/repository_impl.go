package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/affilia/internal/application/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, application *domain.Application) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO applications (id, reference_id, funding_amount, status, affiliate_id, affiliate_code, attributed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		application.ID,
		application.ReferenceID,
		application.FundingAmount,
		application.Status,
		application.AffiliateID,
		application.AffiliateCode,
		application.AttributedAt,
		application.CreatedAt,
		application.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Application, error) {
	var application domain.Application
	err := db.WithContext(ctx).Raw(
		`SELECT id, reference_id, funding_amount, status, affiliate_id, affiliate_code, attributed_at, created_at, updated_at
		 FROM applications WHERE id = ?`,
		id,
	).Scan(&application).Error
	if err != nil {
		return nil, err
	}
	if application.ID == 0 {
		return nil, nil
	}
	return &application, nil
}

func (r *repo) FindByReference(ctx context.Context, db *gorm.DB, referenceID string) (*domain.Application, error) {
	var application domain.Application
	err := db.WithContext(ctx).Raw(
		`SELECT id, reference_id, funding_amount, status, affiliate_id, affiliate_code, attributed_at, created_at, updated_at
		 FROM applications WHERE reference_id = ?`,
		referenceID,
	).Scan(&application).Error
	if err != nil {
		return nil, err
	}
	if application.ID == 0 {
		return nil, nil
	}
	return &application, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status) error {
	return db.WithContext(ctx).Exec(
		`UPDATE applications SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status,
		id,
	).Error
}

func (r *repo) SetAttribution(ctx context.Context, db *gorm.DB, id, affiliateID snowflake.ID, code string, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE applications
		 SET affiliate_id = ?, affiliate_code = ?, attributed_at = ?, updated_at = ?
		 WHERE id = ? AND affiliate_id IS NULL`,
		affiliateID,
		code,
		at,
		at,
		id,
	)
	return result.RowsAffected, result.Error
}
