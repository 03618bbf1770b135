package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/affilia/internal/retryqueue/domain"
	"github.com/smallbiznis/affilia/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.RetryRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO attribution_retries (id, application_id, reference_id, referral_code, funding_amount, click_id, error_message, context, status, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.ApplicationID,
		record.ReferenceID,
		record.ReferralCode,
		record.FundingAmount,
		record.ClickID,
		record.ErrorMessage,
		record.Context,
		record.Status,
		record.CreatedAt,
		record.CompletedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.RetryRecord, error) {
	var record domain.RetryRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, application_id, reference_id, referral_code, funding_amount, click_id, error_message, context, status, created_at, completed_at
		 FROM attribution_retries WHERE id = ?`,
		id,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) ListByStatus(ctx context.Context, db *gorm.DB, status domain.Status, page pagination.Pagination) ([]*domain.RetryRecord, error) {
	var records []*domain.RetryRecord
	stmt := db.WithContext(ctx).Model(&domain.RetryRecord{})
	if status != "" {
		stmt = stmt.Where("status = ?", status)
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
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateOutcome is the only mutation the queue allows: the audit fields are
// append-once, the status belongs to the retry driver.
func (r *repo) UpdateOutcome(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status, errorMessage string, completedAt *time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE attribution_retries SET status = ?, error_message = ?, completed_at = ? WHERE id = ?`,
		status,
		errorMessage,
		completedAt,
		id,
	).Error
}
