package repository

import (
	"context"

	"github.com/smallbiznis/affilia/internal/rateschedule/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindAll(ctx context.Context, db *gorm.DB) (domain.Schedule, error) {
	var levels []domain.RateLevel
	err := db.WithContext(ctx).Raw(
		`SELECT id, level, percentage, description, created_at
		 FROM rate_levels ORDER BY level ASC`,
	).Scan(&levels).Error
	if err != nil {
		return nil, err
	}
	return domain.Schedule(levels), nil
}

func (r *repo) ReplaceAll(ctx context.Context, db *gorm.DB, levels []domain.RateLevel) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM rate_levels`).Error; err != nil {
		return err
	}
	for i := range levels {
		row := levels[i]
		err := db.WithContext(ctx).Exec(
			`INSERT INTO rate_levels (id, level, percentage, description, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			row.ID,
			row.Level,
			row.Percentage,
			row.Description,
			row.CreatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}
