package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repository interface {
	FindAll(ctx context.Context, db *gorm.DB) (Schedule, error)
	ReplaceAll(ctx context.Context, db *gorm.DB, levels []RateLevel) error
}

type LevelInput struct {
	Level       int    `json:"level"`
	Percentage  string `json:"percentage"`
	Description string `json:"description"`
}

// Service exposes the commission rate table. Current reads the whole table
// in one query so a single attribution run always sees one schedule version.
type Service interface {
	Current(ctx context.Context) (Schedule, error)
	Replace(ctx context.Context, levels []LevelInput) (Schedule, error)
}

var (
	ErrEmptySchedule     = errors.New("empty_schedule")
	ErrInvalidLevel      = errors.New("invalid_level")
	ErrInvalidPercentage = errors.New("invalid_percentage")
	ErrLevelGap          = errors.New("level_gap")
)
