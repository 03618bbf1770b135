package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// RetryRecord is both the audit trail of a failed attribution attempt and
// the work item a retry driver re-drives. Rows are never deleted; only the
// driver mutates status, and any record that is not completed remains
// retryable.
type RetryRecord struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	ApplicationID snowflake.ID      `gorm:"not null;index" json:"application_id"`
	ReferenceID   string            `gorm:"type:text" json:"reference_id,omitempty"`
	ReferralCode  string            `gorm:"not null" json:"referral_code"`
	FundingAmount decimal.Decimal   `gorm:"type:decimal(38,18);not null" json:"funding_amount"`
	ClickID       *snowflake.ID     `json:"click_id,omitempty"`
	ErrorMessage  string            `gorm:"type:text;not null" json:"error_message"`
	Context       datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"context,omitempty"`
	Status        Status            `gorm:"type:text;not null;default:'pending';index" json:"status"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
}

func (RetryRecord) TableName() string { return "attribution_retries" }
