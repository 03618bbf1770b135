package events

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	TypeConversionRecorded = "conversion.recorded"
	TypeCommissionCreated  = "commission.created"
)

// Event is a durable outbox row for facts the engine has committed. The
// notification layer consumes these (or the redis channel) for dashboard
// delivery; read state and fan-out are external concerns.
type Event struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	EventType   string            `gorm:"type:text;not null;index" json:"event_type"`
	Payload     datatypes.JSONMap `gorm:"type:jsonb;not null" json:"payload"`
	DedupeKey   *string           `gorm:"type:text;uniqueIndex:ux_events_dedupe" json:"dedupe_key,omitempty"`
	Published   bool              `gorm:"not null;default:false" json:"published"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Event) TableName() string { return "events" }

// ConversionRecorded carries the fact that an application was attributed.
type ConversionRecorded struct {
	AffiliateID   string `json:"affiliate_id"`
	ApplicationID string `json:"application_id"`
	ReferenceID   string `json:"reference_id"`
}

// CommissionCreated carries one commission row of the fan-out.
type CommissionCreated struct {
	CommissionID  string `json:"commission_id"`
	AffiliateID   string `json:"affiliate_id"`
	ApplicationID string `json:"application_id"`
	Level         int    `json:"level"`
	Amount        string `json:"amount"`
	Rate          string `json:"rate"`
}

// Emitter publishes domain events after a successful attribution commit.
// Implementations must never fail the caller: emission is an outbound fact,
// not part of the transaction boundary.
type Emitter interface {
	ConversionRecorded(ctx context.Context, event ConversionRecorded)
	CommissionCreated(ctx context.Context, event CommissionCreated)
}
