package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/affilia/internal/clock"
	"github.com/smallbiznis/affilia/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg   config.Config
	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Redis *redis.Client `optional:"true"`
}

type emitter struct {
	channel string
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	redis   *redis.Client
}

func NewEmitter(p Params) Emitter {
	return &emitter{
		channel: p.Cfg.Attribution.EventChannel,
		db:      p.DB,
		log:     p.Log.Named("events.emitter"),
		genID:   p.GenID,
		clock:   p.Clock,
		redis:   p.Redis,
	}
}

func (e *emitter) ConversionRecorded(ctx context.Context, event ConversionRecorded) {
	dedupe := fmt.Sprintf("%s:%s", TypeConversionRecorded, event.ApplicationID)
	e.emit(ctx, TypeConversionRecorded, dedupe, event)
}

func (e *emitter) CommissionCreated(ctx context.Context, event CommissionCreated) {
	dedupe := fmt.Sprintf("%s:%s", TypeCommissionCreated, event.CommissionID)
	e.emit(ctx, TypeCommissionCreated, dedupe, event)
}

func (e *emitter) emit(ctx context.Context, eventType, dedupeKey string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		e.log.Error("marshal event payload", zap.String("event_type", eventType), zap.Error(err))
		return
	}

	var body datatypes.JSONMap
	if err := json.Unmarshal(raw, &body); err != nil {
		e.log.Error("decode event payload", zap.String("event_type", eventType), zap.Error(err))
		return
	}

	now := e.clock.Now()
	row := Event{
		ID:        e.genID.Generate(),
		EventType: eventType,
		Payload:   body,
		DedupeKey: &dedupeKey,
		CreatedAt: now,
	}

	published := e.publish(ctx, eventType, raw)
	if published {
		row.Published = true
		row.PublishedAt = &now
	}

	err = e.db.WithContext(ctx).Exec(
		`INSERT INTO events (id, event_type, payload, dedupe_key, published, published_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.ID,
		row.EventType,
		row.Payload,
		row.DedupeKey,
		row.Published,
		row.PublishedAt,
		row.CreatedAt,
	).Error
	if err != nil {
		// Duplicate dedupe keys are expected on redelivery; anything else is
		// worth a log line but never fails the attribution that emitted it.
		e.log.Warn("persist outbox event",
			zap.String("event_type", eventType),
			zap.String("dedupe_key", dedupeKey),
			zap.Error(err),
		)
	}
}

func (e *emitter) publish(ctx context.Context, eventType string, raw []byte) bool {
	if e.redis == nil {
		return false
	}

	envelope, err := json.Marshal(map[string]any{
		"type": eventType,
		"data": json.RawMessage(raw),
	})
	if err != nil {
		return false
	}

	if err := e.redis.Publish(ctx, e.channel, envelope).Err(); err != nil {
		e.log.Warn("publish event", zap.String("event_type", eventType), zap.Error(err))
		return false
	}
	return true
}

// NopEmitter discards events; used by tests and the retrier CLI.
type NopEmitter struct{}

func (NopEmitter) ConversionRecorded(context.Context, ConversionRecorded) {}
func (NopEmitter) CommissionCreated(context.Context, CommissionCreated)  {}

var Module = fx.Module("events",
	fx.Provide(NewEmitter),
)
