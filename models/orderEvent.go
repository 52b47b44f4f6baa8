package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"gorm.io/gorm"
)

// Outbox publish statuses for OrderEventRecord.PublishStatus.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// OrderEventRecord is the transactional outbox row behind sub-order
// notifications. It is written inside the same transaction as the order or
// status change; the dispatcher publishes it to Pub/Sub after commit, so a
// broken notifier can never undo a placement.
type OrderEventRecord struct {
	ID            int               `gorm:"primary_key;index:idx_order_event_dispatch,priority:3" json:"id"`
	BusinessId    string            `gorm:"size:64;not null;index" json:"business_id"`
	OccurredAt    time.Time         `gorm:"index;not null" json:"occurred_at"`
	ReferenceId   int               `json:"reference_id"`
	ReferenceType OrderEventRefType `gorm:"type:enum('SO')" json:"reference_type"`
	Action        OrderEventAction  `gorm:"type:enum('C','S')" json:"action"`
	Payload       []byte            `gorm:"type:blob" json:"payload"`

	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_order_event_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_order_event_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func ConvertToOrderEvent(record OrderEventRecord) config.OrderEvent {
	return config.OrderEvent{
		ID:            record.ID,
		BusinessId:    record.BusinessId,
		OccurredAt:    record.OccurredAt,
		ReferenceId:   record.ReferenceId,
		ReferenceType: string(record.ReferenceType),
		Action:        string(record.Action),
		Payload:       record.Payload,
		CorrelationId: record.CorrelationId,
	}
}

// publishOrderEventTx records an event in the caller's transaction.
// Publication is the dispatcher's problem.
func publishOrderEventTx(tx *gorm.DB, ctx context.Context, businessId string,
	refType OrderEventRefType, refId int, action OrderEventAction, payload any) error {

	payloadJSON, err := utils.MarshalToJSON(payload)
	if err != nil {
		return err
	}
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)

	record := OrderEventRecord{
		BusinessId:    businessId,
		OccurredAt:    time.Now().UTC(),
		ReferenceId:   refId,
		ReferenceType: refType,
		Action:        action,
		Payload:       []byte(payloadJSON),
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationId,
	}
	return tx.WithContext(ctx).Create(&record).Error
}
