package events

import (
	"time"

	"github.com/google/uuid"
)

// Watermill topics for product lifecycle events.
const (
	TopicProductCreated = "product.created"
	TopicProductUpdated = "product.updated"
	TopicProductDeleted = "product.deleted"
)

// ProductCreatedEvent is published in the same transaction that persists a
// new product (outbox pattern).
type ProductCreatedEvent struct {
	EventID    uuid.UUID `json:"event_id"` // Unique publish-time identifier for deduplication
	Version    int       `json:"version"`  // Schema version; increment on breaking changes
	ProductID  int64     `json:"product_id"`
	Name       string    `json:"name"`
	PartNumber string    `json:"part_number"`
	CreatorID  int64     `json:"creator_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ProductUpdatedEvent is published in the same transaction as a product update.
type ProductUpdatedEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	Version    int       `json:"version"`
	ProductID  int64     `json:"product_id"`
	Name       string    `json:"name"`
	CreatorID  int64     `json:"creator_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ProductDeletedEvent is published in the same transaction that removes a
// product. OrphanedOrg is true when the cascade also removed the manufacturer.
type ProductDeletedEvent struct {
	EventID     uuid.UUID `json:"event_id"`
	Version     int       `json:"version"`
	ProductID   int64     `json:"product_id"`
	CreatorID   int64     `json:"creator_id"`
	OrphanedOrg bool      `json:"orphaned_org"`
	OccurredAt  time.Time `json:"occurred_at"`
}
