package events

import (
	"context"

	"github.com/flowlytix/distribution-backend/internal/lot/domain"
	"github.com/flowlytix/distribution-backend/pkg/logger"
	"github.com/flowlytix/distribution-backend/pkg/messaging"
)

// Publisher is the messaging surface the event publisher needs. Satisfied
// by messaging.Publisher in production and a mock in tests.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// LotEventPublisher publishes lot lifecycle and stock movement events
type LotEventPublisher struct {
	publisher Publisher
	logger    *logger.Logger
}

// NewLotEventPublisher creates a publisher bound to the lot events exchange
func NewLotEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*LotEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeLotEvents, "lot-service", log)
	if err != nil {
		return nil, err
	}

	return &LotEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// NewLotEventPublisherWith wraps an existing publisher. Used by tests.
func NewLotEventPublisherWith(p Publisher, log *logger.Logger) *LotEventPublisher {
	return &LotEventPublisher{publisher: p, logger: log}
}

// PublishLotCreated publishes a lot created event
func (p *LotEventPublisher) PublishLotCreated(ctx context.Context, lot *domain.LotBatch) {
	if p == nil {
		return
	}

	data := messaging.LotCreatedEvent{
		LotID:       lot.ID,
		LotNumber:   lot.LotNumber,
		BatchNumber: lot.BatchNumber,
		ProductID:   lot.ProductID,
		AgencyID:    lot.AgencyID,
		Quantity:    lot.Quantity,
		ExpiryDate:  lot.ExpiryDate,
		CreatedBy:   lot.CreatedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventLotCreated, data); err != nil {
		p.logger.Error().Err(err).Str("lot_id", lot.ID).Msg("failed to publish lot created event")
	}
}

// PublishLotUpdated publishes a lot updated event with the changed fields
func (p *LotEventPublisher) PublishLotUpdated(ctx context.Context, lot *domain.LotBatch, fields map[string]any) {
	if p == nil {
		return
	}

	updatedBy := ""
	if lot.UpdatedBy != nil {
		updatedBy = *lot.UpdatedBy
	}

	data := messaging.LotUpdatedEvent{
		LotID:     lot.ID,
		LotNumber: lot.LotNumber,
		Fields:    fields,
		UpdatedBy: updatedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventLotUpdated, data); err != nil {
		p.logger.Error().Err(err).Str("lot_id", lot.ID).Msg("failed to publish lot updated event")
	}
}

// PublishLotDeleted publishes a lot deleted event for soft and hard deletes
func (p *LotEventPublisher) PublishLotDeleted(ctx context.Context, lot *domain.LotBatch, hard bool, reason, deletedBy string) {
	if p == nil {
		return
	}

	data := messaging.LotDeletedEvent{
		LotID:     lot.ID,
		LotNumber: lot.LotNumber,
		Hard:      hard,
		Reason:    reason,
		DeletedBy: deletedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventLotDeleted, data); err != nil {
		p.logger.Error().Err(err).Str("lot_id", lot.ID).Msg("failed to publish lot deleted event")
	}
}

// PublishLotExpired publishes a lot expired event
func (p *LotEventPublisher) PublishLotExpired(ctx context.Context, lot *domain.LotBatch) {
	if p == nil {
		return
	}

	data := messaging.LotExpiredEvent{
		LotID:      lot.ID,
		LotNumber:  lot.LotNumber,
		ProductID:  lot.ProductID,
		ExpiryDate: lot.ExpiryDate,
		Remaining:  lot.RemainingQuantity,
	}

	if err := p.publisher.Publish(ctx, messaging.EventLotExpired, data); err != nil {
		p.logger.Error().Err(err).Str("lot_id", lot.ID).Msg("failed to publish lot expired event")
	}
}

// PublishStockChanged publishes the stock movement matching a ledger entry
func (p *LotEventPublisher) PublishStockChanged(ctx context.Context, lot *domain.LotBatch, entry *domain.QuantityChange) {
	if p == nil || entry == nil {
		return
	}

	eventType := stockEventType(entry.ChangeType)
	if eventType == "" {
		return
	}

	reason := ""
	if entry.Reason != nil {
		reason = *entry.Reason
	}

	data := messaging.StockChangedEvent{
		LotID:          lot.ID,
		LotNumber:      lot.LotNumber,
		ProductID:      lot.ProductID,
		ChangeType:     string(entry.ChangeType),
		QuantityBefore: entry.QuantityBefore,
		QuantityAfter:  entry.QuantityAfter,
		QuantityChange: entry.QuantityChange,
		Reason:         reason,
		PerformedBy:    entry.PerformedBy,
	}

	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("lot_id", lot.ID).Msg("failed to publish stock changed event")
	}
}

func stockEventType(changeType domain.ChangeType) string {
	switch changeType {
	case domain.ChangeReserved:
		return messaging.EventStockReserved
	case domain.ChangeReleased:
		return messaging.EventStockReleased
	case domain.ChangeConsumed:
		return messaging.EventStockConsumed
	case domain.ChangeAdjusted:
		return messaging.EventStockAdjusted
	}
	return ""
}
