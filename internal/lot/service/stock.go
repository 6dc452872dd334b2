package service

import (
	"context"
	"time"

	"github.com/flowlytix/distribution-backend/internal/lot/domain"
	"github.com/flowlytix/distribution-backend/pkg/httputil"
	"github.com/flowlytix/distribution-backend/pkg/permissions"
)

// StockRequest carries a reserve, release or consume movement. Quantity is
// the movement size, always positive. ReferenceID/ReferenceType tie the
// ledger entry to the order or shipment that caused it.
type StockRequest struct {
	Quantity      int64   `json:"quantity" validate:"required,gt=0"`
	Reason        string  `json:"reason,omitempty" validate:"omitempty,max=500"`
	ReferenceID   *string `json:"reference_id,omitempty" validate:"omitempty,uuid"`
	ReferenceType *string `json:"reference_type,omitempty" validate:"omitempty,max=50"`
}

// AdjustRequest sets the remaining quantity to an absolute value after a
// physical count. Adjustments always need a reason.
type AdjustRequest struct {
	NewRemaining  int64   `json:"new_remaining" validate:"gte=0"`
	Reason        string  `json:"reason" validate:"required,min=5,max=500"`
	ReferenceID   *string `json:"reference_id,omitempty" validate:"omitempty,uuid"`
	ReferenceType *string `json:"reference_type,omitempty" validate:"omitempty,max=50"`
}

// Reserve earmarks stock on a lot for a pending order
func (s *LotService) Reserve(ctx context.Context, id string, req *StockRequest) (*domain.Summary, error) {
	return s.moveStock(ctx, permissions.LotUpdate, id, req, (*domain.LotBatch).Reserve)
}

// Release returns previously reserved stock to the available pool
func (s *LotService) Release(ctx context.Context, id string, req *StockRequest) (*domain.Summary, error) {
	return s.moveStock(ctx, permissions.LotUpdate, id, req, (*domain.LotBatch).Release)
}

// Consume fulfills reserved stock, removing it from the lot
func (s *LotService) Consume(ctx context.Context, id string, req *StockRequest) (*domain.Summary, error) {
	return s.moveStock(ctx, permissions.LotUpdate, id, req, (*domain.LotBatch).Consume)
}

// Adjust corrects the remaining quantity to match a physical count
func (s *LotService) Adjust(ctx context.Context, id string, req *AdjustRequest) (*domain.Summary, error) {
	if err := httputil.Validate(req); err != nil {
		return nil, err
	}

	act, err := s.authorize(ctx, permissions.LotAdjust)
	if err != nil {
		return nil, err
	}

	lot, err := s.loadScoped(ctx, act, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	entry, err := lot.Adjust(req.NewRemaining, req.Reason, act.ID, now)
	if err != nil {
		return nil, err
	}
	entry.WithReference(req.ReferenceID, req.ReferenceType)

	if err := s.lotRepo.Update(ctx, lot, entry); err != nil {
		return nil, s.infra(err)
	}

	s.logger.Info().
		Str("lot_id", lot.ID).
		Str("lot_number", lot.LotNumber).
		Int64("before", entry.QuantityBefore).
		Int64("after", entry.QuantityAfter).
		Str("reason", req.Reason).
		Msg("stock adjusted")

	s.publisher.PublishStockChanged(ctx, lot, entry)

	return domain.NewSummary(lot, now, s.cfg.NearExpiryDays), nil
}

// MarkLotExpired transitions a lot whose expiry date has passed to EXPIRED.
// Lots already expired are left alone, so retries and the sweep are safe.
func (s *LotService) MarkLotExpired(ctx context.Context, id string) (*domain.Summary, error) {
	act, err := s.authorize(ctx, permissions.LotUpdate)
	if err != nil {
		return nil, err
	}

	lot, err := s.loadScoped(ctx, act, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	entry, err := lot.MarkExpired(act.ID, now)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		// Already expired
		return domain.NewSummary(lot, now, s.cfg.NearExpiryDays), nil
	}

	if err := s.lotRepo.Update(ctx, lot, entry); err != nil {
		return nil, s.infra(err)
	}

	s.logger.Info().
		Str("lot_id", lot.ID).
		Str("lot_number", lot.LotNumber).
		Int64("remaining", lot.RemainingQuantity).
		Msg("lot marked expired")

	s.publisher.PublishLotExpired(ctx, lot)

	return domain.NewSummary(lot, now, s.cfg.NearExpiryDays), nil
}

type stockOp func(l *domain.LotBatch, quantity int64, reason, performedBy string, now time.Time) (*domain.QuantityChange, error)

// moveStock runs the shared load, mutate, persist, publish sequence for
// reserve, release and consume.
func (s *LotService) moveStock(ctx context.Context, permission, id string, req *StockRequest, op stockOp) (*domain.Summary, error) {
	if err := httputil.Validate(req); err != nil {
		return nil, err
	}

	act, err := s.authorize(ctx, permission)
	if err != nil {
		return nil, err
	}

	lot, err := s.loadScoped(ctx, act, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	entry, err := op(lot, req.Quantity, req.Reason, act.ID, now)
	if err != nil {
		return nil, err
	}
	entry.WithReference(req.ReferenceID, req.ReferenceType)

	if err := s.lotRepo.Update(ctx, lot, entry); err != nil {
		return nil, s.infra(err)
	}

	s.logger.Info().
		Str("lot_id", lot.ID).
		Str("lot_number", lot.LotNumber).
		Str("change_type", string(entry.ChangeType)).
		Int64("quantity", req.Quantity).
		Msg("stock moved")

	s.publisher.PublishStockChanged(ctx, lot, entry)

	return domain.NewSummary(lot, now, s.cfg.NearExpiryDays), nil
}
