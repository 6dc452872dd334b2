package service

import (
	"context"
	"fmt"

	"github.com/flowlytix/distribution-backend/internal/lot/domain"
	"github.com/flowlytix/distribution-backend/pkg/actor"
	"github.com/flowlytix/distribution-backend/pkg/errors"
	"github.com/flowlytix/distribution-backend/pkg/permissions"
)

// SearchResult is a page of lot summaries plus the effective ordering the
// compiler settled on, so callers can see whether FIFO overrode their sort.
type SearchResult struct {
	Items       []*domain.Summary `json:"items"`
	Total       int64             `json:"total"`
	Limit       int               `json:"limit"`
	Offset      int               `json:"offset"`
	HasMore     bool              `json:"has_more"`
	SortBy      domain.SortField  `json:"sort_by"`
	SortOrder   domain.SortOrder  `json:"sort_order"`
	FIFOApplied bool              `json:"fifo_applied"`
}

// ListResult is a page of lightweight lot entries for selection UIs
type ListResult struct {
	Items   []*domain.ListItem `json:"items"`
	Total   int64              `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
	HasMore bool               `json:"has_more"`
}

// HistoryResult is a page of ledger entries for one lot
type HistoryResult struct {
	Items   []*domain.QuantityChange `json:"items"`
	Total   int64                    `json:"total"`
	Limit   int                      `json:"limit"`
	Offset  int                      `json:"offset"`
	HasMore bool                     `json:"has_more"`
}

// SearchLots compiles the request and runs it scoped to the caller's agency
func (s *LotService) SearchLots(ctx context.Context, req domain.SearchRequest) (*SearchResult, error) {
	act, err := s.authorize(ctx, permissions.LotRead)
	if err != nil {
		return nil, err
	}

	if err := s.scopeSearch(act, &req); err != nil {
		return nil, err
	}

	plan, err := domain.CompileSearch(req, s.searchLimits())
	if err != nil {
		return nil, err
	}

	lots, total, err := s.lotRepo.Search(ctx, plan)
	if err != nil {
		return nil, s.infra(err)
	}

	now := s.now()
	items := make([]*domain.Summary, 0, len(lots))
	for _, lot := range lots {
		items = append(items, domain.NewSummary(lot, now, plan.NearExpiryDays))
	}

	return &SearchResult{
		Items:       items,
		Total:       total,
		Limit:       plan.Limit,
		Offset:      plan.Offset,
		HasMore:     total > int64(plan.Offset+plan.Limit),
		SortBy:      plan.SortBy,
		SortOrder:   plan.SortOrder,
		FIFOApplied: plan.FIFOApplied,
	}, nil
}

// ListLots returns the lots of one product in FIFO order
func (s *LotService) ListLots(ctx context.Context, productID string, limit, offset int) (*ListResult, error) {
	act, err := s.authorize(ctx, permissions.LotRead)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.ListMaxLimit {
		return nil, errors.Validation(map[string]string{
			"limit": fmt.Sprintf("must be at most %d", s.cfg.ListMaxLimit),
		})
	}
	if offset < 0 {
		return nil, errors.Validation(map[string]string{"offset": "must not be negative"})
	}

	lots, total, err := s.lotRepo.ListByProduct(ctx, act.AgencyID, productID, limit, offset)
	if err != nil {
		return nil, s.infra(err)
	}

	now := s.now()
	items := make([]*domain.ListItem, 0, len(lots))
	for _, lot := range lots {
		items = append(items, domain.NewListItem(lot, now, s.cfg.NearExpiryDays))
	}

	return &ListResult{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: total > int64(offset+limit),
	}, nil
}

// GetHistory returns the quantity ledger of a lot, oldest first, optionally
// filtered to one change type
func (s *LotService) GetHistory(ctx context.Context, id string, changeType domain.ChangeType, limit, offset int) (*HistoryResult, error) {
	act, err := s.authorize(ctx, permissions.LotRead)
	if err != nil {
		return nil, err
	}

	if changeType != "" && !changeType.Valid() {
		return nil, errors.Validation(map[string]string{
			"type": fmt.Sprintf("unknown change type %q", changeType),
		})
	}

	// Scope check first so history of foreign lots reads as not found
	lot, err := s.loadScoped(ctx, act, id)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.ListMaxLimit {
		return nil, errors.Validation(map[string]string{
			"limit": fmt.Sprintf("must be at most %d", s.cfg.ListMaxLimit),
		})
	}
	if offset < 0 {
		return nil, errors.Validation(map[string]string{"offset": "must not be negative"})
	}

	var entries []*domain.QuantityChange
	var total int64
	if changeType != "" {
		entries, total, err = s.historyRepo.ListByLotAndType(ctx, lot.ID, changeType, limit, offset)
	} else {
		entries, total, err = s.historyRepo.ListByLot(ctx, lot.ID, limit, offset)
	}
	if err != nil {
		return nil, s.infra(err)
	}

	return &HistoryResult{
		Items:   entries,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: total > int64(offset+limit),
	}, nil
}

// GetLotByNumber resolves a lot by its business key within a product. With
// no batch number it returns the first batch of the lot in batch order.
func (s *LotService) GetLotByNumber(ctx context.Context, productID, lotNumber string, batchNumber *string) (*domain.Summary, error) {
	act, err := s.authorize(ctx, permissions.LotRead)
	if err != nil {
		return nil, err
	}

	var lot *domain.LotBatch
	if batchNumber != nil {
		lot, err = s.lotRepo.GetByLotAndBatch(ctx, productID, lotNumber, batchNumber)
	} else {
		lot, err = s.lotRepo.GetByLotNumber(ctx, productID, lotNumber)
	}
	if err != nil {
		return nil, s.infra(err)
	}
	if !act.IsSystem() && lot.AgencyID != act.AgencyID {
		return nil, errors.NotFound("lot batch")
	}

	return domain.NewSummary(lot, s.now(), s.cfg.NearExpiryDays), nil
}

// scopeSearch pins the search to the caller's agency. Explicitly requesting
// another agency is forbidden for regular users.
func (s *LotService) scopeSearch(act *actor.Actor, req *domain.SearchRequest) error {
	if act.IsSystem() {
		return nil
	}
	if len(req.AgencyIDs) == 0 {
		req.AgencyIDs = []string{act.AgencyID}
		return nil
	}
	for _, id := range req.AgencyIDs {
		if id != act.AgencyID {
			return errors.Forbidden("cannot search lots of another agency")
		}
	}
	return nil
}

func (s *LotService) searchLimits() domain.SearchLimits {
	return domain.SearchLimits{
		DefaultLimit:   s.cfg.DefaultLimit,
		MaxLimit:       s.cfg.SearchMaxLimit,
		NearExpiryDays: s.cfg.NearExpiryDays,
	}
}
