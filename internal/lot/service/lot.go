// Package service implements the lot engine's operations: it validates and
// authorizes requests, drives the aggregate through its state machine, and
// persists every mutation together with its ledger entry under optimistic
// locking.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/flowlytix/distribution-backend/internal/lot/domain"
	"github.com/flowlytix/distribution-backend/internal/lot/events"
	"github.com/flowlytix/distribution-backend/internal/lot/repository"
	"github.com/flowlytix/distribution-backend/pkg/actor"
	"github.com/flowlytix/distribution-backend/pkg/config"
	"github.com/flowlytix/distribution-backend/pkg/errors"
	"github.com/flowlytix/distribution-backend/pkg/httputil"
	"github.com/flowlytix/distribution-backend/pkg/logger"
	"github.com/flowlytix/distribution-backend/pkg/permissions"
)

// LotService handles lot/batch business logic
type LotService struct {
	lotRepo     *repository.LotBatchRepository
	historyRepo *repository.HistoryRepository
	productRepo *repository.ProductRepository
	agencyRepo  *repository.AgencyRepository
	userRepo    *repository.UserRepository
	publisher   *events.LotEventPublisher
	cfg         config.LotConfig
	logger      *logger.Logger

	now func() time.Time
}

// NewLotService creates a new lot service
func NewLotService(
	lotRepo *repository.LotBatchRepository,
	historyRepo *repository.HistoryRepository,
	productRepo *repository.ProductRepository,
	agencyRepo *repository.AgencyRepository,
	userRepo *repository.UserRepository,
	publisher *events.LotEventPublisher,
	cfg config.LotConfig,
	log *logger.Logger,
) *LotService {
	return &LotService{
		lotRepo:     lotRepo,
		historyRepo: historyRepo,
		productRepo: productRepo,
		agencyRepo:  agencyRepo,
		userRepo:    userRepo,
		publisher:   publisher,
		cfg:         cfg,
		logger:      log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateLotRequest carries the caller-supplied fields for lot creation.
// The agency comes from the caller's scope, never from the request.
type CreateLotRequest struct {
	LotNumber         string     `json:"lot_number" validate:"required,max=50,lotnumber"`
	BatchNumber       *string    `json:"batch_number,omitempty" validate:"omitempty,min=1,max=50"`
	ProductID         string     `json:"product_id" validate:"required,uuid"`
	ManufacturingDate time.Time  `json:"manufacturing_date" validate:"required"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	Quantity          int64      `json:"quantity" validate:"required,gt=0,lte=1000000"`
	SupplierID        *string    `json:"supplier_id,omitempty" validate:"omitempty,uuid"`
	SupplierLotCode   *string    `json:"supplier_lot_code,omitempty" validate:"omitempty,max=100"`
	Notes             *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// UpdateLotRequest carries a partial update. Nil pointers mean "leave as
// is"; a request changing nothing is rejected.
type UpdateLotRequest struct {
	ExpiryDate      *time.Time     `json:"expiry_date,omitempty"`
	SupplierID      *string        `json:"supplier_id,omitempty" validate:"omitempty,uuid"`
	SupplierLotCode *string        `json:"supplier_lot_code,omitempty" validate:"omitempty,max=100"`
	Notes           *string        `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Status          *domain.Status `json:"status,omitempty"`
	Reason          string         `json:"reason" validate:"required,min=5,max=500"`
}

// DeleteLotRequest carries the delete mode and audit reason
type DeleteLotRequest struct {
	Reason string `json:"reason" validate:"required,min=5,max=500"`
	Force  bool   `json:"force"`
	Hard   bool   `json:"hard"`
}

// GetOptions selects the optional parts of the detail view
type GetOptions struct {
	IncludeHistory bool
	IncludeRelated bool
}

// CreateLot receives a new lot into inventory
func (s *LotService) CreateLot(ctx context.Context, req *CreateLotRequest) (*domain.Summary, error) {
	if err := httputil.Validate(req); err != nil {
		return nil, err
	}

	act, err := s.authorize(ctx, permissions.LotCreate)
	if err != nil {
		return nil, err
	}

	agency, err := s.agencyRepo.GetByID(ctx, act.AgencyID)
	if err != nil {
		return nil, s.infra(err)
	}
	if !agency.Operational() {
		return nil, errors.Conflict(fmt.Sprintf("agency %s is not operational", agency.Name))
	}

	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, s.infra(err)
	}
	if !product.Active() {
		return nil, errors.Conflict(fmt.Sprintf("product %s is not active", product.Name))
	}
	if product.AgencyID != act.AgencyID {
		return nil, errors.NotFound("product")
	}

	// Duplicate business key check. The unique index backs this up under
	// concurrent creation.
	if _, err := s.lotRepo.GetByLotAndBatch(ctx, req.ProductID, req.LotNumber, req.BatchNumber); err == nil {
		return nil, errors.Conflict(fmt.Sprintf("lot %s already exists for this product", lotBatchKey(req.LotNumber, req.BatchNumber)))
	} else if !errors.Is(err, errors.ErrNotFound) {
		return nil, s.infra(err)
	}

	now := s.now()
	lot, entry, err := domain.NewLotBatch(domain.NewLotBatchParams{
		LotNumber:         req.LotNumber,
		BatchNumber:       req.BatchNumber,
		ProductID:         req.ProductID,
		AgencyID:          act.AgencyID,
		ManufacturingDate: req.ManufacturingDate,
		ExpiryDate:        req.ExpiryDate,
		Quantity:          req.Quantity,
		SupplierID:        req.SupplierID,
		SupplierLotCode:   req.SupplierLotCode,
		Notes:             req.Notes,
		CreatedBy:         act.ID,
	}, now)
	if err != nil {
		return nil, err
	}

	if err := s.lotRepo.Create(ctx, lot, entry); err != nil {
		return nil, s.infra(err)
	}

	s.logger.Info().
		Str("lot_id", lot.ID).
		Str("lot_number", lot.LotNumber).
		Int64("quantity", lot.Quantity).
		Str("created_by", act.ID).
		Msg("lot created")

	s.publisher.PublishLotCreated(ctx, lot)

	return domain.NewSummary(lot, now, s.cfg.NearExpiryDays), nil
}

// GetLot returns the detail view of a lot
func (s *LotService) GetLot(ctx context.Context, id string, opts GetOptions) (*domain.Detail, error) {
	act, err := s.authorize(ctx, permissions.LotRead)
	if err != nil {
		return nil, err
	}

	lot, err := s.loadScoped(ctx, act, id)
	if err != nil {
		return nil, err
	}

	var history []*domain.QuantityChange
	if opts.IncludeHistory {
		history, _, err = s.historyRepo.ListByLot(ctx, lot.ID, s.cfg.ListMaxLimit, 0)
		if err != nil {
			return nil, s.infra(err)
		}
	}

	var related []*domain.LotBatch
	if opts.IncludeRelated {
		related, _, err = s.lotRepo.ListByProduct(ctx, lot.AgencyID, lot.ProductID, s.cfg.ListMaxLimit, 0)
		if err != nil {
			return nil, s.infra(err)
		}
	}

	return domain.NewDetail(lot, history, related, s.now(), s.cfg.NearExpiryDays), nil
}

// UpdateLot applies a partial metadata and/or status update
func (s *LotService) UpdateLot(ctx context.Context, id string, req *UpdateLotRequest) (*domain.Summary, error) {
	if err := httputil.Validate(req); err != nil {
		return nil, err
	}

	act, err := s.authorize(ctx, permissions.LotUpdate)
	if err != nil {
		return nil, err
	}

	lot, err := s.loadScoped(ctx, act, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	changed := map[string]any{}

	if req.ExpiryDate != nil && !equalTimePtr(req.ExpiryDate, lot.ExpiryDate) {
		if !req.ExpiryDate.After(lot.ManufacturingDate) {
			return nil, errors.Validation(map[string]string{
				"expiry_date": "expiry date must be after the manufacturing date",
			})
		}
		lot.ExpiryDate = req.ExpiryDate
		changed["expiry_date"] = req.ExpiryDate
	}
	if req.SupplierID != nil && !equalStrPtr(req.SupplierID, lot.SupplierID) {
		lot.SupplierID = req.SupplierID
		changed["supplier_id"] = *req.SupplierID
	}
	if req.SupplierLotCode != nil && !equalStrPtr(req.SupplierLotCode, lot.SupplierLotCode) {
		lot.SupplierLotCode = req.SupplierLotCode
		changed["supplier_lot_code"] = *req.SupplierLotCode
	}
	if req.Notes != nil && !equalStrPtr(req.Notes, lot.Notes) {
		lot.Notes = req.Notes
		changed["notes"] = *req.Notes
	}
	if req.Status != nil && *req.Status != lot.Status {
		if err := lot.ChangeStatus(*req.Status, req.Reason, act.ID, now); err != nil {
			return nil, err
		}
		changed["status"] = string(*req.Status)
	}

	if len(changed) == 0 {
		e := errors.Conflict(fmt.Sprintf("update of lot %s changes nothing", lot.LotNumber))
		e.Code = "NO_OP_UPDATE"
		return nil, e
	}

	lot.UpdatedBy = &act.ID
	lot.UpdatedAt = now

	if err := s.lotRepo.Update(ctx, lot, nil); err != nil {
		return nil, s.infra(err)
	}

	s.logger.Info().
		Str("lot_id", lot.ID).
		Str("lot_number", lot.LotNumber).
		Interface("fields", changed).
		Msg("lot updated")

	s.publisher.PublishLotUpdated(ctx, lot, changed)

	return domain.NewSummary(lot, now, s.cfg.NearExpiryDays), nil
}

// DeleteLot tombstones a lot, or removes it permanently when Hard is set
func (s *LotService) DeleteLot(ctx context.Context, id string, req *DeleteLotRequest) error {
	if err := httputil.Validate(req); err != nil {
		return err
	}

	act, err := s.authorize(ctx, permissions.LotDelete)
	if err != nil {
		return err
	}

	lot, err := s.loadScoped(ctx, act, id)
	if err != nil {
		return err
	}

	if req.Hard {
		if err := lot.CheckHardDelete(req.Force); err != nil {
			return err
		}
		if err := s.lotRepo.HardDelete(ctx, lot.ID); err != nil {
			return s.infra(err)
		}
	} else {
		if err := lot.SoftDelete(req.Reason, req.Force, act.ID, s.now()); err != nil {
			return err
		}
		if err := s.lotRepo.Update(ctx, lot, nil); err != nil {
			return s.infra(err)
		}
	}

	s.logger.Info().
		Str("lot_id", lot.ID).
		Str("lot_number", lot.LotNumber).
		Bool("hard", req.Hard).
		Str("reason", req.Reason).
		Msg("lot deleted")

	s.publisher.PublishLotDeleted(ctx, lot, req.Hard, req.Reason, act.ID)
	return nil
}

// authorize resolves the acting user and checks the required permission.
// System-initiated operations (expiry sweep) carry the system actor and
// bypass the directory lookup.
func (s *LotService) authorize(ctx context.Context, permission string) (*actor.Actor, error) {
	act := actor.FromContext(ctx)
	if act == nil {
		return nil, errors.Unauthorized("no authenticated actor")
	}
	if act.IsSystem() {
		return act, nil
	}

	user, err := s.userRepo.GetByID(ctx, act.ID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Unauthorized("unknown user")
		}
		return nil, s.infra(err)
	}

	if !user.HasPermission(permission) {
		return nil, errors.Forbidden(fmt.Sprintf("missing permission %s", permission))
	}
	return act, nil
}

// loadScoped loads a lot and enforces the caller's agency scope. Lots of
// other agencies read as not found so their existence does not leak.
func (s *LotService) loadScoped(ctx context.Context, act *actor.Actor, id string) (*domain.LotBatch, error) {
	lot, err := s.lotRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.infra(err)
	}
	if !act.IsSystem() && lot.AgencyID != act.AgencyID {
		return nil, errors.NotFound("lot batch")
	}
	return lot, nil
}

// infra passes domain errors through and wraps everything else with its
// message sanitized for the caller. The raw error stays in the log.
func (s *LotService) infra(err error) error {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	s.logger.Error().Err(err).Msg("infrastructure failure")
	return errors.InternalFromErr(err)
}

func lotBatchKey(lotNumber string, batchNumber *string) string {
	if batchNumber != nil && *batchNumber != "" {
		return lotNumber + "-" + *batchNumber
	}
	return lotNumber
}

func equalStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
