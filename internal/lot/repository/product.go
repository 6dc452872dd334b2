package repository

import (
	"context"
	"database/sql"

	"github.com/flowlytix/distribution-backend/pkg/database"
	"github.com/flowlytix/distribution-backend/pkg/errors"
)

// Product is the reference record lots are created against
type Product struct {
	ID       string `db:"id" json:"id"`
	AgencyID string `db:"agency_id" json:"agency_id"`
	Name     string `db:"name" json:"name"`
	SKU      string `db:"sku" json:"sku"`
	Status   string `db:"status" json:"status"`
}

// Active reports whether the product accepts new lots
func (p *Product) Active() bool {
	return p.Status == "active"
}

// Agency is the distribution agency reference record
type Agency struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Status string `db:"status" json:"status"`
}

// Operational reports whether the agency can receive stock
func (a *Agency) Operational() bool {
	return a.Status == "active"
}

// ProductRepository reads product reference data
type ProductRepository struct {
	db *database.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *database.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID gets a product by ID
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*Product, error) {
	var product Product
	query := `SELECT id, agency_id, name, sku, status FROM products WHERE id = $1`
	if err := r.db.GetContext(ctx, &product, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("product")
		}
		return nil, err
	}
	return &product, nil
}

// AgencyRepository reads agency reference data
type AgencyRepository struct {
	db *database.DB
}

// NewAgencyRepository creates a new agency repository
func NewAgencyRepository(db *database.DB) *AgencyRepository {
	return &AgencyRepository{db: db}
}

// GetByID gets an agency by ID
func (r *AgencyRepository) GetByID(ctx context.Context, id string) (*Agency, error) {
	var agency Agency
	query := `SELECT id, name, status FROM agencies WHERE id = $1`
	if err := r.db.GetContext(ctx, &agency, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("agency")
		}
		return nil, err
	}
	return &agency, nil
}
