package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LotBatchFixture represents test lot/batch data
type LotBatchFixture struct {
	ID                string
	LotNumber         string
	BatchNumber       *string
	ProductID         string
	AgencyID          string
	ManufacturingDate time.Time
	ExpiryDate        *time.Time
	Quantity          int64
	RemainingQuantity int64
	ReservedQuantity  int64
	Status            string
	SupplierID        *string
	SupplierLotCode   *string
	Notes             *string
	Version           int64
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// QuantityChangeFixture represents a test ledger entry
type QuantityChangeFixture struct {
	ID             string
	LotBatchID     string
	ChangeType     string
	QuantityBefore int64
	QuantityAfter  int64
	QuantityChange int64
	Reason         string
	PerformedBy    string
	ChangedAt      time.Time
}

// ProductFixture represents test product data
type ProductFixture struct {
	ID       string
	AgencyID string
	Name     string
	SKU      string
	Status   string
}

// AgencyFixture represents test agency data
type AgencyFixture struct {
	ID     string
	Name   string
	Status string
}

// UserFixture represents a synced directory user for tests
type UserFixture struct {
	UserID      string
	Email       string
	Name        string
	RoleName    string
	Permissions []string
	AgencyID    string
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Agency creates an agency fixture with defaults
func (f *FixtureFactory) Agency(opts ...func(*AgencyFixture)) AgencyFixture {
	seq := f.nextSeq()

	agency := AgencyFixture{
		ID:     uuid.New().String(),
		Name:   fmt.Sprintf("Agency %d", seq),
		Status: "active",
	}

	for _, opt := range opts {
		opt(&agency)
	}

	return agency
}

// Product creates a product fixture with defaults
func (f *FixtureFactory) Product(agencyID string, opts ...func(*ProductFixture)) ProductFixture {
	seq := f.nextSeq()

	product := ProductFixture{
		ID:       uuid.New().String(),
		AgencyID: agencyID,
		Name:     fmt.Sprintf("Test Product %d", seq),
		SKU:      fmt.Sprintf("SKU-%04d", seq),
		Status:   "active",
	}

	for _, opt := range opts {
		opt(&product)
	}

	return product
}

// LotBatch creates a lot/batch fixture with defaults: a fully stocked
// ACTIVE lot manufactured 30 days ago that expires in one year.
func (f *FixtureFactory) LotBatch(productID, agencyID string, opts ...func(*LotBatchFixture)) LotBatchFixture {
	seq := f.nextSeq()
	now := time.Now().UTC()
	expiry := now.AddDate(1, 0, 0)

	lot := LotBatchFixture{
		ID:                uuid.New().String(),
		LotNumber:         fmt.Sprintf("LOT-%04d", seq),
		ProductID:         productID,
		AgencyID:          agencyID,
		ManufacturingDate: now.AddDate(0, 0, -30),
		ExpiryDate:        &expiry,
		Quantity:          100,
		RemainingQuantity: 100,
		ReservedQuantity:  0,
		Status:            "ACTIVE",
		Version:           1,
		CreatedBy:         uuid.New().String(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	for _, opt := range opts {
		opt(&lot)
	}

	return lot
}

// WithLotNumber sets the lot number
func WithLotNumber(lotNumber string) func(*LotBatchFixture) {
	return func(l *LotBatchFixture) {
		l.LotNumber = lotNumber
	}
}

// WithBatchNumber sets the batch number
func WithBatchNumber(batchNumber string) func(*LotBatchFixture) {
	return func(l *LotBatchFixture) {
		l.BatchNumber = &batchNumber
	}
}

// WithQuantities sets the full quantity state
func WithQuantities(quantity, remaining, reserved int64) func(*LotBatchFixture) {
	return func(l *LotBatchFixture) {
		l.Quantity = quantity
		l.RemainingQuantity = remaining
		l.ReservedQuantity = reserved
	}
}

// WithLotStatus sets the lot status
func WithLotStatus(status string) func(*LotBatchFixture) {
	return func(l *LotBatchFixture) {
		l.Status = status
	}
}

// WithExpiryDate sets the expiry date
func WithExpiryDate(expiry time.Time) func(*LotBatchFixture) {
	return func(l *LotBatchFixture) {
		l.ExpiryDate = &expiry
	}
}

// WithNoExpiry clears the expiry date
func WithNoExpiry() func(*LotBatchFixture) {
	return func(l *LotBatchFixture) {
		l.ExpiryDate = nil
	}
}

// WithManufacturingDate sets the manufacturing date
func WithManufacturingDate(date time.Time) func(*LotBatchFixture) {
	return func(l *LotBatchFixture) {
		l.ManufacturingDate = date
	}
}

// Expired creates an expired lot fixture with remaining stock
func (f *FixtureFactory) Expired(productID, agencyID string) LotBatchFixture {
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	return f.LotBatch(productID, agencyID,
		WithExpiryDate(yesterday),
		WithManufacturingDate(yesterday.AddDate(-1, 0, 0)),
	)
}

// QuantityChange creates a ledger entry fixture with defaults
func (f *FixtureFactory) QuantityChange(lotBatchID string, opts ...func(*QuantityChangeFixture)) QuantityChangeFixture {
	change := QuantityChangeFixture{
		ID:             uuid.New().String(),
		LotBatchID:     lotBatchID,
		ChangeType:     "CREATED",
		QuantityBefore: 0,
		QuantityAfter:  100,
		QuantityChange: 100,
		Reason:         "initial receipt",
		PerformedBy:    uuid.New().String(),
		ChangedAt:      time.Now().UTC(),
	}

	for _, opt := range opts {
		opt(&change)
	}

	return change
}

// WithChange sets the change type and quantity deltas
func WithChange(changeType string, before, after int64) func(*QuantityChangeFixture) {
	return func(c *QuantityChangeFixture) {
		c.ChangeType = changeType
		c.QuantityBefore = before
		c.QuantityAfter = after
		c.QuantityChange = after - before
	}
}

// User creates a directory user fixture with defaults
func (f *FixtureFactory) User(agencyID string, opts ...func(*UserFixture)) UserFixture {
	seq := f.nextSeq()

	user := UserFixture{
		UserID:      uuid.New().String(),
		Email:       fmt.Sprintf("user%d@test.flowlytix.io", seq),
		Name:        fmt.Sprintf("Test User %d", seq),
		RoleName:    "manager",
		Permissions: []string{"lots.read", "lots.create", "lots.update", "lots.adjust"},
		AgencyID:    agencyID,
	}

	for _, opt := range opts {
		opt(&user)
	}

	return user
}

// WithPermissions sets the user's permission list
func WithPermissions(perms ...string) func(*UserFixture) {
	return func(u *UserFixture) {
		u.Permissions = perms
	}
}

// WithRole sets the user's role name
func WithRole(role string) func(*UserFixture) {
	return func(u *UserFixture) {
		u.RoleName = role
	}
}

// AdminUser creates a user fixture with the wildcard permission
func (f *FixtureFactory) AdminUser(agencyID string) UserFixture {
	return f.User(agencyID, WithRole("admin"), WithPermissions("*"))
}
