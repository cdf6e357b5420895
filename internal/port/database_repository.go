package port

import (
	"context"
	"iter"
	"time"

	"github.com/rl1809/showroom/internal/core/domain"
)

// Transactor runs fn as one unit of work. Repositories called with the ctx
// passed to fn take part in the same transaction when the store supports it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error

	// Atomic reports whether a failed unit of work is rolled back by the store.
	// When false, callers must compensate partial writes themselves.
	Atomic() bool
}

type InventoryRepository interface {
	// GetVehicle retrieves a vehicle by ID
	GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error)

	// TryReserveStock atomically checks stock >= quantity and decrements it
	TryReserveStock(ctx context.Context, id int64, quantity int) (*domain.Vehicle, error)

	// ReleaseStock restores stock (compensation for a reservation)
	ReleaseStock(ctx context.Context, id int64, quantity int) error

	// SetStock overwrites the stock quantity, quantity must be >= 0
	SetStock(ctx context.Context, id int64, quantity int) error

	CreateVehicle(ctx context.Context, v domain.Vehicle) (*domain.Vehicle, error)
	ListVehicles(ctx context.Context, categoryID int64) ([]domain.Vehicle, error)
	CountVehicles(ctx context.Context) (int64, error)
}

type CartRepository interface {
	CreateCart(ctx context.Context, userID int64) (*domain.Cart, error)

	// GetCart loads the cart with its lines, locking the cart inside a transaction
	GetCart(ctx context.Context, userID int64) (*domain.Cart, error)

	// AddLine merges quantity into an existing line or inserts a new one
	AddLine(ctx context.Context, userID, vehicleID int64, quantity int) error

	// SetLine replaces a line's quantity, quantity <= 0 removes the line
	SetLine(ctx context.Context, userID, vehicleID int64, quantity int) error

	RemoveLine(ctx context.Context, userID, vehicleID int64) error

	// ClearLines removes every line, no-op on an empty cart
	ClearLines(ctx context.Context, userID int64) error

	// RemoveLines subtracts each given quantity from the matching line and
	// drops lines that reach zero. Lines not listed are left untouched.
	RemoveLines(ctx context.Context, userID int64, lines []domain.CartLine) error
}

type LedgerRepository interface {
	// Append stores new purchase records and returns them with IDs assigned
	Append(ctx context.Context, records []domain.PurchaseRecord) ([]domain.PurchaseRecord, error)

	// QueryByUser yields a user's purchases ordered by purchase time ascending
	QueryByUser(ctx context.Context, userID int64) iter.Seq2[domain.PurchaseRecord, error]

	// Summarize aggregates purchases in [from, to); zero bounds are open
	Summarize(ctx context.Context, from, to time.Time) (domain.PurchaseSummary, error)

	TopVehicles(ctx context.Context, limit int) ([]domain.VehicleSales, error)
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, c domain.Category) (*domain.Category, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)

	// DeleteCategory removes a category; with cascade false it fails if vehicles reference it
	DeleteCategory(ctx context.Context, id int64, cascade bool) error
	CountCategories(ctx context.Context) (int64, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, u domain.User) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)

	// UpdateUser applies the non-nil fields of upd and returns the stored user
	UpdateUser(ctx context.Context, id int64, upd domain.UserUpdate) (*domain.User, error)

	// ListUsers returns users with the given role ordered by id
	ListUsers(ctx context.Context, role domain.Role) ([]domain.User, error)

	// DeleteUser removes the user and its cart; purchase records are kept
	DeleteUser(ctx context.Context, id int64) error
	CountUsers(ctx context.Context) (int64, error)
}
