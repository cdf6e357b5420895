package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrNotFound                = errors.New("not found")
	ErrAlreadyExists           = errors.New("already exists")
	ErrForbidden               = errors.New("forbidden")
	ErrEmptyCart               = errors.New("empty cart")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrCheckoutInProgress      = errors.New("checkout in progress")
	ErrCategoryNotEmpty        = errors.New("category not empty")
	ErrStoreUnavailable        = errors.New("store unavailable")
	ErrPostCommitCleanupFailed = errors.New("post-commit cleanup failed")
)

// Kind names exposed at the request boundary.
const (
	KindInvalidArgument         = "InvalidArgument"
	KindNotFound                = "NotFound"
	KindAlreadyExists           = "AlreadyExists"
	KindForbidden               = "Forbidden"
	KindEmptyCart               = "EmptyCart"
	KindInsufficientStock       = "InsufficientStock"
	KindCheckoutInProgress      = "CheckoutInProgress"
	KindCategoryNotEmpty        = "CategoryNotEmpty"
	KindStoreUnavailable        = "StoreUnavailable"
	KindPostCommitCleanupFailed = "PostCommitCleanupFailed"
	KindInternal                = "Internal"
)

type InsufficientStockError struct {
	VehicleID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for vehicle %d: requested %d, available %d",
		e.VehicleID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func NewNotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// PostCommitCleanupError reports a checkout whose purchases were committed
// but whose cart could not be cleared afterwards.
type PostCommitCleanupError struct {
	UserID    int64
	Purchases []PurchaseRecord
	Err       error
}

func (e *PostCommitCleanupError) Error() string {
	return fmt.Sprintf("checkout for user %d committed %d purchases but cart clear failed: %v",
		e.UserID, len(e.Purchases), e.Err)
}

func (e *PostCommitCleanupError) Is(target error) bool {
	return target == ErrPostCommitCleanupFailed
}

func (e *PostCommitCleanupError) Unwrap() error {
	return e.Err
}

func InvalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// KindOf maps err to the kind name reported to callers.
// PostCommitCleanupFailed is checked first since it wraps the store error.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPostCommitCleanupFailed):
		return KindPostCommitCleanupFailed
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrEmptyCart):
		return KindEmptyCart
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrCheckoutInProgress):
		return KindCheckoutInProgress
	case errors.Is(err, ErrAlreadyExists):
		return KindAlreadyExists
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrCategoryNotEmpty):
		return KindCategoryNotEmpty
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	default:
		return KindInternal
	}
}

// IsDomainError reports whether err carries one of the business or
// validation kinds rather than an infrastructure failure.
func IsDomainError(err error) bool {
	switch KindOf(err) {
	case KindInternal, KindStoreUnavailable, KindPostCommitCleanupFailed, "":
		return false
	}
	return true
}
