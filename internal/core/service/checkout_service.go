package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/showroom/internal/core/domain"
	"github.com/rl1809/showroom/internal/port"
)

// CheckoutService turns a user's cart into purchase records.
//
// Reservations, ledger appends and compensations run inside one unit of work.
// Stores that roll back on failure need no compensation; otherwise every
// reservation made so far is released before the error is returned. The cart
// is cleared only after the unit of work commits.
type CheckoutService struct {
	tx        port.Transactor
	carts     port.CartRepository
	inventory port.InventoryRepository
	ledger    port.LedgerRepository
	locker    port.CheckoutLocker
	logger    *zap.Logger
	now       func() time.Time
}

func NewCheckoutService(
	tx port.Transactor,
	carts port.CartRepository,
	inventory port.InventoryRepository,
	ledger port.LedgerRepository,
	locker port.CheckoutLocker,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		tx:        tx,
		carts:     carts,
		inventory: inventory,
		ledger:    ledger,
		locker:    locker,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *CheckoutService) Checkout(ctx context.Context, userID int64) ([]domain.PurchaseRecord, error) {
	if userID <= 0 {
		return nil, domain.InvalidArgumentf("user id must be positive, got %d", userID)
	}
	log := s.logger.With(zap.Int64("user_id", userID))

	release, ok, err := s.locker.AcquireCheckout(ctx, userID)
	if err != nil {
		return nil, storeUnavailable("acquire checkout lock", err)
	}
	if !ok {
		return nil, domain.ErrCheckoutInProgress
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("release checkout lock failed", zap.Error(err))
		}
	}()

	var purchases []domain.PurchaseRecord
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		purchases, err = s.commit(ctx, userID)
		return err
	})
	if err != nil {
		err = classify(err)
		if domain.IsDomainError(err) {
			log.Info("checkout rejected", zap.String("kind", domain.KindOf(err)), zap.Error(err))
		} else {
			log.Warn("checkout failed", zap.Error(err))
		}
		return nil, err
	}

	// The purchase is durable from here on; the cart clear must not be cut
	// short by the caller going away. Only the purchased quantities are
	// removed, lines added since the snapshot stay in the cart.
	if err := s.carts.RemoveLines(context.WithoutCancel(ctx), userID, purchasedLines(purchases)); err != nil {
		log.Error("checkout committed but cart was not cleared",
			zap.Int("purchases", len(purchases)), zap.Error(err))
		return purchases, &domain.PostCommitCleanupError{
			UserID:    userID,
			Purchases: purchases,
			Err:       classify(err),
		}
	}

	log.Info("checkout completed", zap.Int("purchases", len(purchases)))
	return purchases, nil
}

func (s *CheckoutService) commit(ctx context.Context, userID int64) ([]domain.PurchaseRecord, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}

	// ascending vehicle id bounds lock-ordering conflicts between checkouts
	lines := cart.SortedLines()
	reserved := make([]domain.CartLine, 0, len(lines))
	records := make([]domain.PurchaseRecord, 0, len(lines))
	purchasedAt := s.now()

	for _, line := range lines {
		v, err := s.inventory.TryReserveStock(ctx, line.VehicleID, line.Quantity)
		if err != nil {
			s.compensate(ctx, userID, reserved)
			return nil, err
		}
		if v.StockQuantity < 0 {
			panic(fmt.Sprintf("vehicle %d stock went negative (%d) after reserving %d",
				v.ID, v.StockQuantity, line.Quantity))
		}
		reserved = append(reserved, line)
		records = append(records, domain.PurchaseRecord{
			UserID:              userID,
			VehicleID:           line.VehicleID,
			Quantity:            line.Quantity,
			UnitPriceAtPurchase: v.UnitPrice,
			PurchasedAt:         purchasedAt,
		})
	}

	appended, err := s.ledger.Append(ctx, records)
	if err != nil {
		s.compensate(ctx, userID, reserved)
		return nil, err
	}
	return appended, nil
}

func purchasedLines(purchases []domain.PurchaseRecord) []domain.CartLine {
	lines := make([]domain.CartLine, 0, len(purchases))
	for _, p := range purchases {
		lines = append(lines, domain.CartLine{VehicleID: p.VehicleID, Quantity: p.Quantity})
	}
	return lines
}

// compensate releases reservations made in this checkout. It is a no-op for
// stores that roll back the whole unit of work.
func (s *CheckoutService) compensate(ctx context.Context, userID int64, reserved []domain.CartLine) {
	if s.tx.Atomic() || len(reserved) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for i := len(reserved) - 1; i >= 0; i-- {
		line := reserved[i]
		if err := s.inventory.ReleaseStock(ctx, line.VehicleID, line.Quantity); err != nil {
			s.logger.Error("CRITICAL stock release failed",
				zap.Int64("user_id", userID),
				zap.Int64("vehicle_id", line.VehicleID),
				zap.Int("quantity", line.Quantity),
				zap.Error(err))
		}
	}
}

// RetryCartClear clears a cart left behind by a PostCommitCleanupFailed
// checkout. Clearing an empty cart succeeds.
func (s *CheckoutService) RetryCartClear(ctx context.Context, userID int64) error {
	if err := s.carts.ClearLines(ctx, userID); err != nil {
		return classify(err)
	}
	s.logger.Info("cart cleared after post-commit failure", zap.Int64("user_id", userID))
	return nil
}

// classify keeps domain errors as they are and reports everything else as
// StoreUnavailable.
func classify(err error) error {
	if err == nil || domain.IsDomainError(err) || errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}

func storeUnavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
