package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/showroom/internal/core/domain"
	"github.com/rl1809/showroom/internal/port"
)

type CartItem struct {
	VehicleID int64
	Name      string
	Model     string
	ImageURL  string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

type CartDetails struct {
	CartID int64
	UserID int64
	Items  []CartItem
	Total  decimal.Decimal
}

type CartService struct {
	carts     port.CartRepository
	inventory port.InventoryRepository
	logger    *zap.Logger
}

func NewCartService(carts port.CartRepository, inventory port.InventoryRepository, logger *zap.Logger) *CartService {
	return &CartService{carts: carts, inventory: inventory, logger: logger}
}

// GetCart returns the cart priced at current vehicle prices.
func (s *CartService) GetCart(ctx context.Context, userID int64) (*CartDetails, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, classify(err)
	}

	details := &CartDetails{CartID: cart.ID, UserID: userID, Items: make([]CartItem, 0, len(cart.Lines))}
	for _, line := range cart.SortedLines() {
		v, err := s.inventory.GetVehicle(ctx, line.VehicleID)
		if errors.Is(err, domain.ErrNotFound) {
			// removed from the catalog after it was added
			continue
		}
		if err != nil {
			return nil, classify(err)
		}
		total := v.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		details.Items = append(details.Items, CartItem{
			VehicleID: v.ID,
			Name:      v.Name,
			Model:     v.Model,
			ImageURL:  v.ImageURL,
			Quantity:  line.Quantity,
			UnitPrice: v.UnitPrice,
			LineTotal: total,
		})
		details.Total = details.Total.Add(total)
	}
	return details, nil
}

// AddItem merges quantity into the cart. The vehicle must exist and currently
// hold enough stock for the merged quantity.
func (s *CartService) AddItem(ctx context.Context, userID, vehicleID int64, quantity int) error {
	if quantity <= 0 {
		return domain.InvalidArgumentf("quantity must be positive, got %d", quantity)
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return classify(err)
	}
	existing, _ := cart.Line(vehicleID)
	if err := s.checkAvailable(ctx, vehicleID, existing.Quantity+quantity); err != nil {
		return err
	}

	if err := s.carts.AddLine(ctx, userID, vehicleID, quantity); err != nil {
		return classify(err)
	}
	s.logger.Debug("cart line added",
		zap.Int64("user_id", userID), zap.Int64("vehicle_id", vehicleID), zap.Int("quantity", quantity))
	return nil
}

// SetItemQuantity replaces a line's quantity; zero or less removes the line.
func (s *CartService) SetItemQuantity(ctx context.Context, userID, vehicleID int64, quantity int) error {
	if quantity > 0 {
		if err := s.checkAvailable(ctx, vehicleID, quantity); err != nil {
			return err
		}
	}
	if err := s.carts.SetLine(ctx, userID, vehicleID, quantity); err != nil {
		return classify(err)
	}
	return nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, vehicleID int64) error {
	if err := s.carts.RemoveLine(ctx, userID, vehicleID); err != nil {
		return classify(err)
	}
	return nil
}

func (s *CartService) ClearCart(ctx context.Context, userID int64) error {
	if err := s.carts.ClearLines(ctx, userID); err != nil {
		return classify(err)
	}
	return nil
}

func (s *CartService) checkAvailable(ctx context.Context, vehicleID int64, quantity int) error {
	v, err := s.inventory.GetVehicle(ctx, vehicleID)
	if err != nil {
		return classify(err)
	}
	if v.StockQuantity < quantity {
		return &domain.InsufficientStockError{
			VehicleID: vehicleID,
			Requested: quantity,
			Available: v.StockQuantity,
		}
	}
	return nil
}
