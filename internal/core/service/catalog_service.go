package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/showroom/internal/core/domain"
	"github.com/rl1809/showroom/internal/port"
)

const defaultTopVehicles = 5

type NewVehicle struct {
	CategoryID    int64
	Name          string
	Model         string
	Type          string
	Color         string
	ImageURL      string
	UnitPrice     decimal.Decimal
	StockQuantity int
}

type CatalogService struct {
	inventory  port.InventoryRepository
	categories port.CategoryRepository
	ledger     port.LedgerRepository
	logger     *zap.Logger
}

func NewCatalogService(
	inventory port.InventoryRepository,
	categories port.CategoryRepository,
	ledger port.LedgerRepository,
	logger *zap.Logger,
) *CatalogService {
	return &CatalogService{inventory: inventory, categories: categories, ledger: ledger, logger: logger}
}

func (s *CatalogService) ListVehicles(ctx context.Context, categoryID int64) ([]domain.Vehicle, error) {
	vehicles, err := s.inventory.ListVehicles(ctx, categoryID)
	if err != nil {
		return nil, classify(err)
	}
	return vehicles, nil
}

func (s *CatalogService) GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error) {
	v, err := s.inventory.GetVehicle(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return v, nil
}

func (s *CatalogService) CreateVehicle(ctx context.Context, in NewVehicle) (*domain.Vehicle, error) {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return nil, domain.InvalidArgumentf("vehicle name is required")
	case in.UnitPrice.IsNegative():
		return nil, domain.InvalidArgumentf("unit price cannot be negative")
	case in.StockQuantity < 0:
		return nil, domain.InvalidArgumentf("stock cannot be negative, got %d", in.StockQuantity)
	}

	v, err := s.inventory.CreateVehicle(ctx, domain.Vehicle{
		CategoryID:    in.CategoryID,
		Name:          name,
		Model:         strings.TrimSpace(in.Model),
		Type:          strings.TrimSpace(in.Type),
		Color:         strings.TrimSpace(in.Color),
		ImageURL:      strings.TrimSpace(in.ImageURL),
		UnitPrice:     in.UnitPrice,
		StockQuantity: in.StockQuantity,
	})
	if err != nil {
		return nil, classify(err)
	}
	s.logger.Info("vehicle created", zap.Int64("vehicle_id", v.ID), zap.String("name", v.Name))
	return v, nil
}

func (s *CatalogService) SetStock(ctx context.Context, vehicleID int64, quantity int) error {
	if err := s.inventory.SetStock(ctx, vehicleID, quantity); err != nil {
		return classify(err)
	}
	s.logger.Info("vehicle stock set", zap.Int64("vehicle_id", vehicleID), zap.Int("stock", quantity))
	return nil
}

func (s *CatalogService) TopPurchased(ctx context.Context, limit int) ([]domain.VehicleSales, error) {
	if limit <= 0 {
		limit = defaultTopVehicles
	}
	top, err := s.ledger.TopVehicles(ctx, limit)
	if err != nil {
		return nil, classify(err)
	}
	return top, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, name, parentName string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.InvalidArgumentf("category name is required")
	}
	c, err := s.categories.CreateCategory(ctx, domain.Category{
		Name:       name,
		ParentName: strings.TrimSpace(parentName),
	})
	if err != nil {
		return nil, classify(err)
	}
	return c, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	c, err := s.categories.GetCategory(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return c, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	cs, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return cs, nil
}

// DeleteCategory refuses to drop a category that still owns vehicles unless
// cascade is set, in which case the vehicles go with it.
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64, cascade bool) error {
	if err := s.categories.DeleteCategory(ctx, id, cascade); err != nil {
		return classify(err)
	}
	s.logger.Warn("category deleted", zap.Int64("category_id", id), zap.Bool("cascade", cascade))
	return nil
}
