package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rl1809/showroom/internal/core/domain"
	"github.com/rl1809/showroom/internal/port"
)

type Statistics struct {
	UserCount     int64
	VehicleCount  int64
	CategoryCount int64
	Year          int
	Month         time.Month
	// Month and AllTime revenue use the unit price recorded at purchase time.
	MonthPurchases   domain.PurchaseSummary
	AllTimePurchases domain.PurchaseSummary
}

type StatisticsService struct {
	users      port.UserRepository
	inventory  port.InventoryRepository
	categories port.CategoryRepository
	ledger     port.LedgerRepository
}

func NewStatisticsService(
	users port.UserRepository,
	inventory port.InventoryRepository,
	categories port.CategoryRepository,
	ledger port.LedgerRepository,
) *StatisticsService {
	return &StatisticsService{users: users, inventory: inventory, categories: categories, ledger: ledger}
}

// Collect gathers the dashboard figures for the given month (UTC).
func (s *StatisticsService) Collect(ctx context.Context, year int, month time.Month) (*Statistics, error) {
	if month < time.January || month > time.December {
		return nil, domain.InvalidArgumentf("month must be 1-12, got %d", month)
	}
	if year < 1 {
		return nil, domain.InvalidArgumentf("invalid year %d", year)
	}

	stats := &Statistics{Year: year, Month: month}
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.UserCount, err = s.users.CountUsers(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.VehicleCount, err = s.inventory.CountVehicles(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.CategoryCount, err = s.categories.CountCategories(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.MonthPurchases, err = s.ledger.Summarize(ctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		stats.AllTimePurchases, err = s.ledger.Summarize(ctx, time.Time{}, time.Time{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, classify(err)
	}
	return stats, nil
}
