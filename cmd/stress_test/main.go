package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/showroom/internal/adapter/storage"
	"github.com/rl1809/showroom/internal/core/domain"
	"github.com/rl1809/showroom/internal/core/service"
)

const (
	vehicleID    = 1
	initialStock = 20
)

func main() {
	totalUsers := flag.Int("users", 50, "number of users racing for the last units")
	perUser := flag.Int("attempts", 3, "concurrent checkout attempts per user")
	flag.Parse()

	ctx := context.Background()
	logger := zap.NewNop()

	store := storage.NewMemoryAdapter()
	accounts := service.NewAccountService(store, store, store, store, logger)
	carts := service.NewCartService(store, store, logger)
	checkout := service.NewCheckoutService(store, store, store, store, storage.NewMemoryLocker(), logger)

	if _, err := store.CreateVehicle(ctx, domain.Vehicle{
		ID:            vehicleID,
		Name:          "Roadster",
		Model:         "R1",
		UnitPrice:     decimal.NewFromInt(45000),
		StockQuantity: initialStock,
	}); err != nil {
		log.Fatalf("failed to create vehicle: %v", err)
	}

	userIDs := make([]int64, 0, *totalUsers)
	for i := 0; i < *totalUsers; i++ {
		u, err := accounts.Register(ctx, service.Registration{
			FirstName: "Load",
			LastName:  fmt.Sprintf("User%d", i),
			Email:     fmt.Sprintf("load-%d@example.com", i),
		})
		if err != nil {
			log.Fatalf("failed to register user: %v", err)
		}
		if err := carts.AddItem(ctx, u.ID, vehicleID, 1); err != nil {
			log.Fatalf("failed to fill cart: %v", err)
		}
		userIDs = append(userIDs, u.ID)
	}

	// Counters
	var successCount, stockCount, inProgressCount, emptyCount, otherCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for _, id := range userIDs {
		for a := 0; a < *perUser; a++ {
			wg.Add(1)
			go func(userID int64) {
				defer wg.Done()

				_, err := checkout.Checkout(ctx, userID)
				switch {
				case err == nil:
					successCount.Add(1)
				case errors.Is(err, domain.ErrInsufficientStock):
					stockCount.Add(1)
				case errors.Is(err, domain.ErrCheckoutInProgress):
					inProgressCount.Add(1)
				case errors.Is(err, domain.ErrEmptyCart):
					emptyCount.Add(1)
				default:
					otherCount.Add(1)
				}
			}(id)
		}
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:        %d\n", initialStock)
	fmt.Printf("Users:                %d\n", *totalUsers)
	fmt.Printf("Checkout Attempts:    %d\n", *totalUsers**perUser)
	fmt.Printf("Successful:           %d\n", success)
	fmt.Printf("Insufficient Stock:   %d\n", stockCount.Load())
	fmt.Printf("Checkout In Progress: %d\n", inProgressCount.Load())
	fmt.Printf("Empty Cart:           %d\n", emptyCount.Load())
	fmt.Printf("Other Errors:         %d\n", otherCount.Load())
	fmt.Printf("Duration:             %v\n", elapsed)
	fmt.Println("==========================================")

	expected := int32(min(initialStock, *totalUsers))
	if success == expected && otherCount.Load() == 0 {
		fmt.Printf("PASS: exactly %d checkouts succeeded\n", expected)
	} else {
		fmt.Printf("FAIL: expected %d successful checkouts, got %d (other errors %d)\n",
			expected, success, otherCount.Load())
	}

	v, err := store.GetVehicle(ctx, vehicleID)
	if err != nil {
		log.Fatalf("failed to read vehicle: %v", err)
	}
	summary, err := store.Summarize(ctx, time.Time{}, time.Time{})
	if err != nil {
		log.Fatalf("failed to summarize ledger: %v", err)
	}
	fmt.Printf("Final Stock:     %d\n", v.StockQuantity)
	fmt.Printf("Units Purchased: %d\n", summary.Quantity)

	if int64(v.StockQuantity)+summary.Quantity == initialStock {
		fmt.Println("PASS: stock plus purchased units equals initial stock")
	} else {
		fmt.Printf("FAIL: stock %d + purchased %d != %d\n", v.StockQuantity, summary.Quantity, initialStock)
	}
}
