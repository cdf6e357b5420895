package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/showroom/internal/core/domain"
	"github.com/rl1809/showroom/internal/port"
)

var (
	_ port.Transactor          = (*MemoryAdapter)(nil)
	_ port.InventoryRepository = (*MemoryAdapter)(nil)
	_ port.CartRepository      = (*MemoryAdapter)(nil)
	_ port.LedgerRepository    = (*MemoryAdapter)(nil)
	_ port.CategoryRepository  = (*MemoryAdapter)(nil)
	_ port.UserRepository      = (*MemoryAdapter)(nil)
	_ port.CheckoutLocker      = (*MemoryLocker)(nil)
)

func TestMemory_TryReserveStock(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	v, err := m.CreateVehicle(ctx, domain.Vehicle{Name: "Sedan", UnitPrice: decimal.NewFromInt(10), StockQuantity: 5})
	require.NoError(t, err)

	got, err := m.TryReserveStock(ctx, v.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, got.StockQuantity)

	_, err = m.TryReserveStock(ctx, v.ID, 3)
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)

	_, err = m.TryReserveStock(ctx, v.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = m.TryReserveStock(ctx, 404, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, m.ReleaseStock(ctx, v.ID, 3))
	cur, err := m.GetVehicle(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, cur.StockQuantity)
}

func TestMemory_TryReserveStock_Concurrent(t *testing.T) {
	const (
		initialStock  = 20
		totalRequests = 50
	)
	ctx := context.Background()
	m := NewMemoryAdapter()
	v, err := m.CreateVehicle(ctx, domain.Vehicle{Name: "Hatch", StockQuantity: initialStock})
	require.NoError(t, err)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.TryReserveStock(ctx, v.ID, 1); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(initialStock), successCount.Load())
	cur, err := m.GetVehicle(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, cur.StockQuantity)
}

func TestMemory_CreateVehicleWithPresetID(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()

	_, err := m.CreateVehicle(ctx, domain.Vehicle{ID: 7, Name: "Seven"})
	require.NoError(t, err)
	_, err = m.CreateVehicle(ctx, domain.Vehicle{ID: 7, Name: "Again"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	next, err := m.CreateVehicle(ctx, domain.Vehicle{Name: "Eight"})
	require.NoError(t, err)
	assert.Equal(t, int64(8), next.ID)
}

func TestMemory_CartLines(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	_, err := m.CreateCart(ctx, 1)
	require.NoError(t, err)
	_, err = m.CreateCart(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	require.NoError(t, m.AddLine(ctx, 1, 9, 2))
	require.NoError(t, m.AddLine(ctx, 1, 3, 1))
	require.NoError(t, m.AddLine(ctx, 1, 9, 3))

	c, err := m.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.CartLine{
		{CartID: c.ID, VehicleID: 3, Quantity: 1},
		{CartID: c.ID, VehicleID: 9, Quantity: 5},
	}, c.Lines)

	require.NoError(t, m.SetLine(ctx, 1, 3, 0))
	assert.ErrorIs(t, m.RemoveLine(ctx, 1, 3), domain.ErrNotFound)

	require.NoError(t, m.ClearLines(ctx, 1))
	require.NoError(t, m.ClearLines(ctx, 1))
	c, err = m.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	_, err = m.GetCart(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemory_RemoveLines(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	_, err := m.CreateCart(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, m.AddLine(ctx, 1, 3, 4))
	require.NoError(t, m.AddLine(ctx, 1, 5, 1))
	require.NoError(t, m.AddLine(ctx, 1, 9, 2))

	require.NoError(t, m.RemoveLines(ctx, 1, []domain.CartLine{
		{VehicleID: 3, Quantity: 1},
		{VehicleID: 5, Quantity: 1},
		{VehicleID: 11, Quantity: 1},
	}))

	c, err := m.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.CartLine{
		{CartID: c.ID, VehicleID: 3, Quantity: 3},
		{CartID: c.ID, VehicleID: 9, Quantity: 2},
	}, c.Lines)

	assert.ErrorIs(t, m.RemoveLines(ctx, 2, nil), domain.ErrNotFound)
}

func TestMemory_UserManagement(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	admin, err := m.CreateUser(ctx, domain.User{Email: "root@example.com", Role: domain.RoleAdmin})
	require.NoError(t, err)
	bob, err := m.CreateUser(ctx, domain.User{FirstName: "Bob", Email: "bob@example.com", Role: domain.RoleStandard})
	require.NoError(t, err)
	_, err = m.CreateCart(ctx, bob.ID)
	require.NoError(t, err)

	phone := "555-0100"
	updated, err := m.UpdateUser(ctx, bob.ID, domain.UserUpdate{PhoneNumber: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Bob", updated.FirstName)
	assert.Equal(t, phone, updated.PhoneNumber)

	taken := "ROOT@example.com"
	_, err = m.UpdateUser(ctx, bob.ID, domain.UserUpdate{Email: &taken})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	standard, err := m.ListUsers(ctx, domain.RoleStandard)
	require.NoError(t, err)
	require.Len(t, standard, 1)
	assert.Equal(t, bob.ID, standard[0].ID)

	require.NoError(t, m.DeleteUser(ctx, bob.ID))
	_, err = m.GetCart(ctx, bob.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, m.DeleteUser(ctx, bob.ID), domain.ErrNotFound)

	n, err := m.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = m.GetUser(ctx, admin.ID)
	assert.NoError(t, err)
}

func TestMemory_LedgerQueryAndSummaries(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	jan := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)

	// appended out of time order
	_, err := m.Append(ctx, []domain.PurchaseRecord{
		{UserID: 1, VehicleID: 2, Quantity: 1, UnitPriceAtPurchase: decimal.NewFromInt(50), PurchasedAt: feb},
	})
	require.NoError(t, err)
	appended, err := m.Append(ctx, []domain.PurchaseRecord{
		{UserID: 1, VehicleID: 1, Quantity: 2, UnitPriceAtPurchase: decimal.NewFromInt(10), PurchasedAt: jan},
		{UserID: 2, VehicleID: 1, Quantity: 4, UnitPriceAtPurchase: decimal.NewFromInt(10), PurchasedAt: jan},
	})
	require.NoError(t, err)
	require.Len(t, appended, 2)
	assert.NotEqual(t, appended[0].ID, appended[1].ID)

	var got []int64
	for p, err := range m.QueryByUser(ctx, 1) {
		require.NoError(t, err)
		got = append(got, p.VehicleID)
	}
	assert.Equal(t, []int64{1, 2}, got)

	sum, err := m.Summarize(ctx, jan.AddDate(0, 0, -19), feb.AddDate(0, 0, -5))
	require.NoError(t, err)
	assert.Equal(t, int64(6), sum.Quantity)
	assert.True(t, sum.Revenue.Equal(decimal.NewFromInt(60)))

	all, err := m.Summarize(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(7), all.Quantity)
	assert.True(t, all.Revenue.Equal(decimal.NewFromInt(110)))

	top, err := m.TopVehicles(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, domain.VehicleSales{VehicleID: 1, TotalQuantity: 6}, top[0])

	_, err = m.Append(ctx, []domain.PurchaseRecord{{UserID: 1, VehicleID: 1, Quantity: 0}})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestMemory_DeleteCategory(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()

	c, err := m.CreateCategory(ctx, domain.Category{Name: "Trucks"})
	require.NoError(t, err)
	v, err := m.CreateVehicle(ctx, domain.Vehicle{CategoryID: c.ID, Name: "Hauler", StockQuantity: 1})
	require.NoError(t, err)
	_, err = m.CreateCart(ctx, 10)
	require.NoError(t, err)
	require.NoError(t, m.AddLine(ctx, 10, v.ID, 1))

	assert.ErrorIs(t, m.DeleteCategory(ctx, c.ID, false), domain.ErrCategoryNotEmpty)
	require.NoError(t, m.DeleteCategory(ctx, c.ID, true))
	assert.ErrorIs(t, m.DeleteCategory(ctx, c.ID, true), domain.ErrNotFound)

	_, err = m.GetVehicle(ctx, v.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	cart, err := m.GetCart(ctx, 10)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	n, err := m.CountCategories(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemory_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMemoryAdapter()

	_, err := m.GetVehicle(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, m.WithinTx(ctx, func(context.Context) error { return nil }), context.Canceled)
}
