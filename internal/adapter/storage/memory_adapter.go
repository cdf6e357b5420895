package storage

import (
	"context"
	"iter"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rl1809/showroom/internal/core/domain"
)

type vehicleEntry struct {
	mu      sync.Mutex
	vehicle domain.Vehicle
}

type cartEntry struct {
	mu    sync.Mutex
	cart  domain.Cart
	lines map[int64]int
}

// MemoryAdapter keeps every store in process memory. Stock is guarded per
// vehicle; the map-level lock is only held exclusively for inserts and deletes.
// It has no transactions, so WithinTx simply runs fn and callers rely on
// compensation to undo partial work.
type MemoryAdapter struct {
	mu         sync.RWMutex
	seq        int64
	vehicles   map[int64]*vehicleEntry
	categories map[int64]domain.Category
	users      map[int64]domain.User
	carts      map[int64]*cartEntry
	purchases  []domain.PurchaseRecord
	now        func() time.Time
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		vehicles:   make(map[int64]*vehicleEntry),
		categories: make(map[int64]domain.Category),
		users:      make(map[int64]domain.User),
		carts:      make(map[int64]*cartEntry),
		now:        time.Now,
	}
}

func (m *MemoryAdapter) nextID() int64 {
	m.seq++
	return m.seq
}

func (m *MemoryAdapter) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (m *MemoryAdapter) Atomic() bool {
	return false
}

func (m *MemoryAdapter) vehicle(id int64) (*vehicleEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.vehicles[id]
	return e, ok
}

func (m *MemoryAdapter) GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, ok := m.vehicle(id)
	if !ok {
		return nil, domain.NewNotFound("vehicle", id)
	}
	e.mu.Lock()
	v := e.vehicle
	e.mu.Unlock()
	return &v, nil
}

func (m *MemoryAdapter) TryReserveStock(ctx context.Context, id int64, quantity int) (*domain.Vehicle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, domain.InvalidArgumentf("quantity must be positive, got %d", quantity)
	}
	e, ok := m.vehicle(id)
	if !ok {
		return nil, domain.NewNotFound("vehicle", id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.vehicle.StockQuantity < quantity {
		return nil, &domain.InsufficientStockError{
			VehicleID: id,
			Requested: quantity,
			Available: e.vehicle.StockQuantity,
		}
	}
	e.vehicle.StockQuantity -= quantity
	e.vehicle.UpdatedAt = m.now()

	v := e.vehicle
	return &v, nil
}

func (m *MemoryAdapter) ReleaseStock(ctx context.Context, id int64, quantity int) error {
	if quantity <= 0 {
		return domain.InvalidArgumentf("quantity must be positive, got %d", quantity)
	}
	e, ok := m.vehicle(id)
	if !ok {
		return domain.NewNotFound("vehicle", id)
	}
	e.mu.Lock()
	e.vehicle.StockQuantity += quantity
	e.vehicle.UpdatedAt = m.now()
	e.mu.Unlock()
	return nil
}

func (m *MemoryAdapter) SetStock(ctx context.Context, id int64, quantity int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if quantity < 0 {
		return domain.InvalidArgumentf("stock cannot be negative, got %d", quantity)
	}
	e, ok := m.vehicle(id)
	if !ok {
		return domain.NewNotFound("vehicle", id)
	}
	e.mu.Lock()
	e.vehicle.StockQuantity = quantity
	e.vehicle.UpdatedAt = m.now()
	e.mu.Unlock()
	return nil
}

func (m *MemoryAdapter) CreateVehicle(ctx context.Context, v domain.Vehicle) (*domain.Vehicle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if v.CategoryID != 0 {
		if _, ok := m.categories[v.CategoryID]; !ok {
			return nil, domain.NewNotFound("category", v.CategoryID)
		}
	}
	if v.ID == 0 {
		v.ID = m.nextID()
	} else if _, exists := m.vehicles[v.ID]; exists {
		return nil, domain.ErrAlreadyExists
	} else if v.ID > m.seq {
		m.seq = v.ID
	}
	now := m.now()
	v.CreatedAt, v.UpdatedAt = now, now
	m.vehicles[v.ID] = &vehicleEntry{vehicle: v}
	return &v, nil
}

func (m *MemoryAdapter) ListVehicles(ctx context.Context, categoryID int64) ([]domain.Vehicle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Vehicle, 0, len(m.vehicles))
	for _, e := range m.vehicles {
		e.mu.Lock()
		v := e.vehicle
		e.mu.Unlock()
		if categoryID != 0 && v.CategoryID != categoryID {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryAdapter) CountVehicles(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.vehicles)), nil
}

func (m *MemoryAdapter) CreateCategory(ctx context.Context, c domain.Category) (*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.categories {
		if strings.EqualFold(existing.Name, c.Name) {
			return nil, domain.ErrAlreadyExists
		}
	}
	c.ID = m.nextID()
	c.CreatedAt = m.now()
	m.categories[c.ID] = c
	return &c, nil
}

func (m *MemoryAdapter) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, domain.NewNotFound("category", id)
	}
	return &c, nil
}

func (m *MemoryAdapter) ListCategories(ctx context.Context) ([]domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryAdapter) DeleteCategory(ctx context.Context, id int64, cascade bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.categories[id]; !ok {
		return domain.NewNotFound("category", id)
	}
	var owned []int64
	for vid, e := range m.vehicles {
		if e.vehicle.CategoryID == id {
			owned = append(owned, vid)
		}
	}
	if len(owned) > 0 && !cascade {
		return domain.ErrCategoryNotEmpty
	}
	for _, vid := range owned {
		delete(m.vehicles, vid)
		for _, c := range m.carts {
			c.mu.Lock()
			delete(c.lines, vid)
			c.mu.Unlock()
		}
	}
	delete(m.categories, id)
	return nil
}

func (m *MemoryAdapter) CountCategories(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.categories)), nil
}

func (m *MemoryAdapter) CreateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, domain.ErrAlreadyExists
		}
	}
	u.ID = m.nextID()
	u.CreatedAt = m.now()
	m.users[u.ID] = u
	return &u, nil
}

func (m *MemoryAdapter) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.NewNotFound("user", id)
	}
	return &u, nil
}

func (m *MemoryAdapter) UpdateUser(ctx context.Context, id int64, upd domain.UserUpdate) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, domain.NewNotFound("user", id)
	}
	if upd.Email != nil {
		for otherID, existing := range m.users {
			if otherID != id && strings.EqualFold(existing.Email, *upd.Email) {
				return nil, domain.ErrAlreadyExists
			}
		}
		u.Email = *upd.Email
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.PhoneNumber != nil {
		u.PhoneNumber = *upd.PhoneNumber
	}
	m.users[id] = u
	return &u, nil
}

func (m *MemoryAdapter) ListUsers(ctx context.Context, role domain.Role) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.User
	for _, u := range m.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryAdapter) DeleteUser(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return domain.NewNotFound("user", id)
	}
	delete(m.users, id)
	delete(m.carts, id)
	return nil
}

func (m *MemoryAdapter) CountUsers(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}

func (m *MemoryAdapter) CreateCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.carts[userID]; exists {
		return nil, domain.ErrAlreadyExists
	}
	e := &cartEntry{
		cart:  domain.Cart{ID: m.nextID(), UserID: userID},
		lines: make(map[int64]int),
	}
	m.carts[userID] = e
	c := e.cart
	return &c, nil
}

func (m *MemoryAdapter) cart(userID int64) (*cartEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.carts[userID]
	if !ok {
		return nil, domain.NewNotFound("cart for user", userID)
	}
	return e, nil
}

func (m *MemoryAdapter) GetCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := m.cart(userID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.cart
	c.Lines = make([]domain.CartLine, 0, len(e.lines))
	for vid, qty := range e.lines {
		c.Lines = append(c.Lines, domain.CartLine{CartID: c.ID, VehicleID: vid, Quantity: qty})
	}
	sort.Slice(c.Lines, func(i, j int) bool { return c.Lines[i].VehicleID < c.Lines[j].VehicleID })
	return &c, nil
}

func (m *MemoryAdapter) AddLine(ctx context.Context, userID, vehicleID int64, quantity int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if quantity <= 0 {
		return domain.InvalidArgumentf("quantity must be positive, got %d", quantity)
	}
	e, err := m.cart(userID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.lines[vehicleID] += quantity
	e.mu.Unlock()
	return nil
}

func (m *MemoryAdapter) SetLine(ctx context.Context, userID, vehicleID int64, quantity int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e, err := m.cart(userID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if quantity <= 0 {
		delete(e.lines, vehicleID)
		return nil
	}
	e.lines[vehicleID] = quantity
	return nil
}

func (m *MemoryAdapter) RemoveLine(ctx context.Context, userID, vehicleID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e, err := m.cart(userID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.lines[vehicleID]; !ok {
		return domain.NewNotFound("cart line for vehicle", vehicleID)
	}
	delete(e.lines, vehicleID)
	return nil
}

func (m *MemoryAdapter) ClearLines(ctx context.Context, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e, err := m.cart(userID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	clear(e.lines)
	e.mu.Unlock()
	return nil
}

func (m *MemoryAdapter) RemoveLines(ctx context.Context, userID int64, lines []domain.CartLine) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e, err := m.cart(userID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, l := range lines {
		qty, ok := e.lines[l.VehicleID]
		if !ok {
			continue
		}
		if qty <= l.Quantity {
			delete(e.lines, l.VehicleID)
		} else {
			e.lines[l.VehicleID] = qty - l.Quantity
		}
	}
	return nil
}

func (m *MemoryAdapter) Append(ctx context.Context, records []domain.PurchaseRecord) ([]domain.PurchaseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.PurchaseRecord, len(records))
	for i, r := range records {
		if r.Quantity <= 0 {
			return nil, domain.InvalidArgumentf("purchase quantity must be positive, got %d", r.Quantity)
		}
		out[i] = r
	}
	for i := range out {
		out[i].ID = m.nextID()
		m.purchases = append(m.purchases, out[i])
	}
	return out, nil
}

func (m *MemoryAdapter) QueryByUser(ctx context.Context, userID int64) iter.Seq2[domain.PurchaseRecord, error] {
	return func(yield func(domain.PurchaseRecord, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(domain.PurchaseRecord{}, err)
			return
		}
		m.mu.RLock()
		var snapshot []domain.PurchaseRecord
		for _, p := range m.purchases {
			if p.UserID == userID {
				snapshot = append(snapshot, p)
			}
		}
		m.mu.RUnlock()

		sort.SliceStable(snapshot, func(i, j int) bool {
			if !snapshot[i].PurchasedAt.Equal(snapshot[j].PurchasedAt) {
				return snapshot[i].PurchasedAt.Before(snapshot[j].PurchasedAt)
			}
			return snapshot[i].ID < snapshot[j].ID
		})
		for _, p := range snapshot {
			if !yield(p, nil) {
				return
			}
		}
	}
}

func (m *MemoryAdapter) Summarize(ctx context.Context, from, to time.Time) (domain.PurchaseSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sum domain.PurchaseSummary
	for _, p := range m.purchases {
		if !from.IsZero() && p.PurchasedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !p.PurchasedAt.Before(to) {
			continue
		}
		sum.Quantity += int64(p.Quantity)
		sum.Revenue = sum.Revenue.Add(p.Total())
	}
	return sum, nil
}

func (m *MemoryAdapter) TopVehicles(ctx context.Context, limit int) ([]domain.VehicleSales, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	totals := make(map[int64]int64)
	for _, p := range m.purchases {
		totals[p.VehicleID] += int64(p.Quantity)
	}
	out := make([]domain.VehicleSales, 0, len(totals))
	for vid, qty := range totals {
		s := domain.VehicleSales{VehicleID: vid, TotalQuantity: qty}
		if e, ok := m.vehicles[vid]; ok {
			e.mu.Lock()
			s.Name, s.Model, s.ImageURL = e.vehicle.Name, e.vehicle.Model, e.vehicle.ImageURL
			e.mu.Unlock()
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalQuantity != out[j].TotalQuantity {
			return out[i].TotalQuantity > out[j].TotalQuantity
		}
		return out[i].VehicleID < out[j].VehicleID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
