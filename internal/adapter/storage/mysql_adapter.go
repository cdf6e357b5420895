package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/rl1809/showroom/internal/core/domain"
)

const (
	mysqlErrDuplicateEntry = 1062
	mysqlErrNoReferenced   = 1452
)

//go:embed schema.sql
var schemaSQL string

type txKey struct{}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type MySQLAdapter struct {
	db  *sql.DB
	now func() time.Time
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// EnsureSchema creates the tables if they do not exist yet.
func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return m.db
}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sql.Tx)
	return ok
}

// WithinTx runs fn in a transaction carried by ctx. A nested call joins the
// outer transaction.
func (m *MySQLAdapter) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Atomic() bool {
	return true
}

func isMySQLError(err error, number uint16) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == number
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

const vehicleColumns = `id, category_id, name, model, type, color, image_url, unit_price, stock_quantity, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row rowScanner) (*domain.Vehicle, error) {
	var (
		v          domain.Vehicle
		categoryID sql.NullInt64
	)
	err := row.Scan(&v.ID, &categoryID, &v.Name, &v.Model, &v.Type, &v.Color, &v.ImageURL,
		&v.UnitPrice, &v.StockQuantity, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.CategoryID = categoryID.Int64
	return &v, nil
}

func (m *MySQLAdapter) GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error) {
	v, err := scanVehicle(m.conn(ctx).QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("vehicle", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query vehicle: %w", err)
	}
	return v, nil
}

// TryReserveStock decrements with a conditional update so the check and the
// write happen under the same row lock.
func (m *MySQLAdapter) TryReserveStock(ctx context.Context, id int64, quantity int) (*domain.Vehicle, error) {
	if quantity <= 0 {
		return nil, domain.InvalidArgumentf("quantity must be positive, got %d", quantity)
	}

	result, err := m.conn(ctx).ExecContext(ctx, `
		UPDATE vehicles
		SET stock_quantity = stock_quantity - ?, updated_at = ?
		WHERE id = ? AND stock_quantity >= ?`,
		quantity, m.now(), id, quantity,
	)
	if err != nil {
		return nil, fmt.Errorf("reserve stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("reserve stock: %w", err)
	}
	if rows == 0 {
		v, err := m.GetVehicle(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &domain.InsufficientStockError{
			VehicleID: id,
			Requested: quantity,
			Available: v.StockQuantity,
		}
	}

	return m.GetVehicle(ctx, id)
}

func (m *MySQLAdapter) ReleaseStock(ctx context.Context, id int64, quantity int) error {
	if quantity <= 0 {
		return domain.InvalidArgumentf("quantity must be positive, got %d", quantity)
	}
	result, err := m.conn(ctx).ExecContext(ctx, `
		UPDATE vehicles
		SET stock_quantity = stock_quantity + ?, updated_at = ?
		WHERE id = ?`,
		quantity, m.now(), id,
	)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.NewNotFound("vehicle", id)
	}
	return nil
}

func (m *MySQLAdapter) SetStock(ctx context.Context, id int64, quantity int) error {
	if quantity < 0 {
		return domain.InvalidArgumentf("stock cannot be negative, got %d", quantity)
	}
	result, err := m.conn(ctx).ExecContext(ctx,
		`UPDATE vehicles SET stock_quantity = ?, updated_at = ? WHERE id = ?`,
		quantity, m.now(), id,
	)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		// unchanged rows also report 0, so confirm the vehicle exists
		if _, err := m.GetVehicle(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (m *MySQLAdapter) CreateVehicle(ctx context.Context, v domain.Vehicle) (*domain.Vehicle, error) {
	now := m.now()
	v.CreatedAt, v.UpdatedAt = now, now

	result, err := m.conn(ctx).ExecContext(ctx, `
		INSERT INTO vehicles (category_id, name, model, type, color, image_url, unit_price, stock_quantity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableID(v.CategoryID), v.Name, v.Model, v.Type, v.Color, v.ImageURL,
		v.UnitPrice, v.StockQuantity, v.CreatedAt, v.UpdatedAt,
	)
	if isMySQLError(err, mysqlErrNoReferenced) {
		return nil, domain.NewNotFound("category", v.CategoryID)
	}
	if err != nil {
		return nil, fmt.Errorf("insert vehicle: %w", err)
	}
	if v.ID, err = result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("insert vehicle: %w", err)
	}
	return &v, nil
}

func (m *MySQLAdapter) ListVehicles(ctx context.Context, categoryID int64) ([]domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles`
	var args []any
	if categoryID != 0 {
		query += ` WHERE category_id = ?`
		args = append(args, categoryID)
	}
	query += ` ORDER BY id`

	rows, err := m.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query vehicles: %w", err)
	}
	defer rows.Close()

	var out []domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := m.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (m *MySQLAdapter) CountVehicles(ctx context.Context) (int64, error) {
	return m.count(ctx, "vehicles")
}

func (m *MySQLAdapter) CreateCategory(ctx context.Context, c domain.Category) (*domain.Category, error) {
	c.CreatedAt = m.now()
	result, err := m.conn(ctx).ExecContext(ctx,
		`INSERT INTO categories (name, parent_name, created_at) VALUES (?, ?, ?)`,
		c.Name, c.ParentName, c.CreatedAt,
	)
	if isMySQLError(err, mysqlErrDuplicateEntry) {
		return nil, fmt.Errorf("category %q: %w", c.Name, domain.ErrAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	if c.ID, err = result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	return &c, nil
}

func (m *MySQLAdapter) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	err := m.conn(ctx).QueryRowContext(ctx,
		`SELECT id, name, parent_name, created_at FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.ParentName, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("category", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query category: %w", err)
	}
	return &c, nil
}

func (m *MySQLAdapter) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := m.conn(ctx).QueryContext(ctx,
		`SELECT id, name, parent_name, created_at FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentName, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) DeleteCategory(ctx context.Context, id int64, cascade bool) error {
	return m.WithinTx(ctx, func(ctx context.Context) error {
		q := m.conn(ctx)

		var categoryID int64
		err := q.QueryRowContext(ctx, `SELECT id FROM categories WHERE id = ? FOR UPDATE`, id).Scan(&categoryID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFound("category", id)
		}
		if err != nil {
			return fmt.Errorf("lock category: %w", err)
		}

		var owned int64
		if err := q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM vehicles WHERE category_id = ?`, id).Scan(&owned); err != nil {
			return fmt.Errorf("count category vehicles: %w", err)
		}
		if owned > 0 && !cascade {
			return fmt.Errorf("category %d has %d vehicles: %w", id, owned, domain.ErrCategoryNotEmpty)
		}

		if _, err := q.ExecContext(ctx, `DELETE FROM vehicles WHERE category_id = ?`, id); err != nil {
			return fmt.Errorf("delete category vehicles: %w", err)
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
}

func (m *MySQLAdapter) CountCategories(ctx context.Context) (int64, error) {
	return m.count(ctx, "categories")
}

func (m *MySQLAdapter) CreateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	u.CreatedAt = m.now()
	result, err := m.conn(ctx).ExecContext(ctx, `
		INSERT INTO users (first_name, last_name, email, phone_number, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.FirstName, u.LastName, u.Email, u.PhoneNumber, u.Role, u.CreatedAt,
	)
	if isMySQLError(err, mysqlErrDuplicateEntry) {
		return nil, fmt.Errorf("user %q: %w", u.Email, domain.ErrAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	if u.ID, err = result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

func (m *MySQLAdapter) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(m.conn(ctx).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

const userColumns = `id, first_name, last_name, email, phone_number, role, created_at`

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PhoneNumber, &u.Role, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (m *MySQLAdapter) UpdateUser(ctx context.Context, id int64, upd domain.UserUpdate) (*domain.User, error) {
	var (
		sets []string
		args []any
	)
	for _, f := range []struct {
		column string
		value  *string
	}{
		{"first_name", upd.FirstName},
		{"last_name", upd.LastName},
		{"email", upd.Email},
		{"phone_number", upd.PhoneNumber},
	} {
		if f.value != nil {
			sets = append(sets, f.column+" = ?")
			args = append(args, *f.value)
		}
	}
	if len(sets) > 0 {
		args = append(args, id)
		_, err := m.conn(ctx).ExecContext(ctx,
			`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if isMySQLError(err, mysqlErrDuplicateEntry) {
			return nil, fmt.Errorf("user email %q: %w", *upd.Email, domain.ErrAlreadyExists)
		}
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
	}
	// unchanged rows report 0 affected, so existence comes from the reload
	return m.GetUser(ctx, id)
}

func (m *MySQLAdapter) ListUsers(ctx context.Context, role domain.Role) ([]domain.User, error) {
	rows, err := m.conn(ctx).QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY id`, role)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// DeleteUser relies on the carts foreign key cascade to drop the cart and its lines.
func (m *MySQLAdapter) DeleteUser(ctx context.Context, id int64) error {
	result, err := m.conn(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.NewNotFound("user", id)
	}
	return nil
}

func (m *MySQLAdapter) CountUsers(ctx context.Context) (int64, error) {
	return m.count(ctx, "users")
}

func (m *MySQLAdapter) CreateCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	result, err := m.conn(ctx).ExecContext(ctx, `INSERT INTO carts (user_id) VALUES (?)`, userID)
	if isMySQLError(err, mysqlErrDuplicateEntry) {
		return nil, fmt.Errorf("cart for user %d: %w", userID, domain.ErrAlreadyExists)
	}
	if isMySQLError(err, mysqlErrNoReferenced) {
		return nil, domain.NewNotFound("user", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("insert cart: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert cart: %w", err)
	}
	return &domain.Cart{ID: id, UserID: userID}, nil
}

// cartID resolves the user's cart, taking a row lock when running in a transaction.
func (m *MySQLAdapter) cartID(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT id FROM carts WHERE user_id = ?`
	if inTx(ctx) {
		query += ` FOR UPDATE`
	}
	var id int64
	err := m.conn(ctx).QueryRowContext(ctx, query, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.NewNotFound("cart for user", userID)
	}
	if err != nil {
		return 0, fmt.Errorf("query cart: %w", err)
	}
	return id, nil
}

func (m *MySQLAdapter) GetCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	id, err := m.cartID(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := m.conn(ctx).QueryContext(ctx,
		`SELECT vehicle_id, quantity FROM cart_lines WHERE cart_id = ? ORDER BY vehicle_id`, id)
	if err != nil {
		return nil, fmt.Errorf("query cart lines: %w", err)
	}
	defer rows.Close()

	cart := &domain.Cart{ID: id, UserID: userID}
	for rows.Next() {
		line := domain.CartLine{CartID: id}
		if err := rows.Scan(&line.VehicleID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		cart.Lines = append(cart.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query cart lines: %w", err)
	}
	return cart, nil
}

func (m *MySQLAdapter) AddLine(ctx context.Context, userID, vehicleID int64, quantity int) error {
	if quantity <= 0 {
		return domain.InvalidArgumentf("quantity must be positive, got %d", quantity)
	}
	id, err := m.cartID(ctx, userID)
	if err != nil {
		return err
	}
	_, err = m.conn(ctx).ExecContext(ctx, `
		INSERT INTO cart_lines (cart_id, vehicle_id, quantity) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = cart_lines.quantity + ?`,
		id, vehicleID, quantity, quantity,
	)
	if isMySQLError(err, mysqlErrNoReferenced) {
		return domain.NewNotFound("vehicle", vehicleID)
	}
	if err != nil {
		return fmt.Errorf("add cart line: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) SetLine(ctx context.Context, userID, vehicleID int64, quantity int) error {
	id, err := m.cartID(ctx, userID)
	if err != nil {
		return err
	}
	if quantity <= 0 {
		_, err = m.conn(ctx).ExecContext(ctx,
			`DELETE FROM cart_lines WHERE cart_id = ? AND vehicle_id = ?`, id, vehicleID)
		if err != nil {
			return fmt.Errorf("delete cart line: %w", err)
		}
		return nil
	}
	_, err = m.conn(ctx).ExecContext(ctx, `
		INSERT INTO cart_lines (cart_id, vehicle_id, quantity) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = ?`,
		id, vehicleID, quantity, quantity,
	)
	if isMySQLError(err, mysqlErrNoReferenced) {
		return domain.NewNotFound("vehicle", vehicleID)
	}
	if err != nil {
		return fmt.Errorf("set cart line: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) RemoveLine(ctx context.Context, userID, vehicleID int64) error {
	id, err := m.cartID(ctx, userID)
	if err != nil {
		return err
	}
	result, err := m.conn(ctx).ExecContext(ctx,
		`DELETE FROM cart_lines WHERE cart_id = ? AND vehicle_id = ?`, id, vehicleID)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.NewNotFound("cart line for vehicle", vehicleID)
	}
	return nil
}

func (m *MySQLAdapter) ClearLines(ctx context.Context, userID int64) error {
	id, err := m.cartID(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := m.conn(ctx).ExecContext(ctx, `DELETE FROM cart_lines WHERE cart_id = ?`, id); err != nil {
		return fmt.Errorf("clear cart lines: %w", err)
	}
	return nil
}

// RemoveLines subtracts purchased quantities, so lines added after the
// caller's snapshot survive.
func (m *MySQLAdapter) RemoveLines(ctx context.Context, userID int64, lines []domain.CartLine) error {
	return m.WithinTx(ctx, func(ctx context.Context) error {
		id, err := m.cartID(ctx, userID)
		if err != nil {
			return err
		}
		q := m.conn(ctx)
		for _, l := range lines {
			if _, err := q.ExecContext(ctx,
				`DELETE FROM cart_lines WHERE cart_id = ? AND vehicle_id = ? AND quantity <= ?`,
				id, l.VehicleID, l.Quantity); err != nil {
				return fmt.Errorf("remove cart line: %w", err)
			}
			if _, err := q.ExecContext(ctx,
				`UPDATE cart_lines SET quantity = quantity - ? WHERE cart_id = ? AND vehicle_id = ?`,
				l.Quantity, id, l.VehicleID); err != nil {
				return fmt.Errorf("reduce cart line: %w", err)
			}
		}
		return nil
	})
}

func (m *MySQLAdapter) Append(ctx context.Context, records []domain.PurchaseRecord) ([]domain.PurchaseRecord, error) {
	out := make([]domain.PurchaseRecord, 0, len(records))
	q := m.conn(ctx)
	for _, r := range records {
		if r.Quantity <= 0 {
			return nil, domain.InvalidArgumentf("purchase quantity must be positive, got %d", r.Quantity)
		}
		result, err := q.ExecContext(ctx, `
			INSERT INTO purchases (user_id, vehicle_id, quantity, unit_price_at_purchase, purchased_at)
			VALUES (?, ?, ?, ?, ?)`,
			r.UserID, r.VehicleID, r.Quantity, r.UnitPriceAtPurchase, r.PurchasedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("insert purchase: %w", err)
		}
		if r.ID, err = result.LastInsertId(); err != nil {
			return nil, fmt.Errorf("insert purchase: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *MySQLAdapter) QueryByUser(ctx context.Context, userID int64) iter.Seq2[domain.PurchaseRecord, error] {
	return func(yield func(domain.PurchaseRecord, error) bool) {
		rows, err := m.conn(ctx).QueryContext(ctx, `
			SELECT id, user_id, vehicle_id, quantity, unit_price_at_purchase, purchased_at
			FROM purchases WHERE user_id = ?
			ORDER BY purchased_at, id`, userID)
		if err != nil {
			yield(domain.PurchaseRecord{}, fmt.Errorf("query purchases: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var p domain.PurchaseRecord
			if err := rows.Scan(&p.ID, &p.UserID, &p.VehicleID, &p.Quantity,
				&p.UnitPriceAtPurchase, &p.PurchasedAt); err != nil {
				yield(domain.PurchaseRecord{}, fmt.Errorf("scan purchase: %w", err))
				return
			}
			if !yield(p, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.PurchaseRecord{}, fmt.Errorf("query purchases: %w", err))
		}
	}
}

func (m *MySQLAdapter) Summarize(ctx context.Context, from, to time.Time) (domain.PurchaseSummary, error) {
	query := `SELECT COALESCE(SUM(quantity), 0), COALESCE(SUM(quantity * unit_price_at_purchase), 0) FROM purchases`
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "purchased_at >= ?")
		args = append(args, from)
	}
	if !to.IsZero() {
		conds = append(conds, "purchased_at < ?")
		args = append(args, to)
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}

	var (
		sum     domain.PurchaseSummary
		revenue decimal.Decimal
	)
	if err := m.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&sum.Quantity, &revenue); err != nil {
		return domain.PurchaseSummary{}, fmt.Errorf("summarize purchases: %w", err)
	}
	sum.Revenue = revenue
	return sum, nil
}

func (m *MySQLAdapter) TopVehicles(ctx context.Context, limit int) ([]domain.VehicleSales, error) {
	rows, err := m.conn(ctx).QueryContext(ctx, `
		SELECT p.vehicle_id, COALESCE(v.name, ''), COALESCE(v.model, ''), COALESCE(v.image_url, ''),
			SUM(p.quantity) AS total
		FROM purchases p
		LEFT JOIN vehicles v ON v.id = p.vehicle_id
		GROUP BY p.vehicle_id, v.name, v.model, v.image_url
		ORDER BY total DESC, p.vehicle_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top vehicles: %w", err)
	}
	defer rows.Close()

	var out []domain.VehicleSales
	for rows.Next() {
		var s domain.VehicleSales
		if err := rows.Scan(&s.VehicleID, &s.Name, &s.Model, &s.ImageURL, &s.TotalQuantity); err != nil {
			return nil, fmt.Errorf("scan top vehicle: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
