package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"canteen/pkg/domain/model"
)

type OrderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

type orderRow struct {
	ID            string    `db:"id"`
	ReceiptNumber string    `db:"receipt_number"`
	UserID        string    `db:"user_id"`
	CustomerName  string    `db:"customer_name"`
	AmountCents   int64     `db:"amount_cents"`
	Status        string    `db:"status"`
	Notes         string    `db:"notes"`
	PlacedByStaff bool      `db:"placed_by_staff"`
	PaymentMode   string    `db:"payment_mode"`
	Version       int       `db:"version"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type itemRow struct {
	OrderID        string `db:"order_id"`
	Position       int    `db:"position"`
	Name           string `db:"name"`
	Quantity       int    `db:"quantity"`
	UnitPriceCents int64  `db:"unit_price_cents"`
}

const orderColumns = `id, receipt_number, user_id, customer_name, amount_cents, status,
	notes, placed_by_staff, payment_mode, version, created_at, updated_at`

func (r *OrderRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *OrderRepository) Create(ctx context.Context, order *model.Order) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin create order")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID.String(), order.ReceiptNumber, order.UserID.String(), order.CustomerName,
		order.AmountCents, string(order.Status), order.Notes, order.PlacedByStaff,
		string(order.PaymentMode), order.Version, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "insert order")
	}

	for i, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, name, quantity, unit_price_cents)
			VALUES (?, ?, ?, ?, ?)`,
			order.ID.String(), i, item.Name, item.Quantity, item.UnitPriceCents,
		)
		if err != nil {
			return errors.Wrapf(err, "insert order item %q", item.Name)
		}
	}

	return errors.Wrap(tx.Commit(), "commit create order")
}

func (r *OrderRepository) Find(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var row orderRow
	err := r.db.GetContext(ctx, &row, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrOrderNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select order")
	}

	var items []itemRow
	err = r.db.SelectContext(ctx, &items, `
		SELECT order_id, position, name, quantity, unit_price_cents
		FROM order_items WHERE order_id = ? ORDER BY position`, id.String())
	if err != nil {
		return nil, errors.Wrap(err, "select order items")
	}

	order, err := rowToOrder(row, items)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) ListAll(ctx context.Context) ([]model.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at DESC`, userID.String())
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "select orders")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var items []itemRow
	err := r.db.SelectContext(ctx, &items, `
		SELECT order_id, position, name, quantity, unit_price_cents
		FROM order_items ORDER BY order_id, position`)
	if err != nil {
		return nil, errors.Wrap(err, "select order items")
	}
	byOrder := make(map[string][]itemRow)
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}

	out := make([]model.Order, 0, len(rows))
	for _, row := range rows {
		order, err := rowToOrder(row, byOrder[row.ID])
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, nil
}

// Update applies a version-checked write. Zero affected rows is
// disambiguated into not-found vs a concurrent writer by re-reading.
func (r *OrderRepository) Update(ctx context.Context, order *model.Order) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, notes = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		string(order.Status), order.Notes, order.Version, order.UpdatedAt,
		order.ID.String(), order.Version-1,
	)
	if err != nil {
		return errors.Wrap(err, "update order")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update order rows affected")
	}
	if affected == 0 {
		var exists int
		err = r.db.GetContext(ctx, &exists, `SELECT 1 FROM orders WHERE id = ?`, order.ID.String())
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrOrderNotFound
		}
		if err != nil {
			return errors.Wrap(err, "check order existence")
		}
		return model.ErrConflict
	}
	return nil
}

func (r *OrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin delete order")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, id.String()); err != nil {
		return errors.Wrap(err, "delete order items")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id.String()); err != nil {
		return errors.Wrap(err, "delete order")
	}
	return errors.Wrap(tx.Commit(), "commit delete order")
}

func rowToOrder(row orderRow, items []itemRow) (model.Order, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return model.Order{}, errors.Wrapf(err, "parse order id %q", row.ID)
	}
	userID, err := uuid.Parse(row.UserID)
	if err != nil {
		return model.Order{}, errors.Wrapf(err, "parse order user id %q", row.UserID)
	}

	order := model.Order{
		ID:            id,
		ReceiptNumber: row.ReceiptNumber,
		UserID:        userID,
		CustomerName:  row.CustomerName,
		AmountCents:   row.AmountCents,
		Status:        model.OrderStatus(row.Status),
		Notes:         row.Notes,
		PlacedByStaff: row.PlacedByStaff,
		PaymentMode:   model.PaymentMode(row.PaymentMode),
		Version:       row.Version,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	for _, item := range items {
		order.Items = append(order.Items, model.OrderItem{
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return order, nil
}
