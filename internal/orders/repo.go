package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/marketplace-orders/internal/apperr"
)

type Repo struct{ DB *pgxpool.Pool }

// CreateOrder inserts the order and all of its items in one transaction.
func (r *Repo) CreateOrder(ctx context.Context, o Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, buyer_id, enterprise_id, total_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4::text::numeric, $5, $6, $7)
	`, o.ID, o.BuyerID, o.EnterpriseID, o.TotalAmount.String(), string(o.Status), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for i, it := range o.Items {
		batch.Queue(`
			INSERT INTO order_items(id, order_id, position, product_id, enterprise_id, name, quantity, price_at_order, assigned_warehouse)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8::text::numeric, NULLIF($9, ''))`,
			it.ID, o.ID, i, it.ProductID, it.EnterpriseID, it.Name, it.Quantity, it.PriceAtOrder.String(), it.AssignedWarehouse,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *Repo) FindOrder(ctx context.Context, id string) (Order, error) {
	var (
		o      Order
		total  string
		status string
	)
	err := r.DB.QueryRow(ctx, `
		SELECT id, buyer_id, enterprise_id, total_amount::text, status, created_at, updated_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.BuyerID, &o.EnterpriseID, &total, &status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}
	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return Order{}, fmt.Errorf("order %s total: %w", id, err)
	}
	o.Status = Status(status)

	items, err := r.loadItems(ctx, []string{id})
	if err != nil {
		return Order{}, err
	}
	o.Items = items[id]
	return o, nil
}

// ListOrders returns matching orders, newest first.
func (r *Repo) ListOrders(ctx context.Context, f Filter) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, buyer_id, enterprise_id, total_amount::text, status, created_at, updated_at
		FROM orders
		WHERE ($1 = '' OR buyer_id = $1) AND ($2 = '' OR enterprise_id = $2)
		ORDER BY created_at DESC, id`, f.BuyerID, f.EnterpriseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out []Order
		ids []string
	)
	for rows.Next() {
		var (
			o             Order
			total, status string
		)
		if err := rows.Scan(&o.ID, &o.BuyerID, &o.EnterpriseID, &total, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("order %s total: %w", o.ID, err)
		}
		o.Status = Status(status)
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (r *Repo) loadItems(ctx context.Context, orderIDs []string) (map[string][]OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, id, product_id, enterprise_id, name, quantity, price_at_order::text, COALESCE(assigned_warehouse, '')
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY order_id, position`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID, price string
			it             OrderItem
		)
		if err := rows.Scan(&orderID, &it.ID, &it.ProductID, &it.EnterpriseID, &it.Name, &it.Quantity, &price, &it.AssignedWarehouse); err != nil {
			return nil, err
		}
		if it.PriceAtOrder, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("item %s price: %w", it.ID, err)
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}

// SaveOrder persists status and warehouse assignments, but only if the stored
// status still equals prev. Everything else on an order is immutable.
func (r *Repo) SaveOrder(ctx context.Context, o Order, prev Status) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = time.Now().UTC()
	}
	ct, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1 AND status=$4`,
		o.ID, string(o.Status), o.UpdatedAt, string(prev))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() != 1 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, o.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return apperr.ErrOrderNotFound
		}
		return apperr.New(apperr.ErrStaleOrder, "order %s is no longer %s", o.ID, prev)
	}

	for _, it := range o.Items {
		if it.AssignedWarehouse == "" {
			continue
		}
		if _, err := tx.Exec(ctx, `UPDATE order_items SET assigned_warehouse=$3 WHERE order_id=$1 AND id=$2`,
			o.ID, it.ID, it.AssignedWarehouse); err != nil {
			return fmt.Errorf("assign warehouse for item %s: %w", it.ID, err)
		}
	}
	return tx.Commit(ctx)
}
