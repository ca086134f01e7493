package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/marketplace-orders/internal/apperr"
)

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGLedger keeps stock in product_warehouses. Reservation is a single
// conditional UPDATE, so the check and the decrement happen on the locked row.
type PGLedger struct{ DB *pgxpool.Pool }

func (l *PGLedger) Reserve(ctx context.Context, productID, warehouse string, qty int) error {
	line := Line{ProductID: productID, Warehouse: warehouse, Qty: qty}
	if err := validateLine(line); err != nil {
		return err
	}
	return reserve(ctx, l.DB, line)
}

func (l *PGLedger) Release(ctx context.Context, productID, warehouse string, qty int) error {
	line := Line{ProductID: productID, Warehouse: warehouse, Qty: qty}
	if err := validateLine(line); err != nil {
		return err
	}
	return release(ctx, l.DB, line)
}

// ReserveAll: decrement every line inside one transaction; the first shortage
// rolls back everything taken so far. Lines on the same warehouse are summed.
func (l *PGLedger) ReserveAll(ctx context.Context, lines []Line) error {
	return l.inTx(ctx, lines, reserve)
}

func (l *PGLedger) ReleaseAll(ctx context.Context, lines []Line) error {
	return l.inTx(ctx, lines, release)
}

func (l *PGLedger) inTx(ctx context.Context, lines []Line, step func(context.Context, querier, Line) error) error {
	for _, ln := range lines {
		if err := validateLine(ln); err != nil {
			return err
		}
	}
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, ln := range lockOrder(MergeLines(lines)) {
		if err := step(ctx, tx, ln); err != nil {
			return err // rollback via defer
		}
	}
	return tx.Commit(ctx)
}

func reserve(ctx context.Context, q querier, ln Line) error {
	var left int
	err := q.QueryRow(ctx, `
		UPDATE product_warehouses
		SET stock_level = stock_level - $3, updated_at = now()
		WHERE product_id=$1 AND warehouse_name=$2 AND stock_level >= $3
		RETURNING stock_level`, ln.ProductID, ln.Warehouse, ln.Qty).Scan(&left)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	var available int
	err = q.QueryRow(ctx, `SELECT stock_level FROM product_warehouses WHERE product_id=$1 AND warehouse_name=$2`,
		ln.ProductID, ln.Warehouse).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.WarehouseNotFound(ln.ProductID, ln.Warehouse)
	}
	if err != nil {
		return err
	}
	return shortage(ln, available)
}

func release(ctx context.Context, q querier, ln Line) error {
	var level int
	err := q.QueryRow(ctx, `
		UPDATE product_warehouses
		SET stock_level = stock_level + $3, updated_at = now()
		WHERE product_id=$1 AND warehouse_name=$2
		RETURNING stock_level`, ln.ProductID, ln.Warehouse, ln.Qty).Scan(&level)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.WarehouseNotFound(ln.ProductID, ln.Warehouse)
	}
	return err
}
