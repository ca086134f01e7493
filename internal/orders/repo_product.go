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

// ProductRepo reads products with their warehouses. Stock itself is only
// mutated through the inventory ledger.
type ProductRepo struct{ DB *pgxpool.Pool }

func (r *ProductRepo) FindProduct(ctx context.Context, id string) (Product, error) {
	var (
		p          Product
		enterprise *string
		price      string
	)
	err := r.DB.QueryRow(ctx, `
		SELECT id, enterprise_id, name, description, price::text, is_available, created_at, updated_at
		FROM products WHERE id=$1`, id).
		Scan(&p.ID, &enterprise, &p.Name, &p.Description, &price, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, apperr.ErrProductNotFound
	}
	if err != nil {
		return Product{}, err
	}
	if enterprise != nil {
		p.EnterpriseID = *enterprise
	}
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return Product{}, fmt.Errorf("product %s price: %w", id, err)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT warehouse_name, stock_level FROM product_warehouses
		WHERE product_id=$1 ORDER BY position`, id)
	if err != nil {
		return Product{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.Name, &w.StockLevel); err != nil {
			return Product{}, err
		}
		p.Warehouses = append(p.Warehouses, w)
	}
	return p, rows.Err()
}

// CreateProduct is used for seeding; regular product CRUD lives outside this service.
func (r *ProductRepo) CreateProduct(ctx context.Context, p Product) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `
		INSERT INTO products(id, enterprise_id, name, description, price, is_available, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5::text::numeric, $6, $7, $7)`,
		p.ID, p.EnterpriseID, p.Name, p.Description, p.Price.String(), p.IsAvailable, now)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	for i, w := range p.Warehouses {
		if _, err := tx.Exec(ctx, `
			INSERT INTO product_warehouses(product_id, warehouse_name, position, stock_level)
			VALUES ($1, $2, $3, $4)`, p.ID, w.Name, i, w.StockLevel); err != nil {
			return fmt.Errorf("insert warehouse %s: %w", w.Name, err)
		}
	}
	return tx.Commit(ctx)
}
