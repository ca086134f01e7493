package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/marketplace-orders/internal/apperr"
)

// UserRepo is a read-only view over the users table owned by the auth service.
type UserRepo struct{ DB *pgxpool.Pool }

func (r *UserRepo) FindUser(ctx context.Context, id string) (Actor, error) {
	var (
		a      Actor
		role   string
		status *string
	)
	err := r.DB.QueryRow(ctx, `SELECT id, name, role, enterprise_status, is_blocked FROM users WHERE id=$1`, id).
		Scan(&a.ID, &a.Name, &role, &status, &a.IsBlocked)
	if errors.Is(err, pgx.ErrNoRows) {
		return Actor{}, apperr.ErrUserNotFound
	}
	if err != nil {
		return Actor{}, err
	}
	var ok bool
	if a.Role, ok = ParseRole(role); !ok {
		return Actor{}, fmt.Errorf("user %s has unknown role %q", id, role)
	}
	if status != nil {
		a.EnterpriseStatus = EnterpriseStatus(*status)
	}
	return a, nil
}

// CreateUser is used for seeding and tests.
func (r *UserRepo) CreateUser(ctx context.Context, a Actor) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO users(id, name, role, enterprise_status, is_blocked)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)`,
		a.ID, a.Name, string(a.Role), string(a.EnterpriseStatus), a.IsBlocked)
	if err != nil {
		return fmt.Errorf("insert user %s: %w", a.ID, err)
	}
	return nil
}
