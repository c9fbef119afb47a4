package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PartyRepository answers existence checks against the member and manager
// tables. Those tables are owned by the account side of the platform; this
// service only reads them.
type PartyRepository interface {
	MemberExists(ctx context.Context, id int64) (bool, error)
	ManagerExists(ctx context.Context, id int64) (bool, error)
}

type pgPartyRepo struct {
	db *pgxpool.Pool
}

func NewPartyRepository(db *pgxpool.Pool) PartyRepository {
	return &pgPartyRepo{db: db}
}

func (r *pgPartyRepo) MemberExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM members WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("member exists: %w", err)
	}
	return exists, nil
}

func (r *pgPartyRepo) ManagerExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM managers WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("manager exists: %w", err)
	}
	return exists, nil
}
