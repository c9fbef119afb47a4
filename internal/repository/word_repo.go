package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WordRepository reads the administered block-word list the mask filter
// compiles from.
type WordRepository interface {
	ListBlockedWords(ctx context.Context) ([]string, error)
}

type pgWordRepo struct {
	db *pgxpool.Pool
}

func NewWordRepository(db *pgxpool.Pool) WordRepository {
	return &pgWordRepo{db: db}
}

func (r *pgWordRepo) ListBlockedWords(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT word FROM blocked_words ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list blocked words: %w", err)
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("list blocked words: scan: %w", err)
		}
		words = append(words, w)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("list blocked words: %w", rows.Err())
	}
	return words, nil
}
