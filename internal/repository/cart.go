package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront-api/internal/domain/cart"
)

const (
	getCartSQL = `SELECT lines FROM carts WHERE session_id = $1`

	putCartSQL = `INSERT INTO carts (session_id, lines) VALUES ($1, $2)
		ON CONFLICT (session_id) DO UPDATE SET lines = EXCLUDED.lines, updated_at = now()`

	deleteCartSQL = `DELETE FROM carts WHERE session_id = $1`
)

var _ cart.Store = (*CartStore)(nil)

// CartStore keeps one JSONB line snapshot per browsing session.
type CartStore struct {
	db DB
}

// NewCartStore returns a CartStore that uses the given pool.
func NewCartStore(db DB) *CartStore {
	return &CartStore{db: db}
}

// Get returns the lines of a session's cart. A session without a stored cart
// gets an empty slice, not an error.
func (s *CartStore) Get(ctx context.Context, sessionID string) ([]cart.Line, error) {
	var linesJSON []byte
	err := s.db.QueryRow(ctx, getCartSQL, sessionID).Scan(&linesJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []cart.Line{}, nil
		}
		return nil, fmt.Errorf("getting cart %q: %w", sessionID, err)
	}

	var lines []cart.Line
	if err := json.Unmarshal(linesJSON, &lines); err != nil {
		return nil, fmt.Errorf("unmarshaling cart %q: %w", sessionID, err)
	}
	return lines, nil
}

// Put replaces the stored cart of a session.
func (s *CartStore) Put(ctx context.Context, sessionID string, lines []cart.Line) error {
	linesJSON, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshaling cart %q: %w", sessionID, err)
	}
	if _, err := s.db.Exec(ctx, putCartSQL, sessionID, linesJSON); err != nil {
		return fmt.Errorf("storing cart %q: %w", sessionID, err)
	}
	return nil
}

// Delete drops the stored cart of a session. Deleting an absent cart is a
// no-op.
func (s *CartStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.Exec(ctx, deleteCartSQL, sessionID); err != nil {
		return fmt.Errorf("deleting cart %q: %w", sessionID, err)
	}
	return nil
}
