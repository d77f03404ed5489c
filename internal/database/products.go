package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ListProducts returns product revisions matching filter, newest first
func (s *Store) ListProducts(ctx context.Context, filter ProductFilter) ([]ProductRevision, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	q := strings.TrimSpace(filter.Query)
	culture := strings.TrimSpace(filter.Culture)

	rows, err := s.pool.Query(ctx, `
		SELECT `+revisionColumns+` FROM product_revisions p
		WHERE ($1 = '' OR p.sku = $1)
		  AND ($2 = '' OR p.sku ILIKE $3 OR p.product_name ILIKE $3)
		  AND (NOT $4 OR p.is_current)
		  AND ($5 = '' OR EXISTS (
				SELECT 1 FROM product_cultures c
				WHERE c.product_id = p.id AND lower(c.culture_code) = lower($5)))
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $6
	`, strings.TrimSpace(filter.Sku), q, likePattern(q), filter.CurrentOnly, culture, limit)
	if err != nil {
		return nil, persistenceError("list products", err)
	}
	revisions, err := scanRevisions(rows)
	if err != nil {
		return nil, persistenceError("list products", err)
	}
	if revisions == nil {
		return []ProductRevision{}, nil
	}
	if err := loadChildren(ctx, s.pool, revisions, culture); err != nil {
		return nil, persistenceError("list products", err)
	}
	return revisions, nil
}

// GetProduct returns one revision with its children. The revision must belong
// to submissionID.
func (s *Store) GetProduct(ctx context.Context, submissionID, productID int64) (*ProductRevision, error) {
	rev, err := scanRevision(s.pool.QueryRow(ctx,
		`SELECT `+revisionColumns+` FROM product_revisions WHERE id = $1 AND submission_id = $2`,
		productID, submissionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("product %d in submission %d: %w", productID, submissionID, ErrNotFound)
	}
	if err != nil {
		return nil, persistenceError("get product", err)
	}
	revs := []ProductRevision{*rev}
	if err := loadChildren(ctx, s.pool, revs, ""); err != nil {
		return nil, persistenceError("get product", err)
	}
	return &revs[0], nil
}
