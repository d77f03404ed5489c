package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

const submissionColumns = `id, request_id, requester, note, source_filename, source_key, source_hash, created_at`

func scanSubmission(row pgx.Row) (*Submission, error) {
	var sub Submission
	err := row.Scan(&sub.ID, &sub.RequestID, &sub.Requester, &sub.Note,
		&sub.SourceFilename, &sub.SourceKey, &sub.SourceHash, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	sub.Products = []ProductRevision{}
	return &sub, nil
}

// CreateSubmission inserts a submission and version 1 of each of its products
// in one transaction
func (s *Store) CreateSubmission(ctx context.Context, in NewSubmission) (*Submission, error) {
	sub, err := WithTransactionResult(ctx, s.pool, func(tx pgx.Tx) (*Submission, error) {
		if in.RequestID != nil {
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM requests WHERE id = $1)`, *in.RequestID,
			).Scan(&exists); err != nil {
				return nil, fmt.Errorf("failed to check request: %w", err)
			}
			if !exists {
				return nil, fmt.Errorf("request %d: %w", *in.RequestID, ErrNotFound)
			}
		}

		sub, err := scanSubmission(tx.QueryRow(ctx, `
			INSERT INTO submissions (request_id, requester, note, source_filename, source_key, source_hash)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+submissionColumns,
			in.RequestID, blankToNil(in.Requester), blankToNil(in.Note),
			in.SourceFilename, in.SourceKey, in.SourceHash,
		))
		if err != nil {
			return nil, fmt.Errorf("failed to insert submission: %w", err)
		}

		for _, p := range in.Products {
			rev, err := insertRevision(ctx, tx, sub.ID, strings.TrimSpace(p.Sku), 1,
				p.ProductFields, p.Accessories, p.Recommendations, p.Cultures)
			if err != nil {
				return nil, fmt.Errorf("product %s: %w", p.Sku, err)
			}
			sub.Products = append(sub.Products, *rev)
		}
		return sub, nil
	})
	if err != nil {
		return nil, persistenceError("create submission", err)
	}
	return sub, nil
}

// GetSubmission returns a submission with all of its revisions
func (s *Store) GetSubmission(ctx context.Context, id int64) (*Submission, error) {
	sub, err := scanSubmission(s.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("submission %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, persistenceError("get submission", err)
	}

	subs := []Submission{*sub}
	if err := s.attachProducts(ctx, subs, "", "", false); err != nil {
		return nil, persistenceError("get submission", err)
	}
	return &subs[0], nil
}

// ListSubmissions returns the newest submissions matching filter with their
// revisions
func (s *Store) ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]Submission, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+submissionColumns+` FROM submissions s
		WHERE ($1 = '' OR EXISTS (
				SELECT 1 FROM product_revisions p WHERE p.submission_id = s.id AND p.sku = $1))
		  AND ($2 = '' OR s.requester ILIKE $3 OR s.note ILIKE $3 OR EXISTS (
				SELECT 1 FROM product_revisions p
				WHERE p.submission_id = s.id AND (p.sku ILIKE $3 OR p.product_name ILIKE $3)))
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT $4
	`, strings.TrimSpace(filter.Sku), strings.TrimSpace(filter.Query), likePattern(filter.Query), limit)
	if err != nil {
		return nil, persistenceError("list submissions", err)
	}
	subs, err := collectSubmissions(rows)
	if err != nil {
		return nil, persistenceError("list submissions", err)
	}

	if err := s.attachProducts(ctx, subs, strings.TrimSpace(filter.Sku), strings.TrimSpace(filter.Culture), false); err != nil {
		return nil, persistenceError("list submissions", err)
	}
	return subs, nil
}

// SearchSubmissions returns up to limit submissions matching q, each with a
// preview of its first three current products
func (s *Store) SearchSubmissions(ctx context.Context, q string, limit int) ([]SubmissionSummary, error) {
	if limit <= 0 {
		limit = 25
	}
	q = strings.TrimSpace(q)

	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.request_id, s.requester, s.note, s.created_at
		FROM submissions s
		WHERE $1 = '' OR s.requester ILIKE $2 OR s.note ILIKE $2 OR EXISTS (
			SELECT 1 FROM product_revisions p
			WHERE p.submission_id = s.id AND (p.sku ILIKE $2 OR p.product_name ILIKE $2))
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT $3
	`, q, likePattern(q), limit)
	if err != nil {
		return nil, persistenceError("search submissions", err)
	}

	var out []SubmissionSummary
	index := make(map[int64]int)
	for rows.Next() {
		var sum SubmissionSummary
		if err := rows.Scan(&sum.ID, &sum.RequestID, &sum.Requester, &sum.Note, &sum.CreatedAt); err != nil {
			rows.Close()
			return nil, persistenceError("search submissions", err)
		}
		sum.Products = []ProductPreview{}
		index[sum.ID] = len(out)
		out = append(out, sum)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, persistenceError("search submissions", err)
	}
	if len(out) == 0 {
		return []SubmissionSummary{}, nil
	}

	ids := make([]int64, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	rows, err = s.pool.Query(ctx, `
		SELECT submission_id, id, sku, product_name FROM (
			SELECT submission_id, id, sku, product_name,
			       ROW_NUMBER() OVER (PARTITION BY submission_id ORDER BY id) AS n
			FROM product_revisions
			WHERE submission_id = ANY($1) AND is_current
		) ranked
		WHERE n <= 3
		ORDER BY submission_id, id
	`, ids)
	if err != nil {
		return nil, persistenceError("search submissions", err)
	}
	defer rows.Close()
	for rows.Next() {
		var subID int64
		var p ProductPreview
		if err := rows.Scan(&subID, &p.ID, &p.Sku, &p.ProductName); err != nil {
			return nil, persistenceError("search submissions", err)
		}
		sum := &out[index[subID]]
		sum.Products = append(sum.Products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("search submissions", err)
	}
	return out, nil
}

func collectSubmissions(rows pgx.Rows) ([]Submission, error) {
	defer rows.Close()
	subs := []Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// attachProducts loads the revisions of subs, optionally narrowed to one sku,
// and their children
func (s *Store) attachProducts(ctx context.Context, subs []Submission, sku, culture string, currentOnly bool) error {
	if len(subs) == 0 {
		return nil
	}
	ids := make([]int64, len(subs))
	index := make(map[int64]int, len(subs))
	for i := range subs {
		ids[i] = subs[i].ID
		index[subs[i].ID] = i
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+revisionColumns+` FROM product_revisions
		WHERE submission_id = ANY($1)
		  AND ($2 = '' OR sku = $2)
		  AND (NOT $3 OR is_current)
		ORDER BY submission_id, sku, version
	`, ids, sku, currentOnly)
	if err != nil {
		return fmt.Errorf("failed to query products: %w", err)
	}
	revisions, err := scanRevisions(rows)
	if err != nil {
		return fmt.Errorf("failed to scan products: %w", err)
	}
	if err := loadChildren(ctx, s.pool, revisions, culture); err != nil {
		return err
	}

	for _, rev := range revisions {
		sub := &subs[index[rev.SubmissionID]]
		sub.Products = append(sub.Products, rev)
	}
	return nil
}

// likePattern escapes q for use in an ILIKE substring match
func likePattern(q string) string {
	q = strings.TrimSpace(q)
	if q == "" {
		return ""
	}
	escaper := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + escaper.Replace(q) + "%"
}
