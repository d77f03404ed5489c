package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a referenced row does not exist or does not
	// belong to the given parent
	ErrNotFound = errors.New("not found")
	// ErrPersistence wraps driver and transaction failures
	ErrPersistence = errors.New("persistence error")
)

// Store reads and writes the intake tables
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a store over pool
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool returns the underlying connection pool
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// persistenceError wraps err as ErrPersistence unless it already carries a
// store sentinel
func persistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const revisionColumns = `
	id, submission_id, sku, version, is_current, product_name,
	short_description, long_description, stamp, off_sale_message,
	on_sale_date, off_sale_date, no_end_date,
	uom_title_us, uom_value_us, uom_title_ca, uom_value_ca,
	savings_us, savings_ca, no_savings,
	is_pdp_requested, pdp_work_request,
	include_translations, requested_cultures_json, created_at`

func scanRevision(row pgx.Row) (*ProductRevision, error) {
	var p ProductRevision
	var culturesJSON []byte
	err := row.Scan(
		&p.ID, &p.SubmissionID, &p.Sku, &p.Version, &p.IsCurrent, &p.ProductName,
		&p.ShortDescription, &p.LongDescription, &p.Stamp, &p.OffSaleMessage,
		&p.OnSaleDate, &p.OffSaleDate, &p.NoEndDate,
		&p.UomTitleUS, &p.UomValueUS, &p.UomTitleCA, &p.UomValueCA,
		&p.SavingsUS, &p.SavingsCA, &p.NoSavings,
		&p.IsPdpRequested, &p.PdpWorkRequest,
		&p.IncludeTranslations, &culturesJSON, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(culturesJSON) > 0 {
		p.RequestedCulturesJSON = culturesJSON
	}
	p.Accessories = []Accessory{}
	p.Recommendations = []Recommendation{}
	p.Cultures = []Culture{}
	return &p, nil
}

func scanRevisions(rows pgx.Rows) ([]ProductRevision, error) {
	defer rows.Close()
	var out []ProductRevision
	for rows.Next() {
		p, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// loadChildren fills the child collections of revisions in place. When
// culture is set only rows for that culture code are loaded.
func loadChildren(ctx context.Context, q querier, revisions []ProductRevision, culture string) error {
	if len(revisions) == 0 {
		return nil
	}

	ids := make([]int64, len(revisions))
	index := make(map[int64]int, len(revisions))
	for i := range revisions {
		ids[i] = revisions[i].ID
		index[revisions[i].ID] = i
	}

	rows, err := q.Query(ctx, `
		SELECT id, product_id, accessory_sku, accessory_label
		FROM product_accessories
		WHERE product_id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query accessories: %w", err)
	}
	for rows.Next() {
		var a Accessory
		if err := rows.Scan(&a.ID, &a.ProductID, &a.AccessorySku, &a.AccessoryLabel); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan accessory: %w", err)
		}
		r := &revisions[index[a.ProductID]]
		r.Accessories = append(r.Accessories, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read accessories: %w", err)
	}

	rows, err = q.Query(ctx, `
		SELECT id, product_id, sku
		FROM product_recommendations
		WHERE product_id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query recommendations: %w", err)
	}
	for rows.Next() {
		var rec Recommendation
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.Sku); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan recommendation: %w", err)
		}
		r := &revisions[index[rec.ProductID]]
		r.Recommendations = append(r.Recommendations, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read recommendations: %w", err)
	}

	rows, err = q.Query(ctx, `
		SELECT id, product_id, culture_code, translated_name, translated_short, translated_long
		FROM product_cultures
		WHERE product_id = ANY($1) AND ($2 = '' OR lower(culture_code) = lower($2))
		ORDER BY id
	`, ids, culture)
	if err != nil {
		return fmt.Errorf("failed to query cultures: %w", err)
	}
	for rows.Next() {
		var c Culture
		if err := rows.Scan(&c.ID, &c.ProductID, &c.CultureCode,
			&c.TranslatedName, &c.TranslatedShort, &c.TranslatedLong); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan culture: %w", err)
		}
		r := &revisions[index[c.ProductID]]
		r.Cultures = append(r.Cultures, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read cultures: %w", err)
	}

	return nil
}

// applyGates enforces the flag invariants on fields and returns the culture
// rows that may be stored with them
func applyGates(f *ProductFields, cultures []Culture) []Culture {
	if f.NoEndDate {
		f.OffSaleDate = nil
	}
	if f.NoSavings {
		f.SavingsUS = nil
		f.SavingsCA = nil
	}
	if !f.IsPdpRequested {
		f.PdpWorkRequest = nil
	}
	if !f.IncludeTranslations {
		return []Culture{}
	}
	return cultures
}

// insertRevision inserts the revision row and its children and returns the
// stored revision
func insertRevision(ctx context.Context, tx pgx.Tx, submissionID int64, sku string, version int,
	fields ProductFields, accessories []Accessory, recommendations []Recommendation, cultures []Culture) (*ProductRevision, error) {

	cultures = applyGates(&fields, cultures)

	var culturesJSON any
	if len(fields.RequestedCulturesJSON) > 0 {
		culturesJSON = string(fields.RequestedCulturesJSON)
	}

	rev, err := scanRevision(tx.QueryRow(ctx, `
		INSERT INTO product_revisions (
			submission_id, sku, version, is_current, product_name,
			short_description, long_description, stamp, off_sale_message,
			on_sale_date, off_sale_date, no_end_date,
			uom_title_us, uom_value_us, uom_title_ca, uom_value_ca,
			savings_us, savings_ca, no_savings,
			is_pdp_requested, pdp_work_request,
			include_translations, requested_cultures_json
		) VALUES (
			$1, $2, $3, TRUE, $4,
			$5, $6, $7, $8,
			$9, $10, $11,
			$12, $13, $14, $15,
			$16, $17, $18,
			$19, $20,
			$21, $22::jsonb
		)
		RETURNING `+revisionColumns,
		submissionID, sku, version, fields.ProductName,
		fields.ShortDescription, fields.LongDescription, fields.Stamp, fields.OffSaleMessage,
		fields.OnSaleDate, fields.OffSaleDate, fields.NoEndDate,
		fields.UomTitleUS, fields.UomValueUS, fields.UomTitleCA, fields.UomValueCA,
		fields.SavingsUS, fields.SavingsCA, fields.NoSavings,
		fields.IsPdpRequested, fields.PdpWorkRequest,
		fields.IncludeTranslations, culturesJSON,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert revision: %w", err)
	}

	if err := insertChildren(ctx, tx, rev, accessories, recommendations, cultures); err != nil {
		return nil, err
	}
	return rev, nil
}

// insertChildren batches the child rows of rev and appends the stored rows to it
func insertChildren(ctx context.Context, tx pgx.Tx, rev *ProductRevision,
	accessories []Accessory, recommendations []Recommendation, cultures []Culture) error {

	batch := &pgx.Batch{}
	var kinds []string

	for _, a := range accessories {
		a.AccessorySku, a.AccessoryLabel = blankToNil(a.AccessorySku), blankToNil(a.AccessoryLabel)
		if a.AccessorySku == nil && a.AccessoryLabel == nil {
			continue
		}
		batch.Queue(`
			INSERT INTO product_accessories (product_id, accessory_sku, accessory_label)
			VALUES ($1, $2, $3)
			RETURNING id, product_id, accessory_sku, accessory_label
		`, rev.ID, a.AccessorySku, a.AccessoryLabel)
		kinds = append(kinds, "accessory")
	}
	for _, r := range recommendations {
		if strings.TrimSpace(r.Sku) == "" {
			continue
		}
		batch.Queue(`
			INSERT INTO product_recommendations (product_id, sku)
			VALUES ($1, $2)
			RETURNING id, product_id, sku
		`, rev.ID, strings.TrimSpace(r.Sku))
		kinds = append(kinds, "recommendation")
	}
	for _, c := range cultures {
		batch.Queue(`
			INSERT INTO product_cultures (product_id, culture_code, translated_name, translated_short, translated_long)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, product_id, culture_code, translated_name, translated_short, translated_long
		`, rev.ID, c.CultureCode, c.TranslatedName, c.TranslatedShort, c.TranslatedLong)
		kinds = append(kinds, "culture")
	}

	if len(kinds) == 0 {
		return nil
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	for _, kind := range kinds {
		row := br.QueryRow()
		switch kind {
		case "accessory":
			var a Accessory
			if err := row.Scan(&a.ID, &a.ProductID, &a.AccessorySku, &a.AccessoryLabel); err != nil {
				return fmt.Errorf("failed to insert accessory: %w", err)
			}
			rev.Accessories = append(rev.Accessories, a)
		case "recommendation":
			var r Recommendation
			if err := row.Scan(&r.ID, &r.ProductID, &r.Sku); err != nil {
				return fmt.Errorf("failed to insert recommendation: %w", err)
			}
			rev.Recommendations = append(rev.Recommendations, r)
		case "culture":
			var c Culture
			if err := row.Scan(&c.ID, &c.ProductID, &c.CultureCode,
				&c.TranslatedName, &c.TranslatedShort, &c.TranslatedLong); err != nil {
				return fmt.Errorf("failed to insert culture: %w", err)
			}
			rev.Cultures = append(rev.Cultures, c)
		}
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
