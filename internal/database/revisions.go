package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// CreateRevision branches a new current revision from productID. Fields the
// patch leaves nil are copied from the base revision. The version number and
// the current row are read inside the same transaction that inserts, after
// every row of the (submission, sku) pair has been locked, so concurrent calls
// for one pair are serialized.
func (s *Store) CreateRevision(ctx context.Context, submissionID, productID int64, patch RevisionPatch) (*ProductRevision, error) {
	rev, err := WithTransactionResult(ctx, s.pool, func(tx pgx.Tx) (*ProductRevision, error) {
		var sku string
		err := tx.QueryRow(ctx, `
			SELECT sku FROM product_revisions
			WHERE id = $1 AND submission_id = $2
		`, productID, submissionID).Scan(&sku)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %d in submission %d: %w", productID, submissionID, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load product: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			SELECT id FROM product_revisions
			WHERE submission_id = $1 AND sku = $2
			ORDER BY id
			FOR UPDATE
		`, submissionID, sku); err != nil {
			return nil, fmt.Errorf("failed to lock revisions: %w", err)
		}

		// Statements after the lock see revisions committed while we waited
		base, err := scanRevision(tx.QueryRow(ctx,
			`SELECT `+revisionColumns+` FROM product_revisions WHERE id = $1`, productID))
		if err != nil {
			return nil, fmt.Errorf("failed to load base revision: %w", err)
		}
		baseRows := []ProductRevision{*base}
		if err := loadChildren(ctx, tx, baseRows, ""); err != nil {
			return nil, err
		}
		base = &baseRows[0]

		var maxVersion int
		if err := tx.QueryRow(ctx, `
			SELECT COALESCE(MAX(version), 0) FROM product_revisions
			WHERE submission_id = $1 AND sku = $2
		`, submissionID, sku).Scan(&maxVersion); err != nil {
			return nil, fmt.Errorf("failed to read max version: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE product_revisions SET is_current = FALSE
			WHERE submission_id = $1 AND sku = $2 AND is_current
		`, submissionID, sku); err != nil {
			return nil, fmt.Errorf("failed to clear current revision: %w", err)
		}

		fields, accessories, recommendations, cultures := patch.Merge(base)
		return insertRevision(ctx, tx, submissionID, sku, maxVersion+1,
			fields, accessories, recommendations, cultures)
	})
	if err != nil {
		return nil, persistenceError("create revision", err)
	}
	return rev, nil
}

// ListRevisions returns every revision of the product's (submission, sku)
// pair, oldest first
func (s *Store) ListRevisions(ctx context.Context, submissionID, productID int64) ([]ProductRevision, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+revisionColumns+` FROM product_revisions
		WHERE submission_id = $1 AND sku = (
			SELECT sku FROM product_revisions WHERE id = $2 AND submission_id = $1
		)
		ORDER BY version
	`, submissionID, productID)
	if err != nil {
		return nil, persistenceError("list revisions", err)
	}
	revisions, err := scanRevisions(rows)
	if err != nil {
		return nil, persistenceError("list revisions", err)
	}
	if len(revisions) == 0 {
		return nil, fmt.Errorf("product %d in submission %d: %w", productID, submissionID, ErrNotFound)
	}
	if err := loadChildren(ctx, s.pool, revisions, ""); err != nil {
		return nil, persistenceError("list revisions", err)
	}
	return revisions, nil
}

// Merge overlays the patch on base and returns the full field set and
// collections of the next revision. Gates are applied when it is inserted.
func (p RevisionPatch) Merge(base *ProductRevision) (ProductFields, []Accessory, []Recommendation, []Culture) {
	f := base.ProductFields

	if p.ProductName != nil && strings.TrimSpace(*p.ProductName) != "" {
		f.ProductName = strings.TrimSpace(*p.ProductName)
	}
	overlay(&f.ShortDescription, p.ShortDescription)
	overlay(&f.LongDescription, p.LongDescription)
	overlay(&f.Stamp, p.Stamp)
	overlay(&f.OffSaleMessage, p.OffSaleMessage)
	overlay(&f.OnSaleDate, p.OnSaleDate)
	overlay(&f.OffSaleDate, p.OffSaleDate)
	overlay(&f.UomTitleUS, p.UomTitleUS)
	overlay(&f.UomValueUS, p.UomValueUS)
	overlay(&f.UomTitleCA, p.UomTitleCA)
	overlay(&f.UomValueCA, p.UomValueCA)
	overlay(&f.SavingsUS, p.SavingsUS)
	overlay(&f.SavingsCA, p.SavingsCA)
	overlay(&f.PdpWorkRequest, p.PdpWorkRequest)

	if p.NoEndDate != nil {
		f.NoEndDate = *p.NoEndDate
	}
	if p.NoSavings != nil {
		f.NoSavings = *p.NoSavings
	}
	if p.IsPdpRequested != nil {
		f.IsPdpRequested = *p.IsPdpRequested
	}
	if p.IncludeTranslations != nil {
		f.IncludeTranslations = *p.IncludeTranslations
	}
	if len(p.RequestedCulturesJSON) > 0 {
		f.RequestedCulturesJSON = p.RequestedCulturesJSON
	}

	accessories := base.Accessories
	if p.Accessories != nil {
		accessories = *p.Accessories
	}
	recommendations := base.Recommendations
	if p.Recommendations != nil {
		recommendations = *p.Recommendations
	}
	cultures := base.Cultures
	if p.Cultures != nil {
		cultures = *p.Cultures
	}

	return f, accessories, recommendations, cultures
}

// overlay replaces dst when src is set; a blank src clears dst
func overlay(dst **string, src *string) {
	if src == nil {
		return
	}
	v := strings.TrimSpace(*src)
	if v == "" {
		*dst = nil
		return
	}
	*dst = &v
}
