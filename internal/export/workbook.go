// Package export renders submissions as Excel workbooks for reviewers and
// translation vendors.
package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kosarica/intake-service/internal/database"
)

const (
	ProductsSheet    = "Products"
	CulturesSheet    = "Cultures"
	AccessoriesSheet = "Accessories"
)

var productHeaders = []string{
	"Product ID", "SKU", "Version", "Product Name", "Short Description", "Long Description",
	"Stamp", "Off-Sale Message", "On-Sale Date", "Off-Sale Date", "No End Date",
	"UOM Title US", "UOM Value US", "UOM Title CA", "UOM Value CA",
	"Savings US", "Savings CA", "No Savings", "PDP Requested", "PDP Work Request",
	"Include Translations", "Recommendations",
}

var cultureHeaders = []string{"Product ID", "SKU", "Culture", "Translated Name", "Translated Short", "Translated Long"}

var accessoryHeaders = []string{"Product ID", "SKU", "Accessory SKU", "Accessory Label"}

// Workbook builds a workbook with one row per current product of sub, plus
// its culture and accessory rows on separate sheets
func Workbook(sub *database.Submission) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ProductsSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{CulturesSheet, AccessoriesSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	products := &sheetWriter{f: f, name: ProductsSheet}
	cultures := &sheetWriter{f: f, name: CulturesSheet}
	accessories := &sheetWriter{f: f, name: AccessoriesSheet}
	for _, w := range []*sheetWriter{products, cultures, accessories} {
		headers := productHeaders
		switch w {
		case cultures:
			headers = cultureHeaders
		case accessories:
			headers = accessoryHeaders
		}
		if err := w.header(headers, bold); err != nil {
			return nil, err
		}
	}

	for _, p := range sub.Products {
		if !p.IsCurrent {
			continue
		}
		recs := make([]string, 0, len(p.Recommendations))
		for _, r := range p.Recommendations {
			recs = append(recs, r.Sku)
		}
		if err := products.row(
			p.ID, p.Sku, p.Version, p.ProductName, p.ShortDescription, p.LongDescription,
			p.Stamp, p.OffSaleMessage, p.OnSaleDate, p.OffSaleDate, p.NoEndDate,
			p.UomTitleUS, p.UomValueUS, p.UomTitleCA, p.UomValueCA,
			p.SavingsUS, p.SavingsCA, p.NoSavings, p.IsPdpRequested, p.PdpWorkRequest,
			p.IncludeTranslations, strings.Join(recs, ", "),
		); err != nil {
			return nil, err
		}
		for _, c := range p.Cultures {
			if err := cultures.row(p.ID, p.Sku, c.CultureCode, c.TranslatedName, c.TranslatedShort, c.TranslatedLong); err != nil {
				return nil, err
			}
		}
		for _, a := range p.Accessories {
			if err := accessories.row(p.ID, p.Sku, a.AccessorySku, a.AccessoryLabel); err != nil {
				return nil, err
			}
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// Filename is the download name for a submission workbook
func Filename(sub *database.Submission) string {
	return fmt.Sprintf("submission-%d.xlsx", sub.ID)
}

type sheetWriter struct {
	f    *excelize.File
	name string
	next int
}

func (w *sheetWriter) header(headers []string, style int) error {
	values := make([]interface{}, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := w.row(values...); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := w.f.SetCellStyle(w.name, "A1", last, style); err != nil {
		return fmt.Errorf("failed to style %s header: %w", w.name, err)
	}
	return nil
}

func (w *sheetWriter) row(values ...interface{}) error {
	w.next++
	cell, err := excelize.CoordinatesToCellName(1, w.next)
	if err != nil {
		return err
	}
	for i, v := range values {
		if s, ok := v.(*string); ok {
			if s == nil {
				values[i] = nil
			} else {
				values[i] = *s
			}
		}
	}
	if err := w.f.SetSheetRow(w.name, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", w.name, w.next, err)
	}
	return nil
}
