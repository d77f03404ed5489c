// Package mapping turns an extracted content control map into a product draft.
package mapping

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kosarica/intake-service/internal/cultures"
	"github.com/kosarica/intake-service/internal/normalize"
	"github.com/kosarica/intake-service/internal/parsers/sdt"
)

// UntitledProduct is the product name used when the document names neither market
const UntitledProduct = "(Untitled)"

// ErrMissingRequiredField is matched by every *MissingFieldError
var ErrMissingRequiredField = errors.New("missing required field")

// MissingFieldError names the required field that was absent after cleaning
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingRequiredField, e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingRequiredField
}

// Accessory is an accessory reference; exactly one of Sku or Label is set
type Accessory struct {
	Sku   *string `json:"accessorySku,omitempty"`
	Label *string `json:"accessoryLabel,omitempty"`
}

// Culture is a per-locale translation row
type Culture struct {
	Code  string  `json:"cultureCode"`
	Name  *string `json:"translatedName,omitempty"`
	Short *string `json:"translatedShort,omitempty"`
	Long  *string `json:"translatedLong,omitempty"`
}

// Draft is a cleaned product record ready to become revision 1
type Draft struct {
	Sku              string  `json:"sku"`
	ProductName      string  `json:"productName"`
	ShortDescription *string `json:"shortDescription,omitempty"`
	LongDescription  *string `json:"longDescription,omitempty"`
	Stamp            *string `json:"stamp,omitempty"`
	OffSaleMessage   *string `json:"offSaleMessage,omitempty"`

	// Dates hold an RFC 3339 timestamp or the cleaned source text
	OnSaleDate  *string `json:"onSaleDate,omitempty"`
	OffSaleDate *string `json:"offSaleDate,omitempty"`

	UomTitleUS *string `json:"uomTitleUS,omitempty"`
	UomValueUS *string `json:"uomValueUS,omitempty"`
	UomTitleCA *string `json:"uomTitleCA,omitempty"`
	UomValueCA *string `json:"uomValueCA,omitempty"`
	SavingsUS  *string `json:"savingsUS,omitempty"`
	SavingsCA  *string `json:"savingsCA,omitempty"`

	Recommendations []string    `json:"recommendations"`
	Accessories     []Accessory `json:"accessories"`
	Cultures        []Culture   `json:"cultures"`
}

// accessory entries with no whitespace and at least one digit are product codes
var (
	skuLikeRe  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	hasDigitRe = regexp.MustCompile(`[0-9]`)
)

// Map builds a Draft from raw. The only failure is a missing SKU.
func Map(raw sdt.RawFieldMap) (*Draft, error) {
	f := fields(raw)

	sku := f.text(attrSku)
	if sku == "" {
		return nil, &MissingFieldError{Field: "sku"}
	}

	nameUS, nameCA := f.text(attrProductNameUS), f.text(attrProductNameCA)
	shortUS, shortCA := f.text(attrShortDescriptionUS), f.text(attrShortDescriptionCA)
	longUS, longCA := f.text(attrLongDescriptionUS), f.text(attrLongDescriptionCA)

	d := &Draft{
		Sku:              sku,
		ProductName:      firstNonEmpty(nameUS, nameCA, UntitledProduct),
		ShortDescription: optional(firstNonEmpty(shortUS, shortCA)),
		LongDescription:  optional(firstNonEmpty(longUS, longCA)),
		Stamp:            optional(f.text(attrStamp)),
		OffSaleMessage:   optional(f.text(attrOffSaleMessage)),
		OnSaleDate:       normalize.Date(f.text(attrOnSaleDate)),
		OffSaleDate:      normalize.Date(f.text(attrOffSaleDate)),
		UomTitleUS:       optional(f.text(attrUomTitleUS)),
		UomValueUS:       optional(f.text(attrUomValueUS)),
		UomTitleCA:       optional(f.text(attrUomTitleCA)),
		UomValueCA:       optional(f.text(attrUomValueCA)),
		SavingsUS:        optional(f.text(attrSavingsUS)),
		SavingsCA:        optional(f.text(attrSavingsCA)),
		Recommendations:  normalize.List(f.text(attrRecommendations)),
		Accessories:      []Accessory{},
		Cultures:         []Culture{},
	}

	for _, entry := range normalize.List(f.text(attrAccessories)) {
		d.Accessories = append(d.Accessories, classifyAccessory(entry))
	}

	if c, ok := cultureRow(cultures.EnUS, nameUS, shortUS, longUS); ok {
		d.Cultures = append(d.Cultures, c)
	}
	if c, ok := cultureRow(cultures.EnCA, nameCA, shortCA, longCA); ok {
		d.Cultures = append(d.Cultures, c)
	}

	return d, nil
}

type fields sdt.RawFieldMap

// text returns the first non-empty cleaned value among the attribute's labels
func (f fields) text(a attribute) string {
	for _, label := range fieldTable[a] {
		if v := normalize.Text(f[label]); v != "" {
			return v
		}
	}
	return ""
}

func classifyAccessory(entry string) Accessory {
	value := entry
	if skuLikeRe.MatchString(entry) && hasDigitRe.MatchString(entry) {
		return Accessory{Sku: &value}
	}
	return Accessory{Label: &value}
}

// cultureRow is only produced when the locale has at least one text
func cultureRow(code, name, short, long string) (Culture, bool) {
	if name == "" && short == "" && long == "" {
		return Culture{}, false
	}
	return Culture{
		Code:  code,
		Name:  optional(name),
		Short: optional(short),
		Long:  optional(long),
	}, true
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
