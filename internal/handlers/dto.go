package handlers

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/kosarica/intake-service/internal/cultures"
	"github.com/kosarica/intake-service/internal/database"
	"github.com/kosarica/intake-service/internal/normalize"
)

// CreateRequestRequest is the body of POST /api/requests
type CreateRequestRequest struct {
	RequesterName  *string `json:"requesterName"`
	RequesterEmail *string `json:"requesterEmail" jsonschema:"format=email"`
	DueDate        *string `json:"dueDate" jsonschema:"description=YYYY-MM-DD or RFC 3339 timestamp"`
	AdoID          *string `json:"adoId"`
	UserStory      *string `json:"userStory"`
	Notes          *string `json:"notes"`
}

func (r CreateRequestRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RequesterName, validation.Length(0, 255)),
		validation.Field(&r.RequesterEmail, is.Email.Error("invalid email format"), validation.Length(0, 255)),
		validation.Field(&r.DueDate, validation.By(func(interface{}) error {
			_, err := parseDueDate(r.DueDate)
			return err
		})),
	)
}

// ToNewRequest converts the validated body into store input
func (r CreateRequestRequest) ToNewRequest() database.NewRequest {
	due, _ := parseDueDate(r.DueDate)
	return database.NewRequest{
		RequesterName:  clean(r.RequesterName),
		RequesterEmail: clean(r.RequesterEmail),
		DueDate:        due,
		AdoID:          clean(r.AdoID),
		UserStory:      clean(r.UserStory),
		Notes:          clean(r.Notes),
	}
}

func parseDueDate(s *string) (*time.Time, error) {
	v := clean(s)
	if v == nil {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, *v); err == nil {
			return &t, nil
		}
	}
	return nil, validation.NewError("validation_due_date", "must be YYYY-MM-DD or an RFC 3339 timestamp")
}

// AccessoryInput references an accessory by SKU or by free-text label
type AccessoryInput struct {
	AccessorySku   *string `json:"accessorySku"`
	AccessoryLabel *string `json:"accessoryLabel"`
}

func (a AccessoryInput) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.AccessorySku,
			validation.When(clean(a.AccessoryLabel) == nil, validation.Required.Error("accessory needs a sku or label")),
		),
	)
}

// RecommendationInput references a recommended product
type RecommendationInput struct {
	Sku string `json:"sku" jsonschema:"required,minLength=1"`
}

func (r RecommendationInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Sku, validation.Required),
	)
}

// CultureInput holds translated texts for one locale
type CultureInput struct {
	CultureCode     string  `json:"cultureCode" jsonschema:"required,minLength=2"`
	TranslatedName  *string `json:"translatedName"`
	TranslatedShort *string `json:"translatedShort"`
	TranslatedLong  *string `json:"translatedLong"`
}

func (c CultureInput) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.CultureCode, validation.Required, validation.Length(2, 35)),
	)
}

// ProductInput is one product of a JSON submission
type ProductInput struct {
	Sku              string  `json:"sku" jsonschema:"required,minLength=1"`
	ProductName      string  `json:"productName" jsonschema:"required,minLength=1"`
	ShortDescription *string `json:"shortDescription"`
	LongDescription  *string `json:"longDescription"`
	Stamp            *string `json:"stamp"`
	OffSaleMessage   *string `json:"offSaleMessage"`

	OnSaleDate  *string `json:"onSaleDate" jsonschema:"description=M/d/yyyy or ISO 8601; other text is kept as written"`
	OffSaleDate *string `json:"offSaleDate"`
	NoEndDate   bool    `json:"noEndDate"`

	UomTitleUS *string `json:"uomTitleUS"`
	UomValueUS *string `json:"uomValueUS"`
	UomTitleCA *string `json:"uomTitleCA"`
	UomValueCA *string `json:"uomValueCA"`

	SavingsUS *string `json:"savingsUS"`
	SavingsCA *string `json:"savingsCA"`
	NoSavings bool    `json:"noSavings"`

	IsPdpRequested bool    `json:"isPdpRequested"`
	PdpWorkRequest *string `json:"pdpWorkRequest"`

	IncludeTranslations   bool            `json:"includeTranslations"`
	RequestedCulturesJSON json.RawMessage `json:"requestedCulturesJson,omitempty"`

	Recommendations []RecommendationInput `json:"recommendations"`
	Accessories     []AccessoryInput      `json:"accessories"`
	Cultures        []CultureInput        `json:"cultures"`
}

func (p ProductInput) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Sku, validation.Required, validation.Length(1, 64)),
		validation.Field(&p.ProductName, validation.Required, validation.Length(1, 255)),
		validation.Field(&p.Recommendations),
		validation.Field(&p.Accessories),
		validation.Field(&p.Cultures),
	)
}

// CreateSubmissionRequest is the body of POST /api/submissions
type CreateSubmissionRequest struct {
	RequestID *int64  `json:"requestId" jsonschema:"minimum=1"`
	Requester *string `json:"requester"`
	Note      *string `json:"note"`
	// RequestedCultures holds preset names (US, CAN, EU) or explicit culture codes
	RequestedCultures []string       `json:"requestedCultures"`
	Products          []ProductInput `json:"products" jsonschema:"required,minItems=1"`
}

func (r CreateSubmissionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RequestID, validation.Min(int64(1))),
		validation.Field(&r.Products,
			validation.Required.Error("at least one product is required"),
			validation.By(uniqueSkus),
		),
	)
}

// uniqueSkus rejects a product list that names the same trimmed SKU twice.
// Each SKU of a submission has exactly one current revision.
func uniqueSkus(value interface{}) error {
	products, _ := value.([]ProductInput)
	seen := make(map[string]bool, len(products))
	for _, p := range products {
		sku := strings.TrimSpace(p.Sku)
		if sku == "" {
			continue
		}
		if seen[sku] {
			return validation.NewError("validation_duplicate_sku", fmt.Sprintf("duplicate sku %q", sku))
		}
		seen[sku] = true
	}
	return nil
}

// ToNewSubmission expands culture presets and converts every product into its
// first revision. Gates are enforced by the store.
func (r CreateSubmissionRequest) ToNewSubmission() database.NewSubmission {
	expanded := cultures.Expand(r.RequestedCultures)

	sub := database.NewSubmission{
		RequestID: r.RequestID,
		Requester: clean(r.Requester),
		Note:      clean(r.Note),
		Products:  make([]database.NewProduct, 0, len(r.Products)),
	}
	for _, p := range r.Products {
		sub.Products = append(sub.Products, p.toNewProduct(expanded))
	}
	return sub
}

func (p ProductInput) toNewProduct(presetCodes []string) database.NewProduct {
	out := database.NewProduct{
		Sku: strings.TrimSpace(p.Sku),
		ProductFields: database.ProductFields{
			ProductName:           strings.TrimSpace(p.ProductName),
			ShortDescription:      clean(p.ShortDescription),
			LongDescription:       clean(p.LongDescription),
			Stamp:                 clean(p.Stamp),
			OffSaleMessage:        clean(p.OffSaleMessage),
			OnSaleDate:            date(p.OnSaleDate),
			OffSaleDate:           date(p.OffSaleDate),
			NoEndDate:             p.NoEndDate,
			UomTitleUS:            clean(p.UomTitleUS),
			UomValueUS:            clean(p.UomValueUS),
			UomTitleCA:            clean(p.UomTitleCA),
			UomValueCA:            clean(p.UomValueCA),
			SavingsUS:             clean(p.SavingsUS),
			SavingsCA:             clean(p.SavingsCA),
			NoSavings:             p.NoSavings,
			IsPdpRequested:        p.IsPdpRequested,
			PdpWorkRequest:        clean(p.PdpWorkRequest),
			IncludeTranslations:   p.IncludeTranslations,
			RequestedCulturesJSON: requestedCulturesJSON(p.RequestedCulturesJSON),
		},
		Accessories:     accessories(p.Accessories),
		Recommendations: recommendations(p.Recommendations),
		Cultures:        mergeCultures(presetCodes, p.Cultures),
	}
	return out
}

// mergeCultures returns one row per preset code plus one per explicit code
// not already covered. Translations are taken from the explicit input with
// the same code, matched case-insensitively.
func mergeCultures(presetCodes []string, input []CultureInput) []database.Culture {
	explicit := make([]string, 0, len(input))
	for _, c := range input {
		explicit = append(explicit, c.CultureCode)
	}
	codes := cultures.Expand(append(append([]string{}, presetCodes...), explicit...))

	out := make([]database.Culture, 0, len(codes))
	for _, code := range codes {
		row := database.Culture{CultureCode: code}
		for _, c := range input {
			if strings.EqualFold(strings.TrimSpace(c.CultureCode), code) {
				row.TranslatedName = clean(c.TranslatedName)
				row.TranslatedShort = clean(c.TranslatedShort)
				row.TranslatedLong = clean(c.TranslatedLong)
				break
			}
		}
		out = append(out, row)
	}
	return out
}

// CreateRevisionRequest is the body of POST .../revisions. Omitted fields keep
// their current value. An empty string clears a text field. A list, even an
// empty one, replaces the current list.
type CreateRevisionRequest struct {
	ProductName      *string `json:"productName"`
	ShortDescription *string `json:"shortDescription"`
	LongDescription  *string `json:"longDescription"`
	Stamp            *string `json:"stamp"`
	OffSaleMessage   *string `json:"offSaleMessage"`

	OnSaleDate  *string `json:"onSaleDate"`
	OffSaleDate *string `json:"offSaleDate"`
	NoEndDate   *bool   `json:"noEndDate"`

	UomTitleUS *string `json:"uomTitleUS"`
	UomValueUS *string `json:"uomValueUS"`
	UomTitleCA *string `json:"uomTitleCA"`
	UomValueCA *string `json:"uomValueCA"`

	SavingsUS *string `json:"savingsUS"`
	SavingsCA *string `json:"savingsCA"`
	NoSavings *bool   `json:"noSavings"`

	IsPdpRequested *bool   `json:"isPdpRequested"`
	PdpWorkRequest *string `json:"pdpWorkRequest"`

	IncludeTranslations   *bool           `json:"includeTranslations"`
	RequestedCulturesJSON json.RawMessage `json:"requestedCulturesJson,omitempty"`

	Accessories     *[]AccessoryInput      `json:"accessories"`
	Recommendations *[]RecommendationInput `json:"recommendations"`
	Cultures        *[]CultureInput        `json:"cultures"`
}

func (r CreateRevisionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProductName, validation.Length(0, 255)),
		validation.Field(&r.Accessories),
		validation.Field(&r.Recommendations),
		validation.Field(&r.Cultures),
	)
}

// ToPatch converts the body into a revision patch
func (r CreateRevisionRequest) ToPatch() database.RevisionPatch {
	patch := database.RevisionPatch{
		ProductName:           r.ProductName,
		ShortDescription:      r.ShortDescription,
		LongDescription:       r.LongDescription,
		Stamp:                 r.Stamp,
		OffSaleMessage:        r.OffSaleMessage,
		OnSaleDate:            patchDate(r.OnSaleDate),
		OffSaleDate:           patchDate(r.OffSaleDate),
		NoEndDate:             r.NoEndDate,
		UomTitleUS:            r.UomTitleUS,
		UomValueUS:            r.UomValueUS,
		UomTitleCA:            r.UomTitleCA,
		UomValueCA:            r.UomValueCA,
		SavingsUS:             r.SavingsUS,
		SavingsCA:             r.SavingsCA,
		NoSavings:             r.NoSavings,
		IsPdpRequested:        r.IsPdpRequested,
		PdpWorkRequest:        r.PdpWorkRequest,
		IncludeTranslations:   r.IncludeTranslations,
		RequestedCulturesJSON: requestedCulturesJSON(r.RequestedCulturesJSON),
	}
	if r.Accessories != nil {
		list := accessories(*r.Accessories)
		patch.Accessories = &list
	}
	if r.Recommendations != nil {
		list := recommendations(*r.Recommendations)
		patch.Recommendations = &list
	}
	if r.Cultures != nil {
		list := make([]database.Culture, 0, len(*r.Cultures))
		for _, c := range *r.Cultures {
			list = append(list, database.Culture{
				CultureCode:     canonicalCulture(c.CultureCode),
				TranslatedName:  clean(c.TranslatedName),
				TranslatedShort: clean(c.TranslatedShort),
				TranslatedLong:  clean(c.TranslatedLong),
			})
		}
		patch.Cultures = &list
	}
	return patch
}

func accessories(in []AccessoryInput) []database.Accessory {
	out := make([]database.Accessory, 0, len(in))
	for _, a := range in {
		out = append(out, database.Accessory{AccessorySku: clean(a.AccessorySku), AccessoryLabel: clean(a.AccessoryLabel)})
	}
	return out
}

func recommendations(in []RecommendationInput) []database.Recommendation {
	out := make([]database.Recommendation, 0, len(in))
	for _, r := range in {
		out = append(out, database.Recommendation{Sku: strings.TrimSpace(r.Sku)})
	}
	return out
}

func canonicalCulture(code string) string {
	code = strings.TrimSpace(code)
	if canonical, ok := cultures.Canonical(code); ok {
		return canonical
	}
	return code
}

// requestedCulturesJSON drops an explicit JSON null so it carries forward
func requestedCulturesJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}

// clean trims s and returns nil when nothing is left
func clean(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func date(s *string) *string {
	if s == nil {
		return nil
	}
	return normalize.Date(*s)
}

// patchDate keeps the three patch states: nil carries forward, blank clears
// and anything else is normalized
func patchDate(s *string) *string {
	if s == nil {
		return nil
	}
	if d := normalize.Date(*s); d != nil {
		return d
	}
	empty := ""
	return &empty
}
