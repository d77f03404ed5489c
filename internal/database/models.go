package database

import (
	"encoding/json"
	"time"
)

// Request is the top-level work intake unit
type Request struct {
	ID             int64        `json:"id"`
	RequesterName  *string      `json:"requesterName"`
	RequesterEmail *string      `json:"requesterEmail"`
	DueDate        *time.Time   `json:"dueDate"`
	AdoID          *string      `json:"adoId"` // external tracking id
	UserStory      *string      `json:"userStory"`
	Notes          *string      `json:"notes"`
	CreatedAt      time.Time    `json:"createdAt"`
	Submissions    []Submission `json:"submissions,omitempty"`
}

// Submission groups product revisions created together
type Submission struct {
	ID             int64             `json:"id"`
	RequestID      *int64            `json:"requestId"`
	Requester      *string           `json:"requester"`
	Note           *string           `json:"note"`
	SourceFilename *string           `json:"sourceFilename,omitempty"` // uploaded document name
	SourceKey      *string           `json:"sourceKey,omitempty"`      // storage key of the archived upload
	SourceHash     *string           `json:"sourceHash,omitempty"`     // SHA-256 of the upload
	CreatedAt      time.Time         `json:"createdAt"`
	Products       []ProductRevision `json:"products"`
}

// ProductFields are the revisioned attributes of a product
type ProductFields struct {
	ProductName      string  `json:"productName"`
	ShortDescription *string `json:"shortDescription"`
	LongDescription  *string `json:"longDescription"`
	Stamp            *string `json:"stamp"`
	OffSaleMessage   *string `json:"offSaleMessage"`

	OnSaleDate  *string `json:"onSaleDate"`  // ISO-8601 or source text
	OffSaleDate *string `json:"offSaleDate"` // nil whenever NoEndDate
	NoEndDate   bool    `json:"noEndDate"`

	UomTitleUS *string `json:"uomTitleUS"`
	UomValueUS *string `json:"uomValueUS"`
	UomTitleCA *string `json:"uomTitleCA"`
	UomValueCA *string `json:"uomValueCA"`

	SavingsUS *string `json:"savingsUS"` // nil whenever NoSavings
	SavingsCA *string `json:"savingsCA"`
	NoSavings bool    `json:"noSavings"`

	IsPdpRequested bool    `json:"isPdpRequested"`
	PdpWorkRequest *string `json:"pdpWorkRequest"` // nil unless IsPdpRequested

	IncludeTranslations   bool            `json:"includeTranslations"`
	RequestedCulturesJSON json.RawMessage `json:"requestedCulturesJson,omitempty"`
}

// ProductRevision is one immutable version of a product within a submission
type ProductRevision struct {
	ID           int64  `json:"id"`
	SubmissionID int64  `json:"submissionId"`
	Sku          string `json:"sku"`
	Version      int    `json:"version"`
	IsCurrent    bool   `json:"isCurrent"`
	ProductFields
	CreatedAt       time.Time        `json:"createdAt"`
	Accessories     []Accessory      `json:"accessories"`
	Recommendations []Recommendation `json:"recommendations"`
	Cultures        []Culture        `json:"cultures"`
}

// Accessory references another product by SKU or by free-text label
type Accessory struct {
	ID             int64   `json:"id,omitempty"`
	ProductID      int64   `json:"productId,omitempty"`
	AccessorySku   *string `json:"accessorySku"`
	AccessoryLabel *string `json:"accessoryLabel"`
}

// Recommendation references a recommended product by SKU
type Recommendation struct {
	ID        int64  `json:"id,omitempty"`
	ProductID int64  `json:"productId,omitempty"`
	Sku       string `json:"sku"`
}

// Culture holds translated texts for one locale
type Culture struct {
	ID              int64   `json:"id,omitempty"`
	ProductID       int64   `json:"productId,omitempty"`
	CultureCode     string  `json:"cultureCode"`
	TranslatedName  *string `json:"translatedName"`
	TranslatedShort *string `json:"translatedShort"`
	TranslatedLong  *string `json:"translatedLong"`
}

// NewRequest is the input for CreateRequest
type NewRequest struct {
	RequesterName  *string
	RequesterEmail *string
	DueDate        *time.Time
	AdoID          *string
	UserStory      *string
	Notes          *string
}

// NewSubmission is the input for CreateSubmission
type NewSubmission struct {
	RequestID      *int64
	Requester      *string
	Note           *string
	SourceFilename *string
	SourceKey      *string
	SourceHash     *string
	Products       []NewProduct
}

// NewProduct becomes version 1 of a product when its submission is created
type NewProduct struct {
	Sku string
	ProductFields
	Accessories     []Accessory
	Recommendations []Recommendation
	Cultures        []Culture
}

// RevisionPatch holds the fields a new revision changes. A nil field is
// carried forward from the base revision. A non-nil collection, even an empty
// one, replaces the base collection. A non-nil blank string clears the value.
type RevisionPatch struct {
	ProductName      *string
	ShortDescription *string
	LongDescription  *string
	Stamp            *string
	OffSaleMessage   *string

	OnSaleDate  *string
	OffSaleDate *string
	NoEndDate   *bool

	UomTitleUS *string
	UomValueUS *string
	UomTitleCA *string
	UomValueCA *string

	SavingsUS *string
	SavingsCA *string
	NoSavings *bool

	IsPdpRequested *bool
	PdpWorkRequest *string

	IncludeTranslations   *bool
	RequestedCulturesJSON json.RawMessage

	Accessories     *[]Accessory
	Recommendations *[]Recommendation
	Cultures        *[]Culture
}

// SubmissionFilter narrows ListSubmissions
type SubmissionFilter struct {
	Sku     string // exact SKU; also limits the products returned
	Culture string // exact culture code; limits the culture rows returned
	Query   string // case-insensitive match on requester, note, SKU or product name
	Limit   int
}

// ProductFilter narrows ListProducts
type ProductFilter struct {
	Sku         string
	Culture     string
	Query       string
	CurrentOnly bool
	Limit       int
}

// SubmissionSummary is a search hit with a preview of its products
type SubmissionSummary struct {
	ID        int64            `json:"id"`
	RequestID *int64           `json:"requestId"`
	Requester *string          `json:"requester"`
	Note      *string          `json:"note"`
	CreatedAt time.Time        `json:"createdAt"`
	Products  []ProductPreview `json:"products"`
}

// ProductPreview is the short form of a product used in search results
type ProductPreview struct {
	ID          int64  `json:"id"`
	Sku         string `json:"sku"`
	ProductName string `json:"productName"`
}
