package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kosarica/intake-service/internal/database"
	"github.com/kosarica/intake-service/internal/ingestion/docx"
	"github.com/kosarica/intake-service/internal/mapping"
	"github.com/kosarica/intake-service/internal/parsers/sdt"
	"github.com/kosarica/intake-service/internal/storage"
	"github.com/kosarica/intake-service/internal/telemetry"
)

// UploadInput is one uploaded document plus the submission metadata sent with it
type UploadInput struct {
	Filename  string
	Content   []byte
	Requester *string
	Note      *string
	RequestID *int64
	// Debug attaches the extraction diagnostics to the result
	Debug bool
}

// UploadResult is the stored submission created from an upload
type UploadResult struct {
	Submission *database.Submission `json:"submission"`
	Extraction *Extraction          `json:"extraction,omitempty"`
}

// Upload extracts a product from the document, archives the original bytes
// and stores the product as version 1 of a new submission. Extraction errors
// abort before anything is written.
func (in *Intake) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "intake.upload")
	defer span.End()

	result, err := in.upload(ctx, input)
	telemetry.RecordUpload(uploadOutcome(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int64("intake.submission_id", result.Submission.ID))
	return result, nil
}

func (in *Intake) upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	ext, err := in.Extract(ctx, input.Filename, input.Content)
	if err != nil {
		return nil, err
	}

	filename := filepath.Base(strings.TrimSpace(input.Filename))
	checksum := storage.ComputeChecksum(input.Content)
	sub := database.NewSubmission{
		RequestID:      input.RequestID,
		Requester:      input.Requester,
		Note:           input.Note,
		SourceFilename: &filename,
		SourceHash:     &checksum,
		Products:       []database.NewProduct{DraftToProduct(ext.Draft)},
	}

	var key string
	if in.storage != nil {
		key = storage.BuildUploadKey(in.now(), in.newID(), DocumentExt)
		if err := in.storage.Put(ctx, key, input.Content, &storage.Metadata{
			ContentType:  DocumentContentType,
			OriginalName: filename,
			UploadedAt:   in.now().UTC(),
			Custom:       map[string]string{"sku": ext.Draft.Sku, "sha256": checksum},
		}); err != nil {
			return nil, fmt.Errorf("failed to archive upload: %w", err)
		}
		sub.SourceKey = &key
	}

	created, err := in.store.CreateSubmission(ctx, sub)
	if err != nil {
		if key != "" {
			if delErr := in.storage.Delete(context.WithoutCancel(ctx), key); delErr != nil {
				in.logger.Warn().Err(delErr).Str("key", key).Msg("Failed to remove archived upload")
			}
		}
		return nil, err
	}

	in.logger.Info().
		Int64("submission_id", created.ID).
		Str("sku", ext.Draft.Sku).
		Str("filename", filename).
		Int("fields", len(ext.Fields)).
		Strs("unmapped", labelStrings(ext.Unmapped)).
		Msg("Document imported")

	result := &UploadResult{Submission: created}
	if input.Debug {
		result.Extraction = ext
	}
	return result, nil
}

// DraftToProduct converts a mapped draft into the first revision of a product.
// Uploads leave every gate flag off, includeTranslations included, so the
// culture rows synthesized by the mapper are only shown by a preview.
func DraftToProduct(d *mapping.Draft) database.NewProduct {
	p := database.NewProduct{
		Sku: d.Sku,
		ProductFields: database.ProductFields{
			ProductName:      d.ProductName,
			ShortDescription: d.ShortDescription,
			LongDescription:  d.LongDescription,
			Stamp:            d.Stamp,
			OffSaleMessage:   d.OffSaleMessage,
			OnSaleDate:       d.OnSaleDate,
			OffSaleDate:      d.OffSaleDate,
			UomTitleUS:       d.UomTitleUS,
			UomValueUS:       d.UomValueUS,
			UomTitleCA:       d.UomTitleCA,
			UomValueCA:       d.UomValueCA,
			SavingsUS:        d.SavingsUS,
			SavingsCA:        d.SavingsCA,
		},
		Accessories:     make([]database.Accessory, 0, len(d.Accessories)),
		Recommendations: make([]database.Recommendation, 0, len(d.Recommendations)),
		Cultures:        []database.Culture{},
	}
	for _, a := range d.Accessories {
		p.Accessories = append(p.Accessories, database.Accessory{AccessorySku: a.Sku, AccessoryLabel: a.Label})
	}
	for _, sku := range d.Recommendations {
		p.Recommendations = append(p.Recommendations, database.Recommendation{Sku: sku})
	}
	return p
}

func uploadOutcome(err error) string {
	switch {
	case err == nil:
		return telemetry.OutcomeSuccess
	case errors.Is(err, ErrUnsupportedFileType),
		errors.Is(err, docx.ErrInvalidContainer),
		errors.Is(err, mapping.ErrMissingRequiredField):
		return telemetry.OutcomeRejected
	case errors.Is(err, database.ErrNotFound):
		return telemetry.OutcomeNotFound
	default:
		return telemetry.OutcomeError
	}
}

func labelStrings(labels []sdt.Label) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = string(l)
	}
	return out
}
