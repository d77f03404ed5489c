package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kosarica/intake-service/internal/mapping"
	"github.com/kosarica/intake-service/internal/parsers/sdt"
	"github.com/kosarica/intake-service/internal/telemetry"
)

// Extraction is the outcome of reading one document
type Extraction struct {
	Draft    *mapping.Draft  `json:"draft"`
	Fields   sdt.RawFieldMap `json:"fields,omitempty"`
	Labels   []sdt.Label     `json:"labels,omitempty"`
	Unmapped []sdt.Label     `json:"unmapped,omitempty"`
	Regions  []sdt.Region    `json:"regions,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Extract reads content and maps its controls to a draft. Nothing is stored.
// The raw field map is returned even when mapping fails.
func (in *Intake) Extract(ctx context.Context, filename string, content []byte) (*Extraction, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "intake.extract")
	defer span.End()
	span.SetAttributes(attribute.String("intake.filename", filename), attribute.Int("intake.bytes", len(content)))

	if err := CheckFilename(filename); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	start := time.Now()
	doc, err := in.reader.Open(ctx, content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "container")
		return nil, err
	}

	res := sdt.ExtractDocument(doc)
	out := &Extraction{
		Fields:   res.Fields,
		Labels:   res.Labels(),
		Unmapped: mapping.Unmapped(res.Fields),
		Regions:  res.Regions,
	}
	if res.Err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("markup ended early: %v", res.Err))
		in.logger.Warn().Err(res.Err).Str("filename", filename).Msg("Malformed markup, keeping controls read so far")
	}
	telemetry.RecordExtraction(time.Since(start), len(res.Fields))
	span.SetAttributes(attribute.Int("intake.fields", len(res.Fields)))

	draft, err := mapping.Map(res.Fields)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return out, err
	}
	out.Draft = draft
	span.SetAttributes(attribute.String("intake.sku", draft.Sku))
	return out, nil
}

// Preview runs extraction and mapping only. The diagnostic fields of the
// result are dropped unless debug is set.
func (in *Intake) Preview(ctx context.Context, filename string, content []byte, debug bool) (*Extraction, error) {
	ext, err := in.Extract(ctx, filename, content)
	if ext != nil && !debug {
		ext.Fields, ext.Labels, ext.Regions = nil, nil, nil
	}
	return ext, err
}
