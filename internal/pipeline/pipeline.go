// Package pipeline turns uploaded documents into stored submissions:
// container read, control extraction, mapping, archiving and persistence.
package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kosarica/intake-service/internal/database"
	"github.com/kosarica/intake-service/internal/ingestion/docx"
	"github.com/kosarica/intake-service/internal/storage"
)

// DocumentExt is the only accepted upload extension
const DocumentExt = ".docx"

// DocumentContentType is the media type recorded for archived uploads
const DocumentContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// ErrUnsupportedFileType is returned for uploads without a .docx name
var ErrUnsupportedFileType = errors.New("unsupported file type")

// SubmissionCreator persists a submission and version 1 of its products
type SubmissionCreator interface {
	CreateSubmission(ctx context.Context, in database.NewSubmission) (*database.Submission, error)
}

// Intake runs the document intake pipeline
type Intake struct {
	reader  *docx.Reader
	store   SubmissionCreator
	storage storage.Storage
	logger  zerolog.Logger

	now   func() time.Time
	newID func() string
}

// New creates an intake pipeline. archive may be nil, in which case uploads
// are not archived.
func New(reader *docx.Reader, store SubmissionCreator, archive storage.Storage, logger zerolog.Logger) *Intake {
	return &Intake{
		reader:  reader,
		store:   store,
		storage: archive,
		logger:  logger.With().Str("component", "intake").Logger(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// CheckFilename rejects names that do not end in .docx (case-insensitive)
func CheckFilename(name string) error {
	if !strings.EqualFold(filepath.Ext(strings.TrimSpace(name)), DocumentExt) {
		return ErrUnsupportedFileType
	}
	return nil
}
