// Package handlers exposes the intake service over HTTP
package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/intake-service/internal/database"
	"github.com/kosarica/intake-service/internal/pipeline"
	"github.com/kosarica/intake-service/internal/storage"
)

// Store is the persistence used by the HTTP layer
type Store interface {
	CreateRequest(ctx context.Context, in database.NewRequest) (*database.Request, error)
	GetRequest(ctx context.Context, id int64) (*database.Request, error)
	ListRequests(ctx context.Context, q string, limit int) ([]database.Request, error)

	CreateSubmission(ctx context.Context, in database.NewSubmission) (*database.Submission, error)
	GetSubmission(ctx context.Context, id int64) (*database.Submission, error)
	ListSubmissions(ctx context.Context, filter database.SubmissionFilter) ([]database.Submission, error)
	SearchSubmissions(ctx context.Context, q string, limit int) ([]database.SubmissionSummary, error)

	ListProducts(ctx context.Context, filter database.ProductFilter) ([]database.ProductRevision, error)
	GetProduct(ctx context.Context, submissionID, productID int64) (*database.ProductRevision, error)

	CreateRevision(ctx context.Context, submissionID, productID int64, patch database.RevisionPatch) (*database.ProductRevision, error)
	ListRevisions(ctx context.Context, submissionID, productID int64) ([]database.ProductRevision, error)
}

// Importer runs document uploads
type Importer interface {
	Upload(ctx context.Context, input pipeline.UploadInput) (*pipeline.UploadResult, error)
	Preview(ctx context.Context, filename string, content []byte, debug bool) (*pipeline.Extraction, error)
}

// Pinger reports database reachability
type Pinger func(ctx context.Context) error

// Options configures a Handler
type Options struct {
	// MaxUploadBytes caps the size of an uploaded document
	MaxUploadBytes int64
	// Archive serves the original uploads; may be nil
	Archive storage.Storage
	// Ping backs the health endpoint; may be nil
	Ping Pinger
}

// Handler serves the intake API
type Handler struct {
	store    Store
	importer Importer
	archive  storage.Storage
	ping     Pinger
	maxBytes int64
}

// New creates a Handler
func New(store Store, importer Importer, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	return &Handler{
		store:    store,
		importer: importer,
		archive:  opts.Archive,
		ping:     opts.Ping,
		maxBytes: opts.MaxUploadBytes,
	}
}

// Register mounts the routes on r. uploadMiddleware runs in front of the
// document upload routes only.
func (h *Handler) Register(r gin.IRouter, uploadMiddleware ...gin.HandlerFunc) {
	r.GET("/health", h.HealthCheck)
	r.GET(OpenAPIPath, h.OpenAPI)
	r.GET("/docs/*any", swaggerUI())

	api := r.Group("/api")
	{
		requests := api.Group("/requests")
		{
			requests.POST("", h.CreateRequest)
			requests.GET("", h.ListRequests)
			requests.GET("/:id", h.GetRequest)
		}

		submissions := api.Group("/submissions")
		{
			submissions.POST("", h.CreateSubmission)
			submissions.GET("", h.ListSubmissions)
			submissions.GET("/search", h.SearchSubmissions)
			submissions.GET("/:id", h.GetSubmission)
			submissions.GET("/:id/export.xlsx", h.ExportSubmission)
			submissions.GET("/:id/source", h.DownloadSource)
			submissions.GET("/:id/products/:productId", h.GetProduct)
			submissions.GET("/:id/products/:productId/revisions", h.ListRevisions)
			submissions.POST("/:id/products/:productId/revisions", h.CreateRevision)
		}

		api.GET("/products", h.ListProducts)

		imports := api.Group("/import/word")
		imports.Use(uploadMiddleware...)
		{
			imports.POST("", h.ImportWord)
			imports.POST("/preview", h.PreviewWord)
		}
	}
}

// idParam parses a positive integer path parameter
func idParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid " + name)
	}
	return id, nil
}
