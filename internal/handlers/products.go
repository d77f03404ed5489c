package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kosarica/intake-service/internal/database"
	"github.com/kosarica/intake-service/internal/telemetry"
)

// ListProductsQuery represents query parameters for listing products
type ListProductsQuery struct {
	Q       string `form:"q" json:"q" jsonschema:"description=Matches SKU or product name"`
	Sku     string `form:"sku" json:"sku"`
	Culture string `form:"culture" json:"culture"`
	Current *bool  `form:"current" json:"current" jsonschema:"description=Only current revisions; defaults to true"`
	Limit   int    `form:"limit" json:"limit" jsonschema:"minimum=0,maximum=500"`
}

func (q ListProductsQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Limit, validation.Min(0), validation.Max(500)),
	)
}

// ListProductsResponse is the response of GET /api/products
type ListProductsResponse struct {
	Products []database.ProductRevision `json:"products" jsonschema:"required"`
}

// ListRevisionsResponse is the response of GET .../revisions
type ListRevisionsResponse struct {
	Revisions []database.ProductRevision `json:"revisions" jsonschema:"required"`
}

// ListProducts handles GET /api/products
func (h *Handler) ListProducts(c *gin.Context) {
	var query ListProductsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		writeError(c, badRequest(err.Error()))
		return
	}
	if err := query.Validate(); err != nil {
		writeError(c, err)
		return
	}

	currentOnly := true
	if query.Current != nil {
		currentOnly = *query.Current
	}

	products, err := h.store.ListProducts(c.Request.Context(), database.ProductFilter{
		Sku:         query.Sku,
		Culture:     query.Culture,
		Query:       query.Q,
		CurrentOnly: currentOnly,
		Limit:       query.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListProductsResponse{Products: products})
}

// GetProduct handles GET /api/submissions/:id/products/:productId
func (h *Handler) GetProduct(c *gin.Context) {
	submissionID, productID, ok := productParams(c)
	if !ok {
		return
	}

	product, err := h.store.GetProduct(c.Request.Context(), submissionID, productID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// CreateRevision handles POST /api/submissions/:id/products/:productId/revisions
func (h *Handler) CreateRevision(c *gin.Context) {
	submissionID, productID, ok := productParams(c)
	if !ok {
		return
	}

	// An empty body is a patch that changes nothing
	var req CreateRevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, badRequest("invalid JSON body: "+err.Error()))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, err)
		return
	}

	ctx, span := telemetry.Tracer().Start(c.Request.Context(), "intake.revision")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("intake.submission_id", submissionID),
		attribute.Int64("intake.product_id", productID),
	)

	revision, err := h.store.CreateRevision(ctx, submissionID, productID, req.ToPatch())
	switch {
	case err == nil:
		telemetry.RecordRevision(telemetry.OutcomeSuccess)
	case errors.Is(err, database.ErrNotFound):
		telemetry.RecordRevision(telemetry.OutcomeNotFound)
	default:
		telemetry.RecordRevision(telemetry.OutcomeError)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(c, err)
		return
	}
	span.SetAttributes(attribute.Int("intake.version", revision.Version))
	c.JSON(http.StatusCreated, revision)
}

// ListRevisions handles GET /api/submissions/:id/products/:productId/revisions
func (h *Handler) ListRevisions(c *gin.Context) {
	submissionID, productID, ok := productParams(c)
	if !ok {
		return
	}

	revisions, err := h.store.ListRevisions(c.Request.Context(), submissionID, productID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListRevisionsResponse{Revisions: revisions})
}

func productParams(c *gin.Context) (int64, int64, bool) {
	submissionID, err := idParam(c, "id")
	if err != nil {
		writeError(c, err)
		return 0, 0, false
	}
	productID, err := idParam(c, "productId")
	if err != nil {
		writeError(c, err)
		return 0, 0, false
	}
	return submissionID, productID, true
}
