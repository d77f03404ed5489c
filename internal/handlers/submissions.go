package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/kosarica/intake-service/internal/database"
	"github.com/kosarica/intake-service/internal/export"
	"github.com/kosarica/intake-service/internal/storage"
)

// ListSubmissionsQuery represents query parameters for listing submissions
type ListSubmissionsQuery struct {
	Sku     string `form:"sku" json:"sku" jsonschema:"description=Exact SKU; also limits the products returned"`
	Culture string `form:"culture" json:"culture" jsonschema:"description=Exact culture code; limits the culture rows returned"`
	Q       string `form:"q" json:"q"`
	Limit   int    `form:"limit" json:"limit" jsonschema:"minimum=0,maximum=200"`
}

func (q ListSubmissionsQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Limit, validation.Min(0), validation.Max(200)),
	)
}

// SearchSubmissionsQuery represents query parameters for the submission search
type SearchSubmissionsQuery struct {
	Q     string `form:"q" json:"q"`
	Limit int    `form:"limit" json:"limit" jsonschema:"minimum=0,maximum=100"`
}

func (q SearchSubmissionsQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Limit, validation.Min(0), validation.Max(100)),
	)
}

// CreateSubmissionResponse is the response of POST /api/submissions
type CreateSubmissionResponse struct {
	ID        int64                      `json:"id" jsonschema:"required"`
	RequestID *int64                     `json:"requestId"`
	Products  []database.ProductRevision `json:"products" jsonschema:"required"`
}

// ListSubmissionsResponse is the response of GET /api/submissions
type ListSubmissionsResponse struct {
	Submissions []database.Submission `json:"submissions" jsonschema:"required"`
}

// SearchSubmissionsResponse is the response of GET /api/submissions/search
type SearchSubmissionsResponse struct {
	Results []database.SubmissionSummary `json:"results" jsonschema:"required"`
}

// CreateSubmission handles POST /api/submissions
func (h *Handler) CreateSubmission(c *gin.Context) {
	var req CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("invalid JSON body: "+err.Error()))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, err)
		return
	}

	created, err := h.store.CreateSubmission(c.Request.Context(), req.ToNewSubmission())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, CreateSubmissionResponse{
		ID:        created.ID,
		RequestID: created.RequestID,
		Products:  created.Products,
	})
}

// ListSubmissions handles GET /api/submissions
func (h *Handler) ListSubmissions(c *gin.Context) {
	var query ListSubmissionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		writeError(c, badRequest(err.Error()))
		return
	}
	if err := query.Validate(); err != nil {
		writeError(c, err)
		return
	}

	subs, err := h.store.ListSubmissions(c.Request.Context(), database.SubmissionFilter{
		Sku:     query.Sku,
		Culture: query.Culture,
		Query:   query.Q,
		Limit:   query.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListSubmissionsResponse{Submissions: subs})
}

// SearchSubmissions handles GET /api/submissions/search
func (h *Handler) SearchSubmissions(c *gin.Context) {
	var query SearchSubmissionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		writeError(c, badRequest(err.Error()))
		return
	}
	if err := query.Validate(); err != nil {
		writeError(c, err)
		return
	}

	results, err := h.store.SearchSubmissions(c.Request.Context(), query.Q, query.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SearchSubmissionsResponse{Results: results})
}

// GetSubmission handles GET /api/submissions/:id
func (h *Handler) GetSubmission(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}

	sub, err := h.store.GetSubmission(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// ExportSubmission handles GET /api/submissions/:id/export.xlsx
func (h *Handler) ExportSubmission(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}

	sub, err := h.store.GetSubmission(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	f, err := export.Workbook(sub)
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(sub)))
	c.Data(http.StatusOK, contentXLSX, buf.Bytes())
}

// DownloadSource handles GET /api/submissions/:id/source and returns the
// archived upload the submission was created from
func (h *Handler) DownloadSource(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}

	sub, err := h.store.GetSubmission(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if sub.SourceKey == nil || h.archive == nil {
		writeError(c, fmt.Errorf("submission %d has no archived source: %w", id, storage.ErrNotFound))
		return
	}

	content, err := h.archive.Get(c.Request.Context(), *sub.SourceKey)
	if err != nil {
		writeError(c, err)
		return
	}

	contentType := "application/octet-stream"
	if info, err := h.archive.GetInfo(c.Request.Context(), *sub.SourceKey); err == nil && info.ContentType != "" {
		contentType = info.ContentType
	}
	filename := fmt.Sprintf("submission-%d.docx", id)
	if sub.SourceFilename != nil {
		filename = *sub.SourceFilename
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, content)
}
