package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/kosarica/intake-service/internal/database"
)

// ListRequestsQuery represents query parameters for listing requests
type ListRequestsQuery struct {
	Q     string `form:"q" json:"q" jsonschema:"description=Matches requester name or email, story, notes or tracking id"`
	Limit int    `form:"limit" json:"limit" jsonschema:"minimum=0,maximum=200"`
}

func (q ListRequestsQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Limit, validation.Min(0), validation.Max(200)),
	)
}

// ListRequestsResponse is the response of GET /api/requests
type ListRequestsResponse struct {
	Requests []database.Request `json:"requests" jsonschema:"required"`
}

// CreateRequest handles POST /api/requests
func (h *Handler) CreateRequest(c *gin.Context) {
	var req CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("invalid JSON body: "+err.Error()))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, err)
		return
	}

	created, err := h.store.CreateRequest(c.Request.Context(), req.ToNewRequest())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListRequests handles GET /api/requests
func (h *Handler) ListRequests(c *gin.Context) {
	var query ListRequestsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		writeError(c, badRequest(err.Error()))
		return
	}
	if err := query.Validate(); err != nil {
		writeError(c, err)
		return
	}

	requests, err := h.store.ListRequests(c.Request.Context(), query.Q, query.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListRequestsResponse{Requests: requests})
}

// GetRequest handles GET /api/requests/:id
func (h *Handler) GetRequest(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}

	request, err := h.store.GetRequest(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}
