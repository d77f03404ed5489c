package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/invopop/jsonschema"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kosarica/intake-service/internal/database"
	"github.com/kosarica/intake-service/internal/pipeline"
)

// OpenAPIPath serves the generated API document; the Swagger UI under
// /docs reads it from here
const OpenAPIPath = "/openapi.json"

const (
	contentJSON = "application/json"
	contentXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// apiOperation describes one route of the API document
type apiOperation struct {
	method   string
	path     string
	tag      string
	summary  string
	query    any // struct with form tags
	body     any
	upload   bool
	status   int
	response any
	content  string // non-JSON response media type
}

var apiOperations = []apiOperation{
	{method: http.MethodGet, path: "/health", tag: "health", summary: "Service and database health", status: http.StatusOK, response: HealthResponse{}},

	{method: http.MethodPost, path: "/api/requests", tag: "requests", summary: "Create a request", body: CreateRequestRequest{}, status: http.StatusCreated, response: database.Request{}},
	{method: http.MethodGet, path: "/api/requests", tag: "requests", summary: "List requests", query: ListRequestsQuery{}, status: http.StatusOK, response: ListRequestsResponse{}},
	{method: http.MethodGet, path: "/api/requests/:id", tag: "requests", summary: "Get a request with its submissions", status: http.StatusOK, response: database.Request{}},

	{method: http.MethodPost, path: "/api/submissions", tag: "submissions", summary: "Create a submission from JSON", body: CreateSubmissionRequest{}, status: http.StatusCreated, response: CreateSubmissionResponse{}},
	{method: http.MethodGet, path: "/api/submissions", tag: "submissions", summary: "List submissions", query: ListSubmissionsQuery{}, status: http.StatusOK, response: ListSubmissionsResponse{}},
	{method: http.MethodGet, path: "/api/submissions/search", tag: "submissions", summary: "Search submissions", query: SearchSubmissionsQuery{}, status: http.StatusOK, response: SearchSubmissionsResponse{}},
	{method: http.MethodGet, path: "/api/submissions/:id", tag: "submissions", summary: "Get a submission", status: http.StatusOK, response: database.Submission{}},
	{method: http.MethodGet, path: "/api/submissions/:id/export.xlsx", tag: "submissions", summary: "Export current revisions as a workbook", status: http.StatusOK, content: contentXLSX},
	{method: http.MethodGet, path: "/api/submissions/:id/source", tag: "submissions", summary: "Download the archived source document", status: http.StatusOK, content: pipeline.DocumentContentType},

	{method: http.MethodGet, path: "/api/submissions/:id/products/:productId", tag: "products", summary: "Get one product revision", status: http.StatusOK, response: database.ProductRevision{}},
	{method: http.MethodGet, path: "/api/submissions/:id/products/:productId/revisions", tag: "products", summary: "List every version of a product", status: http.StatusOK, response: ListRevisionsResponse{}},
	{method: http.MethodPost, path: "/api/submissions/:id/products/:productId/revisions", tag: "products", summary: "Create a new revision", body: CreateRevisionRequest{}, status: http.StatusCreated, response: database.ProductRevision{}},
	{method: http.MethodGet, path: "/api/products", tag: "products", summary: "List product revisions", query: ListProductsQuery{}, status: http.StatusOK, response: ListProductsResponse{}},

	{method: http.MethodPost, path: "/api/import/word", tag: "import", summary: "Import a .docx document as a submission", upload: true, status: http.StatusCreated, response: database.Submission{}},
	{method: http.MethodPost, path: "/api/import/word/preview", tag: "import", summary: "Extract a .docx document without storing it", upload: true, status: http.StatusOK, response: pipeline.Extraction{}},
}

var pathParamRe = regexp.MustCompile(`:(\w+)`)

var (
	openAPIOnce sync.Once
	openAPIDoc  []byte
	openAPIErr  error
)

// OpenAPIDocument renders the API document. Schemas are reflected from the
// request and response types.
func OpenAPIDocument() ([]byte, error) {
	openAPIOnce.Do(func() {
		openAPIDoc, openAPIErr = buildOpenAPI()
	})
	return openAPIDoc, openAPIErr
}

func buildOpenAPI() ([]byte, error) {
	reflector := &jsonschema.Reflector{}
	schemas := make(map[string]any)
	ref := func(v any) map[string]any {
		s := reflector.Reflect(v)
		for name, def := range s.Definitions {
			schemas[name] = def
		}
		return map[string]any{"$ref": s.Ref}
	}
	errorRef := ref(ErrorResponse{})

	paths := make(map[string]map[string]any)
	for _, op := range apiOperations {
		path := pathParamRe.ReplaceAllString(op.path, "{$1}")
		if paths[path] == nil {
			paths[path] = make(map[string]any)
		}

		params := make([]map[string]any, 0)
		for _, m := range pathParamRe.FindAllStringSubmatch(op.path, -1) {
			params = append(params, map[string]any{
				"name": m[1], "in": "path", "required": true,
				"schema": map[string]any{"type": "integer", "minimum": 1},
			})
		}
		if op.query != nil {
			params = append(params, queryParams(op.query)...)
		}

		success := map[string]any{"description": http.StatusText(op.status)}
		switch {
		case op.content != "":
			success["content"] = map[string]any{op.content: map[string]any{"schema": map[string]any{"type": "string", "format": "binary"}}}
		case op.response != nil:
			success["content"] = map[string]any{contentJSON: map[string]any{"schema": ref(op.response)}}
		}

		operation := map[string]any{
			"tags":       []string{op.tag},
			"summary":    op.summary,
			"parameters": params,
			"responses": map[string]any{
				statusKey(op.status): success,
				"default": map[string]any{
					"description": "Error",
					"content":     map[string]any{contentJSON: map[string]any{"schema": errorRef}},
				},
			},
		}
		switch {
		case op.body != nil:
			operation["requestBody"] = map[string]any{
				"required": true,
				"content":  map[string]any{contentJSON: map[string]any{"schema": ref(op.body)}},
			}
		case op.upload:
			operation["requestBody"] = map[string]any{
				"required": true,
				"content":  map[string]any{"multipart/form-data": map[string]any{"schema": uploadSchema()}},
			}
		}
		paths[path][strings.ToLower(op.method)] = operation
	}

	doc := map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":       "Intake Service API",
			"version":     "1.0",
			"description": "Product data intake: document import, revisioned product storage and export.",
		},
		"paths":      paths,
		"components": map[string]any{"schemas": schemas},
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return bytes.ReplaceAll(raw, []byte("#/$defs/"), []byte("#/components/schemas/")), nil
}

// queryParams lists the form-tagged fields of a query struct
func queryParams(v any) []map[string]any {
	t := reflect.TypeOf(v)
	params := make([]map[string]any, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Tag.Get("form")
		if name == "" {
			continue
		}
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		typ := "string"
		switch ft.Kind() {
		case reflect.Int, reflect.Int64:
			typ = "integer"
		case reflect.Bool:
			typ = "boolean"
		}
		params = append(params, map[string]any{"name": name, "in": "query", "schema": map[string]any{"type": typ}})
	}
	return params
}

func uploadSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"file"},
		"properties": map[string]any{
			"file":      map[string]any{"type": "string", "format": "binary"},
			"requester": map[string]any{"type": "string"},
			"note":      map[string]any{"type": "string"},
			"requestId": map[string]any{"type": "integer", "minimum": 1},
		},
	}
}

func statusKey(status int) string {
	return strconv.Itoa(status)
}

// OpenAPI handles GET /openapi.json
func (h *Handler) OpenAPI(c *gin.Context) {
	doc, err := OpenAPIDocument()
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, contentJSON, doc)
}

// swaggerUI serves the Swagger UI pointed at the generated document
func swaggerUI() gin.HandlerFunc {
	return ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL(OpenAPIPath))
}
