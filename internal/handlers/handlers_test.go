package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/intake-service/internal/database"
	"github.com/kosarica/intake-service/internal/ingestion/docx"
	"github.com/kosarica/intake-service/internal/ingestion/docx/docxtest"
	"github.com/kosarica/intake-service/internal/pipeline"
	"github.com/kosarica/intake-service/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStore keeps submissions in memory and records the last inputs
type fakeStore struct {
	submissions map[int64]*database.Submission
	lastSub     *database.NewSubmission
	lastPatch   *database.RevisionPatch
	lastFilter  database.SubmissionFilter
	revisionErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{submissions: make(map[int64]*database.Submission)}
}

func (f *fakeStore) CreateRequest(ctx context.Context, in database.NewRequest) (*database.Request, error) {
	return &database.Request{ID: 1, RequesterName: in.RequesterName, RequesterEmail: in.RequesterEmail, DueDate: in.DueDate}, nil
}

func (f *fakeStore) GetRequest(ctx context.Context, id int64) (*database.Request, error) {
	if id != 1 {
		return nil, fmt.Errorf("request %d: %w", id, database.ErrNotFound)
	}
	return &database.Request{ID: 1}, nil
}

func (f *fakeStore) ListRequests(ctx context.Context, q string, limit int) ([]database.Request, error) {
	return []database.Request{{ID: 1}}, nil
}

func (f *fakeStore) CreateSubmission(ctx context.Context, in database.NewSubmission) (*database.Submission, error) {
	f.lastSub = &in
	sub := &database.Submission{
		ID:             int64(len(f.submissions) + 1),
		RequestID:      in.RequestID,
		Requester:      in.Requester,
		Note:           in.Note,
		SourceFilename: in.SourceFilename,
		SourceKey:      in.SourceKey,
		SourceHash:     in.SourceHash,
		Products:       []database.ProductRevision{},
	}
	for i, p := range in.Products {
		sub.Products = append(sub.Products, database.ProductRevision{
			ID:              int64(i + 1),
			SubmissionID:    sub.ID,
			Sku:             p.Sku,
			Version:         1,
			IsCurrent:       true,
			ProductFields:   p.ProductFields,
			Accessories:     p.Accessories,
			Recommendations: p.Recommendations,
			Cultures:        p.Cultures,
		})
	}
	f.submissions[sub.ID] = sub
	return sub, nil
}

func (f *fakeStore) GetSubmission(ctx context.Context, id int64) (*database.Submission, error) {
	sub, ok := f.submissions[id]
	if !ok {
		return nil, fmt.Errorf("submission %d: %w", id, database.ErrNotFound)
	}
	return sub, nil
}

func (f *fakeStore) ListSubmissions(ctx context.Context, filter database.SubmissionFilter) ([]database.Submission, error) {
	f.lastFilter = filter
	return []database.Submission{}, nil
}

func (f *fakeStore) SearchSubmissions(ctx context.Context, q string, limit int) ([]database.SubmissionSummary, error) {
	return []database.SubmissionSummary{}, nil
}

func (f *fakeStore) ListProducts(ctx context.Context, filter database.ProductFilter) ([]database.ProductRevision, error) {
	return []database.ProductRevision{}, nil
}

func (f *fakeStore) GetProduct(ctx context.Context, submissionID, productID int64) (*database.ProductRevision, error) {
	return nil, fmt.Errorf("product %d: %w", productID, database.ErrNotFound)
}

func (f *fakeStore) CreateRevision(ctx context.Context, submissionID, productID int64, patch database.RevisionPatch) (*database.ProductRevision, error) {
	f.lastPatch = &patch
	if f.revisionErr != nil {
		return nil, f.revisionErr
	}
	return &database.ProductRevision{ID: 99, SubmissionID: submissionID, Sku: "12345", Version: 2, IsCurrent: true}, nil
}

func (f *fakeStore) ListRevisions(ctx context.Context, submissionID, productID int64) ([]database.ProductRevision, error) {
	return nil, fmt.Errorf("product %d: %w", productID, database.ErrNotFound)
}

type testEnv struct {
	store   *fakeStore
	archive *storage.MemoryStorage
	router  *gin.Engine
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	store := newFakeStore()
	archive := storage.NewMemoryStorage()
	intake := pipeline.New(docx.NewReader(docx.DefaultOptions()), store, archive, zerolog.Nop())

	opts.Archive = archive
	router := gin.New()
	New(store, intake, opts).Register(router)
	return &testEnv{store: store, archive: archive, router: router}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, path, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func widgetDocument() []byte {
	return docxtest.Document(
		docxtest.Control{Alias: "SKU", Text: "12345"},
		docxtest.Control{Alias: "ProductNameUS", Text: "Test Widget"},
	)
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		ping       Pinger
		wantStatus int
		wantDB     string
	}{
		{"Not configured", nil, http.StatusOK, "not configured"},
		{"Connected", func(context.Context) error { return nil }, http.StatusOK, "connected"},
		{"Disconnected", func(context.Context) error { return errors.New("down") }, http.StatusServiceUnavailable, "disconnected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Options{Ping: tt.ping})
			w := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantDB, resp.Database)
		})
	}
}

func TestImportWord(t *testing.T) {
	env := newTestEnv(t, Options{})

	w := env.do(uploadRequest(t, "/api/import/word", "Widget.docx", widgetDocument(),
		map[string]string{"requester": "pat@example.com", "note": " rush "}))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sub database.Submission
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sub))
	require.Len(t, sub.Products, 1)
	assert.Equal(t, "12345", sub.Products[0].Sku)
	assert.Equal(t, "Test Widget", sub.Products[0].ProductName)
	assert.Equal(t, 1, sub.Products[0].Version)
	assert.True(t, sub.Products[0].IsCurrent)
	assert.False(t, sub.Products[0].IncludeTranslations)
	assert.Empty(t, sub.Products[0].Accessories)
	assert.Empty(t, sub.Products[0].Recommendations)
	assert.Empty(t, sub.Products[0].Cultures)
	assert.Equal(t, "rush", *sub.Note)
	assert.Equal(t, "Widget.docx", *sub.SourceFilename)
	assert.Equal(t, 1, env.archive.Len())
}

func TestImportWordErrors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		fields   map[string]string
		wantCode string
	}{
		{
			name:     "Wrong extension",
			filename: "widget.pdf",
			content:  widgetDocument(),
			wantCode: CodeUnsupportedFileType,
		},
		{
			name:     "Not a zip",
			filename: "widget.docx",
			content:  []byte("not a zip"),
			wantCode: CodeInvalidContainer,
		},
		{
			name:     "Missing sku",
			filename: "widget.docx",
			content:  docxtest.Document(docxtest.Control{Alias: "ProductNameUS", Text: "Test Widget"}),
			wantCode: CodeMissingRequiredField,
		},
		{
			name:     "Bad request id",
			filename: "widget.docx",
			content:  widgetDocument(),
			fields:   map[string]string{"requestId": "abc"},
			wantCode: CodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Options{})

			w := env.do(uploadRequest(t, "/api/import/word", tt.filename, tt.content, tt.fields))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
			assert.Nil(t, env.store.lastSub)
			assert.Equal(t, 0, env.archive.Len())
		})
	}
}

func TestImportWordMissingSkuDetails(t *testing.T) {
	env := newTestEnv(t, Options{})
	content := docxtest.Document(docxtest.Control{Alias: "ProductNameUS", Text: "Test Widget"})

	w := env.do(uploadRequest(t, "/api/import/word", "widget.docx", content, nil))

	body := decodeError(t, w)
	assert.Equal(t, "missing required field: sku", body.Message)
	assert.Equal(t, map[string]interface{}{"field": "sku"}, body.Details)
}

func TestImportWordTooLarge(t *testing.T) {
	env := newTestEnv(t, Options{MaxUploadBytes: 64})

	w := env.do(uploadRequest(t, "/api/import/word", "widget.docx", widgetDocument(), nil))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, CodePayloadTooLarge, decodeError(t, w).Code)
}

func TestImportWordNoFile(t *testing.T) {
	env := newTestEnv(t, Options{})
	req := httptest.NewRequest(http.MethodPost, "/api/import/word", nil)

	w := env.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeBadRequest, decodeError(t, w).Code)
}

func TestPreviewWord(t *testing.T) {
	env := newTestEnv(t, Options{})
	content := docxtest.Document(
		docxtest.Control{Alias: "SKU", Text: "12345"},
		docxtest.Control{Alias: "Campaign", Text: "Spring"},
	)

	w := env.do(uploadRequest(t, "/api/import/word/preview", "widget.docx", content, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var plain map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plain))
	assert.NotContains(t, plain, "fields")
	assert.Equal(t, "(Untitled)", plain["draft"].(map[string]interface{})["productName"])

	w = env.do(uploadRequest(t, "/api/import/word/preview?debug=1", "widget.docx", content, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var debug pipeline.Extraction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &debug))
	assert.Equal(t, "Spring", debug.Fields["campaign"])
	assert.Len(t, debug.Labels, 2)

	assert.Nil(t, env.store.lastSub)
	assert.Equal(t, 0, env.archive.Len())
}

func TestCreateSubmission(t *testing.T) {
	env := newTestEnv(t, Options{})
	body := map[string]interface{}{
		"requester":         "pat@example.com",
		"requestedCultures": []string{"CAN"},
		"products": []map[string]interface{}{
			{
				"sku":                 " 12345 ",
				"productName":         "Test Widget",
				"offSaleDate":         "6/30/2024",
				"noEndDate":           true,
				"includeTranslations": true,
				"cultures": []map[string]interface{}{
					{"cultureCode": "FR-ca", "translatedName": "Gadget"},
					{"cultureCode": "de-DE"},
				},
				"accessories":     []map[string]interface{}{{"accessoryLabel": "charging cable"}},
				"recommendations": []map[string]interface{}{{"sku": "34038"}},
			},
		},
	}

	w := env.do(jsonRequest(t, http.MethodPost, "/api/submissions", body))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp CreateSubmissionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.ID)

	require.NotNil(t, env.store.lastSub)
	p := env.store.lastSub.Products[0]
	assert.Equal(t, "12345", p.Sku)
	assert.Equal(t, "2024-06-30T00:00:00Z", *p.OffSaleDate)
	assert.True(t, p.NoEndDate)

	codes := make([]string, 0, len(p.Cultures))
	for _, c := range p.Cultures {
		codes = append(codes, c.CultureCode)
	}
	assert.Equal(t, []string{"en-CA", "fr-CA", "de-DE"}, codes)
	assert.Equal(t, "Gadget", *p.Cultures[1].TranslatedName)
	assert.Nil(t, p.Cultures[0].TranslatedName)
}

func TestCreateSubmissionDistinctSkus(t *testing.T) {
	env := newTestEnv(t, Options{})

	body := map[string]interface{}{"products": []map[string]interface{}{
		{"sku": "A", "productName": "First"},
		{"sku": "a", "productName": "Second"},
	}}
	w := env.do(jsonRequest(t, http.MethodPost, "/api/submissions", body))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotNil(t, env.store.lastSub)
	assert.Len(t, env.store.lastSub.Products, 2)
}

func TestCreateSubmissionValidation(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
		want string
	}{
		{
			name: "No products",
			body: map[string]interface{}{"requester": "pat"},
			want: "products",
		},
		{
			name: "Product without sku",
			body: map[string]interface{}{"products": []map[string]interface{}{{"productName": "Test Widget"}}},
			want: "products",
		},
		{
			name: "Accessory without sku or label",
			body: map[string]interface{}{"products": []map[string]interface{}{{
				"sku": "12345", "productName": "Test Widget",
				"accessories": []map[string]interface{}{{}},
			}}},
			want: "products",
		},
		{
			name: "Duplicate sku",
			body: map[string]interface{}{"products": []map[string]interface{}{
				{"sku": "A", "productName": "First"},
				{"sku": " A ", "productName": "Second"},
			}},
			want: "products",
		},
		{
			name: "Negative request id",
			body: map[string]interface{}{"requestId": -1, "products": []map[string]interface{}{{"sku": "1", "productName": "x"}}},
			want: "requestId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Options{})

			w := env.do(jsonRequest(t, http.MethodPost, "/api/submissions", tt.body))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, CodeValidationFailed, body.Code)
			assert.Contains(t, body.Details, tt.want)
			assert.Nil(t, env.store.lastSub)
		})
	}
}

func TestCreateRevision(t *testing.T) {
	env := newTestEnv(t, Options{})
	body := `{"productName":"Renamed","stamp":"","onSaleDate":"4/1/2024","accessories":[],"cultures":null}`
	req := httptest.NewRequest(http.MethodPost, "/api/submissions/3/products/7/revisions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := env.do(req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	patch := env.store.lastPatch
	require.NotNil(t, patch)
	assert.Equal(t, "Renamed", *patch.ProductName)
	assert.Equal(t, "", *patch.Stamp)
	assert.Equal(t, "2024-04-01T00:00:00Z", *patch.OnSaleDate)
	assert.Nil(t, patch.ShortDescription)
	require.NotNil(t, patch.Accessories)
	assert.Empty(t, *patch.Accessories)
	assert.Nil(t, patch.Cultures)
	assert.Nil(t, patch.Recommendations)
}

func TestCreateRevisionEmptyBody(t *testing.T) {
	env := newTestEnv(t, Options{})
	req := httptest.NewRequest(http.MethodPost, "/api/submissions/3/products/7/revisions", nil)

	w := env.do(req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, database.RevisionPatch{}, *env.store.lastPatch)
}

func TestCreateRevisionErrors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		storeErr   error
		wantStatus int
		wantCode   string
	}{
		{"Bad submission id", "/api/submissions/abc/products/7/revisions", nil, http.StatusBadRequest, CodeBadRequest},
		{"Bad product id", "/api/submissions/3/products/0/revisions", nil, http.StatusBadRequest, CodeBadRequest},
		{"Unknown product", "/api/submissions/3/products/7/revisions", fmt.Errorf("product 7: %w", database.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{"Store failure", "/api/submissions/3/products/7/revisions", fmt.Errorf("%w: create revision: boom", database.ErrPersistence), http.StatusInternalServerError, CodePersistence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Options{})
			env.store.revisionErr = tt.storeErr

			w := env.do(jsonRequest(t, http.MethodPost, tt.path, map[string]string{"stamp": "NEW"}))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
		})
	}
}

func TestListSubmissionsPassesFilters(t *testing.T) {
	env := newTestEnv(t, Options{})

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/submissions?sku=12345&culture=fr-CA&q=widget&limit=5", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, database.SubmissionFilter{Sku: "12345", Culture: "fr-CA", Query: "widget", Limit: 5}, env.store.lastFilter)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/submissions?limit=1000", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetEndpointsNotFound(t *testing.T) {
	env := newTestEnv(t, Options{})
	for _, path := range []string{
		"/api/requests/5",
		"/api/submissions/5",
		"/api/submissions/5/export.xlsx",
		"/api/submissions/5/source",
		"/api/submissions/5/products/1",
		"/api/submissions/5/products/1/revisions",
	} {
		t.Run(path, func(t *testing.T) {
			w := env.do(httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, CodeNotFound, decodeError(t, w).Code)
		})
	}
}

func TestExportAndSource(t *testing.T) {
	env := newTestEnv(t, Options{})
	content := widgetDocument()
	w := env.do(uploadRequest(t, "/api/import/word", "Widget.docx", content, nil))
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/submissions/1/export.xlsx", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "submission-1.xlsx")
	assert.Equal(t, "PK", w.Body.String()[:2])

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/submissions/1/source", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pipeline.DocumentContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Widget.docx")
	assert.Equal(t, content, w.Body.Bytes())
}

func TestCreateRequest(t *testing.T) {
	env := newTestEnv(t, Options{})

	w := env.do(jsonRequest(t, http.MethodPost, "/api/requests", map[string]string{
		"requesterName":  "Pat",
		"requesterEmail": "pat@example.com",
		"dueDate":        "2024-05-01",
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(jsonRequest(t, http.MethodPost, "/api/requests", map[string]string{
		"requesterEmail": "not-an-email",
		"dueDate":        "next week",
	}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, CodeValidationFailed, body.Code)
	assert.Contains(t, body.Details, "requesterEmail")
	assert.Contains(t, body.Details, "dueDate")
}
