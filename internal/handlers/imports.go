package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/intake-service/internal/pipeline"
)

// multipartOverhead is the slack allowed on top of the document for the
// other form fields and part headers
const multipartOverhead = 1 << 20

// ImportWord handles POST /api/import/word. The multipart form carries the
// document in "file" plus optional "requester", "note" and "requestId".
func (h *Handler) ImportWord(c *gin.Context) {
	input, err := h.readUpload(c)
	if err != nil {
		writeError(c, err)
		return
	}
	input.Requester = formValue(c, "requester")
	input.Note = formValue(c, "note")
	input.Debug = isDebug(c)
	if v := formValue(c, "requestId"); v != nil {
		id, err := strconv.ParseInt(*v, 10, 64)
		if err != nil || id <= 0 {
			writeError(c, badRequest("invalid requestId"))
			return
		}
		input.RequestID = &id
	}

	result, err := h.importer.Upload(c.Request.Context(), *input)
	if err != nil {
		writeError(c, err)
		return
	}
	if result.Extraction != nil {
		c.JSON(http.StatusCreated, result)
		return
	}
	c.JSON(http.StatusCreated, result.Submission)
}

// PreviewWord handles POST /api/import/word/preview. It extracts and maps
// the document without storing anything; ?debug=1 adds the raw field map.
func (h *Handler) PreviewWord(c *gin.Context) {
	input, err := h.readUpload(c)
	if err != nil {
		writeError(c, err)
		return
	}

	ext, err := h.importer.Preview(c.Request.Context(), input.Filename, input.Content, isDebug(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ext)
}

func (h *Handler) readUpload(c *gin.Context) (*pipeline.UploadInput, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, h.tooLarge()
		}
		return nil, badRequest("no file uploaded (field: file)")
	}
	if err := pipeline.CheckFilename(header.Filename); err != nil {
		return nil, err
	}
	if header.Size > h.maxBytes {
		return nil, h.tooLarge()
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(content)) > h.maxBytes {
		return nil, h.tooLarge()
	}

	return &pipeline.UploadInput{Filename: header.Filename, Content: content}, nil
}

func (h *Handler) tooLarge() error {
	return &apiError{
		status:  http.StatusRequestEntityTooLarge,
		code:    CodePayloadTooLarge,
		message: fmt.Sprintf("upload exceeds %d bytes", h.maxBytes),
	}
}

func formValue(c *gin.Context, key string) *string {
	v := strings.TrimSpace(c.PostForm(key))
	if v == "" {
		return nil
	}
	return &v
}

func isDebug(c *gin.Context) bool {
	switch strings.ToLower(c.Query("debug")) {
	case "1", "true", "yes":
		return true
	}
	return false
}
