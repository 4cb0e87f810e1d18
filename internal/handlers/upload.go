package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charlesng35/socialink/internal/storage"
	apperrors "github.com/charlesng35/socialink/pkg/errors"
	"github.com/charlesng35/socialink/pkg/logger"
	"github.com/charlesng35/socialink/pkg/response"
)

// DefaultMaxUploadBytes caps a single uploaded file.
const DefaultMaxUploadBytes int64 = 10 << 20

var errUploadFailed = apperrors.New("UPLOAD_FAILED", "There was an error uploading the file", http.StatusInternalServerError)

// UploadHandler stores user files in object storage.
type UploadHandler struct {
	uploader storage.Uploader
	maxBytes int64
}

// NewUploadHandler returns a handler that answers 503 when uploader is nil.
func NewUploadHandler(uploader storage.Uploader, maxBytes int64) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &UploadHandler{uploader: uploader, maxBytes: maxBytes}
}

type uploadResponse struct {
	Detail  string `json:"detail"`
	FileURL string `json:"file_url"`
}

// POST /upload
func (h *UploadHandler) Upload(c *gin.Context) {
	if h.uploader == nil {
		response.Error(c, apperrors.ErrServiceUnavailable.WithMessage("File uploads are not configured"))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+1<<20)
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, apperrors.NewBadRequest("file is required"))
		return
	}
	if header.Size > h.maxBytes {
		response.Error(c, apperrors.NewBadRequest(fmt.Sprintf("file must be at most %d bytes", h.maxBytes)))
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, apperrors.NewBadRequest("file could not be read"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	name, ok := objectName(header.Filename)
	if !ok {
		response.Error(c, apperrors.NewBadRequest("file name is invalid"))
		return
	}
	key := uuid.NewString() + "/" + name

	fileURL, err := h.uploader.Upload(requestContext(c), key, file, header.Size, contentType)
	if err != nil {
		if errors.Is(err, storage.ErrStorageDisabled) {
			response.Error(c, apperrors.ErrServiceUnavailable.WithMessage("File uploads are not configured"))
			return
		}
		logger.WithModule("upload").Error("upload failed", zap.String("key", key), zap.Error(err))
		response.Error(c, errUploadFailed)
		return
	}

	response.Success(c, http.StatusCreated, uploadResponse{
		Detail:  "Successfully uploaded " + header.Filename,
		FileURL: fileURL,
	})
}

// objectName reduces a client supplied file name to its last path element.
// Names that resolve to a directory are rejected.
func objectName(filename string) (string, bool) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	switch name {
	case ".", "..", "/":
		return "", false
	}
	return name, true
}
