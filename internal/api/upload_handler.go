package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bataryakit/notifier/internal/storage"
)

// Upload stores the multipart "file" field under the category in the path.
// Unlike invoice archiving, a failure here fails the request.
func (h *Handler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fh.Size > storage.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": storage.ErrTooLarge.Error()})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, storage.MaxUploadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}

	url, err := h.uploads.Upload(c.Request.Context(), c.Param("category"), data, fh.Filename)
	if err != nil {
		status := uploadErrorStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("upload failed", zap.String("category", c.Param("category")), zap.Error(err))
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"url": url, "size": len(data)})
}

func (h *Handler) DeleteUpload(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": h.uploads.Delete(c.Request.Context(), url)})
}

func (h *Handler) UploadSize(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"size": h.uploads.FileSize(c.Request.Context(), url)})
}

func uploadErrorStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrInvalidCategory), errors.Is(err, storage.ErrInvalidFilename):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
