package notifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// UploadsService stores and removes files.
type UploadsService struct {
	c *Client
}

// Upload stores r under category ("products", "invoices", ...) and returns
// the public URL.
func (s *UploadsService) Upload(ctx context.Context, category, filename string, r io.Reader) (*UploadResponse, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("notifier: build upload: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("notifier: read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("notifier: build upload: %w", err)
	}

	path := "/uploads/" + url.PathEscape(category)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.c.baseURL+path, buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	s.c.authorize(req)

	return do[UploadResponse](s.c, req, http.StatusCreated)
}

// Delete removes a previously uploaded file. It reports false when no
// storage backend owns the URL or the delete failed.
func (s *UploadsService) Delete(ctx context.Context, fileURL string) (bool, error) {
	out, err := doRequest[deleteResponse](ctx, s.c, http.MethodDelete, "/uploads",
		url.Values{"url": {fileURL}}, nil, http.StatusOK)
	if err != nil {
		return false, err
	}
	return out.Deleted, nil
}

// Size returns the stored size in bytes, or 0 when unknown.
func (s *UploadsService) Size(ctx context.Context, fileURL string) (int64, error) {
	out, err := doRequest[sizeResponse](ctx, s.c, http.MethodGet, "/uploads/size",
		url.Values{"url": {fileURL}}, nil, http.StatusOK)
	if err != nil {
		return 0, err
	}
	return out.Size, nil
}
