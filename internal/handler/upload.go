package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/storefront/internal/service"
)

// multipartOverhead leaves room for form fields next to the file part.
const multipartOverhead = 1 << 20

func limitBody(c *gin.Context, maxFile int64) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxFile+multipartOverhead)
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// formImage opens the uploaded file under field. A missing file yields a nil
// upload so the service can report it.
func formImage(c *gin.Context, field string) (*service.ImageUpload, io.Closer, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noopCloser{}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &service.ImageUpload{Filename: fh.Filename, Body: f}, f, nil
}
