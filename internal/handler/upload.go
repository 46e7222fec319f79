package handler

import (
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/resit-exam-api/internal/ingest"
	appErrors "github.com/noah-isme/resit-exam-api/pkg/errors"
	"github.com/noah-isme/resit-exam-api/pkg/storage"
)

type uploadSink interface {
	SaveStream(filename string, r io.Reader, maxBytes int64) (int64, error)
}

// UploadPolicy limits which spreadsheets are accepted for staging.
type UploadPolicy struct {
	MaxBytes          int64
	AllowedExtensions []string
}

func (p UploadPolicy) allows(ext string) bool {
	if len(p.AllowedExtensions) == 0 {
		return true
	}
	for _, allowed := range p.AllowedExtensions {
		if strings.TrimPrefix(allowed, ".") == strings.TrimPrefix(ext, ".") {
			return true
		}
	}
	return false
}

// stageUpload copies the multipart "file" field into the upload store under a
// random name that keeps the original extension.
func stageUpload(c *gin.Context, sink uploadSink, policy UploadPolicy) (string, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if _, err := ingest.FormatFromName(ext); err != nil || !policy.allows(ext) {
		return "", appErrors.Clone(appErrors.ErrValidation, "file must be a .csv or .xlsx spreadsheet")
	}
	if policy.MaxBytes > 0 && header.Size > policy.MaxBytes {
		return "", appErrors.ErrPayloadTooLarge
	}

	src, err := header.Open()
	if err != nil {
		return "", appErrors.Internal(err, "failed to open file")
	}
	defer src.Close() //nolint:errcheck

	name := uuid.NewString() + ext
	if _, err := sink.SaveStream(name, src, policy.MaxBytes); err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return "", appErrors.ErrPayloadTooLarge
		}
		return "", appErrors.Internal(err, "failed to store upload")
	}
	return name, nil
}
