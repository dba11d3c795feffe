// Package documents stores uploaded files on local disk with metadata in PostgreSQL.
package documents

import (
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
)

var (
	// ErrNotFound indicates the document does not exist.
	ErrNotFound = errors.New("documents: document not found")
	// ErrTooLarge indicates an upload over the configured size limit.
	ErrTooLarge = fmt.Errorf("documents: file too large: %w", httpx.ErrValidation)
	// ErrEmpty indicates an upload without content.
	ErrEmpty = fmt.Errorf("documents: file is empty: %w", httpx.ErrValidation)
)

// Document is the metadata of a stored file.
type Document struct {
	ID          int64     `json:"id"`
	FileName    string    `json:"fileName"`
	StorageKey  string    `json:"-"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploadedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}
