package documents

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/odyssey-erp/backoffice/internal/shared"
)

// sniffBytes is how much of an upload is inspected for its content type.
const sniffBytes = 3072

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	List(ctx context.Context) ([]Document, error)
	Get(ctx context.Context, id int64) (Document, error)
	Insert(ctx context.Context, doc Document) (Document, error)
	Delete(ctx context.Context, id int64) (Document, error)
}

// BlobStore keeps document bytes.
type BlobStore interface {
	Save(key string, r io.Reader, limit int64) (int64, error)
	Open(key string) (*os.File, error)
	Remove(key string) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates document storage.
type Service struct {
	repo     RepositoryPort
	store    BlobStore
	audit    AuditPort
	maxBytes int64
	now      func() time.Time
}

// NewService builds documents service.
func NewService(repo RepositoryPort, store BlobStore, audit AuditPort, maxBytes int64) *Service {
	return &Service{repo: repo, store: store, audit: audit, maxBytes: maxBytes, now: time.Now}
}

// MaxBytes returns the upload size limit.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// List returns document metadata newest first.
func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.repo.List(ctx)
}

// Upload sniffs the content type, stores the bytes and records metadata.
func (s *Service) Upload(ctx context.Context, fileName string, r io.Reader) (Document, error) {
	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Document{}, err
	}
	if n == 0 {
		return Document{}, ErrEmpty
	}
	head = head[:n]
	mt := mimetype.Detect(head)

	key := uuid.NewString() + mt.Extension()
	size, err := s.store.Save(key, io.MultiReader(bytes.NewReader(head), r), s.maxBytes)
	if err != nil {
		return Document{}, err
	}
	doc, err := s.repo.Insert(ctx, Document{
		FileName:    cleanName(fileName, key),
		StorageKey:  key,
		ContentType: mt.String(),
		Size:        size,
		UploadedBy:  shared.ActorID(ctx),
		CreatedAt:   s.now(),
	})
	if err != nil {
		_ = s.store.Remove(key)
		return Document{}, err
	}
	s.recordAudit(ctx, "DOCUMENT_UPLOAD", doc.ID, map[string]any{"file_name": doc.FileName, "size": doc.Size})
	return doc, nil
}

// Open returns metadata and an open handle to the document bytes. Callers close the file.
func (s *Service) Open(ctx context.Context, id int64) (Document, *os.File, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}
	f, err := s.store.Open(doc.StorageKey)
	if err != nil {
		return Document{}, nil, err
	}
	return doc, f, nil
}

// Delete removes metadata then the stored bytes.
func (s *Service) Delete(ctx context.Context, id int64) error {
	doc, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Remove(doc.StorageKey); err != nil {
		return err
	}
	s.recordAudit(ctx, "DOCUMENT_DELETE", id, nil)
	return nil
}

func cleanName(name, fallback string) string {
	name = filepath.Base(strings.TrimSpace(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return fallback
	}
	return name
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: shared.ActorID(ctx), Action: action, Entity: "document", EntityID: strconv.FormatInt(id, 10), Meta: meta})
}
