package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"dochub/internal/extract"
	"dochub/internal/shared/metrics"
	"dochub/internal/shared/storage/object"
	"dochub/internal/shared/telemetry"
	"dochub/internal/shared/util"
)

const (
	DefaultMaxUploadBytes = 10 << 20

	defaultListLimit = 20
	maxListLimit     = 100
)

// UploadInput carries a single uploaded file.
type UploadInput struct {
	FileName    string
	ContentType string
	Data        []byte
	Metadata    Metadata
}

// Patch lists the fields Update may change. Nil fields are left untouched.
type Patch struct {
	FileName *string
	Metadata *Metadata
}

// Service contains business logic for documents.
type Service struct {
	Store          object.ObjectStore
	Repo           Repo
	MaxUploadBytes int64
	Now            func() time.Time
}

func NewService(repo Repo, store object.ObjectStore, maxUploadBytes int64) *Service {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Service{Repo: repo, Store: store, MaxUploadBytes: maxUploadBytes, Now: time.Now}
}

// Upload validates the file, extracts its text, stores the raw bytes and
// records the document. Nothing is persisted when any step fails.
func (s *Service) Upload(ctx context.Context, ownerID string, in UploadInput) (Document, error) {
	doc, err := s.upload(ctx, ownerID, in)
	if err != nil {
		metrics.IncUploadsRejected()
		return Document{}, err
	}
	metrics.IncUploads()
	metrics.ObserveUploadBytes(doc.SizeBytes)
	return doc, nil
}

func (s *Service) upload(ctx context.Context, ownerID string, in UploadInput) (Document, error) {
	if strings.TrimSpace(ownerID) == "" {
		return Document{}, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	fileName, err := util.SanitizeFileName(in.FileName)
	if err != nil {
		return Document{}, fmt.Errorf("%w: invalid file name", ErrInvalidInput)
	}
	if len(in.Data) == 0 {
		return Document{}, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}

	contentType := extract.NormalizeContentType(in.ContentType, fileName, in.Data)
	if !extract.IsSupported(contentType) {
		return Document{}, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	if int64(len(in.Data)) > s.maxUploadBytes() {
		return Document{}, fmt.Errorf("%w: limit is %d bytes", ErrPayloadTooLarge, s.maxUploadBytes())
	}

	started := metrics.NowMillis()
	text, err := extract.ExtractTextFromBytes(ctx, in.Data, contentType, fileName)
	metrics.ObserveExtractionDurationMs(metrics.NowMillis() - started)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return Document{}, err
		case errors.Is(err, extract.ErrUnsupportedType):
			return Document{}, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
		default:
			return Document{}, fmt.Errorf("%w: %v", ErrExtraction, err)
		}
	}

	storageKey, size, err := s.Store.Save(ctx, ownerID, fileName, contentType, bytes.NewReader(in.Data), int64(len(in.Data)))
	if err != nil {
		return Document{}, fmt.Errorf("store object: %w", err)
	}

	now := s.now()
	doc := Document{
		ID:              uuid.NewString(),
		UserID:          ownerID,
		FileName:        fileName,
		ContentType:     contentType,
		Content:         text,
		SizeBytes:       size,
		StorageProvider: s.Store.Provider(),
		StorageKey:      storageKey,
		Checksum:        util.SHA256Hex(in.Data),
		Metadata:        normalizeMetadata(in.Metadata),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		if delErr := s.Store.Delete(context.WithoutCancel(ctx), storageKey); delErr != nil {
			telemetry.Error("documents.orphan_object", map[string]any{
				"storage_key": storageKey,
				"err":         delErr,
			})
		}
		return Document{}, fmt.Errorf("insert document: %w", err)
	}

	telemetry.Info("documents.uploaded", map[string]any{
		"document_id":  doc.ID,
		"user_id":      ownerID,
		"content_type": contentType,
		"size_bytes":   size,
	})
	return doc, nil
}

// Get returns a document owned by requester, including its content.
func (s *Service) Get(ctx context.Context, requesterID, documentID string) (Document, error) {
	if strings.TrimSpace(documentID) == "" {
		return Document{}, ErrNotFound
	}
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return Document{}, err
	}
	if doc.UserID != requesterID {
		return Document{}, ErrForbidden
	}
	return doc, nil
}

// List returns the requester's documents newest first without content.
func (s *Service) List(ctx context.Context, requesterID string, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.ListByUser(ctx, requesterID, limit, offset)
}

// Update changes the file name and/or metadata. Content, owner and type are immutable.
func (s *Service) Update(ctx context.Context, requesterID, documentID string, patch Patch) (Document, error) {
	if patch.FileName == nil && patch.Metadata == nil {
		return Document{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	doc, err := s.Get(ctx, requesterID, documentID)
	if err != nil {
		return Document{}, err
	}
	if patch.FileName != nil {
		name, err := util.SanitizeFileName(*patch.FileName)
		if err != nil {
			return Document{}, fmt.Errorf("%w: invalid file name", ErrInvalidInput)
		}
		doc.FileName = name
	}
	if patch.Metadata != nil {
		doc.Metadata = normalizeMetadata(*patch.Metadata)
	}
	doc.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Delete removes the record and then the stored bytes. A failed blob delete
// is logged and does not fail the request.
func (s *Service) Delete(ctx context.Context, requesterID, documentID string) error {
	doc, err := s.Get(ctx, requesterID, documentID)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, doc.ID); err != nil {
		return err
	}
	metrics.IncDeletes()
	if err := s.Store.Delete(context.WithoutCancel(ctx), doc.StorageKey); err != nil {
		telemetry.Warn("documents.object_delete_failed", map[string]any{
			"document_id": doc.ID,
			"storage_key": doc.StorageKey,
			"err":         err,
		})
	}
	return nil
}

// Download opens the original bytes. The caller closes the reader.
func (s *Service) Download(ctx context.Context, requesterID, documentID string) (Document, io.ReadCloser, error) {
	doc, err := s.Get(ctx, requesterID, documentID)
	if err != nil {
		return Document{}, nil, err
	}
	rc, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Document{}, nil, ErrNotFound
		}
		return Document{}, nil, fmt.Errorf("open object: %w", err)
	}
	return doc, rc, nil
}

func (s *Service) maxUploadBytes() int64 {
	if s.MaxUploadBytes <= 0 {
		return DefaultMaxUploadBytes
	}
	return s.MaxUploadBytes
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC().Truncate(time.Microsecond)
	}
	return s.Now().UTC().Truncate(time.Microsecond)
}

func normalizeMetadata(m Metadata) Metadata {
	out := Metadata{
		Author:   strings.TrimSpace(m.Author),
		Language: strings.TrimSpace(m.Language),
	}
	for _, kw := range m.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			out.Keywords = append(out.Keywords, kw)
		}
	}
	return out
}
