package documents

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document // documentId -> document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Document),
	}
}

// Create stores a new document.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[doc.ID]; exists {
		return ErrInvalidInput
	}
	r.data[doc.ID] = cloneDocument(doc)
	return nil
}

// GetByID returns a document regardless of owner.
func (r *MemoryRepo) GetByID(ctx context.Context, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[documentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDocument(doc), nil
}

// ListByUser returns documents for a user, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	docs, err := r.filter(ctx, userID, func(Document) bool { return true })
	if err != nil {
		return nil, err
	}
	page := paginate(docs, limit, offset)
	for i := range page {
		page[i].Content = ""
	}
	return page, nil
}

// Update replaces the mutable fields of a stored document.
func (r *MemoryRepo) Update(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.data[doc.ID]
	if !ok {
		return ErrNotFound
	}
	current.FileName = doc.FileName
	current.Metadata = cloneMetadata(doc.Metadata)
	current.UpdatedAt = doc.UpdatedAt
	r.data[doc.ID] = current
	return nil
}

// Delete removes a document.
func (r *MemoryRepo) Delete(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[documentID]; !ok {
		return ErrNotFound
	}
	delete(r.data, documentID)
	return nil
}

// Search returns the user's documents whose content or file name contains query.
func (r *MemoryRepo) Search(ctx context.Context, userID, query string, limit, offset int) ([]Document, error) {
	needle := strings.ToLower(query)
	docs, err := r.filter(ctx, userID, func(doc Document) bool {
		return strings.Contains(strings.ToLower(doc.Content), needle) ||
			strings.Contains(strings.ToLower(doc.FileName), needle)
	})
	if err != nil {
		return nil, err
	}
	return paginate(docs, limit, offset), nil
}

func (r *MemoryRepo) filter(ctx context.Context, userID string, keep func(Document) bool) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	docs := make([]Document, 0)
	for _, doc := range r.data {
		if doc.UserID == userID && keep(doc) {
			docs = append(docs, cloneDocument(doc))
		}
	}
	r.mu.RUnlock()

	// Copy and sort newest-first by CreatedAt.
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID > docs[j].ID
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs, nil
}

func paginate(docs []Document, limit, offset int) []Document {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(docs) {
		return []Document{}
	}
	end := len(docs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return docs[offset:end]
}

func cloneDocument(doc Document) Document {
	doc.Metadata = cloneMetadata(doc.Metadata)
	return doc
}

func cloneMetadata(m Metadata) Metadata {
	if m.Keywords != nil {
		m.Keywords = append([]string(nil), m.Keywords...)
	}
	return m
}
