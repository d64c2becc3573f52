package documents

import (
	"context"
	"strings"
)

// Repo defines persistence operations for documents.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, documentID string) (Document, error)
	// ListByUser returns documents newest first without their content.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error)
	// Update writes the file name, metadata and updated_at of an existing row.
	Update(ctx context.Context, doc Document) error
	Delete(ctx context.Context, documentID string) error
	// Search matches query case-insensitively against content or file name.
	Search(ctx context.Context, userID, query string, limit, offset int) ([]Document, error)
}

// escapeLike escapes LIKE wildcards so the query matches literally under ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
