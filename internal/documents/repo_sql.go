package documents

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"dochub/internal/shared/storage/db"
)

// SQLRepo persists documents in Postgres or SQLite. Queries use ? placeholders
// and are rebound for the connected driver.
type SQLRepo struct {
	DB *sqlx.DB
}

const documentColumns = `id, user_id, file_name, content_type, size_bytes, storage_provider, storage_key, checksum, metadata, created_at, updated_at`

func (r *SQLRepo) Create(ctx context.Context, doc Document) error {
	query := r.DB.Rebind(`
INSERT INTO documents (id, user_id, file_name, content_type, content, size_bytes, storage_provider, storage_key, checksum, metadata, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.UserID,
		doc.FileName,
		doc.ContentType,
		doc.Content,
		doc.SizeBytes,
		doc.StorageProvider,
		doc.StorageKey,
		doc.Checksum,
		doc.Metadata,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return err
}

func (r *SQLRepo) GetByID(ctx context.Context, documentID string) (Document, error) {
	query := r.DB.Rebind(`SELECT ` + documentColumns + `, content FROM documents WHERE id = ? LIMIT 1`)
	var doc Document
	if err := r.DB.GetContext(ctx, &doc, query, documentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

func (r *SQLRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	query := r.DB.Rebind(`
SELECT ` + documentColumns + `
FROM documents
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`)
	docs := []Document{}
	if err := r.DB.SelectContext(ctx, &docs, query, userID, limit, offset); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *SQLRepo) Update(ctx context.Context, doc Document) error {
	query := r.DB.Rebind(`UPDATE documents SET file_name = ?, metadata = ?, updated_at = ? WHERE id = ?`)
	res, err := r.DB.ExecContext(ctx, query, doc.FileName, doc.Metadata, doc.UpdatedAt, doc.ID)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *SQLRepo) Delete(ctx context.Context, documentID string) error {
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(`DELETE FROM documents WHERE id = ?`), documentID)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *SQLRepo) Search(ctx context.Context, userID, query string, limit, offset int) ([]Document, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	lower := db.LowerFunc(r.DB)
	stmt := r.DB.Rebind(`
SELECT ` + documentColumns + `, content
FROM documents
WHERE user_id = ?
  AND (` + lower + `(content) LIKE ? ESCAPE '\' OR ` + lower + `(file_name) LIKE ? ESCAPE '\')
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`)
	docs := []Document{}
	if err := r.DB.SelectContext(ctx, &docs, stmt, userID, pattern, pattern, limit, offset); err != nil {
		return nil, err
	}
	return docs, nil
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
