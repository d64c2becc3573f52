package documents

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Document is an uploaded file owned by exactly one user. Content holds the
// text extracted at upload time and never changes afterwards.
type Document struct {
	ID              string    `db:"id"`
	UserID          string    `db:"user_id"`
	FileName        string    `db:"file_name"`
	ContentType     string    `db:"content_type"`
	Content         string    `db:"content"`
	SizeBytes       int64     `db:"size_bytes"`
	StorageProvider string    `db:"storage_provider"`
	StorageKey      string    `db:"storage_key"`
	Checksum        string    `db:"checksum"`
	Metadata        Metadata  `db:"metadata"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// Metadata is the optional descriptive data attached to a document.
type Metadata struct {
	Author   string   `json:"author,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Language string   `json:"language,omitempty"`
}

// Value stores metadata as a JSON document.
func (m Metadata) Value() (driver.Value, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan accepts JSON from JSONB (Postgres) or TEXT (SQLite) columns.
func (m *Metadata) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("documents: cannot scan %T into Metadata", src)
	}
	if len(raw) == 0 {
		*m = Metadata{}
		return nil
	}
	var out Metadata
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("documents: decode metadata: %w", err)
	}
	*m = out
	return nil
}

// SearchResult is a matching document with a short excerpt of its content.
type SearchResult struct {
	Document
	Snippet string
}
