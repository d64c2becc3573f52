package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	Checksum    string    `json:"checksum"`
	Metadata    Metadata  `json:"metadata"`
	Content     *string   `json:"content,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SearchResultResponse adds the matching excerpt to a document.
type SearchResultResponse struct {
	DocumentResponse
	Snippet string `json:"snippet"`
}

type updateRequest struct {
	FileName *string   `json:"fileName"`
	Metadata *Metadata `json:"metadata"`
}

func toResponse(doc Document, withContent bool) DocumentResponse {
	resp := DocumentResponse{
		ID:          doc.ID,
		UserID:      doc.UserID,
		FileName:    doc.FileName,
		ContentType: doc.ContentType,
		SizeBytes:   doc.SizeBytes,
		Checksum:    doc.Checksum,
		Metadata:    doc.Metadata,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	if withContent {
		content := doc.Content
		resp.Content = &content
	}
	return resp
}

func toListResponse(docs []Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toResponse(doc, false))
	}
	return out
}

func toSearchResponse(results []SearchResult) []SearchResultResponse {
	out := make([]SearchResultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResultResponse{
			DocumentResponse: toResponse(r.Document, false),
			Snippet:          r.Snippet,
		})
	}
	return out
}
