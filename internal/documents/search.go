package documents

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"dochub/internal/shared/metrics"
)

const (
	defaultSearchSize = 10
	maxSearchSize     = 100
	snippetRunes      = 80
)

// Search finds the requester's documents whose text or file name contains
// query, ignoring case. page is 1-based. No match yields an empty slice.
func (s *Service) Search(ctx context.Context, requesterID, query string, page, size int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultSearchSize
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}

	docs, err := s.Repo.Search(ctx, requesterID, query, size, (page-1)*size)
	if err != nil {
		return nil, err
	}
	metrics.IncSearches()

	results := make([]SearchResult, 0, len(docs))
	for _, doc := range docs {
		results = append(results, SearchResult{
			Document: doc,
			Snippet:  snippet(doc.Content, query, snippetRunes),
		})
	}
	return results, nil
}

// snippet returns up to width runes of content centred on the first
// case-insensitive match of query, or the leading runes when the match was
// only in the file name.
func snippet(content, query string, width int) string {
	runes := []rune(content)
	if len(runes) == 0 || width <= 0 {
		return ""
	}
	needle := foldRunes([]rune(query))
	idx := indexFold(runes, needle)

	start := 0
	if idx > 0 {
		start = idx - (width-len(needle))/2
		if start < 0 {
			start = 0
		}
	}
	end := start + width
	if end > len(runes) {
		end = len(runes)
		start = end - width
		if start < 0 {
			start = 0
		}
	}

	out := strings.Join(strings.Fields(string(runes[start:end])), " ")
	if start > 0 {
		out = "..." + out
	}
	if end < len(runes) {
		out += "..."
	}
	return out
}

func indexFold(haystack, needle []rune) int {
	if len(needle) == 0 {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, r := range needle {
			if unicode.ToLower(haystack[i+j]) != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func foldRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}
