package s3

import (
	"strings"
	"testing"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "owner/doc.pdf", want: "owner/doc.pdf"},
		{name: "simple prefix", prefix: "documents", key: "owner/doc.pdf", want: "documents/owner/doc.pdf"},
		{name: "prefix trailing slash", prefix: "documents/", key: "owner/doc.pdf", want: "documents/owner/doc.pdf"},
		{name: "prefix and key slashes", prefix: "/documents/", key: "/owner/doc.pdf", want: "documents/owner/doc.pdf"},
		{name: "nested prefix", prefix: "prod/documents", key: "owner/doc.pdf", want: "prod/documents/owner/doc.pdf"},
		{name: "empty key", prefix: "documents", key: "", want: "documents"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestCountingReader(t *testing.T) {
	c := &countingReader{r: strings.NewReader("twelve bytes")}
	buf := make([]byte, 5)
	for {
		if _, err := c.Read(buf); err != nil {
			break
		}
	}
	if c.n != 12 {
		t.Fatalf("counted %d bytes, want 12", c.n)
	}
}
