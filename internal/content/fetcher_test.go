package content

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docent-ai/docent/internal/log"
)

func TestFetchMarkdown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/markdown")
		_, _ = w.Write([]byte("# Remote\n\nbody text\n"))
	}))
	defer srv.Close()

	f := NewFetcher(NewParser(nil), srv.Client(), log.NewNop())
	node, err := f.Fetch(context.Background(), srv.URL+"/doc.md")
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/doc.md", node.URI)
	require.Len(t, node.Children, 1)
	assert.Equal(t, "Remote", node.Children[0].Title)
	assert.Equal(t, "body text", node.Children[0].Text)
}

func TestFetchPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("release notes\n"))
	}))
	defer srv.Close()

	f := NewFetcher(NewParser(nil), srv.Client(), log.NewNop())
	node, err := f.Fetch(context.Background(), srv.URL+"/notes")
	require.NoError(t, err)

	require.Len(t, node.Children, 1)
	assert.Equal(t, "release notes", node.Children[0].Text)
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(NewParser(nil), srv.Client(), log.NewNop())
	_, err := f.Fetch(context.Background(), srv.URL+"/missing.md")
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, srv.URL+"/missing.md", fetchErr.URL)
}

func TestFetchRejectsScheme(t *testing.T) {
	f := NewFetcher(NewParser(nil), nil, log.NewNop())
	_, err := f.Fetch(context.Background(), "ftp://example.com/doc.md")
	require.Error(t, err)
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestNameForURL(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		contentType string
		want        string
	}{
		{"md extension wins", "https://x.test/guide.md", "text/html", "guide.md"},
		{"markdown content type", "https://x.test/guide", "text/markdown", "guide.md"},
		{"plain content type", "https://x.test/notes", "text/plain; charset=utf-8", "notes.txt"},
		{"defaults to html", "https://x.test/page", "application/octet-stream", "page.html"},
		{"bare host", "https://x.test/", "text/html", "index.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := mustParseURL(t, tt.url)
			assert.Equal(t, tt.want, nameForURL(u, tt.contentType))
		})
	}
}
