package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/time/rate"

	"github.com/docent-ai/docent/internal/log"
)

const (
	fetchTimeout  = 30 * time.Second
	fetchMaxBytes = 8 * 1024 * 1024
	userAgent     = "docent/1.0 (+https://github.com/docent-ai/docent)"
)

// Fetcher retrieves remote documents and parses them into content trees.
// HTML pages go through readability extraction first so navigation chrome
// does not pollute the tree.
type Fetcher struct {
	parser  *Parser
	client  *http.Client
	limiter *rate.Limiter
	logger  log.Logger
}

// NewFetcher creates a Fetcher around the given parser. A nil client uses a
// default with a 30s timeout. Requests are rate limited to be polite to the
// documentation hosts we pull from.
func NewFetcher(parser *Parser, client *http.Client, logger log.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Fetcher{
		parser:  parser,
		client:  client,
		limiter: rate.NewLimiter(5, 10),
		logger:  logger,
	}
}

// Fetch retrieves rawURL and parses the body into a content tree. All
// failures are wrapped in a *FetchError carrying the URL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Node, error) {
	node, err := f.fetch(ctx, rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	return node, nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (*Node, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxBytes))
	if err != nil {
		return nil, err
	}
	name := nameForURL(u, resp.Header.Get("Content-Type"))

	if strings.HasSuffix(name, ".html") {
		article, err := readability.FromReader(bytes.NewReader(data), u)
		if err != nil {
			f.logger.Warn("readability extraction failed, parsing raw html",
				"url", rawURL, "error", err)
			return f.parser.Parse(bytes.NewReader(data), name, rawURL)
		}
		node, err := f.parser.Parse(strings.NewReader(article.Content), name, rawURL)
		if err != nil {
			return nil, err
		}
		if article.Title != "" {
			node.Title = article.Title
		}
		return node, nil
	}

	return f.parser.Parse(bytes.NewReader(data), name, rawURL)
}

// nameForURL derives a synthetic file name for format dispatch. The URL path
// extension wins; otherwise the response content type decides.
func nameForURL(u *url.URL, contentType string) string {
	base := path.Base(u.Path)
	if base == "/" || base == "." || base == "" {
		base = "index"
	}
	if ext := strings.ToLower(path.Ext(base)); ext != "" && defaultExtensions[ext] {
		return base
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = ""
	}
	switch mediaType {
	case "text/markdown":
		return base + ".md"
	case "text/plain":
		return base + ".txt"
	default:
		return base + ".html"
	}
}
