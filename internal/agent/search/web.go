package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/dinewise-core/server/internal/agent/model"
	"github.com/dinewise-core/server/internal/agent/resilience"
	errx "github.com/dinewise-core/server/internal/core/error"
)

const maxBodyBytes = 2 << 20

// WebFetcher loads search result pages as plain text, throttled by a
// shared rate limiter.
type WebFetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	executor  *resilience.Executor
	searchURL string
	maxChars  int
}

func NewWebFetcher(cfg model.ExplorerConfig, executor *resilience.Executor) *WebFetcher {
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	maxChars := cfg.MaxPageChars
	if maxChars <= 0 {
		maxChars = 12000
	}
	return &WebFetcher{
		client:    &http.Client{Timeout: 20 * time.Second},
		limiter:   rate.NewLimiter(limit, burst),
		executor:  executor,
		searchURL: cfg.SearchURL,
		maxChars:  maxChars,
	}
}

// SearchText runs query against the configured search page and returns
// its visible text.
func (f *WebFetcher) SearchText(ctx context.Context, query string) (string, error) {
	u, err := url.Parse(f.searchURL)
	if err != nil {
		return "", fmt.Errorf("parse search url: %w", err)
	}
	params := u.Query()
	params.Set("q", query)
	u.RawQuery = params.Encode()

	return resilience.Do(ctx, f.executor, "web.fetch", func(ctx context.Context) (string, error) {
		return f.fetchText(ctx, u.String())
	})
}

func (f *WebFetcher) fetchText(ctx context.Context, target string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; dinewise/1.0)")
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", errx.New(fmt.Errorf("GET %s: %s", target, resp.Status), resp.StatusCode, "web page fetch failed")
	}
	return ExtractText(io.LimitReader(resp.Body, maxBodyBytes), f.maxChars)
}

// ExtractText returns the visible text of an HTML document, skipping
// script, style and similar elements, capped at maxChars.
func ExtractText(r io.Reader, maxChars int) (string, error) {
	z := html.NewTokenizer(r)
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return strings.TrimSpace(b.String()), nil
			}
			return "", z.Err()
		case html.StartTagToken:
			if name, _ := z.TagName(); isHiddenTag(string(name)) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isHiddenTag(string(name)) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			text := strings.Join(strings.Fields(string(z.Text())), " ")
			if text == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(text)
			if maxChars > 0 && b.Len() >= maxChars {
				s := b.String()
				return strings.TrimSpace(s[:maxChars]), nil
			}
		}
	}
}

func isHiddenTag(name string) bool {
	switch name {
	case "script", "style", "noscript", "svg", "head", "template":
		return true
	}
	return false
}
