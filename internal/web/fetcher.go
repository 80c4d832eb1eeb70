package web

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	DefaultRequestTimeout = 20 * time.Second
	MaxResponseSize       = 1 * 1024 * 1024 // 1MB
)

// Format selects what Fetch returns for a page.
type Format string

const (
	// FormatRaw returns the response body text unchanged.
	FormatRaw Format = "raw"
	// FormatMarkdown renders HTML responses to Markdown. Other text is returned raw.
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts "", "raw" and "markdown".
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatRaw:
		return FormatRaw, nil
	case FormatMarkdown:
		return FormatMarkdown, nil
	}
	return "", errors.New("format must be raw or markdown")
}

type FetcherOptions struct {
	Timeout time.Duration
	// Delay is the minimum pause between requests to the same domain.
	Delay  time.Duration
	Format Format
	// UserAgents overrides the rotating built-in set.
	UserAgents []string
}

// Fetcher retrieves page content over HTTP(S). It is safe for concurrent use.
type Fetcher struct {
	c      *colly.Collector
	format Format
	agents *UserAgents
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.Async(false),
	)
	_ = c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       opts.Delay,
	})
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	c.SetRequestTimeout(timeout)
	format := opts.Format
	if format == "" {
		format = FormatRaw
	}
	return &Fetcher{c: c, format: format, agents: NewUserAgents(opts.UserAgents...)}
}

// Fetch performs a GET against rawURL and returns its content in the
// configured format. Failures are reported as *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return "", &FetchError{URL: rawURL, Err: err}
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "", &FetchError{URL: rawURL, Err: errors.New("url must start with http:// or https://")}
	}

	var (
		body        []byte
		finalURL    = rawURL
		contentType string
		status      int
	)

	// A clone per call keeps callbacks local while sharing limits and transport.
	c := f.c.Clone()
	c.Context = ctx
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", f.agents.Next())
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		finalURL = r.Request.URL.String()
		body = append([]byte(nil), r.Body...)
		contentType = r.Headers.Get("Content-Type")
	})
	c.OnError(func(r *colly.Response, _ error) {
		status = r.StatusCode
	})

	if err := c.Visit(rawURL); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return "", &FetchError{URL: rawURL, StatusCode: status, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return "", &FetchError{URL: rawURL, StatusCode: status, Err: err}
	}

	if len(body) > MaxResponseSize {
		body = body[:MaxResponseSize]
		body = append(body, []byte("... [response trimmed due to size]")...)
	}

	if f.format == FormatMarkdown && strings.Contains(strings.ToLower(contentType), "text/html") {
		md, err := renderMarkdown(body, finalURL)
		if err != nil {
			return "", &FetchError{URL: rawURL, StatusCode: status, Err: err}
		}
		return md, nil
	}
	return string(body), nil
}
