package web

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const DefaultSearchEndpoint = "https://html.duckduckgo.com/html/"

// Getter returns the content at a URL, typically through a cache.
type Getter interface {
	Get(ctx context.Context, url string) (string, error)
}

// extractDDGURL extracts the actual URL from DuckDuckGo's redirect URL format
// Input: //duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com&rut=...
// Output: https://example.com
func extractDDGURL(ddgURL string) string {
	if strings.HasPrefix(ddgURL, "//duckduckgo.com/l/") {
		ddgURL = "https:" + ddgURL
	}
	u, err := url.Parse(ddgURL)
	if err != nil {
		return ddgURL
	}
	uddg := u.Query().Get("uddg")
	if uddg == "" {
		return ddgURL
	}
	// Query() has already unescaped the parameter.
	return uddg
}

type SearchResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

// Searcher queries the DuckDuckGo HTML endpoint. Result pages are retrieved
// through pages, so repeated queries are cached and counted like any URL.
type Searcher struct {
	pages    Getter
	endpoint string
}

// NewSearcher uses DefaultSearchEndpoint when endpoint is empty.
func NewSearcher(pages Getter, endpoint string) *Searcher {
	if endpoint == "" {
		endpoint = DefaultSearchEndpoint
	}
	return &Searcher{pages: pages, endpoint: endpoint}
}

// QueryURL is the result page URL for q.
func (s *Searcher) QueryURL(q string) string {
	values := url.Values{"q": {q}, "kl": {"us-en"}}
	return s.endpoint + "?" + values.Encode()
}

func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("empty query")
	}
	if limit <= 0 || limit > 20 {
		limit = 10
	}
	page, err := s.pages.Get(ctx, s.QueryURL(q))
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, err
	}
	return parseResults(doc, limit), nil
}

func parseResults(doc *goquery.Document, limit int) []SearchResult {
	results := make([]SearchResult, 0, limit)
	doc.Find("div.result.results_links.results_links_deep.web-result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		a := s.Find("a.result__a").First()
		link := strings.TrimSpace(a.AttrOr("href", ""))
		title := singleLine(a.Text())
		desc := singleLine(s.Find("a.result__snippet").First().Text())
		if title != "" && link != "" {
			results = append(results, SearchResult{Title: title, Description: desc, Link: extractDDGURL(link)})
		}
		return len(results) < limit
	})
	if len(results) > 0 {
		return results
	}

	// Fallback: scan anchor list and nearest snippet up the tree
	doc.Find("a.result__a").EachWithBreak(func(_ int, n *goquery.Selection) bool {
		title := singleLine(n.Text())
		link := strings.TrimSpace(n.AttrOr("href", ""))
		desc := singleLine(n.Parents().Find("a.result__snippet").First().Text())
		results = append(results, SearchResult{Title: title, Description: desc, Link: extractDDGURL(link)})
		return len(results) < limit
	})
	return results
}

// singleLine trims and collapses internal whitespace/newlines to single spaces.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
