package web

import (
	"bytes"
	"net/url"
	"sort"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

const maxLinks = 50

// renderMarkdown turns an HTML page into a Markdown document: title heading,
// meta description, a deduplicated list of outbound links and the body.
func renderMarkdown(pageHTML []byte, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(pageHTML))
	if err != nil {
		return "", err
	}

	// Remove non-visible elements
	doc.Find("script, style, noscript, iframe, object, embed, img, video, picture, svg, canvas, audio, source, track, map, area, form, label, input, button, select, textarea, progress, ins, applet").Remove()

	title := strings.TrimSpace(doc.Find("head > title").First().Text())
	desc := strings.TrimSpace(doc.Find("meta[name=description]").AttrOr("content", ""))
	links := extractLinks(doc, pageURL)

	doc.Find("a").Remove()
	doc.Find("header, footer, aside").Remove()

	var bodyText string
	htmlStr, err := doc.Html()
	if err != nil {
		return "", err
	}
	if md, err := htmltomarkdown.ConvertString(htmlStr); err == nil {
		bodyText = md
	} else {
		bodyText = strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	}

	var sb strings.Builder
	if title != "" {
		sb.WriteString("# ")
		sb.WriteString(title)
		sb.WriteString("\n\n")
	}
	if desc != "" {
		sb.WriteString(desc)
		sb.WriteString("\n\n")
	}
	if len(links) > 0 {
		sb.WriteString("## Links\n")
		for _, l := range links {
			sb.WriteString("- ")
			sb.WriteString(l)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(bodyText)
	return sb.String(), nil
}

// extractLinks resolves anchors against pageURL, drops fragments and
// non-navigational schemes, and returns at most maxLinks sorted URLs.
func extractLinks(doc *goquery.Document, pageURL string) []string {
	base, _ := url.Parse(pageURL)
	set := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "javascript:") {
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		if !u.IsAbs() && base != nil {
			u = base.ResolveReference(u)
		}
		switch u.Scheme {
		case "http", "https":
		default:
			return
		}
		u.Fragment = ""
		set[u.String()] = struct{}{}
	})

	links := make([]string, 0, len(set))
	for l := range set {
		links = append(links, l)
	}
	sort.Strings(links)
	if len(links) > maxLinks {
		links = links[:maxLinks]
	}
	return links
}
