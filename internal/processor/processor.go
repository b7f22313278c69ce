// Package processor parses raw page content into the normalized document
// consumed by analyzers. Parsing is best-effort: malformed markup degrades
// to partial extraction with a warning, never a hard failure.
package processor

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/sitelens/sitelens/internal/analysis"
)

// Processor implements analysis.Processor on top of goquery.
type Processor struct {
	logger *zap.Logger
}

// New builds a Processor.
func New(logger *zap.Logger) *Processor {
	return &Processor{logger: logger}
}

// Parse converts a RawDocument into a ParsedDocument. The returned error is
// always nil for HTML input problems; structural issues are recorded in
// ParsedDocument.Warnings.
func (p *Processor) Parse(raw analysis.RawDocument, opts analysis.ProcessorOptions) (*analysis.ParsedDocument, error) {
	doc := &analysis.ParsedDocument{
		URL:           raw.URL,
		FinalURL:      raw.FinalURL,
		StatusCode:    raw.StatusCode,
		Headers:       raw.Headers,
		Meta:          map[string]string{},
		HTMLSize:      len(raw.Body),
		FetchedAt:     raw.FetchedAt,
		FetchDuration: raw.Duration,
		UsedHeadless:  raw.UsedHeadless,
	}

	gq, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.Body))
	if err != nil {
		// net/html is extremely tolerant; reaching this means the body was
		// not HTML at all. Fall back to treating it as opaque text.
		doc.Warnings = append(doc.Warnings, fmt.Sprintf("unparseable markup: %v", err))
		doc.Text = normalizeWhitespace(string(raw.Body))
		return doc, nil
	}

	if opts.RemoveComments {
		for _, n := range gq.Nodes {
			stripComments(n)
		}
	}

	base := p.resolveBase(gq, doc)

	doc.Title = strings.TrimSpace(gq.Find("head title").First().Text())
	doc.Language, _ = gq.Find("html").First().Attr("lang")
	if opts.ExtractMetadata {
		p.extractMeta(gq, doc)
	}
	p.extractHeadings(gq, doc)
	p.extractLinks(gq, doc, base, opts)
	p.extractImages(gq, doc, base, opts)
	p.extractScripts(gq, doc)
	p.extractStructuredData(gq, doc)

	text := gq.Find("body").Text()
	if opts.CleanWhitespace {
		text = normalizeWhitespace(text)
	}
	doc.Text = text

	if doc.Title == "" && len(doc.Headings) == 0 && len(doc.Links) == 0 && doc.Text == "" {
		doc.Warnings = append(doc.Warnings, "document yielded no structure; markup may be broken")
	}
	return doc, nil
}

// resolveBase picks the URL links resolve against: <base href> when present,
// otherwise the final URL after redirects.
func (p *Processor) resolveBase(gq *goquery.Document, doc *analysis.ParsedDocument) *url.URL {
	baseRaw := doc.FinalURL
	if baseRaw == "" {
		baseRaw = doc.URL
	}
	if href, ok := gq.Find("head base[href]").First().Attr("href"); ok {
		if abs := resolveRef(baseRaw, href); abs != "" {
			baseRaw = abs
		}
	}
	base, err := url.Parse(baseRaw)
	if err != nil {
		doc.Warnings = append(doc.Warnings, fmt.Sprintf("invalid base url %q", baseRaw))
		return nil
	}
	return base
}

func (p *Processor) extractMeta(gq *goquery.Document, doc *analysis.ParsedDocument) {
	gq.Find("head meta").Each(func(_ int, s *goquery.Selection) {
		content, _ := s.Attr("content")
		if name, ok := s.Attr("name"); ok && name != "" {
			doc.Meta[strings.ToLower(name)] = strings.TrimSpace(content)
			return
		}
		if prop, ok := s.Attr("property"); ok && prop != "" {
			doc.Meta[strings.ToLower(prop)] = strings.TrimSpace(content)
			return
		}
		if equiv, ok := s.Attr("http-equiv"); ok && equiv != "" {
			doc.Meta["http-equiv:"+strings.ToLower(equiv)] = strings.TrimSpace(content)
		}
	})
	if charset, ok := gq.Find("head meta[charset]").First().Attr("charset"); ok {
		doc.Meta["charset"] = strings.ToLower(charset)
	}
}

func (p *Processor) extractHeadings(gq *goquery.Document, doc *analysis.ParsedDocument) {
	gq.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		level := int(s.Nodes[0].Data[1] - '0')
		doc.Headings = append(doc.Headings, analysis.Heading{
			Level: level,
			Text:  normalizeWhitespace(s.Text()),
		})
	})
}

func (p *Processor) extractLinks(gq *goquery.Document, doc *analysis.ParsedDocument, base *url.URL, opts analysis.ProcessorOptions) {
	gq.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}
		abs := href
		if opts.NormalizeURLs && base != nil {
			if resolved := resolveAgainst(base, href); resolved != "" {
				abs = resolved
			} else {
				doc.Warnings = append(doc.Warnings, fmt.Sprintf("unresolvable link %q", href))
				return
			}
		}
		rel, _ := s.Attr("rel")
		doc.Links = append(doc.Links, analysis.Link{
			URL:      abs,
			Text:     normalizeWhitespace(s.Text()),
			Rel:      rel,
			External: isExternal(base, abs),
		})
	})
}

func (p *Processor) extractImages(gq *goquery.Document, doc *analysis.ParsedDocument, base *url.URL, opts analysis.ProcessorOptions) {
	gq.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		src = strings.TrimSpace(src)
		if src == "" {
			return
		}
		if opts.NormalizeURLs && base != nil && !strings.HasPrefix(src, "data:") {
			if resolved := resolveAgainst(base, src); resolved != "" {
				src = resolved
			}
		}
		alt, _ := s.Attr("alt")
		doc.Images = append(doc.Images, analysis.Image{Src: src, Alt: alt})
	})
}

func (p *Processor) extractScripts(gq *goquery.Document, doc *analysis.ParsedDocument) {
	gq.Find("script").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		typ, _ := s.Attr("type")
		doc.Scripts = append(doc.Scripts, analysis.Script{
			Src:    strings.TrimSpace(src),
			Inline: src == "",
			Type:   typ,
		})
	})
}

func (p *Processor) extractStructuredData(gq *goquery.Document, doc *analysis.ParsedDocument) {
	gq.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		block := strings.TrimSpace(s.Text())
		if block != "" {
			doc.StructuredData = append(doc.StructuredData, block)
		}
	})
}

func resolveRef(baseRaw, ref string) string {
	base, err := url.Parse(baseRaw)
	if err != nil {
		return ""
	}
	return resolveAgainst(base, ref)
}

func resolveAgainst(base *url.URL, ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

func isExternal(base *url.URL, abs string) bool {
	if base == nil {
		return false
	}
	u, err := url.Parse(abs)
	if err != nil {
		return false
	}
	return !strings.EqualFold(u.Hostname(), base.Hostname())
}

func stripComments(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
		} else {
			stripComments(c)
		}
		c = next
	}
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
