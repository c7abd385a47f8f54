package confluence

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// mainContentSelectors identify the region of an exported page that holds
// the actual content, tried in order before falling back to <body>.
var mainContentSelectors = []string{
	".wiki-content",
	"#main-content",
	"#content",
}

var (
	pageIDCommentRe    = regexp.MustCompile(`(?:pageId|confluence-page-id)\s*:\s*(\d+)`)
	contentIDCommentRe = regexp.MustCompile(`content-id\s*:\s*(\d+)`)
)

// minimumContentLength is the threshold below which extracted content is
// considered degenerate when the page also has no title.
const minimumContentLength = 20

// ParsePageFile reads and parses one exported HTML file.
//
// A missing or unreadable file returns (nil, error) so callers can tell
// "not found" apart from "found but unparseable": every other problem is
// recorded in ParsedPage.Err and still yields a structure.
func ParsePageFile(path string) (*ParsedPage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page file %s: %w", path, err)
	}
	return ParsePage(string(data)), nil
}

// ParsePage parses exported page HTML into a ParsedPage.
func ParsePage(content string) *ParsedPage {
	page := &ParsedPage{}

	if strings.TrimSpace(content) == "" {
		page.Err = "page file is empty"
		return page
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		page.Err = fmt.Sprintf("unparseable HTML: %v", err)
		return page
	}

	page.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if page.Title == "" {
		page.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	page.EmbeddedID = findEmbeddedID(doc)
	if page.Title == "" && page.EmbeddedID != "" {
		page.Title = "Page " + page.EmbeddedID
	}

	region, regionHTML := findMainContent(doc, content)
	page.ContentHTML = regionHTML
	if region != nil {
		page.AttachmentRefs = collectAttachmentRefs(region)
	}

	contentText := ""
	if region != nil {
		contentText = strings.TrimSpace(region.Text())
	}
	switch {
	case page.Title == "" && contentText == "":
		page.Err = "no title and no usable content"
	case page.Title == "" && len(contentText) < minimumContentLength:
		page.Err = "content too short and no title"
	}

	return page
}

// findEmbeddedID extracts the page's original id from the document. Each
// location is exhausted before the next is consulted: the ajs-page-id meta
// tag, the confluence-page-id meta tag, then HTML comments carrying a
// pageId/confluence-page-id marker, then comments with a content-id marker.
func findEmbeddedID(doc *goquery.Document) string {
	if id := strings.TrimSpace(doc.Find(`meta[name="ajs-page-id"]`).First().AttrOr("content", "")); id != "" {
		return id
	}
	if id := strings.TrimSpace(doc.Find(`meta[name="confluence-page-id"]`).First().AttrOr("content", "")); id != "" {
		return id
	}

	comments := collectComments(doc)
	for _, re := range []*regexp.Regexp{pageIDCommentRe, contentIDCommentRe} {
		for _, comment := range comments {
			if m := re.FindStringSubmatch(comment); m != nil {
				return m[1]
			}
		}
	}
	return ""
}

func collectComments(doc *goquery.Document) []string {
	var comments []string
	for _, root := range doc.Nodes {
		var walk func(n *html.Node)
		walk = func(n *html.Node) {
			if n.Type == html.CommentNode {
				comments = append(comments, n.Data)
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
		walk(root)
	}
	return comments
}

// findMainContent locates the content region and returns its selection plus
// the region's inner markup. Falls back to <body>, then to the raw document
// when not even a body exists.
func findMainContent(doc *goquery.Document, raw string) (*goquery.Selection, string) {
	for _, selector := range mainContentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 {
			inner, err := sel.Html()
			if err == nil {
				return sel, strings.TrimSpace(inner)
			}
		}
	}

	body := doc.Find("body").First()
	if body.Length() > 0 {
		inner, err := body.Html()
		if err == nil {
			return body, strings.TrimSpace(inner)
		}
	}

	return nil, strings.TrimSpace(raw)
}

// collectAttachmentRefs scans the main content region for image sources and
// link targets that point at bundled files: relative paths, or anything
// routed through an attachments/ segment. Absolute URLs, protocol-relative
// URLs and bare fragments are not attachments. Results are percent-decoded
// basenames, deduplicated and sorted.
func collectAttachmentRefs(region *goquery.Selection) []string {
	seen := make(map[string]struct{})

	region.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		if name, ok := attachmentName(s.AttrOr("src", ""), false); ok {
			seen[name] = struct{}{}
		}
	})
	region.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if name, ok := attachmentName(s.AttrOr("href", ""), true); ok {
			seen[name] = struct{}{}
		}
	})

	if len(seen) == 0 {
		return nil
	}
	refs := make([]string, 0, len(seen))
	for name := range seen {
		refs = append(refs, name)
	}
	sort.Strings(refs)
	return refs
}

func attachmentName(target string, isLink bool) (string, bool) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", false
	}
	lower := strings.ToLower(target)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(target, "//") || strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(lower, "mailto:") {
		return "", false
	}
	if isLink && strings.HasPrefix(target, "#") {
		return "", false
	}
	// Site-absolute paths only qualify when routed through an
	// attachments/ segment; plain relative paths always qualify.
	if strings.HasPrefix(target, "/") && !strings.Contains(target, "attachments/") {
		return "", false
	}

	// Strip query and fragment before taking the final path segment.
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		target = target[:i]
	}
	segments := strings.Split(target, "/")
	name := segments[len(segments)-1]
	if name == "" {
		return "", false
	}
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	return name, true
}
