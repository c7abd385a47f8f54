package confluence

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"wikiport/internal/prosemirror"
)

// AttachmentScheme prefixes symbolic image sources produced during
// conversion. The orchestrator later resolves these to real storage
// references once the attachment bytes have been persisted; unresolved
// references are left in place as a visible degradation.
const AttachmentScheme = "wikiport:attachment:"

// AttachmentRef builds the symbolic source for an attachment filename.
func AttachmentRef(filename string) string {
	return AttachmentScheme + filename
}

// AttachmentRefName extracts the filename from a symbolic source, returning
// false when src is not symbolic.
func AttachmentRefName(src string) (string, bool) {
	if !strings.HasPrefix(src, AttachmentScheme) {
		return "", false
	}
	return strings.TrimPrefix(src, AttachmentScheme), true
}

var (
	languageClassRe = regexp.MustCompile(`(?:^|\s)language-([\w#+-]+)`)
	brushRe         = regexp.MustCompile(`brush:\s*([\w#+-]+)`)
)

// panelTypes are the recognized information-panel suffixes. A wrapper with
// the panel marker class but none of these suffixes is not a panel and gets
// default unwrap treatment.
var panelTypes = []string{"info", "note", "warning", "tip"}

// listContext tells a list item what kind of list it sits in.
// Classification flows top-down: an item is a task item because its parent
// list was classified as a task list, not because of its own markup, with
// the one exception of an explicit task-item marker class on the item.
type listContext int

const (
	listNone listContext = iota
	listBullet
	listOrdered
	listTask
)

// ConvertHTML converts an HTML fragment into a document AST.
//
// The function is pure and total: it performs no I/O, is deterministic, and
// never fails. Malformed or unrecognized markup degrades to unwrapping or
// omission rather than errors.
func ConvertHTML(fragment string) *prosemirror.Node {
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		// html.Parse recovers from essentially anything; an error here
		// means the reader failed, which cannot happen for a string.
		return prosemirror.NewDoc(nil)
	}

	body := findElement(root, "body")
	if body == nil {
		body = root
	}

	var fragments []*prosemirror.Node
	for child := body.FirstChild; child != nil; child = child.NextSibling {
		fragments = append(fragments, convertNode(child, nil, listNone)...)
	}

	return prosemirror.NewDoc(finalizeTopLevel(fragments))
}

// convertNode converts one HTML node into zero or more AST nodes. marks is
// the inherited active mark set; list is the classification of the nearest
// enclosing list, consumed by <li> handling.
func convertNode(n *html.Node, marks []prosemirror.Mark, list listContext) []*prosemirror.Node {
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) == "" {
			return nil
		}
		return []*prosemirror.Node{prosemirror.NewText(n.Data, marks)}
	case html.ElementNode:
		return convertElement(n, marks, list)
	default:
		// Comments, doctypes and friends contribute nothing.
		return nil
	}
}

func convertElement(n *html.Node, marks []prosemirror.Mark, list listContext) []*prosemirror.Node {
	switch n.Data {
	case "script", "style", "head", "title", "meta", "link":
		return nil

	case "p":
		return []*prosemirror.Node{inlineBlock(prosemirror.NodeParagraph, nil, n, marks)}

	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(n.Data[1] - '0')
		attrs := map[string]any{"level": level}
		return []*prosemirror.Node{inlineBlock(prosemirror.NodeHeading, attrs, n, marks)}

	case "strong", "b":
		return convertWithMark(n, marks, prosemirror.Mark{Type: prosemirror.MarkBold}, list)

	case "em", "i":
		return convertWithMark(n, marks, prosemirror.Mark{Type: prosemirror.MarkItalic}, list)

	case "a":
		href := attrValue(n, "href")
		if href == "" {
			return unwrap(n, marks, list)
		}
		mark := prosemirror.Mark{Type: prosemirror.MarkLink, Attrs: map[string]any{"href": href}}
		return convertWithMark(n, marks, mark, list)

	case "br":
		return []*prosemirror.Node{prosemirror.NewLeaf(prosemirror.NodeHardBreak, nil)}

	case "hr":
		return []*prosemirror.Node{prosemirror.NewLeaf(prosemirror.NodeHorizontalRule, nil)}

	case "img":
		return convertImage(n)

	case "ul":
		kind, ctx := prosemirror.NodeBulletList, listBullet
		if hasAnyClass(n, "task-list", "inline-task-list") {
			kind, ctx = prosemirror.NodeTaskList, listTask
		}
		return []*prosemirror.Node{prosemirror.NewBlock(kind, nil, convertChildren(n, marks, ctx))}

	case "ol":
		return []*prosemirror.Node{prosemirror.NewBlock(prosemirror.NodeOrderedList, nil, convertChildren(n, marks, listOrdered))}

	case "li":
		return convertListItem(n, marks, list)

	case "table":
		return []*prosemirror.Node{convertTable(n, marks)}

	case "pre":
		return []*prosemirror.Node{convertCodeBlock(n)}

	case "blockquote":
		children := normalizeBlockChildren(convertChildren(n, marks, listNone), false)
		return []*prosemirror.Node{prosemirror.NewBlock(prosemirror.NodeBlockquote, nil, children)}

	case "div", "section", "aside":
		if panel, ok := convertPanel(n, marks); ok {
			return []*prosemirror.Node{panel}
		}
		return unwrap(n, marks, list)

	default:
		return unwrap(n, marks, list)
	}
}

// unwrap discards the element itself and splices its converted children
// directly into the parent's output, preserving order.
func unwrap(n *html.Node, marks []prosemirror.Mark, list listContext) []*prosemirror.Node {
	var out []*prosemirror.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		out = append(out, convertNode(child, marks, list)...)
	}
	return out
}

// convertWithMark adds a mark to the active set (unless an equal mark is
// already active) and unwraps the element.
func convertWithMark(n *html.Node, marks []prosemirror.Mark, mark prosemirror.Mark, list listContext) []*prosemirror.Node {
	if !prosemirror.HasMark(marks, mark) {
		extended := make([]prosemirror.Mark, len(marks), len(marks)+1)
		copy(extended, marks)
		marks = append(extended, mark)
	}
	return unwrap(n, marks, list)
}

func convertChildren(n *html.Node, marks []prosemirror.Mark, list listContext) []*prosemirror.Node {
	var out []*prosemirror.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		out = append(out, convertNode(child, marks, list)...)
	}
	return out
}

// inlineBlock builds a node whose content model is inline (paragraph,
// heading): a sole text child is trimmed, and a child slice that collapses
// to nothing still yields an empty content array.
func inlineBlock(kind prosemirror.NodeType, attrs map[string]any, n *html.Node, marks []prosemirror.Mark) *prosemirror.Node {
	children := convertChildren(n, marks, listNone)
	children = trimSoleText(children)
	return prosemirror.NewBlock(kind, attrs, children)
}

// trimSoleText trims whitespace when a node list is exactly one text node,
// dropping the node entirely if trimming empties it.
func trimSoleText(children []*prosemirror.Node) []*prosemirror.Node {
	if len(children) == 1 && children[0].Type == prosemirror.NodeText {
		trimmed := strings.TrimSpace(children[0].Text)
		if trimmed == "" {
			return nil
		}
		children[0].Text = trimmed
	}
	return children
}

func convertImage(n *html.Node) []*prosemirror.Node {
	src := strings.TrimSpace(attrValue(n, "src"))
	if src == "" {
		// An image with no resolvable source contributes nothing.
		return nil
	}

	decoded := src
	if d, err := url.PathUnescape(src); err == nil {
		decoded = d
	}
	attrs := map[string]any{"src": AttachmentRef(path.Base(decoded))}
	if alt := attrValue(n, "alt"); alt != "" {
		attrs["alt"] = alt
	}
	if title := attrValue(n, "title"); title != "" {
		attrs["title"] = title
	}
	return []*prosemirror.Node{prosemirror.NewLeaf(prosemirror.NodeImage, attrs)}
}

func convertListItem(n *html.Node, marks []prosemirror.Mark, list listContext) []*prosemirror.Node {
	isTask := list == listTask || hasAnyClass(n, "task-list-item")
	if !isTask {
		children := normalizeBlockChildren(convertChildren(n, marks, listNone), false)
		return []*prosemirror.Node{prosemirror.NewBlock(prosemirror.NodeListItem, nil, children)}
	}

	checked := taskStatus(n) == "complete"

	// When the item carries a dedicated task body wrapper, only that
	// subtree is the task's content; siblings (checkbox controls and
	// similar chrome) are discarded.
	content := n
	if body := findByClass(n, "task-body", "task-item-body"); body != nil {
		content = body
	}

	children := normalizeBlockChildren(convertChildren(content, marks, listNone), true)
	attrs := map[string]any{"checked": checked}
	return []*prosemirror.Node{prosemirror.NewBlock(prosemirror.NodeTaskItem, attrs, children)}
}

func taskStatus(n *html.Node) string {
	if status := attrValue(n, "data-task-status"); status != "" {
		return status
	}
	if hasAnyClass(n, "complete", "checked") {
		return "complete"
	}
	return ""
}

// normalizeBlockChildren enforces the block content model shared by list
// items, task items, table cells and blockquotes: a pure run of inline
// content is wrapped once in a synthetic paragraph, an empty run becomes a
// single empty paragraph, and anything containing real block content is
// used as-is. Task items are the one container allowed to stay empty.
func normalizeBlockChildren(children []*prosemirror.Node, allowEmpty bool) []*prosemirror.Node {
	children = trimSoleText(children)

	if len(children) == 0 {
		if allowEmpty {
			return nil
		}
		return []*prosemirror.Node{prosemirror.EmptyParagraph()}
	}

	for _, child := range children {
		if !isInline(child) {
			return children
		}
	}
	return []*prosemirror.Node{prosemirror.NewBlock(prosemirror.NodeParagraph, nil, children)}
}

func isInline(n *prosemirror.Node) bool {
	switch n.Type {
	case prosemirror.NodeText, prosemirror.NodeHardBreak, prosemirror.NodeImage:
		return true
	}
	return false
}

// convertTable flattens row groups away: rows inside thead/tbody/tfoot and
// bare rows all become direct children of the table, in document order.
func convertTable(n *html.Node, marks []prosemirror.Mark) *prosemirror.Node {
	var rows []*prosemirror.Node
	var collect func(node *html.Node)
	collect = func(node *html.Node) {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != html.ElementNode {
				continue
			}
			switch child.Data {
			case "tr":
				rows = append(rows, convertTableRow(child, marks))
			case "thead", "tbody", "tfoot":
				collect(child)
			}
		}
	}
	collect(n)
	return prosemirror.NewBlock(prosemirror.NodeTable, nil, rows)
}

func convertTableRow(n *html.Node, marks []prosemirror.Mark) *prosemirror.Node {
	var cells []*prosemirror.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		switch child.Data {
		case "td":
			cells = append(cells, convertTableCell(child, marks, prosemirror.NodeTableCell))
		case "th":
			cells = append(cells, convertTableCell(child, marks, prosemirror.NodeTableHeader))
		}
	}
	return prosemirror.NewBlock(prosemirror.NodeTableRow, nil, cells)
}

func convertTableCell(n *html.Node, marks []prosemirror.Mark, kind prosemirror.NodeType) *prosemirror.Node {
	var attrs map[string]any
	for _, span := range []string{"colspan", "rowspan"} {
		if value, ok := spanAttr(n, span); ok {
			if attrs == nil {
				attrs = make(map[string]any)
			}
			attrs[span] = value
		}
	}
	children := normalizeBlockChildren(convertChildren(n, marks, listNone), false)
	return prosemirror.NewBlock(kind, attrs, children)
}

// spanAttr parses a colspan/rowspan attribute, keeping it only when the
// value is a valid integer greater than one.
func spanAttr(n *html.Node, name string) (int, bool) {
	raw := strings.TrimSpace(attrValue(n, name))
	if raw == "" {
		return 0, false
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 1 {
		return 0, false
	}
	return value, true
}

// convertCodeBlock turns a <pre> element into a code block with a single
// text child preserving internal whitespace verbatim. No inline processing
// happens inside. The language comes from a language-X class first, then a
// brush: X marker (class or syntaxhighlighter params attribute).
func convertCodeBlock(n *html.Node) *prosemirror.Node {
	text := textContent(n)
	// A single trailing newline is parser noise, inner newlines are content.
	text = strings.TrimSuffix(text, "\n")

	var attrs map[string]any
	if language := codeLanguage(n); language != "" {
		attrs = map[string]any{"language": language}
	}

	var content []*prosemirror.Node
	if text != "" {
		content = []*prosemirror.Node{prosemirror.NewText(text, nil)}
	}
	return prosemirror.NewBlock(prosemirror.NodeCodeBlock, attrs, content)
}

func codeLanguage(n *html.Node) string {
	candidates := []string{attrValue(n, "class")}
	if code := findElement(n, "code"); code != nil {
		candidates = append(candidates, attrValue(code, "class"))
	}
	candidates = append(candidates, attrValue(n, "data-syntaxhighlighter-params"))

	for _, candidate := range candidates {
		if m := languageClassRe.FindStringSubmatch(candidate); m != nil {
			return m[1]
		}
	}
	for _, candidate := range candidates {
		if m := brushRe.FindStringSubmatch(candidate); m != nil {
			return m[1]
		}
	}
	return ""
}

// convertPanel handles the information-panel pattern: a wrapper with the
// panel marker class and a recognized suffix, containing a title element
// (dropped) and a body element whose children become the panel content. The
// result is a blockquote carrying a panelType attribute.
func convertPanel(n *html.Node, marks []prosemirror.Mark) (*prosemirror.Node, bool) {
	if !hasAnyClass(n, "panel", "confluence-information-macro") {
		return nil, false
	}

	panelType := ""
	for _, class := range classList(n) {
		for _, suffix := range panelTypes {
			if class == "panel-"+suffix || class == "macro-"+suffix ||
				class == "confluence-information-macro-"+suffix {
				panelType = suffix
			}
		}
	}
	if panelType == "" {
		return nil, false
	}

	content := n
	if body := findByClass(n, "panel-body", "panelContent", "confluence-information-macro-body"); body != nil {
		content = body
	}

	var children []*prosemirror.Node
	for child := content.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode && hasAnyClass(child, "panel-title", "panelHeader", "title") {
			continue
		}
		children = append(children, convertNode(child, marks, listNone)...)
	}

	attrs := map[string]any{"panelType": panelType}
	return prosemirror.NewBlock(prosemirror.NodeBlockquote, attrs, normalizeBlockChildren(children, false)), true
}

// finalizeTopLevel runs the document-level cleanup pass over the top-level
// sequence only: bare text gets wrapped in a paragraph, and paragraphs left
// with only whitespace text are dropped.
func finalizeTopLevel(fragments []*prosemirror.Node) []*prosemirror.Node {
	var out []*prosemirror.Node
	for _, node := range fragments {
		switch node.Type {
		case prosemirror.NodeText:
			if strings.TrimSpace(node.Text) == "" {
				continue
			}
			out = append(out, prosemirror.NewBlock(prosemirror.NodeParagraph, nil, []*prosemirror.Node{node}))
		case prosemirror.NodeParagraph:
			kept := node.Content[:0:0]
			for _, child := range node.Content {
				if child.Type == prosemirror.NodeText && strings.TrimSpace(child.Text) == "" {
					continue
				}
				kept = append(kept, child)
			}
			if len(kept) == 0 && len(node.Content) > 0 {
				// The paragraph held only whitespace; it adds nothing.
				continue
			}
			node.Content = kept
			if node.Content == nil {
				node.Content = []*prosemirror.Node{}
			}
			out = append(out, node)
		default:
			out = append(out, node)
		}
	}
	return out
}

// --- html.Node helpers ---

func attrValue(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

func classList(n *html.Node) []string {
	return strings.Fields(attrValue(n, "class"))
}

func hasAnyClass(n *html.Node, classes ...string) bool {
	for _, have := range classList(n) {
		for _, want := range classes {
			if have == want {
				return true
			}
		}
	}
	return false
}

// findElement returns the first descendant element with the given tag name,
// depth-first.
func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

// findByClass returns the first descendant element carrying any of the
// given classes, depth-first, excluding n itself.
func findByClass(n *html.Node, classes ...string) *html.Node {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode && hasAnyClass(child, classes...) {
			return child
		}
		if found := findByClass(child, classes...); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}
