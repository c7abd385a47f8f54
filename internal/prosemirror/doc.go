// Package prosemirror defines the document AST produced by the import
// converters and stored as page content.
//
// The model mirrors the ProseMirror JSON document shape: a tree of typed
// nodes, where leaf text nodes carry an ordered list of marks. Node and mark
// types form a closed set so malformed attribute names are caught at
// construction time instead of at render time.
package prosemirror

import (
	"encoding/json"
	"reflect"
)

// NodeType identifies the kind of a document node.
type NodeType string

const (
	NodeDoc            NodeType = "doc"
	NodeParagraph      NodeType = "paragraph"
	NodeHeading        NodeType = "heading"
	NodeBlockquote     NodeType = "blockquote"
	NodeCodeBlock      NodeType = "codeBlock"
	NodeBulletList     NodeType = "bulletList"
	NodeOrderedList    NodeType = "orderedList"
	NodeListItem       NodeType = "listItem"
	NodeTaskList       NodeType = "taskList"
	NodeTaskItem       NodeType = "taskItem"
	NodeTable          NodeType = "table"
	NodeTableRow       NodeType = "tableRow"
	NodeTableCell      NodeType = "tableCell"
	NodeTableHeader    NodeType = "tableHeader"
	NodeImage          NodeType = "image"
	NodeHorizontalRule NodeType = "horizontalRule"
	NodeHardBreak      NodeType = "hardBreak"
	NodeText           NodeType = "text"
)

// MarkType identifies an inline mark attached to a text node.
type MarkType string

const (
	MarkBold   MarkType = "bold"
	MarkItalic MarkType = "italic"
	MarkLink   MarkType = "link"
)

// Mark is an inline formatting annotation. Marks on a text node behave as a
// set keyed by (Type, Attrs): the same mark is never applied twice.
type Mark struct {
	Type  MarkType       `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Equal reports whether two marks have the same type and attributes.
func (m Mark) Equal(other Mark) bool {
	if m.Type != other.Type {
		return false
	}
	if len(m.Attrs) != len(other.Attrs) {
		return false
	}
	return len(m.Attrs) == 0 || reflect.DeepEqual(m.Attrs, other.Attrs)
}

// HasMark reports whether marks already contains a mark equal to m.
func HasMark(marks []Mark, m Mark) bool {
	for _, existing := range marks {
		if existing.Equal(m) {
			return true
		}
	}
	return false
}

// Node is a single node of the document tree.
//
// Content is nil for leaf nodes (text, image, horizontalRule, hardBreak) and
// non-nil, possibly empty, for every container node. The distinction matters
// at serialization time: container nodes always emit a "content" array, even
// when empty, while leaf nodes omit the key entirely.
type Node struct {
	Type    NodeType
	Attrs   map[string]any
	Content []*Node
	Marks   []Mark
	Text    string
}

// NewDoc builds a document root. A document always carries a content array.
func NewDoc(content []*Node) *Node {
	if content == nil {
		content = []*Node{}
	}
	return &Node{Type: NodeDoc, Content: content}
}

// NewText builds a leaf text node carrying the given marks.
func NewText(text string, marks []Mark) *Node {
	n := &Node{Type: NodeText, Text: text}
	if len(marks) > 0 {
		n.Marks = append([]Mark(nil), marks...)
	}
	return n
}

// NewBlock builds a container node, guaranteeing a non-nil content slice.
func NewBlock(t NodeType, attrs map[string]any, content []*Node) *Node {
	if content == nil {
		content = []*Node{}
	}
	return &Node{Type: t, Attrs: attrs, Content: content}
}

// NewLeaf builds a childless node such as an image or horizontal rule.
func NewLeaf(t NodeType, attrs map[string]any) *Node {
	return &Node{Type: t, Attrs: attrs}
}

// EmptyParagraph returns a paragraph with an empty content array.
func EmptyParagraph() *Node {
	return NewBlock(NodeParagraph, nil, nil)
}

// Walk visits n and every descendant depth-first in document order.
func Walk(n *Node, visit func(*Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, child := range n.Content {
		Walk(child, visit)
	}
}

// IsLeafType reports whether nodes of type t never carry content.
func IsLeafType(t NodeType) bool {
	switch t {
	case NodeText, NodeImage, NodeHorizontalRule, NodeHardBreak:
		return true
	}
	return false
}

type nodeJSON struct {
	Type    NodeType       `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []*Node        `json:"content,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Text    *string        `json:"text,omitempty"`
}

// MarshalJSON serializes the node, emitting a content array for every
// container node (even an empty one) and no content key for leaf nodes.
func (n *Node) MarshalJSON() ([]byte, error) {
	out := map[string]any{"type": n.Type}
	if len(n.Attrs) > 0 {
		out["attrs"] = n.Attrs
	}
	if n.Content != nil {
		out["content"] = n.Content
	}
	if len(n.Marks) > 0 {
		out["marks"] = n.Marks
	}
	if n.Type == NodeText {
		out["text"] = n.Text
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a node serialized by MarshalJSON.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n.Type = raw.Type
	n.Attrs = raw.Attrs
	n.Content = raw.Content
	n.Marks = raw.Marks
	if raw.Text != nil {
		n.Text = *raw.Text
	}
	if n.Content == nil && !IsLeafType(n.Type) {
		n.Content = []*Node{}
	}
	return nil
}
