package confluence

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikiport/internal/prosemirror"
)

func TestConvertHTMLParagraphWithBold(t *testing.T) {
	doc := ConvertHTML(`<p>Hello <strong>world</strong></p>`)

	require.Len(t, doc.Content, 1)
	para := doc.Content[0]
	assert.Equal(t, prosemirror.NodeParagraph, para.Type)

	require.Len(t, para.Content, 2)
	assert.Equal(t, "Hello ", para.Content[0].Text)
	assert.Empty(t, para.Content[0].Marks)
	assert.Equal(t, "world", para.Content[1].Text)
	require.Len(t, para.Content[1].Marks, 1)
	assert.Equal(t, prosemirror.MarkBold, para.Content[1].Marks[0].Type)
}

func TestConvertHTMLHeadingLevels(t *testing.T) {
	doc := ConvertHTML(`<h2>Overview</h2><h6>Fine print</h6>`)

	require.Len(t, doc.Content, 2)
	assert.Equal(t, prosemirror.NodeHeading, doc.Content[0].Type)
	assert.Equal(t, 2, doc.Content[0].Attrs["level"])
	require.Len(t, doc.Content[0].Content, 1)
	assert.Equal(t, "Overview", doc.Content[0].Content[0].Text)

	assert.Equal(t, 6, doc.Content[1].Attrs["level"])
}

func TestConvertHTMLNestedMarksInherited(t *testing.T) {
	doc := ConvertHTML(`<p><strong>bold <em>both</em></strong></p>`)

	para := doc.Content[0]
	require.Len(t, para.Content, 2)

	assert.Equal(t, "bold ", para.Content[0].Text)
	require.Len(t, para.Content[0].Marks, 1)

	both := para.Content[1]
	assert.Equal(t, "both", both.Text)
	require.Len(t, both.Marks, 2)
	assert.Equal(t, prosemirror.MarkBold, both.Marks[0].Type)
	assert.Equal(t, prosemirror.MarkItalic, both.Marks[1].Type)
}

func TestConvertHTMLDuplicateMarkNotRepeated(t *testing.T) {
	doc := ConvertHTML(`<p><strong>a<strong>b</strong></strong></p>`)

	para := doc.Content[0]
	require.Len(t, para.Content, 2)
	assert.Len(t, para.Content[0].Marks, 1)
	assert.Len(t, para.Content[1].Marks, 1)
}

func TestConvertHTMLLinks(t *testing.T) {
	doc := ConvertHTML(`<p><a href="https://example.com">site</a> and <a>bare</a></p>`)

	para := doc.Content[0]
	require.Len(t, para.Content, 3)

	link := para.Content[0]
	require.Len(t, link.Marks, 1)
	assert.Equal(t, prosemirror.MarkLink, link.Marks[0].Type)
	assert.Equal(t, "https://example.com", link.Marks[0].Attrs["href"])

	// An anchor without a target is unwrapped, not marked.
	assert.Equal(t, "bare", para.Content[2].Text)
	assert.Empty(t, para.Content[2].Marks)
}

func TestConvertHTMLImageBecomesSymbolicReference(t *testing.T) {
	doc := ConvertHTML(`<p><img src="attachments/123/diagram%20v2.png" alt="Diagram"></p>`)

	para := doc.Content[0]
	require.Len(t, para.Content, 1)
	img := para.Content[0]
	assert.Equal(t, prosemirror.NodeImage, img.Type)
	assert.Equal(t, "wikiport:attachment:diagram v2.png", img.Attrs["src"])
	assert.Equal(t, "Diagram", img.Attrs["alt"])

	name, ok := AttachmentRefName(img.Attrs["src"].(string))
	require.True(t, ok)
	assert.Equal(t, "diagram v2.png", name)
}

func TestConvertHTMLImageWithoutSourceDropped(t *testing.T) {
	doc := ConvertHTML(`<p><img alt="nothing">text</p>`)

	para := doc.Content[0]
	require.Len(t, para.Content, 1)
	assert.Equal(t, "text", para.Content[0].Text)
}

func TestConvertHTMLBulletList(t *testing.T) {
	doc := ConvertHTML(`<ul><li>one</li><li>two</li></ul>`)

	require.Len(t, doc.Content, 1)
	list := doc.Content[0]
	assert.Equal(t, prosemirror.NodeBulletList, list.Type)
	require.Len(t, list.Content, 2)

	item := list.Content[0]
	assert.Equal(t, prosemirror.NodeListItem, item.Type)
	// Inline list item content is wrapped in a synthetic paragraph.
	require.Len(t, item.Content, 1)
	assert.Equal(t, prosemirror.NodeParagraph, item.Content[0].Type)
	assert.Equal(t, "one", item.Content[0].Content[0].Text)
}

func TestConvertHTMLOrderedList(t *testing.T) {
	doc := ConvertHTML(`<ol><li><p>first</p><p>second</p></li></ol>`)

	list := doc.Content[0]
	assert.Equal(t, prosemirror.NodeOrderedList, list.Type)
	// Items already holding block content are not re-wrapped.
	require.Len(t, list.Content[0].Content, 2)
	assert.Equal(t, prosemirror.NodeParagraph, list.Content[0].Content[0].Type)
}

func TestConvertHTMLTaskList(t *testing.T) {
	doc := ConvertHTML(`<ul class="inline-task-list">
		<li class="task-list-item" data-task-status="complete"><span class="task-body">Ship it</span></li>
		<li class="task-list-item">Not yet</li>
	</ul>`)

	list := doc.Content[0]
	assert.Equal(t, prosemirror.NodeTaskList, list.Type)
	require.Len(t, list.Content, 2)

	done := list.Content[0]
	assert.Equal(t, prosemirror.NodeTaskItem, done.Type)
	assert.Equal(t, true, done.Attrs["checked"])
	require.Len(t, done.Content, 1)
	assert.Equal(t, "Ship it", done.Content[0].Content[0].Text)

	pending := list.Content[1]
	assert.Equal(t, false, pending.Attrs["checked"])
}

func TestConvertHTMLEmptyTaskItemStaysEmpty(t *testing.T) {
	doc := ConvertHTML(`<ul class="task-list"><li class="task-list-item complete"></li></ul>`)

	item := doc.Content[0].Content[0]
	assert.Equal(t, prosemirror.NodeTaskItem, item.Type)
	assert.Equal(t, true, item.Attrs["checked"])
	assert.NotNil(t, item.Content)
	assert.Empty(t, item.Content)

	raw, err := json.Marshal(item)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"content":[]`)
}

func TestConvertHTMLTableFlattensRowGroups(t *testing.T) {
	doc := ConvertHTML(`<table>
		<thead><tr><th colspan="2">Header</th></tr></thead>
		<tbody><tr><td>a</td><td rowspan="1">b</td></tr></tbody>
	</table>`)

	table := doc.Content[0]
	assert.Equal(t, prosemirror.NodeTable, table.Type)
	require.Len(t, table.Content, 2)

	headerRow := table.Content[0]
	assert.Equal(t, prosemirror.NodeTableRow, headerRow.Type)
	header := headerRow.Content[0]
	assert.Equal(t, prosemirror.NodeTableHeader, header.Type)
	assert.Equal(t, 2, header.Attrs["colspan"])

	bodyRow := table.Content[1]
	require.Len(t, bodyRow.Content, 2)
	assert.Equal(t, prosemirror.NodeTableCell, bodyRow.Content[0].Type)
	// Span values of one carry no information and are omitted.
	assert.Nil(t, bodyRow.Content[1].Attrs)

	// Cell content follows the block model.
	assert.Equal(t, prosemirror.NodeParagraph, bodyRow.Content[0].Content[0].Type)
}

func TestConvertHTMLTableInvalidSpanIgnored(t *testing.T) {
	doc := ConvertHTML(`<table><tr><td colspan="abc">x</td></tr></table>`)

	cell := doc.Content[0].Content[0].Content[0]
	assert.Nil(t, cell.Attrs)
}

func TestConvertHTMLCodeBlockFromLanguageClass(t *testing.T) {
	doc := ConvertHTML("<pre class=\"language-go\">fmt.Println(\"hi\")\nreturn\n</pre>")

	block := doc.Content[0]
	assert.Equal(t, prosemirror.NodeCodeBlock, block.Type)
	assert.Equal(t, "go", block.Attrs["language"])
	require.Len(t, block.Content, 1)
	// Inner newlines survive, the single trailing one does not.
	assert.Equal(t, "fmt.Println(\"hi\")\nreturn", block.Content[0].Text)
}

func TestConvertHTMLCodeBlockFromBrushParams(t *testing.T) {
	doc := ConvertHTML(`<pre data-syntaxhighlighter-params="brush: java; gutter: false">int x = 1;</pre>`)

	block := doc.Content[0]
	assert.Equal(t, "java", block.Attrs["language"])
}

func TestConvertHTMLCodeBlockNoLanguage(t *testing.T) {
	doc := ConvertHTML(`<pre>plain</pre>`)

	block := doc.Content[0]
	assert.Nil(t, block.Attrs)
	assert.Equal(t, "plain", block.Content[0].Text)
}

func TestConvertHTMLBlockquote(t *testing.T) {
	doc := ConvertHTML(`<blockquote>quoted words here</blockquote>`)

	quote := doc.Content[0]
	assert.Equal(t, prosemirror.NodeBlockquote, quote.Type)
	require.Len(t, quote.Content, 1)
	assert.Equal(t, prosemirror.NodeParagraph, quote.Content[0].Type)
}

func TestConvertHTMLInfoPanel(t *testing.T) {
	doc := ConvertHTML(`<div class="confluence-information-macro confluence-information-macro-info">
		<p class="title">Heads up</p>
		<div class="confluence-information-macro-body"><p>Body text</p></div>
	</div>`)

	require.Len(t, doc.Content, 1)
	panel := doc.Content[0]
	assert.Equal(t, prosemirror.NodeBlockquote, panel.Type)
	assert.Equal(t, "info", panel.Attrs["panelType"])
	require.Len(t, panel.Content, 1)
	assert.Equal(t, "Body text", panel.Content[0].Content[0].Text)
}

func TestConvertHTMLPanelWithoutRecognizedTypeUnwraps(t *testing.T) {
	doc := ConvertHTML(`<div class="panel"><p>just content</p></div>`)

	require.Len(t, doc.Content, 1)
	assert.Equal(t, prosemirror.NodeParagraph, doc.Content[0].Type)
}

func TestConvertHTMLHorizontalRuleAndHardBreak(t *testing.T) {
	doc := ConvertHTML(`<p>one<br>two</p><hr>`)

	para := doc.Content[0]
	require.Len(t, para.Content, 3)
	assert.Equal(t, prosemirror.NodeHardBreak, para.Content[1].Type)
	assert.Equal(t, prosemirror.NodeHorizontalRule, doc.Content[1].Type)
}

func TestConvertHTMLBareTopLevelTextWrapped(t *testing.T) {
	doc := ConvertHTML(`loose text`)

	require.Len(t, doc.Content, 1)
	assert.Equal(t, prosemirror.NodeParagraph, doc.Content[0].Type)
	assert.Equal(t, "loose text", doc.Content[0].Content[0].Text)
}

func TestConvertHTMLScriptAndStyleDropped(t *testing.T) {
	doc := ConvertHTML(`<script>alert(1)</script><style>p{}</style><p>kept</p>`)

	require.Len(t, doc.Content, 1)
	assert.Equal(t, "kept", doc.Content[0].Content[0].Text)
}

func TestConvertHTMLUnknownElementsUnwrap(t *testing.T) {
	doc := ConvertHTML(`<p><span class="x"><font>styled</font></span></p>`)

	para := doc.Content[0]
	require.Len(t, para.Content, 1)
	assert.Equal(t, "styled", para.Content[0].Text)
}

func TestConvertHTMLEmptyInput(t *testing.T) {
	doc := ConvertHTML("")

	assert.Equal(t, prosemirror.NodeDoc, doc.Type)
	assert.NotNil(t, doc.Content)
	assert.Empty(t, doc.Content)
}

func TestConvertHTMLDeterministicSerialization(t *testing.T) {
	input := `<h1>Title</h1>
		<p>Some <strong>bold</strong> and <em>italic</em> text with <a href="https://x.test">a link</a>.</p>
		<ul class="task-list"><li class="task-list-item complete">done</li></ul>
		<table><tr><th colspan="3">h</th></tr><tr><td>c</td></tr></table>
		<pre class="language-python">print(1)</pre>
		<p><img src="pic%201.png" alt="p" title="t"></p>`

	first, err := json.Marshal(ConvertHTML(input))
	require.NoError(t, err)
	second, err := json.Marshal(ConvertHTML(input))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	var roundTrip prosemirror.Node
	require.NoError(t, json.Unmarshal(first, &roundTrip))
	assert.Equal(t, prosemirror.NodeDoc, roundTrip.Type)
}
