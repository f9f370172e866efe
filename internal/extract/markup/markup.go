// Package markup flattens vendor email HTML into a stream of styled lines.
package markup

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Line is one visual line of an email with the styling cues extractors key on
type Line struct {
	Text    string
	Bold    bool
	Heading bool
	Shaded  bool
	// Cells holds the cell texts when the line is a table row
	Cells   []string
	ColSpan int
	// Indent counts leading columns of preformatted or plain text lines
	Indent int
	Pre    bool
}

// IsRow reports whether the line came from a table row
func (l Line) IsRow() bool {
	return len(l.Cells) > 0
}

// Document is a parsed email body
type Document struct {
	Lines []Line
	// Pre holds the raw content of every <pre> block in document order
	Pre []string
}

type style struct {
	bold    bool
	heading bool
	shaded  bool
}

type lineState struct {
	text      strings.Builder
	boldRunes int
	allRunes  int
	heading   bool
	shaded    bool
}

type builder struct {
	doc *Document
	cur lineState
}

// Parse flattens markup into lines. Block elements and <br> end a line; table
// rows without nested tables become single lines carrying their cells.
func Parse(markup string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}

	b := &builder{doc: &Document{}}
	b.walk(root, style{})
	b.flush()
	return b.doc, nil
}

// PlainLines splits plain text into lines, keeping blank lines and indentation
func PlainLines(text string) []Line {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	raw := strings.Split(text, "\n")
	lines := make([]Line, 0, len(raw))
	for _, r := range raw {
		lines = append(lines, Line{
			Text:   Clean(r),
			Indent: indentOf(r),
		})
	}
	return lines
}

// Texts returns the text of every line
func (d *Document) Texts() []string {
	texts := make([]string, 0, len(d.Lines))
	for _, l := range d.Lines {
		texts = append(texts, l.Text)
	}
	return texts
}

// PreLines splits the document's <pre> blocks into lines
func (d *Document) PreLines() []Line {
	var lines []Line
	for _, block := range d.Pre {
		for _, l := range PlainLines(block) {
			l.Pre = true
			lines = append(lines, l)
		}
	}
	return lines
}

// Clean collapses all whitespace runs, including non-breaking spaces, to one space
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (b *builder) walk(n *html.Node, st style) {
	switch n.Type {
	case html.TextNode:
		b.text(n.Data, st)
		return
	case html.ElementNode:
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			b.walk(c, st)
		}
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Head, atom.Title:
		return
	case atom.Br:
		b.flush()
		return
	case atom.Pre:
		b.flush()
		b.pre(n)
		return
	case atom.Tr:
		if !hasDescendant(n, atom.Table) {
			b.flush()
			b.row(n, st.with(n))
			return
		}
	}

	st = st.with(n)
	block := isBlock(n.DataAtom)
	if block {
		b.flush()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c, st)
	}
	if block {
		b.flush()
	}
}

func (b *builder) text(data string, st style) {
	if strings.TrimSpace(data) == "" {
		if b.cur.text.Len() > 0 {
			b.cur.text.WriteByte(' ')
		}
		return
	}

	b.cur.text.WriteString(data)
	n := countVisible(data)
	b.cur.allRunes += n
	if st.bold {
		b.cur.boldRunes += n
	}
	b.cur.heading = b.cur.heading || st.heading
	b.cur.shaded = b.cur.shaded || st.shaded
}

func (b *builder) flush() {
	text := Clean(b.cur.text.String())
	if text != "" {
		b.doc.Lines = append(b.doc.Lines, Line{
			Text:    text,
			Bold:    b.cur.allRunes > 0 && b.cur.boldRunes == b.cur.allRunes,
			Heading: b.cur.heading,
			Shaded:  b.cur.shaded,
		})
	}
	b.cur = lineState{}
}

func (b *builder) pre(n *html.Node) {
	var sb strings.Builder
	rawText(n, &sb)
	content := strings.Trim(sb.String(), "\n")
	if strings.TrimSpace(content) == "" {
		return
	}

	b.doc.Pre = append(b.doc.Pre, content)
	for _, l := range PlainLines(content) {
		if l.Text == "" {
			continue
		}
		l.Pre = true
		b.doc.Lines = append(b.doc.Lines, l)
	}
}

func (b *builder) row(tr *html.Node, st style) {
	line := Line{Shaded: st.shaded}
	all, bold := 0, 0

	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
			continue
		}
		cellStyle := st.with(c)
		cb := &builder{doc: &Document{}}
		cb.walkInline(c, cellStyle)

		text := Clean(cb.cur.text.String())
		line.Cells = append(line.Cells, text)
		all += cb.cur.allRunes
		bold += cb.cur.boldRunes
		line.Shaded = line.Shaded || cb.cur.shaded
		line.Heading = line.Heading || cb.cur.heading

		if span, err := strconv.Atoi(attr(c, "colspan")); err == nil && span > line.ColSpan {
			line.ColSpan = span
		}
	}

	nonEmpty := make([]string, 0, len(line.Cells))
	for _, cell := range line.Cells {
		if cell != "" {
			nonEmpty = append(nonEmpty, cell)
		}
	}
	if len(nonEmpty) == 0 {
		return
	}

	line.Text = strings.Join(nonEmpty, " ")
	line.Bold = all > 0 && bold == all
	b.doc.Lines = append(b.doc.Lines, line)
}

// walkInline collects a cell's text into the current line, treating breaks as spaces
func (b *builder) walkInline(n *html.Node, st style) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.text(c.Data, st)
		case html.ElementNode:
			if c.DataAtom == atom.Script || c.DataAtom == atom.Style {
				continue
			}
			if c.DataAtom == atom.Br || isBlock(c.DataAtom) {
				b.cur.text.WriteByte(' ')
			}
			b.walkInline(c, st.with(c))
		}
	}
}

func (st style) with(n *html.Node) style {
	switch n.DataAtom {
	case atom.B, atom.Strong, atom.Th:
		st.bold = true
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		st.bold = true
		st.heading = true
	}

	css := strings.ToLower(strings.ReplaceAll(attr(n, "style"), " ", ""))
	if strings.Contains(css, "font-weight:bold") || strings.Contains(css, "font-weight:700") || strings.Contains(css, "font-weight:800") {
		st.bold = true
	}
	if strings.Contains(css, "font-weight:normal") || strings.Contains(css, "font-weight:400") {
		st.bold = false
	}
	if attr(n, "bgcolor") != "" || strings.Contains(css, "background") {
		st.shaded = true
	}
	return st
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Ul, atom.Ol, atom.Table, atom.Tbody, atom.Thead,
		atom.Tfoot, atom.Tr, atom.Td, atom.Th, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5,
		atom.H6, atom.Hr, atom.Section, atom.Article, atom.Header, atom.Footer, atom.Blockquote,
		atom.Center, atom.Body, atom.Dl, atom.Dt, atom.Dd:
		return true
	default:
		return false
	}
}

func hasDescendant(n *html.Node, a atom.Atom) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return true
		}
		if hasDescendant(c, a) {
			return true
		}
	}
	return false
}

func rawText(n *html.Node, sb *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			sb.WriteString(c.Data)
		case html.ElementNode:
			if c.DataAtom == atom.Br {
				sb.WriteByte('\n')
				continue
			}
			rawText(c, sb)
		}
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func countVisible(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func indentOf(s string) int {
	n := 0
	for _, r := range s {
		switch r {
		case ' ', '\u00a0':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return 0
}
