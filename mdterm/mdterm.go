// Package mdterm flattens Markdown into plain terminal text.
//
// Assistant messages arrive as Markdown; the one-shot command prints them to
// stdout where rich rendering is unwanted. This package parses Markdown
// (including GFM tables, strikethrough, and task lists) and produces
// readable plain text.
//
// Formatting is mapped to terminal-friendly approximations:
//   - Headings become underlined lines
//   - Emphasis markers are stripped, code spans keep their backticks
//   - Code blocks are indented four spaces
//   - Tables become padded column grids
//   - Images and links become "label (url)"
package mdterm

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Render converts Markdown into plain terminal text.
func Render(markdown string) string {
	source := []byte(markdown)
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(source))

	r := &renderer{source: source}
	r.walkBlock(doc)
	return strings.TrimRight(r.buf.String(), "\n ") + "\n"
}

type renderer struct {
	source    []byte
	buf       bytes.Buffer
	listDepth int
}

func (r *renderer) walkBlock(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		r.block(c)
	}
}

func (r *renderer) block(node ast.Node) {
	switch n := node.(type) {
	case *ast.Document:
		r.walkBlock(n)

	case *ast.Heading:
		title := r.inlineText(n)
		r.buf.WriteString(title)
		r.buf.WriteByte('\n')
		r.buf.WriteString(strings.Repeat("─", displayLen(title)))
		r.buf.WriteString("\n\n")

	case *ast.Paragraph:
		r.inlines(n)
		r.buf.WriteString("\n\n")

	case *ast.TextBlock:
		r.inlines(n)
		r.buf.WriteString("\n")

	case *ast.Blockquote:
		sub := &renderer{source: r.source}
		sub.walkBlock(n)
		for _, line := range strings.Split(strings.TrimRight(sub.buf.String(), "\n "), "\n") {
			r.buf.WriteString("│ ")
			r.buf.WriteString(line)
			r.buf.WriteByte('\n')
		}
		r.buf.WriteByte('\n')

	case *ast.List:
		r.list(n)

	case *ast.ListItem:
		// Handled inside list(); fallback.
		r.walkBlock(n)

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		r.writeCodeLines(node)
		r.buf.WriteByte('\n')

	case *ast.ThematicBreak:
		r.buf.WriteString(strings.Repeat("─", 10))
		r.buf.WriteString("\n\n")

	case *ast.HTMLBlock:
		r.writeRawLines(n)
		r.buf.WriteByte('\n')

	default:
		if t, ok := node.(*east.Table); ok {
			r.table(t)
			return
		}
		if node.HasChildren() {
			r.walkBlock(node)
		}
	}
}

// writeCodeLines writes a code block's source lines indented four spaces.
func (r *renderer) writeCodeLines(n ast.Node) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		r.buf.WriteString("    ")
		r.buf.WriteString(strings.TrimRight(string(seg.Value(r.source)), "\n"))
		r.buf.WriteByte('\n')
	}
}

func (r *renderer) writeRawLines(n ast.Node) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		r.buf.WriteString(string(seg.Value(r.source)))
	}
}

func (r *renderer) inlines(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		r.inline(c)
	}
}

func (r *renderer) inline(node ast.Node) {
	switch n := node.(type) {
	case *ast.Text:
		r.buf.Write(n.Text(r.source))
		if n.SoftLineBreak() || n.HardLineBreak() {
			r.buf.WriteByte('\n')
		}

	case *ast.String:
		r.buf.Write(n.Value)

	case *ast.Emphasis:
		r.inlines(n)

	case *ast.CodeSpan:
		r.buf.WriteByte('`')
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				r.buf.Write(t.Text(r.source))
			case *ast.String:
				r.buf.Write(t.Value)
			}
		}
		r.buf.WriteByte('`')

	case *ast.Link:
		label := r.inlineText(n)
		r.writeLink(label, string(n.Destination))

	case *ast.AutoLink:
		r.buf.WriteString(string(n.URL(r.source)))

	case *ast.Image:
		alt := r.inlineText(n)
		r.writeLink(alt, string(n.Destination))

	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			r.buf.WriteString(string(seg.Value(r.source)))
		}

	default:
		switch v := node.(type) {
		case *east.Strikethrough:
			r.inlines(v)
		case *east.TaskCheckBox:
			if v.IsChecked {
				r.buf.WriteString("[x] ")
			} else {
				r.buf.WriteString("[ ] ")
			}
		default:
			if node.HasChildren() {
				r.inlines(node)
			}
		}
	}
}

func (r *renderer) writeLink(label, dest string) {
	if label == "" || label == dest {
		r.buf.WriteString(dest)
		return
	}
	fmt.Fprintf(&r.buf, "%s (%s)", label, dest)
}

// inlineText returns the rendered inline content of a node as a string.
func (r *renderer) inlineText(n ast.Node) string {
	sub := &renderer{source: r.source}
	sub.inlines(n)
	return sub.buf.String()
}

// textContent returns the plain-text content of a node tree.
func (r *renderer) textContent(n ast.Node) string {
	var buf bytes.Buffer
	r.collectText(n, &buf)
	return buf.String()
}

func (r *renderer) collectText(node ast.Node, buf *bytes.Buffer) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Text(r.source))
		case *ast.String:
			buf.Write(t.Value)
		default:
			r.collectText(c, buf)
		}
	}
}

func (r *renderer) list(n *ast.List) {
	idx := 0
	if n.Start > 0 {
		idx = int(n.Start) - 1
	}
	indent := strings.Repeat("  ", r.listDepth)

	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		item, ok := child.(*ast.ListItem)
		if !ok {
			continue
		}
		if n.IsOrdered() {
			idx++
			fmt.Fprintf(&r.buf, "%s%d. ", indent, idx)
		} else {
			r.buf.WriteString(indent)
			r.buf.WriteString("• ")
		}
		r.listItemContent(item)
		r.buf.WriteByte('\n')
	}
	if r.listDepth == 0 {
		r.buf.WriteByte('\n')
	}
}

func (r *renderer) listItemContent(item *ast.ListItem) {
	first := true
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		switch n := c.(type) {
		case *ast.Paragraph:
			if !first {
				r.buf.WriteByte('\n')
				r.buf.WriteString(strings.Repeat("  ", r.listDepth+1))
			}
			r.inlines(n)
			first = false
		case *ast.TextBlock:
			if !first {
				r.buf.WriteByte('\n')
				r.buf.WriteString(strings.Repeat("  ", r.listDepth+1))
			}
			r.inlines(n)
			first = false
		case *ast.List:
			r.buf.WriteByte('\n')
			r.listDepth++
			r.list(n)
			r.listDepth--
		default:
			r.block(c)
			first = false
		}
	}
}

// table renders a GFM table as a padded column grid.
func (r *renderer) table(t *east.Table) {
	var rows [][]string
	headerIdx := -1

	for child := t.FirstChild(); child != nil; child = child.NextSibling() {
		var cells []string

		switch row := child.(type) {
		case *east.TableHeader:
			headerIdx = len(rows)
			for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
				cells = append(cells, r.textContent(cell))
			}
		case *east.TableRow:
			for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
				cells = append(cells, r.textContent(cell))
			}
		default:
			continue
		}
		rows = append(rows, cells)
	}

	if len(rows) == 0 {
		return
	}

	numCols := 0
	for _, row := range rows {
		if len(row) > numCols {
			numCols = len(row)
		}
	}
	for i := range rows {
		for len(rows[i]) < numCols {
			rows[i] = append(rows[i], "")
		}
	}

	widths := make([]int, numCols)
	for _, row := range rows {
		for j, cell := range row {
			if l := displayLen(cell); l > widths[j] {
				widths[j] = l
			}
		}
	}

	writeRow := func(row []string) {
		for j, cell := range row {
			r.buf.WriteString(cell)
			if j < numCols-1 {
				r.buf.WriteString(strings.Repeat(" ", widths[j]-displayLen(cell)+2))
			}
		}
		r.buf.WriteByte('\n')
	}

	for i, row := range rows {
		writeRow(row)
		if i == headerIdx {
			for j, w := range widths {
				r.buf.WriteString(strings.Repeat("─", w))
				if j < numCols-1 {
					r.buf.WriteString("  ")
				}
			}
			r.buf.WriteByte('\n')
		}
	}
	r.buf.WriteByte('\n')
}

// displayLen counts runes, a good-enough width for padding purposes.
func displayLen(s string) int {
	return len([]rune(s))
}
