// Package extract turns raw HTML table documents into structured records.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sells-group/docval/internal/model"
)

// NoTableFoundError is returned when a document contains no <table> element.
type NoTableFoundError struct {
	Source string
}

func (e *NoTableFoundError) Error() string {
	return fmt.Sprintf("extract: %s does not contain a table", e.Source)
}

// IsNoTableFound reports whether err (or any error in its chain) is a NoTableFoundError.
func IsNoTableFound(err error) bool {
	var nt *NoTableFoundError
	return errors.As(err, &nt)
}

// Table parses markup and builds a StructuredRecord from the first table in it.
// source identifies the document in errors and becomes the record's FileName.
func Table(source string, markup []byte) (model.StructuredRecord, error) {
	doc, err := html.Parse(bytes.NewReader(markup))
	if err != nil {
		return model.StructuredRecord{}, eris.Wrapf(err, "extract: parse %s", source)
	}

	table := findFirst(doc, atom.Table)
	if table == nil {
		return model.StructuredRecord{}, &NoTableFoundError{Source: source}
	}

	rec := model.StructuredRecord{
		FileName: source,
		Body:     [][]string{},
	}

	if id, ok := attr(table, "id"); ok {
		rec.DocumentID = id
	}

	if caption := findFirst(table, atom.Caption); caption != nil {
		rec.Title = text(caption)
	}

	if ths := findAll(table, atom.Th); len(ths) > 0 {
		// The first header cell labels the row-label column.
		rec.Header = make([]string, 0, len(ths)-1)
		for _, th := range ths[1:] {
			rec.Header = append(rec.Header, text(th))
		}
	}

	rows := findAll(table, atom.Tr)
	if len(rows) > 1 {
		for _, row := range rows[1:] {
			tds := findAll(row, atom.Td)
			cells := make([]string, len(tds))
			for i, td := range tds {
				cells[i] = text(td)
			}
			rec.Body = append(rec.Body, cells)
		}
	}

	if tfoot := findFirst(table, atom.Tfoot); tfoot != nil {
		if tr := findFirst(tfoot, atom.Tr); tr != nil {
			if td := findFirst(tr, atom.Td); td != nil {
				rec.Footer = text(td)
			}
		}
	}

	rec.DateOfCreation, rec.CountryOfCreation = SplitFooter(rec.Footer)

	return rec, nil
}

// findFirst returns the first descendant of n (depth first, document order)
// with the given tag, or nil.
func findFirst(n *html.Node, tag atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == tag {
			return c
		}
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns every descendant of n with the given tag in document order.
func findAll(n *html.Node, tag atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == tag {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// text returns the concatenated text nodes under n, trimmed. Code points are
// kept as written so rune counts match the source document.
func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		if p.Type == html.TextNode {
			b.WriteString(p.Data)
			return
		}
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
