// Package htmlutil renders parsed HTML documents for storage.
package htmlutil

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/jaytaylor/html2text"
	nethtml "golang.org/x/net/html"
)

const indentUnit = " "

// voidElements never have children or an end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// preformatted elements are emitted verbatim so their whitespace survives.
var preformatted = map[string]bool{"pre": true, "textarea": true}

// rawText elements hold unescaped text. This is the set html.Render
// writes without escaping.
var rawText = map[string]bool{
	"iframe": true, "noembed": true, "noframes": true, "noscript": true,
	"plaintext": true, "script": true, "style": true, "xmp": true,
}

// Prettify renders n with one tag or text run per line, each level of
// nesting indented by one space. Whitespace-only text is dropped and other
// text is trimmed, except inside pre and textarea.
func Prettify(n *nethtml.Node) (string, error) {
	var buf bytes.Buffer
	if err := prettify(&buf, n, 0); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func prettify(w *bytes.Buffer, n *nethtml.Node, depth int) error {
	indent := strings.Repeat(indentUnit, depth)

	switch n.Type {
	case nethtml.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := prettify(w, c, depth); err != nil {
				return err
			}
		}
		return nil

	case nethtml.DoctypeNode:
		fmt.Fprintf(w, "%s<!DOCTYPE %s>\n", indent, n.Data)
		return nil

	case nethtml.CommentNode:
		fmt.Fprintf(w, "%s<!--%s-->\n", indent, n.Data)
		return nil

	case nethtml.TextNode:
		text := strings.TrimSpace(n.Data)
		if text == "" {
			return nil
		}
		if n.Parent == nil || n.Parent.Type != nethtml.ElementNode || !rawText[n.Parent.Data] {
			text = html.EscapeString(text)
		}
		fmt.Fprintf(w, "%s%s\n", indent, text)
		return nil

	case nethtml.ElementNode:
		if preformatted[n.Data] {
			w.WriteString(indent)
			if err := nethtml.Render(w, n); err != nil {
				return err
			}
			w.WriteByte('\n')
			return nil
		}

		w.WriteString(indent)
		writeStartTag(w, n)
		if voidElements[n.Data] {
			w.WriteByte('\n')
			return nil
		}
		w.WriteByte('\n')
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := prettify(w, c, depth+1); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%s</%s>\n", indent, n.Data)
		return nil
	}
	return nil
}

func writeStartTag(w *bytes.Buffer, n *nethtml.Node) {
	w.WriteByte('<')
	w.WriteString(n.Data)
	for _, a := range n.Attr {
		w.WriteByte(' ')
		if a.Namespace != "" {
			w.WriteString(a.Namespace)
			w.WriteByte(':')
		}
		w.WriteString(a.Key)
		w.WriteString(`="`)
		w.WriteString(html.EscapeString(a.Val))
		w.WriteByte('"')
	}
	if voidElements[n.Data] {
		w.WriteByte('/')
	}
	w.WriteByte('>')
}

// ToText renders n as readable plain text with tables drawn as grids.
func ToText(n *nethtml.Node) (string, error) {
	var buf bytes.Buffer
	if err := nethtml.Render(&buf, n); err != nil {
		return "", err
	}
	return html2text.FromString(buf.String(), html2text.Options{PrettyTables: true})
}
