package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/flosch/pongo2/v6"
	"golang.org/x/net/html"
)

func init() {
	register("tojson", filterToJSON)
	register("html2text", filterHTMLToText)
	register("markdown", filterHTMLToMarkdown)
}

func register(name string, fn pongo2.FilterFunction) {
	if pongo2.FilterExists(name) {
		return
	}
	if err := pongo2.RegisterFilter(name, fn); err != nil {
		panic(fmt.Sprintf("render: register filter %s: %v", name, err))
	}
}

func filterToJSON(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	b, err := json.Marshal(in.Interface())
	if err != nil {
		return nil, &pongo2.Error{Sender: "filter:tojson", OrigError: err}
	}
	return pongo2.AsValue(string(b)), nil
}

func filterHTMLToText(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	text, err := HTMLToText(in.String())
	if err != nil {
		return nil, &pongo2.Error{Sender: "filter:html2text", OrigError: err}
	}
	return pongo2.AsValue(text), nil
}

func filterHTMLToMarkdown(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	md, err := HTMLToMarkdown(in.String())
	if err != nil {
		return nil, &pongo2.Error{Sender: "filter:markdown", OrigError: err}
	}
	return pongo2.AsValue(md), nil
}

// HTMLToText returns the visible text of an HTML document with whitespace
// collapsed. Script, style and noscript content is dropped.
func HTMLToText(doc string) (string, error) {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return "", err
	}
	d.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(d.Text()), " "), nil
}

// HTMLToMarkdown converts an HTML document into simple markdown: headings,
// paragraphs, links, emphasis, code, and lists. Unknown elements contribute
// their text.
func HTMLToMarkdown(doc string) (string, error) {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return "", err
	}
	d.Find("script, style, noscript, head").Remove()

	var b strings.Builder
	root := d.Find("body")
	if root.Length() == 0 {
		root = d.Selection
	}
	writeMarkdown(&b, root)

	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		if l == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n")), nil
}

func writeMarkdown(b *strings.Builder, sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		if node.Type == html.TextNode {
			b.WriteString(collapse(node.Data))
			return
		}
		if node.Type != html.ElementNode {
			return
		}
		switch tag := goquery.NodeName(s); tag {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			b.WriteString("\n\n" + strings.Repeat("#", int(tag[1]-'0')) + " ")
			b.WriteString(strings.TrimSpace(collapse(s.Text())))
			b.WriteString("\n\n")
		case "p", "div", "section", "article", "main", "header", "footer", "blockquote":
			b.WriteString("\n\n")
			writeMarkdown(b, s)
			b.WriteString("\n\n")
		case "br":
			b.WriteString("\n")
		case "a":
			text := strings.TrimSpace(collapse(s.Text()))
			if href, ok := s.Attr("href"); ok && href != "" {
				fmt.Fprintf(b, "[%s](%s)", text, href)
			} else {
				b.WriteString(text)
			}
		case "strong", "b":
			b.WriteString("**" + strings.TrimSpace(collapse(s.Text())) + "**")
		case "em", "i":
			b.WriteString("_" + strings.TrimSpace(collapse(s.Text())) + "_")
		case "code":
			b.WriteString("`" + s.Text() + "`")
		case "pre":
			b.WriteString("\n\n```\n" + strings.Trim(s.Text(), "\n") + "\n```\n\n")
		case "ul", "ol":
			b.WriteString("\n")
			s.ChildrenFiltered("li").Each(func(i int, li *goquery.Selection) {
				marker := "- "
				if tag == "ol" {
					marker = fmt.Sprintf("%d. ", i+1)
				}
				b.WriteString("\n" + marker + strings.TrimSpace(collapse(li.Text())))
			})
			b.WriteString("\n\n")
		case "img":
			if src, ok := s.Attr("src"); ok {
				alt, _ := s.Attr("alt")
				fmt.Fprintf(b, "![%s](%s)", alt, src)
			}
		default:
			writeMarkdown(b, s)
		}
	})
}

func collapse(s string) string {
	if strings.TrimSpace(s) == "" {
		if s == "" {
			return ""
		}
		return " "
	}
	lead := s[0] == ' ' || s[0] == '\n' || s[0] == '\t'
	trail := s[len(s)-1] == ' ' || s[len(s)-1] == '\n' || s[len(s)-1] == '\t'
	out := strings.Join(strings.Fields(s), " ")
	if lead {
		out = " " + out
	}
	if trail {
		out += " "
	}
	return out
}
