package render

import (
	"strings"

	"golang.org/x/net/html"
)

// MaxTextLength bounds the plain-text fallback body, in characters.
const MaxTextLength = 500

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "tr": true, "table": true,
	"h1": true, "h2": true, "h3": true, "li": true,
}

// PlainText strips markup from an HTML document, collapses whitespace and
// truncates the result to MaxTextLength characters. Content of head, style
// and script elements is dropped.
func PlainText(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var (
		b    strings.Builder
		skip int
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return truncate(collapse(b.String()), MaxTextLength)
		case html.StartTagToken:
			name, _ := z.TagName()
			switch tag := string(name); {
			case tag == "head" || tag == "style" || tag == "script":
				skip++
			case blockTags[tag]:
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch tag := string(name); {
			case tag == "head" || tag == "style" || tag == "script":
				if skip > 0 {
					skip--
				}
			case blockTags[tag]:
				b.WriteByte('\n')
			case tag == "td" || tag == "th":
				b.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			b.WriteByte('\n')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

// collapse keeps line structure but squeezes runs of blanks.
func collapse(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
