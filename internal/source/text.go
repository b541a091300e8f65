package source

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// highlightTags are the markup elements search providers wrap matches in
var highlightTags = map[string]bool{
	"b":      true,
	"em":     true,
	"strong": true,
}

// PlainText removes provider highlight tags and unescapes entities. Any
// other tag-shaped text, such as "Optional<Acme>" or "Map<K,V>", is kept
// verbatim.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}

	var sb strings.Builder
	consumed := 0
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		if tt != html.ErrorToken {
			consumed += len(z.Raw())
		}
		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return strings.TrimSpace(s)
			}
			// An unterminated tag at EOF is swallowed by the tokenizer.
			if consumed < len(s) {
				sb.WriteString(s[consumed:])
			}
			return strings.TrimSpace(sb.String())
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			raw := string(z.Raw())
			name, _ := z.TagName()
			if !highlightTags[string(name)] {
				sb.WriteString(raw)
			}
		default:
			sb.Write(z.Raw())
		}
	}
}
