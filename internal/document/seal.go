package document

import (
	"html"
	"strings"

	nethtml "golang.org/x/net/html"
)

// rawTextElements switch the tokenizer into text mode until their own end
// tag. plaintext never ends.
var rawTextElements = map[string]bool{
	"iframe": true, "noembed": true, "noframes": true, "noscript": true,
	"plaintext": true, "script": true, "style": true, "textarea": true,
	"title": true, "xmp": true,
}

// seal terminates whatever is still open at the end of s, so markup written
// after it is read as markup: a raw-text element gets its end tag, a comment
// or doctype its closing delimiter. An unfinished tag and a plaintext
// element cannot be terminated and are escaped to text instead.
//
// With nested set, s is about to be wrapped in an element: open elements
// are closed too and end tags that close nothing are dropped, since they
// would end the wrapper.
//
// Well-formed input is returned unchanged.
func seal(s string, nested bool) string {
	var (
		b        strings.Builder
		stack    []string
		consumed int
		lastTT   nethtml.TokenType
		lastRaw  string
	)
	z := nethtml.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		if tt == nethtml.ErrorToken {
			break
		}
		raw := string(z.Raw())
		consumed += len(raw)
		lastTT, lastRaw = tt, raw

		switch tt {
		case nethtml.StartTagToken, nethtml.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "plaintext" {
				b.WriteString(html.EscapeString(s[consumed-len(raw):]))
				consumed = len(s)
				lastTT = nethtml.TextToken
				// The tokenizer returns the rest as text; skip it.
				for z.Next() != nethtml.ErrorToken {
				}
				continue
			}
			switch {
			case rawTextElements[tag]:
				// <script/> still starts raw text.
				stack = append(stack, tag)
			case tt == nethtml.StartTagToken && !voidElements[tag]:
				stack = append(stack, tag)
			}
		case nethtml.EndTagToken:
			name, _ := z.TagName()
			i := len(stack) - 1
			for ; i >= 0; i-- {
				if stack[i] == string(name) {
					break
				}
			}
			if i < 0 {
				if nested {
					continue
				}
			} else {
				stack = stack[:i]
			}
		}
		b.WriteString(raw)
	}

	if consumed < len(s) {
		b.WriteString(html.EscapeString(s[consumed:]))
	} else if lastTT == nethtml.CommentToken || lastTT == nethtml.DoctypeToken {
		switch {
		case strings.HasPrefix(lastRaw, "<!--"):
			if !strings.HasSuffix(lastRaw, "-->") && !strings.HasSuffix(lastRaw, "--!>") {
				b.WriteString("-->")
			}
		case !strings.HasSuffix(lastRaw, ">"):
			b.WriteString(">")
		}
	}

	if n := len(stack); n > 0 && rawTextElements[stack[n-1]] {
		b.WriteString("</" + stack[n-1] + ">")
		stack = stack[:n-1]
	}
	if nested {
		for i := len(stack) - 1; i >= 0; i-- {
			b.WriteString("</" + stack[i] + ">")
		}
	}
	return b.String()
}
