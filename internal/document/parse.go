package document

import (
	"strings"

	"golang.org/x/net/html"
)

// Parse builds a tree from a markup fragment. It never fails: end tags that
// close nothing become RawNodes, elements left open are closed implicitly,
// and any trailing bytes the tokenizer cannot place are kept verbatim.
func Parse(s string) []*Node {
	var (
		root     = &Node{Type: ElementNode}
		stack    = []*Node{root}
		consumed int
	)
	appendChild := func(n *Node) {
		top := stack[len(stack)-1]
		top.Children = append(top.Children, n)
	}

	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := string(z.Raw())
		consumed += len(raw)

		switch tt {
		case html.TextToken:
			appendChild(&Node{Type: TextNode, Data: string(z.Text()), raw: raw})

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			n := &Node{Type: ElementNode, Tag: string(name), raw: raw}
			for hasAttr {
				var k, v []byte
				k, v, hasAttr = z.TagAttr()
				n.Attrs = append(n.Attrs, Attr{Key: string(k), Val: string(v)})
			}
			appendChild(n)
			if tt == html.StartTagToken && !voidElements[n.Tag] {
				stack = append(stack, n)
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			i := len(stack) - 1
			for ; i > 0; i-- {
				if stack[i].Tag == string(name) {
					break
				}
			}
			if i == 0 {
				appendChild(&Node{Type: RawNode, Data: raw})
				continue
			}
			stack[i].endRaw = raw
			stack = stack[:i]

		default: // comments, doctypes
			appendChild(&Node{Type: RawNode, Data: raw})
		}
	}

	if consumed < len(s) {
		appendChild(&Node{Type: RawNode, Data: s[consumed:]})
	}
	return root.Children
}
