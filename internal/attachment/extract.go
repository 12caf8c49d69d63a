// Package attachment derives read-only attachment listings and previews from
// decoded note documents, and applies the attachment removals offered by the
// editor.
package attachment

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/starford/smartstudy/internal/apperr"
	"github.com/starford/smartstudy/internal/document"
	"github.com/starford/smartstudy/internal/models"
)

// DefaultPreviewLength is used when a non-positive preview length is given.
const DefaultPreviewLength = 120

// Image is an embedded image reference.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// Link is a hyperlink in the visible content.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// Summary lists what a note document carries.
type Summary struct {
	Images     []Image                  `json:"images"`
	Links      []Link                   `json:"links"`
	Audios     []models.AudioAttachment `json:"audios"`
	HasAudio   bool                     `json:"hasAudio"`
	HasImages  bool                     `json:"hasImages"`
	HasSummary bool                     `json:"hasSummary"`
	Preview    string                   `json:"preview"`
	Size       int                      `json:"size"`
	SizeLabel  string                   `json:"sizeLabel"`
}

// Extract summarizes d. It does not modify d.
func Extract(d document.Decoded, previewLen int) Summary {
	nodes := document.Parse(d.Visible)
	s := Summary{
		Images: []Image{},
		Links:  []Link{},
		Audios: append([]models.AudioAttachment{}, d.Audios...),
	}
	document.Walk(nodes, func(n *document.Node) bool {
		if n.Type != document.ElementNode {
			return true
		}
		switch n.Tag {
		case "img":
			src, _ := n.Attr("src")
			alt, _ := n.Attr("alt")
			s.Images = append(s.Images, Image{Src: src, Alt: alt})
		case "a":
			href, _ := n.Attr("href")
			s.Links = append(s.Links, Link{Href: href, Text: collapse(n.Text())})
		}
		return true
	})

	s.HasAudio = len(s.Audios) > 0
	s.HasImages = len(s.Images) > 0
	s.HasSummary = strings.TrimSpace(d.Summary) != ""
	s.Preview = Preview(d.Visible, previewLen)
	s.Size = len(document.EncodeDecoded(d))
	s.SizeLabel = SizeLabel(s.Size)
	return s
}

// ExtractRaw decodes content and summarizes it.
func ExtractRaw(content string, previewLen int) Summary {
	return Extract(document.Decode(content), previewLen)
}

// SizeLabel formats a byte count as "N B" or "x.xx KB".
func SizeLabel(n int) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.2f KB", float64(n)/1024)
}

// Preview returns the first n characters of the plain text of markup.
func Preview(markup string, n int) string {
	if n <= 0 {
		n = DefaultPreviewLength
	}
	text := PlainText(markup)
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	r := []rune(text)
	return strings.TrimRight(string(r[:n]), " ") + "…"
}

var blockTags = map[string]bool{
	"address": true, "article": true, "blockquote": true, "br": true, "dd": true,
	"div": true, "dl": true, "dt": true, "figcaption": true, "figure": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"hr": true, "li": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "td": true, "th": true, "tr": true, "ul": true,
}

// PlainText strips all markup from s and collapses whitespace.
func PlainText(s string) string {
	var b strings.Builder
	var walk func([]*document.Node)
	walk = func(nodes []*document.Node) {
		for _, n := range nodes {
			switch n.Type {
			case document.TextNode:
				b.WriteString(n.Data)
			case document.ElementNode:
				if n.Tag == "script" || n.Tag == "style" {
					continue
				}
				if blockTags[n.Tag] {
					b.WriteByte(' ')
				}
				walk(n.Children)
				if blockTags[n.Tag] {
					b.WriteByte(' ')
				}
			}
		}
	}
	walk(document.Parse(s))
	return collapse(b.String())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// RemoveImage removes the idx-th image (document order) from d.
func RemoveImage(d document.Decoded, idx int) (document.Decoded, error) {
	var (
		seen    int
		removed bool
	)
	nodes := document.Rewrite(document.Parse(d.Visible), func(n *document.Node) ([]*document.Node, bool) {
		if n.Type != document.ElementNode || n.Tag != "img" {
			return nil, false
		}
		hit := seen == idx
		seen++
		if hit {
			removed = true
		}
		return nil, hit
	})
	if !removed {
		return d, fmt.Errorf("attachment: image %d: %w", idx, apperr.ErrNotFound)
	}
	d.Visible = document.Render(nodes)
	return d, nil
}

// RemoveLink unwraps the idx-th link in d, keeping its text in place.
func RemoveLink(d document.Decoded, idx int) (document.Decoded, error) {
	var (
		seen    int
		removed bool
	)
	nodes := document.Rewrite(document.Parse(d.Visible), func(n *document.Node) ([]*document.Node, bool) {
		if n.Type != document.ElementNode || n.Tag != "a" {
			return nil, false
		}
		hit := seen == idx
		seen++
		if !hit {
			return nil, false
		}
		removed = true
		return n.Children, true
	})
	if !removed {
		return d, fmt.Errorf("attachment: link %d: %w", idx, apperr.ErrNotFound)
	}
	d.Visible = document.Render(nodes)
	return d, nil
}

// RemoveAudio drops the attachment with id from d. resourceID names the
// Resource mirroring the recording; deleting it is left to the caller.
func RemoveAudio(d document.Decoded, id string) (out document.Decoded, resourceID string, ok bool) {
	audios := make([]models.AudioAttachment, 0, len(d.Audios))
	for _, a := range d.Audios {
		if a.ID == id && !ok {
			resourceID = a.ResourceID()
			ok = true
			continue
		}
		audios = append(audios, a)
	}
	d.Audios = audios
	return d, resourceID, ok
}
