package document

import (
	"html"
	"strings"

	"github.com/starford/smartstudy/internal/ids"
	"github.com/starford/smartstudy/internal/models"
)

// Hidden block markers.
const (
	SummaryClass       = "ai-summary-content"
	LegacySummaryClass = "smartstudy-ai-summary"
	AudioClass         = "smartstudy-audio-data"

	// DefaultAudioName names recordings stored without a name.
	DefaultAudioName = "Audio recording"
)

const hiddenStyle = "display:none"

// Decoded is the in-memory editing state of a note.
type Decoded struct {
	Visible string                   `json:"visibleContent"`
	Audios  []models.AudioAttachment `json:"audioAttachments"`
	Summary string                   `json:"summary"`
}

// Encode serializes the editing state as
// [summary block] + visible + [audio block]*.
//
// Markup left open at the end of summary or visible is terminated first, so
// the blocks that follow it decode as blocks. Well-formed input is written
// as is.
func Encode(visible string, audios []models.AudioAttachment, summary string) string {
	var b strings.Builder
	if strings.TrimSpace(summary) != "" {
		b.WriteString(`<div class="` + SummaryClass + `" style="` + hiddenStyle + `">`)
		b.WriteString(seal(summary, true))
		b.WriteString("</div>")
	}
	if len(audios) > 0 {
		visible = seal(visible, false)
	}
	b.WriteString(visible)
	for _, a := range audios {
		writeAudio(&b, a)
	}
	return b.String()
}

// EncodeDecoded is Encode over a Decoded value.
func EncodeDecoded(d Decoded) string {
	return Encode(d.Visible, d.Audios, d.Summary)
}

func writeAudio(b *strings.Builder, a models.AudioAttachment) {
	attr := func(k, v string) {
		b.WriteString(" " + k + `="` + html.EscapeString(v) + `"`)
	}
	b.WriteString("<div")
	attr("id", a.ID)
	attr("class", AudioClass)
	attr("data-name", a.Name)
	attr("data-created", a.CreatedAt)
	if a.LinkedResourceID != "" {
		attr("data-resource", a.LinkedResourceID)
	}
	attr("style", hiddenStyle)
	b.WriteByte('>')
	// Payload goes in the inner text, never an attribute.
	b.WriteString(html.EscapeString(a.URL))
	b.WriteString("</div>")
}

// Decode splits content into its visible markup, audio attachments and
// summary. It accepts any input; markup that cannot be interpreted stays in
// Visible.
func Decode(content string) Decoded {
	nodes := Parse(content)
	d := Decoded{Audios: []models.AudioAttachment{}}

	summaryNode := findFirst(nodes, SummaryClass)
	if summaryNode == nil {
		summaryNode = findFirst(nodes, LegacySummaryClass)
	}
	if summaryNode != nil {
		d.Summary = Render(summaryNode.Children)
	}

	nodes = Rewrite(nodes, func(n *Node) ([]*Node, bool) {
		if n == summaryNode {
			return nil, true
		}
		if n.Type == ElementNode && n.HasClass(AudioClass) {
			if a, ok := audioFromNode(n); ok {
				d.Audios = append(d.Audios, a)
			}
			return nil, true
		}
		return nil, false
	})
	d.Visible = Render(nodes)
	return d
}

// Clean returns only the visible markup of content, as handed to print and
// PDF renderers.
func Clean(content string) string {
	return Decode(content).Visible
}

func findFirst(nodes []*Node, class string) *Node {
	var found *Node
	Walk(nodes, func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.Type == ElementNode && n.HasClass(class) {
			found = n
			return false
		}
		return true
	})
	return found
}

// audioFromNode extracts an attachment from an audio block. The payload is
// taken from, in order: inner text holding a data URI, the legacy data-url
// attribute, any other inner text. Blocks without a payload are skipped.
func audioFromNode(n *Node) (models.AudioAttachment, bool) {
	inner := strings.TrimSpace(n.Text())
	legacy, _ := n.Attr("data-url")

	var url string
	switch {
	case strings.HasPrefix(inner, "data:"):
		url = inner
	case legacy != "":
		url = legacy
	case inner != "":
		url = inner
	default:
		return models.AudioAttachment{}, false
	}

	a := models.AudioAttachment{URL: url}
	a.ID, _ = n.Attr("id")
	if a.ID == "" {
		a.ID = ids.New()
	}
	a.Name, _ = n.Attr("data-name")
	if a.Name == "" {
		a.Name = DefaultAudioName
	}
	a.CreatedAt, _ = n.Attr("data-created")
	a.LinkedResourceID, _ = n.Attr("data-resource")
	return a, true
}
