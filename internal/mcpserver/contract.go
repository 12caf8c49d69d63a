package mcpserver

// NoteFormatContract describes how SmartStudy stores a note's content, for
// LLM consumers reading notes or writing summaries.
const NoteFormatContract = `# SmartStudy Note Format

A note's ` + "`" + `content` + "`" + ` is one HTML string that carries three parts:

1. an optional hidden **summary block**,
2. the **visible content** (rich-text HTML shown in the editor),
3. zero or more hidden **audio blocks**.

## Layout

` + "```" + `html
<div class="ai-summary-content" style="display:none">Summary markup</div>
<p>Visible rich-text content...</p>
<div id="a1" class="smartstudy-audio-data" data-name="Lecture 3"
     data-created="2024-03-01T09:00:00Z" data-resource="res-audio-a1"
     style="display:none">data:audio/webm;base64,....</div>
` + "```" + `

## Rules

1. **Summary** is the first block with class ` + "`" + `ai-summary-content` + "`" + `
   (older notes use ` + "`" + `smartstudy-ai-summary` + "`" + `). Its inner HTML is the summary.
   Only one summary is kept. A blank summary is omitted entirely.
2. **Audio blocks** have class ` + "`" + `smartstudy-audio-data` + "`" + `. The recording
   (a ` + "`" + `data:` + "`" + ` URI or URL) is the block's text. ` + "`" + `data-resource` + "`" + ` names the
   Audio resource holding a backup copy; it defaults to ` + "`" + `res-audio-<id>` + "`" + `.
3. **Visible content** is everything else, in document order. Images (` + "`" + `<img>` + "`" + `)
   and links (` + "`" + `<a href>` + "`" + `) inside it are listed as note attachments.
4. Hidden blocks are never printed and never searched.

## Writing summaries

Do not edit the content string directly. Call the ` + "`" + `set_note_summary` + "`" + ` tool with
the note id and the summary markup; the visible content and recordings are kept as
they are. Use simple HTML (` + "`" + `<p>` + "`" + `, ` + "`" + `<ul>` + "`" + `, ` + "`" + `<li>` + "`" + `, ` + "`" + `<strong>` + "`" + `).
Summaries may be written in Vietnamese or English, matching the note.

## Files

Upload a document, image or recording for a subject with the ` + "`" + `upload_file` + "`" + ` tool.
It stores the payload and creates a File resource pointing at ` + "`" + `/api/files/<name>` + "`" + `.
`
