package review

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	displayMath = regexp.MustCompile(`(?s)\$\$.+?\$\$`)
	inlineMath  = regexp.MustCompile(`\$[^$\n]+?\$`)
	mathToken   = regexp.MustCompile(`MATHSPAN(\d+)END`)
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// renderNotes converts notes Markdown to HTML. Math spans are lifted out
// before rendering and restored verbatim so MathJax sees the original
// $...$ and $$...$$ delimiters. Raw HTML in the notes is not rendered.
func renderNotes(notes string) (template.HTML, error) {
	var spans []string
	protect := func(match string) string {
		spans = append(spans, match)
		return fmt.Sprintf("MATHSPAN%dEND", len(spans)-1)
	}
	source := displayMath.ReplaceAllStringFunc(notes, protect)
	source = inlineMath.ReplaceAllStringFunc(source, protect)

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "", err
	}

	rendered := mathToken.ReplaceAllStringFunc(buf.String(), func(token string) string {
		var idx int
		if _, err := fmt.Sscanf(token, "MATHSPAN%dEND", &idx); err != nil || idx >= len(spans) {
			return token
		}
		return html.EscapeString(spans[idx])
	})
	return template.HTML(strings.TrimSpace(rendered)), nil
}
