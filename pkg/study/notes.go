package study

import (
	"encoding/json"
	"strings"
)

var notesUnescaper = strings.NewReplacer(
	`\\`, `\`,
	`\"`, `"`,
	`\n`, "\n",
	`\t`, "\t",
	`\r`, "\r",
)

// NormalizeNotes undoes string-escaping artifacts left by the generation service
// or transport. One pair of enclosing double quotes is removed. Escape
// sequences are only decoded when the notes arrived escaped as a whole, that is
// they contain a literal \n and no real line break. Markdown that already has
// real line breaks keeps every backslash, so LaTeX such as $\theta$ or
// $\nabla f$ is returned unchanged.
func NormalizeNotes(raw string) string {
	quoted := len(raw) >= 2 && strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`)
	if !escaped(raw) {
		if quoted {
			return raw[1 : len(raw)-1]
		}
		return raw
	}

	if quoted {
		var decoded string
		if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
			return decoded
		}
		raw = raw[1 : len(raw)-1]
	}
	return notesUnescaper.Replace(raw)
}

func escaped(text string) bool {
	return !strings.ContainsAny(text, "\n\r") && strings.Contains(text, `\n`)
}
