package model

import (
	"context"
	"strings"
)

// Transcriber turns a local media file into plain text. An empty transcript is a
// valid result (silent media), not an error.
type Transcriber interface {
	Transcribe(ctx context.Context, filePath string) (string, GenerationMetadata, error)
}

// AudioKeyword is a domain term the speech model tends to miss, with the
// spellings it usually produces instead.
type AudioKeyword struct {
	Word           string   `json:"word,omitempty" yaml:"word"`
	CommonMistypes []string `json:"common_mistypes,omitempty" yaml:"common_mistypes"`
	Definition     string   `json:"definition,omitempty" yaml:"definition"`
}

type AudioOptions struct {
	URL       string
	AuthToken string
	Model     string
	// Prompt replaces the provider's default prompt. Keyword hints are not
	// appended when it is set.
	Prompt   string
	Keywords []AudioKeyword
}

// NormalizeKeywords trims every field and drops entries without a word. The
// result never shares slices with the input, and is nil when nothing is left.
func NormalizeKeywords(keywords []AudioKeyword) []AudioKeyword {
	var out []AudioKeyword
	for _, keyword := range keywords {
		word := strings.TrimSpace(keyword.Word)
		if word == "" {
			continue
		}

		var mistypes []string
		for _, candidate := range keyword.CommonMistypes {
			if candidate = strings.TrimSpace(candidate); candidate != "" {
				mistypes = append(mistypes, candidate)
			}
		}
		out = append(out, AudioKeyword{
			Word:           word,
			CommonMistypes: mistypes,
			Definition:     strings.TrimSpace(keyword.Definition),
		})
	}
	return out
}
