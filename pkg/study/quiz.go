package study

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

const OptionsPerQuestion = 4

// Quiz is the validated summary-plus-questions record produced from the quiz
// generation. Field names match the wire format.
type Quiz struct {
	Summary   string     `json:"Summary" jsonschema:"description=Summary of the transcript"`
	Questions []Question `json:"Questions" jsonschema:"description=Questions in presentation order"`
}

type Question struct {
	Question      string   `json:"Question"`
	Options       []string `json:"Options" jsonschema:"minItems=4,maxItems=4"`
	CorrectAnswer int      `json:"CorrectAnswer" jsonschema:"minimum=1,maximum=4,description=1-indexed position of the correct option"`
}

// MarshalJSON always emits Questions as an array so a serialized quiz parses again.
func (q Quiz) MarshalJSON() ([]byte, error) {
	type wire Quiz
	out := wire(q)
	if out.Questions == nil {
		out.Questions = []Question{}
	}
	return json.Marshal(out)
}

// CorrectOption returns the text of the correct option.
func (q Question) CorrectOption() string {
	if q.CorrectAnswer < 1 || q.CorrectAnswer > len(q.Options) {
		return ""
	}
	return q.Options[q.CorrectAnswer-1]
}

// MalformedQuizError reports why a generated quiz was rejected. Question is the
// 0-based index of the offending question, or -1 for record-level problems.
type MalformedQuizError struct {
	Question int
	Reason   string
	Err      error
}

func (e *MalformedQuizError) Error() string {
	msg := "malformed quiz: "
	if e.Question >= 0 {
		msg += fmt.Sprintf("question %d: ", e.Question+1)
	}
	msg += e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedQuizError) Unwrap() error {
	return e.Err
}

func malformed(question int, reason string, err error) error {
	return &MalformedQuizError{Question: question, Reason: reason, Err: err}
}

// ParseQuiz decodes raw generation text into a Quiz and enforces the record
// invariants. A single malformed question rejects the whole record.
func ParseQuiz(raw string) (Quiz, error) {
	payload := stripCodeFence(raw)

	fields, err := decodeObject([]byte(payload))
	if err != nil {
		return Quiz{}, malformed(-1, "response is not a single JSON object", err)
	}

	summaryRaw, ok := fields["Summary"]
	if !ok {
		return Quiz{}, malformed(-1, "missing Summary", nil)
	}
	summary, ok := decodeString(summaryRaw)
	if !ok {
		return Quiz{}, malformed(-1, "Summary is not a string", nil)
	}

	questionsRaw, ok := fields["Questions"]
	if !ok {
		return Quiz{}, malformed(-1, "missing Questions", nil)
	}
	var items []json.RawMessage
	if !isJSONArray(questionsRaw) {
		return Quiz{}, malformed(-1, "Questions is not an array", nil)
	}
	if err := json.Unmarshal(questionsRaw, &items); err != nil {
		return Quiz{}, malformed(-1, "Questions is not an array", err)
	}

	quiz := Quiz{
		Summary:   summary,
		Questions: make([]Question, 0, len(items)),
	}
	for i, item := range items {
		question, err := parseQuestion(i, item)
		if err != nil {
			return Quiz{}, err
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz, nil
}

func parseQuestion(index int, raw json.RawMessage) (Question, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return Question{}, malformed(index, "question is not an object", err)
	}

	textRaw, ok := fields["Question"]
	if !ok {
		return Question{}, malformed(index, "missing Question", nil)
	}
	text, ok := decodeString(textRaw)
	if !ok {
		return Question{}, malformed(index, "Question is not a string", nil)
	}

	optionsRaw, ok := fields["Options"]
	if !ok {
		return Question{}, malformed(index, "missing Options", nil)
	}
	options, err := decodeOptions(optionsRaw)
	if err != nil {
		return Question{}, malformed(index, err.Error(), nil)
	}

	answerRaw, ok := fields["CorrectAnswer"]
	if !ok {
		return Question{}, malformed(index, "missing CorrectAnswer", nil)
	}
	answer, err := decodeAnswer(answerRaw)
	if err != nil {
		return Question{}, malformed(index, err.Error(), nil)
	}

	return Question{
		Question:      text,
		Options:       options,
		CorrectAnswer: answer,
	}, nil
}

func decodeOptions(raw json.RawMessage) ([]string, error) {
	if !isJSONArray(raw) {
		return nil, errors.New("Options is not an array")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.New("Options is not an array")
	}
	if len(items) != OptionsPerQuestion {
		return nil, fmt.Errorf("Options must have exactly %d entries, got %d", OptionsPerQuestion, len(items))
	}

	options := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		option, ok := decodeString(item)
		if !ok {
			return nil, fmt.Errorf("option %d is not a string", i+1)
		}
		key := strings.TrimSpace(option)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("option %d duplicates an earlier option", i+1)
		}
		seen[key] = struct{}{}
		options = append(options, option)
	}
	return options, nil
}

func decodeAnswer(raw json.RawMessage) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return 0, errors.New("CorrectAnswer is not an integer")
	}
	number, ok := value.(json.Number)
	if !ok {
		return 0, errors.New("CorrectAnswer is not an integer")
	}

	var answer int64
	if n, err := number.Int64(); err == nil {
		answer = n
	} else {
		f, err := number.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, errors.New("CorrectAnswer is not an integer")
		}
		if f < 1 || f > OptionsPerQuestion {
			return 0, fmt.Errorf("CorrectAnswer must be between 1 and %d, got %s", OptionsPerQuestion, number)
		}
		answer = int64(f)
	}

	if answer < 1 || answer > OptionsPerQuestion {
		return 0, fmt.Errorf("CorrectAnswer must be between 1 and %d, got %d", OptionsPerQuestion, answer)
	}
	return int(answer), nil
}

// decodeObject decodes exactly one JSON object and rejects trailing data.
func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("expected '{'")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	return fields, nil
}

func decodeString(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", false
	}
	var value string
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return "", false
	}
	return value, true
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// stripCodeFence removes one surrounding Markdown code fence, which models add
// even when told to return bare JSON.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return trimmed
	}

	body := strings.TrimSuffix(trimmed[3:], "```")
	// Drop the info string ("json") on the opening fence line.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		info := strings.TrimSpace(body[:nl])
		if info == "" || !strings.ContainsAny(info, "{[") {
			body = body[nl+1:]
		}
	}
	return strings.TrimSpace(body)
}
