package study

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// NotesPromptPreamble asks for Markdown notes with uniform heading and math
// conventions. The transcript is appended verbatim.
const NotesPromptPreamble = `Convert the transcript below into well-organized Markdown study notes that render correctly in a Jupyter notebook.

Headings:
Use # symbols to mark heading levels (#, ##, ### and so on) and organize the notes hierarchically.

Inline math:
Wrap inline math in single dollar signs. Example: $e^{i\pi} + 1 = 0$

Display math:
Wrap display math in double dollar signs. Example: $$ e^{i\pi} + 1 = 0 $$

Uniform syntax:
Apply these conventions the same way everywhere in the response.

Example:
# Heading 1
## Heading 2
$ e^{i\pi} + 1 = 0 $
$$ e^{i\pi} + 1 = 0 $$

Transcript:
`

const quizPromptPreamble = `You are a teacher who makes sure a student understands every topic in a lecture.
Identify the topics and subtopics in the transcript.
Write one summary of the transcript.
Write multiple-choice questions that cover the identified topics and subtopics.
Base every question and option on factually correct information from the transcript.
Do not include any preamble or closing remarks.

Transcript:
`

var quizFormatInstructions = buildQuizFormatInstructions()

// BuildNotesPrompt returns NotesPromptPreamble followed by the transcript.
func BuildNotesPrompt(transcript string) string {
	return NotesPromptPreamble + transcript
}

// BuildQuizPrompt returns the quiz instructions, the transcript, and the fixed
// output format instructions, in that order.
func BuildQuizPrompt(transcript string) string {
	return quizPromptPreamble + transcript + "\n\n" + quizFormatInstructions
}

// QuizFormatInstructions returns the output format instructions that end every
// quiz prompt.
func QuizFormatInstructions() string {
	return quizFormatInstructions
}

func buildQuizFormatInstructions() string {
	return `Respond with a single JSON object and nothing else, in exactly this format:
{"Summary": "<summary>",
 "Questions": [
  {"Question": "<question>", "Options": ["<option 1>", "<option 2>", "<option 3>", "<option 4>"], "CorrectAnswer": 1}
 ]
}

The object must validate against this JSON Schema:
` + quizSchemaJSON() + `

Instructions:
1. Every question has exactly four distinct options.
2. CorrectAnswer is the integer 1, 2, 3 or 4 and names the position of the correct option (1 = first option, 4 = fourth option).
3. Exactly one option is correct and the answer is clear.
4. Every answer is factually verifiable from the transcript.`
}

func quizSchemaJSON() string {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&Quiz{})
	schema.Version = ""

	bits, err := json.Marshal(schema)
	if err != nil {
		return "{}"
	}
	return string(bits)
}
