package extraction

import (
	"fmt"
	"strings"

	"github.com/talentscout/scout/internal/schema"
)

const extractionPreamble = `You are an extraction engine for a hiring assistant. You only extract information from the candidate's message; you never respond to the candidate.

Extract any of the following fields that are explicitly present in the message:`

const extractionRules = `Return the result as a JSON array containing exactly one object, holding only the fields that are present in the message.
If a piece of information is not provided, do not include its key. Never invent, assume, or leave blank values.
Do not include any preamble or prose outside the JSON.

Example responses:
[{"name": "Jane Smith"}]
[{"languages": "Python, Go", "frameworks": "Django"}]

If the message contains no profile information, return an empty object:
[{}]`

// BuildPrompt constructs the extraction-only system instruction. The last
// question asked gives the model context for short answers ("5 years",
// "Berlin") that only make sense against the question.
func BuildPrompt(lastQuestion string) string {
	var sb strings.Builder
	sb.WriteString(extractionPreamble)
	sb.WriteString("\n")
	for _, f := range schema.Fields {
		fmt.Fprintf(&sb, "- %s (string)\n", f)
	}
	sb.WriteString("\n")
	sb.WriteString(extractionRules)

	if lastQuestion != "" {
		fmt.Fprintf(&sb, "\n\nThe last question asked to the candidate was:\n%s", lastQuestion)
	}

	return sb.String()
}
