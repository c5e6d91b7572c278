// Package policy builds the per-turn system instruction that drives the
// interview: which question to ask next, when to switch to technical
// probing, and when to conclude.
package policy

import (
	"fmt"
	"strings"

	"github.com/talentscout/scout/internal/schema"
	"github.com/talentscout/scout/internal/storage"
)

const persona = `You are the TalentScout Hiring Assistant, designed to interview candidates for tech positions.

Never answer the candidate's own questions. If the candidate asks something, politely decline and continue the interview from where you left off before the question.`

const collectionRules = `Ask for exactly the next missing item listed above, nothing else. Ask one question at a time and wait for the candidate's response before proceeding. Unless the current question is answered, do not move to the next one.`

const technicalRules = `All ten pieces of candidate information have been collected; do not ask for them again.

Based on the declared tech stack, ask relevant technical questions to assess the candidate's skills. Ask 3-5 technical questions on each topic, in this order: programming languages, then frameworks, then databases, then tools.

Once the 3-5 tools-related technical questions are answered, gracefully conclude the conversation: thank the candidate and inform them that a recruiter will analyze their profile and answers and get back to them soon.`

// BuildInstruction composes the system instruction for the conversational
// completion call. It is stateless: the collected profile and the recent
// history window carry all interview state.
//
// The field-collection order is decided here, locally, so the sequence of
// questions is deterministic; only the question wording and the technical
// questions themselves are delegated to the completion backend.
func BuildInstruction(profile schema.Profile, history []storage.Message) string {
	var sb strings.Builder
	sb.WriteString(persona)

	sb.WriteString("\n\nCandidate information collected so far:\n")
	collected := 0
	for _, f := range schema.Fields {
		if v, ok := profile[f]; ok {
			fmt.Fprintf(&sb, "%s : %s\n", f, v)
			collected++
		}
	}
	if collected == 0 {
		sb.WriteString("(nothing collected yet)\n")
	}

	missing := profile.Missing()
	if len(missing) > 0 {
		sb.WriteString("\nStill required, in order:\n")
		for _, f := range missing {
			fmt.Fprintf(&sb, "- %s\n", schema.Label(f))
		}
		fmt.Fprintf(&sb, "\nThe next piece of information to request is: %s.\n\n", schema.Label(missing[0]))
		sb.WriteString(collectionRules)
	} else {
		sb.WriteString("\n")
		sb.WriteString(technicalRules)
	}

	fmt.Fprintf(&sb, "\n\nLast %d messages in the conversation:\n", len(history))
	for _, m := range history {
		fmt.Fprintf(&sb, "%s: %s\n", capitalize(m.Role), m.Content)
	}

	return sb.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
