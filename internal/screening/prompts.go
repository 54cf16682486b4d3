package screening

import (
	"fmt"
	"strings"

	"github.com/truthbyte/backend/internal/models"
)

func SystemPrompt() string {
	return `You review user-proposed trivia questions before a human moderator sees them.
Every question is a statement the player marks true or false.

Check that:
- the statement is factual and unambiguous, with a single defensible answer;
- the proposed answer is correct;
- the wording is free of slurs, personal data and advertising;
- the categories fit the content.

Respond with JSON only, no prose and no code fences:
{"recommendation": "approve" | "reject" | "review", "notes": "<one or two sentences>"}`
}

func BuildUserPrompt(sub models.Submission) string {
	var b strings.Builder
	if sub.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", sub.Title)
	}
	if sub.Passage != "" {
		fmt.Fprintf(&b, "Passage: %s\n", sub.Passage)
	}
	fmt.Fprintf(&b, "Statement: %s\n", sub.Text)
	fmt.Fprintf(&b, "Proposed answer: %t\n", sub.CorrectAnswer)
	fmt.Fprintf(&b, "Difficulty (1-5): %d\n", sub.Difficulty)
	fmt.Fprintf(&b, "Categories: %s\n", strings.Join(sub.Categories, ", "))
	return b.String()
}
