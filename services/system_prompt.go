package services

import (
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const medicalSystemPrompt = `You are a clinical evidence assistant for oncology and related specialties. You answer questions for clinicians using the guideline and study excerpts supplied with each question.

Rules:
1.  **Ground every claim** in the supplied evidence. Refer to excerpts by their number, e.g. [1].
2.  **State the evidence level** (guideline, meta-analysis, randomized trial, cohort study, expert opinion) when you rely on an excerpt.
3.  **Be explicit about gaps.** If the excerpts do not answer the question, say so plainly. Do not invent studies, doses or statistics.
4.  **Patient safety first.** Never present your answer as a substitute for the treating physician's judgement.

Keep the answer concise and structured: a direct answer first, then the supporting evidence, then caveats.`

// GetSystemPrompt returns the clinical instructions as Gemini content.
func GetSystemPrompt() *genai.Content {
	contents := genai.Text(medicalSystemPrompt)
	if len(contents) == 0 {
		return nil
	}
	return contents[0]
}

// buildMedicalPrompt numbers the evidence snippets and appends the question.
func buildMedicalPrompt(query string, snippets []string) string {
	var b strings.Builder
	if len(snippets) == 0 {
		b.WriteString("No supporting evidence was retrieved for this question.\n\n")
	} else {
		b.WriteString("Evidence:\n")
		for i, s := range snippets {
			fmt.Fprintf(&b, "[%d] %s\n\n", i+1, strings.TrimSpace(s))
		}
	}
	fmt.Fprintf(&b, "Question: %s\n", strings.TrimSpace(query))
	return b.String()
}
