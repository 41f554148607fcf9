// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/pdiddy/secdigest/pkg/types"
)

// DefaultSummaryPrompt instructs the model to return the structured summary
// shape. The affiliations field requires per-author attribution so claims
// can be checked against the record's author list afterwards.
const DefaultSummaryPrompt = `You are a research analyst reviewing security and networking papers.
Read the paper text and answer with a single JSON object with exactly these fields:
- "findings": array of exactly 3 short bullet strings with the paper's main findings
- "one_liner": one sentence describing the paper for a newsletter
- "emoji": a single emoji that fits the paper's topic
- "tag": one of "security", "cyber" or "general". Use "security" for offensive or
  defensive security research, "cyber" for network and systems work with security
  relevance, and "general" for everything else.
- "interest_score": integer 1-10 rating how interesting this is to a security team
- "affiliations": array of objects {"name": institution, "authors": [author names
  from the paper associated with that institution]}. Only include institutions the
  paper text explicitly states. If none are stated, return an empty array.
Answer with JSON only, no prose.`

// DefaultRelevancePrompt asks for a yes/no relevance verdict.
const DefaultRelevancePrompt = `You are filtering papers for a security engineering newsletter.
Given a paper's title and summary, decide whether the paper is worth the team's
attention. Answer with a single JSON object: {"relevant": true} or {"relevant": false}.`

// DefaultProjectPrompt matches a paper against the team's active projects.
// The project registry is appended by projectPrompt before each call.
const DefaultProjectPrompt = `You are matching papers to a team's active projects.
Given a paper's title and summary plus the project list below, answer with a
single JSON object {"projects": [...]} listing the ids of every project the
paper is directly useful for. Return {"projects": []} when none apply.

Projects:
{{range .}}- {{.ID}}: {{.Description}}
{{end}}`

// projectPrompt renders the project-matching system prompt with the active
// project registry interpolated.
func projectPrompt(tmpl string, projects []types.ProjectDefinition) (string, error) {
	t, err := template.New("projects").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parsing project prompt template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, projects); err != nil {
		return "", fmt.Errorf("rendering project prompt: %w", err)
	}
	return buf.String(), nil
}

// recordContext formats the record fields shared by the classification
// prompts. Classification runs on the stored summary, not the full text.
func recordContext(rec *types.PaperRecord) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Title: %s\n", rec.Title)
	fmt.Fprintf(&buf, "Summary: %s\n", rec.OneLiner)
	for _, p := range rec.Points {
		fmt.Fprintf(&buf, "- %s\n", p)
	}
	return buf.String()
}
