package classifier

import (
	"fmt"
	"time"
)

const extractSystemPrompt = `You analyse Irish political news. Extract the single concrete commitment an official makes in the article.
Respond with JSON only, no prose:
{"promise": "<the commitment in one sentence>", "type": "legislation|funding|infrastructure|policy|other", "metrics": {"<measurable target>": "<value>"}}`

const verifySystemPrompt = `You check whether political commitments were delivered. Use only verifiable public information.
Respond with JSON only, no prose:
{"delivered": true|false, "partial": true|false, "evidence": "<two sentences>", "sources": ["<url>"], "confidence": <0.0-1.0>}
Set partial to true when some but not all of the commitment was met. If you cannot find evidence, answer delivered false.`

func extractUserPrompt(req ExtractionRequest) string {
	return fmt.Sprintf("Published: %s\nHeadline: %s\nSummary: %s",
		req.PublishedAt.Format(time.DateOnly), req.Title, req.Summary)
}

func verifyUserPrompt(req VerificationRequest) string {
	return fmt.Sprintf("Commitment (%s), announced %s, due %s:\n%s",
		req.Type, req.AnnouncedAt.Format(time.DateOnly), req.TargetDate.Format(time.DateOnly), req.Text)
}
