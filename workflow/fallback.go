package workflow

import (
	"fmt"

	"bitbucket.org/consolelogwin/veritas_backend/models"
)

// Fallback outcomes are pure functions of the failure. They let the pipeline
// reach a terminal-but-reviewable state instead of stalling; the low
// confidence marks the result for human attention.

// FallbackValidation substitutes for a failed/timed-out validation
// capability: not valid, confidence exactly 0.5, one synthetic error naming
// the failure.
func FallbackValidation(cause error) *models.ValidationOutcome {
	return &models.ValidationOutcome{
		IsValid:    false,
		Confidence: 0.5,
		Errors: []models.ValidationIssue{{
			Column: "file",
			Row:    0,
			Issue:  fmt.Sprintf("validation capability unavailable: %v", cause),
		}},
		Warnings: []string{},
	}
}

// FallbackRisk substitutes for a failed/timed-out assessment capability:
// mid-scale score 5.0, unknown category, confidence 0.3. Urgency follows the
// uniform score mapping, so a fallback lands in the urgent queue.
func FallbackRisk() *models.RiskOutcome {
	return &models.RiskOutcome{
		Category:      models.RiskCategoryUnknown,
		Score:         5.0,
		Urgency:       models.DeriveUrgency(5.0),
		Anomalies:     []string{},
		Confidence:    0.3,
		Justification: "assessment unavailable",
	}
}

// FallbackMessage substitutes for a failed compose capability. A report must
// never finish the pipeline silently, so a fixed-language generic message is
// sent instead of nothing.
func FallbackMessage(kind models.EventKind) *models.MessageContent {
	return &models.MessageContent{
		Title: "System notification",
		Body:  fmt.Sprintf("A report event of type %s occurred; details are available in your report list", kind),
	}
}
