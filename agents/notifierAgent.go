package agents

import (
	"context"
	"fmt"

	"bitbucket.org/consolelogwin/veritas_backend/models"
)

// TemplateComposer is the bundled message composer. Fixed templates keyed by
// event kind, filled from the event context.
type TemplateComposer struct{}

func NewTemplateComposer() *TemplateComposer {
	return &TemplateComposer{}
}

func (c *TemplateComposer) Compose(ctx context.Context, kind models.EventKind, eventCtx map[string]any) (*models.MessageContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fileName := stringField(eventCtx, "file_name")
	entityName := stringField(eventCtx, "entity_name")

	switch kind {
	case models.EventKindSubmitted:
		if stringField(eventCtx, "audience") == "supervisor" {
			return &models.MessageContent{
				Title: "New report for review",
				Body:  fmt.Sprintf("New %s report from %s: %s", stringField(eventCtx, "report_type"), entityName, fileName),
			}, nil
		}
		return &models.MessageContent{
			Title: "Report received",
			Body:  fmt.Sprintf("Your report %s was received and assessed; it is awaiting supervisory review", fileName),
		}, nil

	case models.EventKindApproved:
		return &models.MessageContent{
			Title: "Report approved",
			Body:  fmt.Sprintf("Your report %s has been approved", fileName),
		}, nil

	case models.EventKindRejected:
		body := fmt.Sprintf("Your report %s has been rejected", fileName)
		if reason := stringField(eventCtx, "comment"); reason != "" {
			body += ": " + reason
		}
		return &models.MessageContent{
			Title: "Report rejected",
			Body:  body,
		}, nil

	case models.EventKindValidationFailed:
		return &models.MessageContent{
			Title: "Report validation problems",
			Body:  fmt.Sprintf("Your report %s was received but has structural problems; it is awaiting supervisory review", fileName),
		}, nil
	}

	return nil, fmt.Errorf("no template for event kind %q", kind)
}

func (c *TemplateComposer) Health(ctx context.Context) error { return ctx.Err() }

func stringField(eventCtx map[string]any, key string) string {
	if eventCtx == nil {
		return ""
	}
	if v, ok := eventCtx[key].(string); ok {
		return v
	}
	if v, ok := eventCtx[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}
