// Package agents defines the assessment capabilities the pipeline depends on.
// Each capability is a black box behind a narrow contract: it may be slow or
// fail, and callers never assume success. The bundled implementations are
// local rule-based agents; a remote model can replace any of them.
package agents

import (
	"context"

	"bitbucket.org/consolelogwin/veritas_backend/models"
)

// Document is the raw uploaded report handed to the capabilities.
type Document struct {
	FileName string
	Data     []byte
	Kind     models.ReportKind
}

// Validator checks the structural validity of an uploaded report file.
type Validator interface {
	Validate(ctx context.Context, doc Document) (*models.ValidationOutcome, error)
}

// Assessor scores the risk of a report given its (real or fallback)
// validation outcome.
type Assessor interface {
	Assess(ctx context.Context, doc Document, validation *models.ValidationOutcome) (*models.RiskOutcome, error)
}

// Composer turns a pipeline event into recipient-facing message content.
type Composer interface {
	Compose(ctx context.Context, kind models.EventKind, context map[string]any) (*models.MessageContent, error)
}

// HealthChecker is implemented by capabilities that can probe their backend.
type HealthChecker interface {
	Health(ctx context.Context) error
}
