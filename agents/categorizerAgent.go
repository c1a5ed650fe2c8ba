package agents

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/consolelogwin/veritas_backend/models"
)

const assessorModel = "risk-heuristics-v1"

// kindBaseScore reflects the supervisory weight of each report kind.
var kindBaseScore = map[models.ReportKind]float64{
	models.ReportKindAML:        5.5,
	models.ReportKindLiquidity:  4.5,
	models.ReportKindCapital:    4.0,
	models.ReportKindGovernance: 3.0,
}

var kindCategory = map[models.ReportKind]models.RiskCategory{
	models.ReportKindAML:        models.RiskCategoryCompliance,
	models.ReportKindLiquidity:  models.RiskCategoryLiquidity,
	models.ReportKindCapital:    models.RiskCategoryCredit,
	models.ReportKindGovernance: models.RiskCategoryOperational,
}

// HeuristicAssessor is the bundled risk analysis capability. It scores a
// report from its kind and the validation outcome. Deterministic on purpose:
// the same document always gets the same score.
type HeuristicAssessor struct{}

func NewHeuristicAssessor() *HeuristicAssessor {
	return &HeuristicAssessor{}
}

func (a *HeuristicAssessor) Assess(ctx context.Context, doc Document, validation *models.ValidationOutcome) (*models.RiskOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	score, ok := kindBaseScore[doc.Kind]
	if !ok {
		score = 5.0
	}

	anomalies := []string{}
	if validation != nil {
		if !validation.IsValid {
			score += 1.5
			anomalies = append(anomalies, fmt.Sprintf("structural validation failed with %d errors", len(validation.Errors)))
		}
		if n := len(validation.Errors); n > 0 {
			extra := float64(n) * 0.25
			if extra > 1.5 {
				extra = 1.5
			}
			score += extra
		}
		if validation.Confidence < 0.8 {
			anomalies = append(anomalies, fmt.Sprintf("validation confidence %.2f below review threshold", validation.Confidence))
		}
	}
	if len(doc.Data) < 1024 {
		score += 0.5
		anomalies = append(anomalies, "report file unusually small")
	}

	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}

	category, ok := kindCategory[doc.Kind]
	if !ok {
		category = models.RiskCategoryUnknown
	}

	confidence := 0.85
	if validation == nil || !validation.IsValid {
		confidence = 0.7
	}

	return &models.RiskOutcome{
		Category:   category,
		Score:      score,
		Urgency:    models.DeriveUrgency(score),
		Anomalies:  anomalies,
		Confidence: confidence,
		Justification: fmt.Sprintf(
			"%s report scored %.1f from base weight and %d structural findings",
			doc.Kind, score, len(anomalies)),
		AgentModel: assessorModel,
		ElapsedMs:  time.Since(start).Milliseconds(),
	}, nil
}

func (a *HeuristicAssessor) Health(ctx context.Context) error { return ctx.Err() }
