package models

import (
	"fmt"
	"time"
)

// ValidationIssue is one structural error found in an uploaded report file,
// pinned to the column/row a submitter has to fix.
type ValidationIssue struct {
	Column string `json:"column"`
	Row    int    `json:"row"`
	Issue  string `json:"issue"`
}

// ValidationOutcome is the result of the structural validation stage.
// Immutable once attached to a report.
type ValidationOutcome struct {
	IsValid    bool              `json:"is_valid"`
	Confidence float64           `json:"confidence"`
	Errors     []ValidationIssue `json:"errors"`
	Warnings   []string          `json:"warnings"`
	AgentModel string            `json:"agent_model,omitempty"`
	ElapsedMs  int64             `json:"elapsed_ms,omitempty"`
}

// RiskOutcome is the result of the risk analysis stage.
// Immutable once attached to a report. Urgency is always
// DeriveUrgency(Score); AttachRisk enforces that.
type RiskOutcome struct {
	Category      RiskCategory `json:"category"`
	Score         float64      `json:"score"`
	Urgency       Urgency      `json:"urgency"`
	Anomalies     []string     `json:"anomalies"`
	Confidence    float64      `json:"confidence"`
	Justification string       `json:"justification"`
	AgentModel    string       `json:"agent_model,omitempty"`
	ElapsedMs     int64        `json:"elapsed_ms,omitempty"`
}

// Report is a financial report submission moving through the assessment
// pipeline. Status is owned by the state machine: the only legal mutation
// path is ReportStore.AdvanceReport.
type Report struct {
	ID         string     `gorm:"primary_key;size:36" json:"id"`
	EntityCode string     `gorm:"size:32;index;not null" json:"entity_code"`
	EntityName string     `gorm:"size:255" json:"entity_name"`
	ReportKind ReportKind `gorm:"size:20;not null" json:"report_type"`

	FileName string `gorm:"size:255" json:"file_name"`
	FileSize int64  `json:"file_size"`

	Status      ReportStatus `gorm:"size:20;index;not null" json:"status"`
	SubmittedBy string       `gorm:"size:36;index;not null" json:"submitted_by"`
	SubmittedAt time.Time    `json:"submitted_at"`

	// Outcome snapshots, nil until the owning stage has run.
	Validation *ValidationOutcome `gorm:"type:json;serializer:json" json:"validation"`
	Risk       *RiskOutcome       `gorm:"type:json;serializer:json" json:"risk"`

	ReviewedAt      *time.Time `json:"reviewed_at"`
	ReviewedBy      string     `gorm:"size:36" json:"reviewed_by"`
	DecisionComment string     `gorm:"type:text" json:"decision_comment"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// statusTransitions is the complete transition table. Transitions are
// monotonic: no state appears on the right side of an earlier state.
var statusTransitions = map[ReportStatus][]ReportStatus{
	ReportStatusSubmitted:  {ReportStatusValidating},
	ReportStatusValidating: {ReportStatusValidated, ReportStatusValidationFailed},
	ReportStatusValidated:  {ReportStatusAnalyzing},
	ReportStatusAnalyzing:  {ReportStatusAnalyzed, ReportStatusAnalysisFailed},
	ReportStatusAnalyzed:   {ReportStatusApproved, ReportStatusRejected},
}

func CanTransition(from ReportStatus, to ReportStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckOutcomeConsistency enforces the status/outcome invariant: a report can
// only hold a status whose prerequisite outcomes are attached.
func (r *Report) CheckOutcomeConsistency() error {
	switch r.Status {
	case ReportStatusValidated, ReportStatusAnalyzing, ReportStatusValidationFailed:
		if r.Validation == nil {
			return fmt.Errorf("report %s: status %s requires a validation outcome", r.ID, r.Status)
		}
	case ReportStatusAnalyzed, ReportStatusAnalysisFailed, ReportStatusApproved, ReportStatusRejected:
		if r.Validation == nil {
			return fmt.Errorf("report %s: status %s requires a validation outcome", r.ID, r.Status)
		}
		if r.Risk == nil {
			return fmt.Errorf("report %s: status %s requires a risk outcome", r.ID, r.Status)
		}
	}
	return nil
}

// AttachRisk sets the risk outcome, normalizing urgency so it is always a
// pure function of the score regardless of what the capability returned.
func (r *Report) AttachRisk(risk *RiskOutcome) {
	risk.Urgency = DeriveUrgency(risk.Score)
	r.Risk = risk
}
