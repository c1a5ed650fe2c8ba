package models

type ReportStatus string

const (
	ReportStatusSubmitted  ReportStatus = "submitted"
	ReportStatusValidating ReportStatus = "validating"
	ReportStatusValidated  ReportStatus = "validated"
	ReportStatusAnalyzing  ReportStatus = "analyzing"
	ReportStatusAnalyzed   ReportStatus = "analyzed"
	ReportStatusApproved   ReportStatus = "approved"
	ReportStatusRejected   ReportStatus = "rejected"

	// Terminal failure states. Only reachable with STRICT_PIPELINE_FAILURES;
	// the default policy degrades to a low-confidence outcome instead.
	ReportStatusValidationFailed ReportStatus = "validation_failed"
	ReportStatusAnalysisFailed   ReportStatus = "analysis_failed"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusSubmitted, ReportStatusValidating, ReportStatusValidated,
		ReportStatusAnalyzing, ReportStatusAnalyzed, ReportStatusApproved,
		ReportStatusRejected, ReportStatusValidationFailed, ReportStatusAnalysisFailed:
		return true
	}
	return false
}

// Terminal reports can never transition again.
func (s ReportStatus) Terminal() bool {
	switch s {
	case ReportStatusApproved, ReportStatusRejected,
		ReportStatusValidationFailed, ReportStatusAnalysisFailed:
		return true
	}
	return false
}

type ReportKind string

const (
	ReportKindLiquidity  ReportKind = "liquidity"
	ReportKindAML        ReportKind = "aml"
	ReportKindCapital    ReportKind = "capital"
	ReportKindGovernance ReportKind = "governance"
)

func (k ReportKind) Valid() bool {
	switch k {
	case ReportKindLiquidity, ReportKindAML, ReportKindCapital, ReportKindGovernance:
		return true
	}
	return false
}

type RiskCategory string

const (
	RiskCategoryLiquidity   RiskCategory = "liquidity"
	RiskCategoryCredit      RiskCategory = "credit"
	RiskCategoryMarket      RiskCategory = "market"
	RiskCategoryOperational RiskCategory = "operational"
	RiskCategoryCompliance  RiskCategory = "compliance"

	// RiskCategoryUnknown is the fallback category when the assessment
	// capability is unavailable.
	RiskCategoryUnknown RiskCategory = "unknown"
)

type Urgency string

const (
	UrgencyRoutine  Urgency = "routine"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyCritical Urgency = "critical"
)

// DeriveUrgency maps a risk score onto an urgency tier. It is the single
// source of truth: every RiskOutcome, real or fallback, carries
// DeriveUrgency(score), never a tier chosen elsewhere.
//
// score >= 7.0 -> critical; 5.0 <= score < 7.0 -> urgent; else routine.
func DeriveUrgency(score float64) Urgency {
	switch {
	case score >= 7.0:
		return UrgencyCritical
	case score >= 5.0:
		return UrgencyUrgent
	default:
		return UrgencyRoutine
	}
}

type UserRole string

const (
	UserRoleSubmitter     UserRole = "submitter"
	UserRoleSupervisor    UserRole = "supervisor"
	UserRoleAdministrator UserRole = "administrator"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleSubmitter, UserRoleSupervisor, UserRoleAdministrator:
		return true
	}
	return false
}

// Supervisory roles review reports for every entity.
func (r UserRole) Supervisory() bool {
	return r == UserRoleSupervisor || r == UserRoleAdministrator
}

type EventKind string

const (
	EventKindSubmitted        EventKind = "submitted"
	EventKindApproved         EventKind = "approved"
	EventKindRejected         EventKind = "rejected"
	EventKindValidationFailed EventKind = "validation_failed"
)
