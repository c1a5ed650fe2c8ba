package models

import "testing"

func TestDeriveUrgency_Boundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  Urgency
	}{
		{0, UrgencyRoutine},
		{4.999, UrgencyRoutine},
		{5.0, UrgencyUrgent},
		{6.999, UrgencyUrgent},
		{7.0, UrgencyCritical},
		{10, UrgencyCritical},
	}
	for _, tc := range cases {
		if got := DeriveUrgency(tc.score); got != tc.want {
			t.Errorf("DeriveUrgency(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestCanTransition_OnlyForward(t *testing.T) {
	allowed := map[ReportStatus][]ReportStatus{
		ReportStatusSubmitted:  {ReportStatusValidating},
		ReportStatusValidating: {ReportStatusValidated, ReportStatusValidationFailed},
		ReportStatusValidated:  {ReportStatusAnalyzing},
		ReportStatusAnalyzing:  {ReportStatusAnalyzed, ReportStatusAnalysisFailed},
		ReportStatusAnalyzed:   {ReportStatusApproved, ReportStatusRejected},
	}
	all := []ReportStatus{
		ReportStatusSubmitted, ReportStatusValidating, ReportStatusValidated,
		ReportStatusAnalyzing, ReportStatusAnalyzed, ReportStatusApproved,
		ReportStatusRejected, ReportStatusValidationFailed, ReportStatusAnalysisFailed,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, next := range allowed[from] {
				if next == to {
					want = true
				}
			}
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}

	// Terminal states go nowhere.
	for _, terminal := range []ReportStatus{
		ReportStatusApproved, ReportStatusRejected,
		ReportStatusValidationFailed, ReportStatusAnalysisFailed,
	} {
		if !terminal.Terminal() {
			t.Errorf("%s must be terminal", terminal)
		}
	}
}

func TestCheckOutcomeConsistency(t *testing.T) {
	report := &Report{ID: "r1", Status: ReportStatusValidated}
	if err := report.CheckOutcomeConsistency(); err == nil {
		t.Fatal("validated without validation outcome must fail")
	}

	report.Validation = &ValidationOutcome{IsValid: true, Confidence: 0.9}
	if err := report.CheckOutcomeConsistency(); err != nil {
		t.Fatalf("validated with outcome: %v", err)
	}

	report.Status = ReportStatusAnalyzed
	if err := report.CheckOutcomeConsistency(); err == nil {
		t.Fatal("analyzed without risk outcome must fail")
	}

	report.AttachRisk(&RiskOutcome{Category: RiskCategoryLiquidity, Score: 3.2, Confidence: 0.8})
	if err := report.CheckOutcomeConsistency(); err != nil {
		t.Fatalf("analyzed with both outcomes: %v", err)
	}
}

func TestAttachRisk_NormalizesUrgency(t *testing.T) {
	report := &Report{}
	// The capability claims routine for a critical score; the score wins.
	report.AttachRisk(&RiskOutcome{Score: 8.5, Urgency: UrgencyRoutine})
	if report.Risk.Urgency != UrgencyCritical {
		t.Fatalf("urgency = %s, want critical for score 8.5", report.Risk.Urgency)
	}
}
