package models

import (
	"errors"
	"testing"

	"bitbucket.org/consolelogwin/veritas_backend/utils"
)

func TestAuthorize_RoleMatrix(t *testing.T) {
	submitter := &User{ID: "s1", Role: UserRoleSubmitter, EntityAccess: []string{"MBANK001"}}
	supervisor := &User{ID: "v1", Role: UserRoleSupervisor}
	admin := &User{ID: "a1", Role: UserRoleAdministrator}

	inScope := &Report{EntityCode: "MBANK001", Status: ReportStatusAnalyzed}
	outOfScope := &Report{EntityCode: "PKOBP001", Status: ReportStatusAnalyzed}

	cases := []struct {
		name   string
		user   *User
		action Action
		report *Report
		allow  bool
	}{
		{"submitter submits in scope", submitter, ActionSubmit, inScope, true},
		{"submitter submits out of scope", submitter, ActionSubmit, outOfScope, false},
		{"submitter reads in scope", submitter, ActionRead, inScope, true},
		{"submitter reads out of scope", submitter, ActionRead, outOfScope, false},
		{"submitter approves", submitter, ActionApprove, inScope, false},
		{"submitter rejects", submitter, ActionReject, inScope, false},
		{"supervisor submits", supervisor, ActionSubmit, inScope, false},
		{"supervisor reads anything", supervisor, ActionRead, outOfScope, true},
		{"supervisor approves", supervisor, ActionApprove, inScope, true},
		{"supervisor rejects", supervisor, ActionReject, inScope, true},
		{"admin submits", admin, ActionSubmit, inScope, true},
		{"admin approves", admin, ActionApprove, inScope, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.user, tc.action, tc.report)
			if tc.allow && err != nil {
				t.Fatalf("want allow, got %v", err)
			}
			if !tc.allow && err == nil {
				t.Fatal("want denial, got allow")
			}
		})
	}
}

// A review on a report that is not yet analyzed is a state problem, not a
// permission problem. The two error types drive different HTTP statuses.
func TestAuthorize_ReviewBeforeAnalyzed_IsStateError(t *testing.T) {
	supervisor := &User{ID: "v1", Role: UserRoleSupervisor}

	for _, status := range []ReportStatus{
		ReportStatusSubmitted, ReportStatusValidating, ReportStatusValidated,
		ReportStatusAnalyzing, ReportStatusApproved, ReportStatusRejected,
	} {
		err := Authorize(supervisor, ActionApprove, &Report{EntityCode: "MBANK001", Status: status})
		var stateErr *utils.StateError
		if !errors.As(err, &stateErr) {
			t.Fatalf("status %s: error = %v, want StateError", status, err)
		}
		var authErr *utils.AuthorizationError
		if errors.As(err, &authErr) {
			t.Fatalf("status %s: got AuthorizationError, want StateError only", status)
		}
	}
}

func TestAuthorize_SubmitterReview_IsAuthorizationError(t *testing.T) {
	submitter := &User{ID: "s1", Role: UserRoleSubmitter, EntityAccess: []string{"MBANK001"}}

	// Even on a report that is not analyzed, the role denial wins.
	err := Authorize(submitter, ActionApprove, &Report{EntityCode: "MBANK001", Status: ReportStatusSubmitted})
	var authErr *utils.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want AuthorizationError", err)
	}
}

func TestAuthorize_NilCaller_IsDenied(t *testing.T) {
	err := Authorize(nil, ActionRead, &Report{EntityCode: "MBANK001"})
	var authErr *utils.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want AuthorizationError", err)
	}
}

func TestCanAccessEntity_Wildcard(t *testing.T) {
	user := &User{Role: UserRoleSubmitter, EntityAccess: []string{"*"}}
	if !user.CanAccessEntity("ANYTHING") {
		t.Fatal("wildcard scope must grant access to any entity")
	}

	scoped := &User{Role: UserRoleSubmitter, EntityAccess: []string{"MBANK001"}}
	if scoped.CanAccessEntity("PKOBP001") {
		t.Fatal("scoped submitter must not access other entities")
	}
}
