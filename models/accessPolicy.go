package models

import (
	"fmt"

	"bitbucket.org/consolelogwin/veritas_backend/utils"
)

// Action is a state-changing or read operation gated by the access policy.
type Action string

const (
	ActionSubmit  Action = "submit"
	ActionRead    Action = "read"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Authorize decides whether user may perform action on report.
//
// A nil return means allow. Denials are *utils.AuthorizationError when the
// role/scope never permits the action, and *utils.StateError when the action
// is permitted in principle but the report is not in a status that accepts it
// yet. Callers rely on that distinction.
//
// Rules:
//   - submitters submit and read only within their entity scope
//   - supervisors read/approve/reject any report but never submit
//   - administrators may do everything
//   - approve/reject additionally require the report to be `analyzed`
func Authorize(user *User, action Action, report *Report) error {
	if user == nil {
		return &utils.AuthorizationError{Reason: "unknown caller"}
	}
	if report == nil {
		return &utils.AuthorizationError{Reason: "no report in scope"}
	}

	switch action {
	case ActionSubmit:
		if user.Role.Supervisory() && user.Role != UserRoleAdministrator {
			return &utils.AuthorizationError{Reason: "supervisors may not submit reports"}
		}
		if !user.CanAccessEntity(report.EntityCode) {
			return &utils.AuthorizationError{
				Reason: fmt.Sprintf("user %s has no access to entity %s", user.ID, report.EntityCode),
			}
		}
		return nil

	case ActionRead:
		if !user.CanAccessEntity(report.EntityCode) {
			return &utils.AuthorizationError{
				Reason: fmt.Sprintf("user %s has no access to entity %s", user.ID, report.EntityCode),
			}
		}
		return nil

	case ActionApprove, ActionReject:
		if !user.Role.Supervisory() {
			return &utils.AuthorizationError{Reason: "only supervisors may review reports"}
		}
		if report.Status != ReportStatusAnalyzed {
			return &utils.StateError{Action: string(action), Current: string(report.Status)}
		}
		return nil
	}

	return &utils.AuthorizationError{Reason: "unknown action " + string(action)}
}
