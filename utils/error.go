package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// AuthorizationError means the caller's role or entity scope never permits
// the action. It is terminal for the caller: re-trying cannot succeed.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return "not authorized: " + e.Reason
}

// StateError means the caller could perform the action in principle, but the
// report is not in a status that allows it right now. Kept distinct from
// AuthorizationError so clients can tell "never" from "not yet".
type StateError struct {
	Action  string
	Current string
	Reason  string
}

func (e *StateError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("cannot %s report in status %s", e.Action, e.Current)
}

// ConflictError means a concurrent transition advanced the report first.
// The caller should re-read and decide; the losing write is never retried here.
type ConflictError struct {
	ReportId string
	Expected string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("report %s no longer in status %s", e.ReportId, e.Expected)
}

// InputError covers malformed or out-of-policy request payloads
// (bad file type, short rejection comment, unknown report kind).
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return e.Reason
}

// CapabilityFailure wraps an assessment capability error or timeout. It is
// absorbed by the pipeline's fallback policy and recorded for audit; it must
// never surface to an end user as a failure.
type CapabilityFailure struct {
	Stage string
	Err   error
}

func (e *CapabilityFailure) Error() string {
	return fmt.Sprintf("capability %s failed: %v", e.Stage, e.Err)
}

func (e *CapabilityFailure) Unwrap() error { return e.Err }

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
