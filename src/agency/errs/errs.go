// Package errs holds the error kinds surfaced by the agency core.
//
// Every failure returned by the registry and the missions coordinator wraps
// exactly one of the sentinels below, so callers can branch with errors.Is.
package errs

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidBreed       = errors.New("invalid breed")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrImmutableField     = errors.New("immutable field")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrAgentBusy          = errors.New("agent busy")
	ErrAgentAssigned      = errors.New("agent assigned")
	ErrNoAgentAssigned    = errors.New("no agent assigned")
	ErrDirectStatusChange = errors.New("direct status change forbidden")
	ErrTargetLocked       = errors.New("target locked")
)

var kinds = []struct {
	err    error
	name   string
	status int
}{
	{ErrNotFound, "NotFound", http.StatusNotFound},
	{ErrInvalidInput, "InvalidInput", http.StatusBadRequest},
	{ErrInvalidBreed, "InvalidBreed", http.StatusBadRequest},
	{ErrServiceUnavailable, "ServiceUnavailable", http.StatusServiceUnavailable},
	{ErrImmutableField, "ImmutableField", http.StatusBadRequest},
	{ErrInvalidTransition, "InvalidTransition", http.StatusConflict},
	{ErrAgentBusy, "AgentBusy", http.StatusConflict},
	{ErrAgentAssigned, "AgentAssigned", http.StatusConflict},
	{ErrNoAgentAssigned, "NoAgentAssigned", http.StatusUnprocessableEntity},
	{ErrDirectStatusChange, "DirectStatusChangeForbidden", http.StatusForbidden},
	{ErrTargetLocked, "TargetLocked", http.StatusConflict},
}

// KindOf returns the kind name of err, or "Internal" for unknown errors.
func KindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}

// HTTPStatus maps err to a response code for HTTP bindings.
func HTTPStatus(err error) int {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}
