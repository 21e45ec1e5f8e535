// Package errs defines the error taxonomy shared across the orchestrator
// pipeline: validation, parsing, protocol, network, and system failures,
// each carrying enough context to decide whether a job retries, drops, or
// escalates to the shutdown manager.
package errs

import "fmt"

// Kind classifies an error for retry/escalation policy.
type Kind string

const (
	KindValidation Kind = "validation"
	KindParse      Kind = "parse"
	KindProtocol   Kind = "protocol"
	KindNetwork    Kind = "network"
	KindSystem     Kind = "system"
)

// Error is a typed, wrapped error carrying a Kind and the component that
// raised it. Components should construct these with the New* helpers
// instead of returning bare errors so the orchestrator can route them
// without string-matching messages.
type Error struct {
	Kind      Kind
	Component string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s[%s]: %s: %v", e.Component, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Component, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newErr(kind Kind, component, message string, err error) *Error {
	return &Error{Kind: kind, Component: component, Message: message, Err: err}
}

func NewValidation(component, message string, err error) *Error {
	return newErr(KindValidation, component, message, err)
}

func NewParse(component, message string, err error) *Error {
	return newErr(KindParse, component, message, err)
}

func NewProtocol(component, message string, err error) *Error {
	return newErr(KindProtocol, component, message, err)
}

func NewNetwork(component, message string, err error) *Error {
	return newErr(KindNetwork, component, message, err)
}

func NewSystem(component, message string, err error) *Error {
	return newErr(KindSystem, component, message, err)
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, and
// reports ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind, true
	}
	return "", false
}

// Retryable reports whether the error's kind is one the caller should
// retry locally rather than drop the job outright. Only network errors
// are locally retryable; everything else either drops the job (validation,
// parse, protocol) or escalates (system).
func Retryable(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindNetwork
}

// Critical reports whether the error should cause the orchestrator to
// request shutdown rather than just count against a job or a blacklist.
func Critical(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindSystem
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
