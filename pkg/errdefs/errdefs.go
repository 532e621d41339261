// Package errdefs holds the error taxonomy shared by the job store, the
// coordinator, inference and the http handlers.
package errdefs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindState
	KindNotDeployed
	KindSubmission
	KindExecution
	KindTransientRead
)

var kindNames = map[Kind]string{
	KindUnknown:       "Unknown",
	KindValidation:    "ValidationError",
	KindNotFound:      "NotFound",
	KindState:         "StateError",
	KindNotDeployed:   "NotDeployedError",
	KindSubmission:    "SubmissionFailure",
	KindExecution:     "ExecutionFailure",
	KindTransientRead: "TransientReadFailure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...interface{}) error {
	return newf(KindValidation, format, args...)
}

func NotFoundf(format string, args ...interface{}) error {
	return newf(KindNotFound, format, args...)
}

func Statef(format string, args ...interface{}) error {
	return newf(KindState, format, args...)
}

func NotDeployedf(format string, args ...interface{}) error {
	return newf(KindNotDeployed, format, args...)
}

// Submission wrap the executor handoff error
func Submission(err error, format string, args ...interface{}) error {
	return &Error{Kind: KindSubmission, Message: fmt.Sprintf(format, args...), Err: err}
}

// Execution wrap a failure of the unit of work itself
func Execution(err error, format string, args ...interface{}) error {
	return &Error{Kind: KindExecution, Message: fmt.Sprintf(format, args...), Err: err}
}

func TransientRead(err error, format string, args ...interface{}) error {
	return &Error{Kind: KindTransientRead, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf the outermost taxonomy kind in the chain, KindUnknown if none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func IsState(err error) bool {
	return KindOf(err) == KindState
}

func IsNotDeployed(err error) bool {
	return KindOf(err) == KindNotDeployed
}

func IsSubmission(err error) bool {
	return KindOf(err) == KindSubmission
}

func IsExecution(err error) bool {
	return KindOf(err) == KindExecution
}

func IsTransientRead(err error) bool {
	return KindOf(err) == KindTransientRead
}
