package commons

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrRecordNotFound = errors.New("Record not found")

type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindState         ErrorKind = "state"
	KindAuthorization ErrorKind = "authorization"
	KindConflict      ErrorKind = "conflict"
	KindNotFound      ErrorKind = "not_found"
	KindPersistence   ErrorKind = "persistence"
)

type kinded interface {
	ErrorKind() ErrorKind
}

// Error is the tagged failure returned by every service operation.
type Error struct {
	Kind      ErrorKind
	Message   string
	Details   []string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Details) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Details, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) ErrorKind() ErrorKind { return e.Kind }

func Validation(message string, details ...string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

func State(message string, details ...string) *Error {
	return &Error{Kind: KindState, Message: message, Details: details}
}

func Authorization(message string, details ...string) *Error {
	return &Error{Kind: KindAuthorization, Message: message, Details: details}
}

func Conflict(message string, details ...string) *Error {
	return &Error{Kind: KindConflict, Message: message, Details: details}
}

func NotFound(message string, details ...string) *Error {
	return &Error{Kind: KindNotFound, Message: message, Details: details, Err: ErrRecordNotFound}
}

func Persistence(message string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: message, Err: err}
}

// RetryablePersistence marks storage failures that succeed on replay, such as
// serialization failures and lock timeouts.
func RetryablePersistence(message string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: message, Err: err, Retryable: true}
}

// KindOf reports the kind of err. Untagged errors are treated as persistence
// failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	if errors.Is(err, ErrRecordNotFound) {
		return KindNotFound
	}
	return KindPersistence
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// Detail returns the human readable lines carried by err.
func Detail(err error) []string {
	var e *Error
	if errors.As(err, &e) && len(e.Details) > 0 {
		return e.Details
	}
	if err == nil {
		return nil
	}
	return []string{err.Error()}
}

// UnbalancedEntryError is returned when total debits differ from total credits.
type UnbalancedEntryError struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("journal entry is unbalanced: debits %s, credits %s, difference %s",
		e.Debits.String(), e.Credits.String(), e.Difference().String())
}

func (e *UnbalancedEntryError) Difference() decimal.Decimal {
	return e.Debits.Sub(e.Credits).Abs()
}

func (e *UnbalancedEntryError) ErrorKind() ErrorKind { return KindValidation }

// NotCurrentApproverError is returned when a principal decides on a step it
// is not authorised for.
type NotCurrentApproverError struct {
	InstanceID string
	ApproverID string
	Step       int
}

func (e *NotCurrentApproverError) Error() string {
	return fmt.Sprintf("user %s is not an approver for step %d of approval %s", e.ApproverID, e.Step+1, e.InstanceID)
}

func (e *NotCurrentApproverError) ErrorKind() ErrorKind { return KindAuthorization }

type AlreadyDecidedError struct {
	InstanceID string
	ApproverID string
	Step       int
}

func (e *AlreadyDecidedError) Error() string {
	return fmt.Sprintf("user %s already decided step %d of approval %s", e.ApproverID, e.Step+1, e.InstanceID)
}

func (e *AlreadyDecidedError) ErrorKind() ErrorKind { return KindConflict }
