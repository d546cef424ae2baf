// Package apierror defines the typed errors returned by the SDK.
//
// Callers can branch on error categories with errors.As and the Is* helpers,
// or on the specific Code carried by each error value.
package apierror

import (
	"errors"
	"fmt"
)

// Code identifies a specific failure condition.
type Code string

const (
	// CodeMissingIdentifier is returned when a lookup receives an empty or
	// blank name/ID. It never involves network activity.
	CodeMissingIdentifier Code = "MISSING_IDENTIFIER"

	// CodeMalformedIdentity is returned when an asset identity string cannot
	// be split into exactly a type name and a qualified name.
	CodeMalformedIdentity Code = "MALFORMED_IDENTITY"

	// CodeLogicError indicates a server-side data-integrity problem the
	// client cannot safely work around (e.g. duplicate attribute names).
	CodeLogicError Code = "LOGIC_ERROR"

	// CodeExpiredCredential indicates the API token is expired or invalid.
	CodeExpiredCredential Code = "EXPIRED_OR_INVALID_CREDENTIAL"

	// CodeAPIError wraps an HTTP-level failure from the catalog API.
	CodeAPIError Code = "API_ERROR"
)

// Not-found codes, one per identifier kind so callers can tell which
// translation failed.
const (
	CodeEnumNotFoundByName Code = "ENUM_NOT_FOUND_BY_NAME"
	CodeEnumNotFoundByID   Code = "ENUM_NOT_FOUND_BY_ID"

	CodeGroupNotFoundByName Code = "GROUP_NOT_FOUND_BY_NAME"
	CodeGroupNotFoundByID   Code = "GROUP_NOT_FOUND_BY_ID"

	CodeUserNotFoundByName Code = "USER_NOT_FOUND_BY_NAME"
	CodeUserNotFoundByID   Code = "USER_NOT_FOUND_BY_ID"

	CodeRoleNotFoundByName Code = "ROLE_NOT_FOUND_BY_NAME"
	CodeRoleNotFoundByID   Code = "ROLE_NOT_FOUND_BY_ID"

	CodeSourceTagNotFoundByName Code = "SOURCE_TAG_NOT_FOUND_BY_NAME"
	CodeSourceTagNotFoundByID   Code = "SOURCE_TAG_NOT_FOUND_BY_ID"

	CodeCMNotFoundByName Code = "CM_NOT_FOUND_BY_NAME"
	CodeCMNotFoundByID   Code = "CM_NOT_FOUND_BY_ID"

	CodeCMAttrNotFoundByName Code = "CM_ATTR_NOT_FOUND_BY_NAME"
	CodeCMAttrNotFoundByID   Code = "CM_ATTR_NOT_FOUND_BY_ID"
)

// InvalidRequestError indicates the caller supplied unusable input.
type InvalidRequestError struct {
	Code    Code
	Message string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewMissingIdentifier creates an InvalidRequestError for a blank name or ID.
func NewMissingIdentifier(what string) *InvalidRequestError {
	return &InvalidRequestError{
		Code:    CodeMissingIdentifier,
		Message: fmt.Sprintf("no %s was provided", what),
	}
}

// NewMalformedIdentity creates an InvalidRequestError for an unparseable
// asset identity string.
func NewMalformedIdentity(value string) *InvalidRequestError {
	return &InvalidRequestError{
		Code:    CodeMalformedIdentity,
		Message: fmt.Sprintf("%q is not a valid asset identity", value),
	}
}

// NotFoundError indicates an identifier genuinely does not exist after a
// refresh-and-retry.
type NotFoundError struct {
	Code    Code
	Message string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewNotFound creates a NotFoundError with the given kind-specific code.
func NewNotFound(code Code, format string, args ...any) *NotFoundError {
	return &NotFoundError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// LogicError indicates a non-recoverable data-integrity problem.
type LogicError struct {
	Message string
}

func (e *LogicError) Error() string {
	return fmt.Sprintf("%s: %s", CodeLogicError, e.Message)
}

// NewLogicError creates a LogicError.
func NewLogicError(format string, args ...any) *LogicError {
	return &LogicError{Message: fmt.Sprintf(format, args...)}
}

// AuthError indicates an expired or invalid credential.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", CodeExpiredCredential, e.Message)
}

// NewExpiredCredential creates an AuthError.
func NewExpiredCredential(format string, args ...any) *AuthError {
	return &AuthError{Message: fmt.Sprintf(format, args...)}
}

// APIError wraps an HTTP-level failure from the catalog API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s %s returned %d: %s", CodeAPIError, e.Method, e.Path, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsMissingIdentifier reports whether err is an InvalidRequestError carrying
// CodeMissingIdentifier.
func IsMissingIdentifier(err error) bool {
	var ir *InvalidRequestError
	return errors.As(err, &ir) && ir.Code == CodeMissingIdentifier
}

// IsAuth reports whether err is an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsLogic reports whether err is a LogicError.
func IsLogic(err error) bool {
	var le *LogicError
	return errors.As(err, &le)
}
