// internal/domain/offspring/errors.go
package offspring

import (
	"errors"
	"fmt"
)

// ErrGroupNotFound is returned by repositories when a group id does not resolve.
var ErrGroupNotFound = errors.New("offspring group not found")

// ErrorCode is the stable machine-readable identifier of a lifecycle failure.
type ErrorCode string

const (
	CodeGroupNotFound ErrorCode = "GROUP_NOT_FOUND"
	CodeInvalidStatus ErrorCode = "INVALID_STATUS"

	CodeCannotAdvanceDissolved ErrorCode = "CANNOT_ADVANCE_DISSOLVED"
	CodeAlreadyComplete        ErrorCode = "ALREADY_COMPLETE"
	CodeCannotRewindPending    ErrorCode = "CANNOT_REWIND_PENDING"
	CodeCannotRewindDissolved  ErrorCode = "CANNOT_REWIND_DISSOLVED"
	CodeCannotRewind           ErrorCode = "CANNOT_REWIND"

	CodeNoNextStatus      ErrorCode = "NO_NEXT_STATUS"
	CodeInvalidTarget     ErrorCode = "INVALID_TARGET"
	CodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	CodeBirthDateRequired      ErrorCode = "BIRTH_DATE_REQUIRED"
	CodeNoLiveOffspring        ErrorCode = "NO_LIVE_OFFSPRING"
	CodeWeanedDateRequired     ErrorCode = "WEANED_DATE_REQUIRED"
	CodePlacementStartRequired ErrorCode = "PLACEMENT_START_REQUIRED"
	CodeOffspringNotPlaced     ErrorCode = "OFFSPRING_NOT_PLACED"

	CodeLiveOffspringExist ErrorCode = "LIVE_OFFSPRING_EXIST"
)

// IsPrecondition reports whether code is a guard failure on a forward transition.
func (c ErrorCode) IsPrecondition() bool {
	switch c {
	case CodeBirthDateRequired, CodeNoLiveOffspring, CodeWeanedDateRequired, CodePlacementStartRequired, CodeOffspringNotPlaced:
		return true
	}
	return false
}

// LifecycleError is a typed lifecycle failure.
type LifecycleError struct {
	Code    ErrorCode
	Message string
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches another *LifecycleError carrying the same code, so callers can write
// errors.Is(err, &LifecycleError{Code: CodeAlreadyComplete}).
func (e *LifecycleError) Is(target error) bool {
	var other *LifecycleError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewError builds a LifecycleError with a formatted message.
func NewError(code ErrorCode, format string, args ...any) *LifecycleError {
	return &LifecycleError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the lifecycle code from err, or "" when err is not a lifecycle failure.
func CodeOf(err error) ErrorCode {
	var le *LifecycleError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}
