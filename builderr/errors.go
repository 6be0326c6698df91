package builderr

import (
	"errors"
	"fmt"
)

// Kind categorizes a build error.
type Kind string

const (
	// KindSecurityViolation is raised when the source tree fails the pre-flight screen.
	KindSecurityViolation Kind = "security_violation"
	// KindBuildFailure is raised when a phase command exits non-zero.
	KindBuildFailure Kind = "build_failure"
	// KindTimeout is raised when a phase command does not finish within its bound.
	KindTimeout Kind = "timeout"
	// KindInfrastructure covers unreachable or misbehaving collaborators.
	KindInfrastructure Kind = "infrastructure"
)

// Error is a categorized build error. Command and Output are only populated
// for errors raised while executing a phase command.
type Error struct {
	Kind    Kind
	Message string
	Command string
	Output  string
	Cause   error
}

// maxOutputTail bounds how much captured output Error() renders.
const maxOutputTail = 1024

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Output != "" {
		msg = fmt.Sprintf("%s\n%s", msg, tail(e.Output, maxOutputTail))
	}
	return msg
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// SecurityViolation wraps cause as a security violation.
func SecurityViolation(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindSecurityViolation, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// BuildFailure reports a phase command that exited with a non-zero code.
func BuildFailure(command string, exitCode int, output string) *Error {
	return &Error{
		Kind:    KindBuildFailure,
		Message: fmt.Sprintf("build command failed with exit code %d: %s", exitCode, command),
		Command: command,
		Output:  output,
	}
}

// Timeout reports a phase command that exceeded its bound.
func Timeout(command string, format string, args ...any) *Error {
	return &Error{Kind: KindTimeout, Message: fmt.Sprintf(format, args...), Command: command}
}

// Infrastructure wraps cause as an infrastructure error.
func Infrastructure(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindInfrastructure, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain. Errors outside
// the taxonomy are treated as infrastructure errors.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindInfrastructure
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
