// Package upload runs single-object uploads outside the caller's thread of
// control and reports their completion through a non-blocking poll.
//
// An upload moves through a fixed lifecycle:
//
//	running → success | failure.
//
// The outcome crosses the process boundary as one of two exit codes and is
// surfaced to the caller as one of three poll statuses. Anything else is a
// fault: the design has no interpretation for it, so it is never guessed at.
package upload

import "fmt"

// Status is the value returned by a completion poll.
type Status uint64

const (
	StatusSuccess Status = 0
	StatusFailure Status = 1
	StatusRunning Status = 2
)

// Terminal reports whether no further state change can follow s.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusRunning:
		return "running"
	default:
		return fmt.Sprintf("status(%d)", uint64(s))
	}
}

// Outcome is the result of an executed upload.
type Outcome int

const (
	Success Outcome = iota
	Failure
)

// Exit codes are a closed vocabulary shared with child processes. They carry
// no other meaning.
const (
	ExitSuccess = 60
	ExitFailure = 61
)

// ExitCode returns the process exit code that encodes o.
func (o Outcome) ExitCode() int {
	if o == Success {
		return ExitSuccess
	}
	return ExitFailure
}

// Status returns the terminal poll status for o.
func (o Outcome) Status() Status {
	if o == Success {
		return StatusSuccess
	}
	return StatusFailure
}

func (o Outcome) String() string {
	return o.Status().String()
}

// OutcomeFromExitCode decodes a child exit code. ok is false for any code
// outside the vocabulary.
func OutcomeFromExitCode(code int) (o Outcome, ok bool) {
	switch code {
	case ExitSuccess:
		return Success, true
	case ExitFailure:
		return Failure, true
	default:
		return 0, false
	}
}
