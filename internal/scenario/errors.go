package scenario

import (
	"errors"
	"fmt"

	"github.com/malbeclabs/spltoken/smartcontract/sdk/go/spltoken"
)

type ErrorKind string

const (
	ErrorKindRPC       ErrorKind = "rpc"
	ErrorKindProgram   ErrorKind = "program"
	ErrorKindAssertion ErrorKind = "assertion"
)

// StepError terminates a run. It records which step failed and how.
type StepError struct {
	Step string
	Kind ErrorKind
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed (%s): %v", e.Step, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// AssertionError is a post-condition that did not hold after a confirmed transaction.
type AssertionError struct {
	Check    string
	Expected string
	Observed string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, observed %s", e.Check, e.Expected, e.Observed)
}

func classify(err error) ErrorKind {
	var assertErr *AssertionError
	if errors.As(err, &assertErr) {
		return ErrorKindAssertion
	}
	var programErr *spltoken.ProgramError
	if errors.As(err, &programErr) {
		return ErrorKindProgram
	}
	return ErrorKindRPC
}

func newStepError(step string, err error) *StepError {
	return &StepError{Step: step, Kind: classify(err), Err: err}
}
