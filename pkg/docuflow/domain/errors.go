package domain

import "errors"

// Error taxonomy shared by the engine and the stores. Callers match with
// errors.Is; wrapped messages carry the specifics.
var (
	// ErrValidation rejects a malformed workflow definition at registration.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound covers unknown workflow, execution, document and step ids.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState rejects an operation that is illegal for the current
	// execution status or step.
	ErrInvalidState = errors.New("invalid state")

	// ErrEvaluation marks an unparsable or under-specified guard condition.
	// A guard never silently defaults to true or false.
	ErrEvaluation = errors.New("condition evaluation failed")

	// ErrNoMatchingTransition fires when every outgoing transition carries a
	// guard and none matched.
	ErrNoMatchingTransition = errors.New("no matching transition")

	// ErrPermissionDenied rejects an approval attempt by a caller without the
	// required access level. The step stays pending.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrStepTimeout fails an execution whose step stayed non-terminal past
	// its allowance.
	ErrStepTimeout = errors.New("step timed out")

	// ErrConcurrentModification is the optimistic-lock conflict on save: the
	// stored version advanced since the execution was read.
	ErrConcurrentModification = errors.New("concurrent modification")
)
