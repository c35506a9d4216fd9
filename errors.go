package pdoflow

import "errors"

var (
	// ErrPostingNotFound is returned by Observer methods when the
	// requested posting id does not exist in storage.
	ErrPostingNotFound = errors.New("pdoflow: posting not found")

	// ErrTimeout is returned by await-style calls (Pool.AwaitPostingCompletion,
	// AwaitForStatusThreshold) when max_wait elapses before the condition
	// is satisfied.
	ErrTimeout = errors.New("pdoflow: timed out waiting for condition")

	// ErrBadStatus is returned by Retention.Clean when asked to delete a
	// non-terminal status.
	ErrBadStatus = errors.New("pdoflow: status is not terminal")

	// ErrClaimLost is returned by Dispatcher.Succeed and Fail when the
	// claimed JobRecord is no longer in Executing status (for example
	// after a concurrent administrative change), so its outcome cannot
	// be recorded.
	ErrClaimLost = errors.New("pdoflow: claim lost")
)
