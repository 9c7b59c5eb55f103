package services

import "errors"

var (
	// ErrProviderUnavailable marks a collaborator outage. It triggers the
	// degradation ladder and is not retried at this layer.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrPermissionDenied is terminal: scheduling/push calls return a
	// negative result and are not retried.
	ErrPermissionDenied = errors.New("notification permission denied")

	// ErrPushUnsupported marks an environment without remote-push capability
	// (e.g. a sandboxed dev client). A permanent skip, not a failure.
	ErrPushUnsupported = errors.New("remote push not supported in this environment")
)
