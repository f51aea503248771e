package branch

import "errors"

var (
	// ErrNoConversationID is returned when a build is requested without a
	// resolvable conversation.
	ErrNoConversationID = errors.New("no conversation id")

	// ErrBuildInFlight is returned by Refresher.Trigger when a build is already
	// running. The request is dropped; callers re-trigger later.
	ErrBuildInFlight = errors.New("build already in flight")

	// ErrCycle reports an ancestry walk that met an id it had already visited.
	ErrCycle = errors.New("cycle in branch registry")
)
