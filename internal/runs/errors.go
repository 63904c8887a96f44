package runs

import "errors"

var (
	// ErrNotFound indicates no run exists for the given ID.
	ErrNotFound = errors.New("run not found")
	// ErrRunActive indicates the project already has a pending or running run.
	ErrRunActive = errors.New("a run is already active for this project")
	// ErrNoProviders indicates every requested provider lacked credentials.
	ErrNoProviders = errors.New("no providers available")
	// ErrRunTerminal indicates a transition was attempted on a finished run.
	ErrRunTerminal = errors.New("run is in a terminal state")
)
