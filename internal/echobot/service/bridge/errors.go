package bridge

import "errors"

var (
	// ErrSpawnFailure is returned when a child process cannot be started.
	ErrSpawnFailure = errors.New("external plugin spawn failed")

	// ErrProcessCrashed marks an I/O failure, EOF or timeout on a child.
	ErrProcessCrashed = errors.New("external plugin crashed")

	// ErrRestartExhausted is recorded when a crashed child may not be
	// restarted again.
	ErrRestartExhausted = errors.New("external plugin restart budget exhausted")

	// ErrProcessTerminated is returned by calls on a terminated child.
	ErrProcessTerminated = errors.New("external plugin terminated")
)
