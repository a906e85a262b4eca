package session

import (
	"errors"
	"fmt"
)

// ErrSessionFinished is returned when starting or resuming a session whose cycles are all done.
var ErrSessionFinished = errors.New("session finished, reset progress to start again")

// ConfigIOError wraps a persistence failure. The in-memory state change that
// triggered it has already been applied.
type ConfigIOError struct {
	Op  string
	Err error
}

func (e *ConfigIOError) Error() string {
	return fmt.Sprintf("%s: failed to persist session config: %v", e.Op, e.Err)
}

func (e *ConfigIOError) Unwrap() error {
	return e.Err
}
