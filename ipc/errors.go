package ipc

import "errors"

// ErrPipeAcceptTimeout is returned when a pipe server does not see a
// client connect within its deadline. It is fatal to the target being
// injected, not to the controller as a whole.
var ErrPipeAcceptTimeout = errors.New("ipc: timed out waiting for pipe connection")

// ErrDialTimeout is returned when a payload's connect attempt to the
// controller's pipe server does not succeed within its timeout. Expiry is
// reported, never retried.
var ErrDialTimeout = errors.New("ipc: timed out connecting to pipe")
