package ipc

import "fmt"

// Product and Version together select the pipe name prefix. Any wire
// protocol change must bump Version to prevent a new controller from
// shaking hands with an old payload or vice versa.
const (
	Product = "asbestos"
	Version = "1"
)

// End identifies which direction a named pipe carries data in, from the
// controller's point of view.
type End string

const (
	// Rx is the end the controller reads from (the payload writes to it).
	Rx End = "rx"
	// Tx is the end the controller writes to (the payload reads from it).
	Tx End = "tx"
)

// PipeName returns the well-known local pipe path for the given target
// pid and end:
//
//	Rx end (controller reads from payload): \\.\pipe\<product>-<version>-<pid>-rx
//	Tx end (controller writes to payload):  \\.\pipe\<product>-<version>-<pid>-tx
func PipeName(pid uint32, end End) string {
	return fmt.Sprintf(`\\.\pipe\%s-%s-%d-%s`, Product, Version, pid, end)
}
