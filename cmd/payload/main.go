//go:build windows

// Command payload is built with `go build -buildmode=c-shared` into the
// DLL that gets injected into a target process. Its init() runs the
// moment the Windows loader finishes mapping the module: Go's runtime
// bootstrap on c-shared attach plays the role DllMain's
// DLL_PROCESS_ATTACH would in a language with an explicit entry point.
package main

import "C"

import (
	"context"
	"os"
	"time"

	"github.com/maroider/asbestos-go/ipc"
	"github.com/maroider/asbestos-go/payloadrt"
)

// dialTimeout bounds each pipe connect attempt back to the controller.
// Expiry is reported, never retried.
const dialTimeout = 500 * time.Millisecond

func init() {
	defer func() {
		if r := recover(); r != nil {
			payloadrt.Recovered(r)
		}
	}()

	payloadrt.InstallPanicHook()

	pid := uint32(os.Getpid())

	// Dual orientation: the payload's read stream is the controller's
	// Tx pipe, and its write stream is the controller's Rx pipe.
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	rxConn, err := ipc.DialPipe(ctx, pid, ipc.Tx)
	if err != nil {
		return
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel2()
	txConn, err := ipc.DialPipe(ctx2, pid, ipc.Rx)
	if err != nil {
		rxConn.Close()
		return
	}

	_ = payloadrt.Bootstrap(rxConn, txConn, payloadrt.NewWindowsInstaller())
}

// AsbestosDetach is the module-detach entry point: there is no Go
// equivalent of DLL_PROCESS_DETACH, so whatever unloads this module
// (typically the host process exiting, or an explicit FreeLibrary from a
// debugging harness) must call this export first.
//
//export AsbestosDetach
func AsbestosDetach() {
	payloadrt.Detach()
}

func main() {}
