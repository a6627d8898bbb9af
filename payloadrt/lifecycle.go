package payloadrt

import (
	"github.com/maroider/asbestos-go/wire"
)

// Detach implements module-detach: emit ProcessDetach if the connection
// is still healthy, then drop it. Safe to call even if bootstrap never
// completed (TakeConn returns nil).
func Detach() {
	conn := TakeConn()
	if conn == nil {
		return
	}
	if conn.Connected() {
		conn.WriteMessage(wire.NewProcessDetach())
	}
	conn.Close()
}
