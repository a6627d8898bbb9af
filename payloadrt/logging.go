package payloadrt

import (
	"github.com/sirupsen/logrus"

	"github.com/maroider/asbestos-go/ipc"
	"github.com/maroider/asbestos-go/wire"
)

// connHook is a logrus.Hook that forwards every log entry to the
// controller as a LogMessage instead of writing to a local sink. Entries
// logged before the connection is published (e.g. during the early steps
// of Bootstrap) are silently dropped, since there is nowhere yet to
// deliver them.
type connHook struct{}

func (connHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (connHook) Fire(entry *logrus.Entry) error {
	lm := wire.LogMessage{
		Level:   fromLogrusLevel(entry.Level),
		Message: entry.Message,
	}
	if entry.Caller != nil {
		lm.ModulePath = entry.Caller.Function
		lm.File = entry.Caller.File
		lm.Line = uint32(entry.Caller.Line)
	}
	msg := wire.NewLogMessage(lm)

	WithConn(func(conn *ipc.Connection) {
		if conn == nil {
			return
		}
		conn.WriteMessage(msg)
	})
	return nil
}

func fromLogrusLevel(l logrus.Level) wire.Level {
	switch l {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return wire.LevelError
	case logrus.WarnLevel:
		return wire.LevelWarn
	case logrus.InfoLevel:
		return wire.LevelInfo
	case logrus.DebugLevel:
		return wire.LevelDebug
	default:
		return wire.LevelTrace
	}
}

var _ logrus.Hook = connHook{}

// Logger returns the process-wide logrus.Logger used by every hook and
// bootstrap step; its only output is the connHook above, so every payload
// log line becomes a LogMessage delivered to the controller.
func Logger() *logrus.Logger {
	return payloadLogger
}

var payloadLogger = newPayloadLogger()

func newPayloadLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = nullWriter{}
	l.AddHook(connHook{})
	l.SetLevel(logrus.TraceLevel)
	l.SetReportCaller(true)
	return l
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }
