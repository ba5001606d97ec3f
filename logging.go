package evcore

import "github.com/joeycumines/logiface"

// Logger is the loop's structured logging sink, satisfied by
// *logiface.Logger[logiface.Event] so callers can plug in any logiface
// backend (stumpy, zerolog, logrus, slog) via WithLogger.
type Logger = *logiface.Logger[logiface.Event]

// newNoOpLogger returns a Logger that discards every event, used as the
// default when no logger has been configured.
func newNoOpLogger() Logger {
	return logiface.New[logiface.Event](
		logiface.WithWriter[logiface.Event](logiface.NewWriterFunc(func(logiface.Event) error {
			return nil
		})),
	)
}

// logCategory names the subsystem emitting a log record.
type logCategory string

const (
	catLoop    logCategory = "loop"
	catTimer   logCategory = "timer"
	catSignal  logCategory = "signal"
	catDNS     logCategory = "dns"
	catSocket  logCategory = "socket"
	catServer  logCategory = "tcp-server"
	catHTTP    logCategory = "http"
	catPoll    logCategory = "poll"
)

// logEvent writes a single structured record. err may be nil.
func (l *Loop) logEvent(level logiface.Level, cat logCategory, msg string, err error) {
	if l.logger == nil {
		return
	}
	b := l.logger.Build(level)
	b = b.Str("category", string(cat))
	if err != nil {
		b = b.Err(err)
	}
	b.Log(msg)
}

func (l *Loop) logDebug(cat logCategory, msg string) {
	l.logEvent(logiface.LevelDebug, cat, msg, nil)
}

func (l *Loop) logInfo(cat logCategory, msg string) {
	l.logEvent(logiface.LevelInformational, cat, msg, nil)
}

func (l *Loop) logWarn(cat logCategory, msg string, err error) {
	l.logEvent(logiface.LevelWarning, cat, msg, err)
}

func (l *Loop) logError(cat logCategory, msg string, err error) {
	l.logEvent(logiface.LevelError, cat, msg, err)
}
