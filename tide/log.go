// Package tide implements the outbound write pipeline shared by the
// WebSocket, HTTP/1.1 and HTTP/2 server-and-client endpoints: extension
// chaining, WebSocket/HTTP-2 framing, masking, size ceilings and the
// partial-send residue buffer that absorbs short writes from a non-blocking
// transport.
package tide

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
)

// Exit codes for the fatal-exit helpers below, matching the teacher's
// BUG/USE/ENV triage split.
const (
	CodeBug = 20
	CodeUse = 21
)

var _debugLevel atomic.Int32

// DebugLevel returns the current debug verbosity. 0 disables debug logging.
func DebugLevel() int32 { return _debugLevel.Load() }

// SetDebugLevel adjusts debug verbosity at runtime.
func SetDebugLevel(level int32) { _debugLevel.Store(level) }

var _logger = mustBuildLogger()

func mustBuildLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		// Logging is load-bearing for diagnosing write-pipeline bugs in
		// production; failing to build one at all means misconfiguration,
		// not a runtime condition we can route around.
		panic(err)
	}
	return logger
}

// SetLogger replaces the package logger, e.g. to attach a connection-scoped
// sugar logger with fields (connID, mode) pre-bound.
func SetLogger(logger *zap.Logger) { _logger = logger }

func Debugf(format string, args ...any) {
	if DebugLevel() >= 1 {
		_logger.Sugar().Debugf(format, args...)
	}
}
func Warnf(format string, args ...any) { _logger.Sugar().Warnf(format, args...) }
func Errorf(format string, args ...any) { _logger.Sugar().Errorf(format, args...) }

// BugExitln reports a programmer-error invariant violation and terminates
// the process. The write pipeline must never call this for conditions a
// remote peer or a slow transport can trigger — only for violations of
// invariants this package itself owns.
func BugExitln(v ...any) {
	_logger.Sugar().Error(append([]any{"[BUG] "}, v...)...)
	_logger.Sync()
	os.Exit(CodeBug)
}
