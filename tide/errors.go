package tide

import "errors"

// Error taxonomy, spec.md §7. Each sentinel maps to one row of that table;
// the raw issuer and dispatcher return these (or wrap them) rather than an
// opaque error, so callers can branch on cause.
var (
	// ErrTransportFatal: socket or TLS error. The connection is marked
	// permanently unusable; the caller must tear it down.
	ErrTransportFatal = errors.New("tide: transport write failed fatally")

	// ErrMisuse: back-to-back write within one writable event, a write
	// whose buffer doesn't alias pending truncation, or a negative/
	// overflowing length. The current call is rejected; the connection
	// itself is not necessarily fatal.
	ErrMisuse = errors.New("tide: write API misuse")

	// ErrExtensionFatal: an extension callback returned a fatal result.
	ErrExtensionFatal = errors.New("tide: extension reported a fatal error")

	// ErrFilePump: a file read, seek, or interpreter pass failed while
	// streaming a static file.
	ErrFilePump = errors.New("tide: file pump failed")
)

// wouldBlock, stateMismatch and flowControlStall are not errors: spec.md §7
// is explicit that would-block and state-mismatch are normal outcomes
// (0 or "accepted" results), not failures a caller should treat as errors.
// They are expressed as WriteResult/dispatch return values instead — see
// transport.go and dispatch.go.
