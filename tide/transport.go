package tide

import (
	"crypto/tls"
	"errors"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// WriteResult is the 3-way outcome spec.md §9's re-architecture note asks
// for, replacing the original's sentinel-return style
// (LWS_SSL_CAPABLE_MORE_SERVICE) with a tagged result.
type WriteResult int8

const (
	// Written means n bytes (possibly fewer than requested, a legal
	// partial write) reached the transport.
	Written WriteResult = iota
	// WouldBlock means the transport accepted zero bytes because it has
	// no room right now (EAGAIN/EWOULDBLOCK/EINTR).
	WouldBlock
	// Fatal means the transport is permanently broken.
	Fatal
)

// Transport is the C1 capability: one best-effort, non-blocking write, plus
// the read-side/close operations the write pipeline needs to know about.
// Unifying plain and TLS transports behind this interface is spec.md §9's
// "polymorphic transport" re-architecture point.
type Transport interface {
	// Write attempts to send buf in one call without blocking. It never
	// returns (0, Written, nil) unless buf was empty.
	Write(buf []byte) (n int, result WriteResult, err error)
	// Pending reports whether the transport itself (e.g. a TLS session)
	// is holding buffered plaintext that hasn't reached the wire yet.
	Pending() bool
	Close() error
}

// plainTransport wraps a raw net.Conn, grounded on
// hemi/web_http1_mixins.go's _http1Conn_.write/.writev — but where the
// teacher uses a write deadline to turn "slow" into a timeout error, we
// classify the underlying syscall errno so a merely-full send buffer comes
// back as WouldBlock rather than Fatal, per spec.md §4.1.
type plainTransport struct {
	conn net.Conn
}

// NewPlainTransport wraps conn as a non-blocking-semantics Transport. conn
// must already be configured by the caller's event loop (out of scope per
// spec.md §1) to report short writes promptly rather than blocking.
func NewPlainTransport(conn net.Conn) Transport { return &plainTransport{conn: conn} }

func (t *plainTransport) Write(buf []byte) (int, WriteResult, error) {
	if len(buf) == 0 {
		return 0, Written, nil
	}
	n, err := t.conn.Write(buf)
	if err == nil {
		return n, Written, nil
	}
	if isWouldBlock(err) {
		return n, WouldBlock, nil
	}
	return n, Fatal, err
}

func (t *plainTransport) Pending() bool { return false }
func (t *plainTransport) Close() error  { return t.conn.Close() }

// isWouldBlock classifies a net.Conn.Write error the way a raw non-blocking
// socket would: EAGAIN, EWOULDBLOCK and EINTR all mean "try again later",
// per spec.md §4.1 and §7. Grounded on codewanderer42820-evm_triarb's
// ws/ws_io.go raw-fd read/write loop, the pack's only non-blocking-socket
// analog; golang.org/x/sys/unix gives us the errno constants net.OpError
// wraps on POSIX.
func isWouldBlock(err error) bool {
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}
	var errno syscall.Errno
	if !errors.As(opErr.Err, &errno) {
		return false
	}
	switch errno {
	case unix.EAGAIN, unix.EINTR:
		return true
	default:
		return false
	}
}

// tlsTransport wraps a *tls.Conn. TLS record handling and the handshake
// itself are out of scope (spec.md §1); only Write's would-block/fatal
// classification belongs to this package.
type tlsTransport struct {
	conn *tls.Conn
}

// NewTLSTransport wraps an already-handshaken TLS connection.
func NewTLSTransport(conn *tls.Conn) Transport { return &tlsTransport{conn: conn} }

func (t *tlsTransport) Write(buf []byte) (int, WriteResult, error) {
	if len(buf) == 0 {
		return 0, Written, nil
	}
	n, err := t.conn.Write(buf)
	if err == nil {
		return n, Written, nil
	}
	if isWouldBlock(err) {
		return n, WouldBlock, nil
	}
	return n, Fatal, err
}

func (t *tlsTransport) Pending() bool { return false }
func (t *tlsTransport) Close() error  { return t.conn.Close() }
