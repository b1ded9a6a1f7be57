package tide

import (
	"crypto/rand"
	"sync"

	"github.com/ripley-lyster/libwebsockets/tide/fileprovider"
	"github.com/ripley-lyster/libwebsockets/tide/h2frame"
)

// Mode is the connection's endpoint shape (spec.md §3).
type Mode uint8

const (
	ModeWSClient Mode = iota
	ModeWSServer
	ModeHTTP1Serving
	ModeHTTP2Serving
	ModeHTTP2WSServing
)

func (m Mode) isWebSocket() bool {
	return m == ModeWSClient || m == ModeWSServer || m == ModeHTTP2WSServing
}
func (m Mode) isHTTP2() bool { return m == ModeHTTP2Serving || m == ModeHTTP2WSServing }
func (m Mode) isClient() bool { return m == ModeWSClient }

// State is the connection's lifecycle phase (spec.md §3).
type State uint8

const (
	StateHTTP State = iota
	StateWSEstablished
	StateWaitingToSendClose
	StateAwaitingCloseAck
	StateReturnedCloseAlready
	StateFlushingSendBeforeClose
)

// wsState is the WebSocket framing substate, spec.md §3.
type wsState struct {
	insideFrame bool
	mask        [4]byte
	maskIdx     uint32
	specRev     uint8 // 13

	draining            bool // this conn is on Pt's draining list
	stashedWritePending bool
	stashedWriteType    byte
}

// h2State is the HTTP/2 framing substate, spec.md §3.
type h2State struct {
	mySID         uint32
	sentEndStream bool
	txCredit      int32

	fr *h2frame.Writer // lazily built on first H2 write; see dispatch.go
}

// httpState covers file-serving/content accounting, spec.md §3.
type httpState struct {
	filePos         int64
	fileLen         int64
	contentLength   int64
	contentRemain   int64
	fopFD           fileprovider.File
	ranges          []ByteRange
	rangeIdx        int
	sendingChunked  bool
	multipartCT     string
}

// ByteRange is one requested HTTP range, spec.md §4.8/§8 P10.
type ByteRange struct {
	Start, Last int64 // inclusive
	Extent      int64 // total file size, for the Content-Range total

	budget int64
	inside bool
}

// Conn is the per-endpoint state relevant to the write pipeline,
// spec.md §3. It owns exactly one Transport and at most one Trunc residue.
type Conn struct {
	mu sync.Mutex // guards could_have_pending bookkeeping only; the event
	// loop otherwise serializes all access per spec.md §5 — the mutex here
	// exists purely so misuse from two goroutines surfaces as ErrMisuse
	// rather than silent corruption, it is not a concurrency primitive the
	// design relies on.

	ID int64

	mode  Mode
	state State

	transport Transport
	opts      *Options
	stats     *Stats

	ws   wsState
	h2   h2State
	http httpState

	trunc trunc

	couldHavePending         bool
	socketPermanentlyUnusable bool

	parentCarriesIO bool
	parent          *Conn

	pt *Pt

	// ArmWritable requests the host's event loop call back when the
	// transport has room again (spec.md §5's "writable callback"; socket
	// and event-loop wiring are out of scope per spec.md §1).
	ArmWritable func()

	// childWriteViaParent services CHILD_WRITE_VIA_PARENT on a connection
	// that carries I/O for children (spec.md §4.7 step 1). Set directly
	// since it's part of the external wiring surface, not a core write
	// path concern.
	childWriteViaParent ChildWriteViaParent

	// restartKeepaliveTimer is spec.md §4.7 step 4's keepalive bookkeeping
	// seam; timer scheduling itself is out of scope (spec.md §1).
	restartKeepaliveTimer func()

	extensions []Extender
}

// SetChildWriteViaParent installs the CHILD_WRITE_VIA_PARENT hook used
// when a child connection delegates writes through this one (spec.md
// §4.7 step 1).
func (c *Conn) SetChildWriteViaParent(hook ChildWriteViaParent) { c.childWriteViaParent = hook }

// SetRestartKeepaliveTimer installs the keepalive-timer-restart hook
// called once per dispatched write (spec.md §4.7 step 4).
func (c *Conn) SetRestartKeepaliveTimer(hook func()) { c.restartKeepaliveTimer = hook }

// SetExtensions installs this connection's C4 extension chain, in the
// order PAYLOAD_TX/PACKET_TX_DO_SEND should be offered to them.
func (c *Conn) SetExtensions(exts ...Extender) { c.extensions = exts }

// NewConn constructs a Conn bound to transport, ready to accept writes.
func NewConn(id int64, mode Mode, transport Transport, opts *Options, stats *Stats, pt *Pt) *Conn {
	c := &Conn{
		ID:        id,
		mode:      mode,
		state:     StateHTTP,
		transport: transport,
		opts:      opts,
		stats:     stats,
		pt:        pt,
	}
	if mode.isWebSocket() {
		c.state = StateWSEstablished
		c.ws.specRev = 13
	}
	return c
}

// IsClient reports whether this endpoint is a WebSocket client (spec.md
// §3/§4.5: clients mask, servers don't).
func (c *Conn) IsClient() bool { return c.mode.isClient() }

// SocketUnusable reports whether the transport is permanently broken.
func (c *Conn) SocketUnusable() bool { return c.socketPermanentlyUnusable }

func (c *Conn) markUnusable() { c.socketPermanentlyUnusable = true }

// refreshMaskIfNewFrame draws a fresh CSPRNG mask key, but only on the
// first pass of a frame (spec.md §4.5): the key is kept while insideFrame
// is set. A CONTINUATION frame from a draining extension that starts with
// insideFrame clear gets a fresh key like any other new frame.
func (c *Conn) refreshMaskIfNewFrame() error {
	if c.ws.insideFrame {
		return nil // mid-frame continuation: reuse the existing mask.
	}
	if _, err := rand.Read(c.ws.mask[:]); err != nil {
		return err
	}
	c.ws.maskIdx = 0
	return nil
}

// Pt is the per-thread-service-index context (spec.md §3): the shared
// scratch buffer and the draining-extension list (stats live on each Conn,
// not here). Modeled as an
// arena+index scheme per spec.md §9 rather than intrusive linked pointers.
type Pt struct {
	servBuf  []byte
	draining []*Conn
}

// NewPt allocates a per-thread context with the given scratch buffer size.
func NewPt(servBufSize int) *Pt {
	return &Pt{servBuf: make([]byte, servBufSize)}
}

// enqueueDraining appends conn to the draining list if it isn't already
// on it (spec.md §4.4).
func (pt *Pt) enqueueDraining(c *Conn) {
	if c.ws.draining {
		return
	}
	c.ws.draining = true
	pt.draining = append(pt.draining, c)
}

// dequeueDraining removes conn from the draining list, O(n) in list length
// per spec.md §9 (acceptable: the list is expected small).
func (pt *Pt) dequeueDraining(c *Conn) {
	if !c.ws.draining {
		return
	}
	c.ws.draining = false
	for i, dc := range pt.draining {
		if dc == c {
			pt.draining = append(pt.draining[:i], pt.draining[i+1:]...)
			return
		}
	}
}
