package tide

// Kind is the low-5-bits "kind" of a WriteProtocol (spec.md §4.7).
type Kind uint8

const (
	KindText Kind = iota
	KindBinary
	KindContinuation
	KindClose
	KindPing
	KindPong
	KindHTTP
	KindHTTPFinal
	KindHTTPHeaders
	KindHTTPHeadersContinuation
)

// IsControl reports whether this kind is a WebSocket control frame
// (CLOSE/PING/PONG), which bypasses the extension TX pass entirely
// (spec.md §4.5, §4.7 step 8).
func (k Kind) IsControl() bool {
	return k == KindClose || k == KindPing || k == KindPong
}

// IsHTTP reports whether this kind takes the HTTP fast path (no WS
// framing, spec.md §4.7 step 5).
func (k Kind) IsHTTP() bool {
	return k == KindHTTP || k == KindHTTPFinal || k == KindHTTPHeaders || k == KindHTTPHeadersContinuation
}

const (
	flagNoFin       byte = 0x40
	flagH2StreamEnd byte = 0x80
	kindMask        byte = 0x1f
)

// WriteProtocol packs a write's kind plus its FIN/H2-stream-end modifier
// flags (spec.md §4.7): low 5 bits kind, high bits NO_FIN (0x40) and
// H2_STREAM_END (0x80).
type WriteProtocol struct {
	Kind        Kind
	NoFin       bool
	H2StreamEnd bool
}

func (wp WriteProtocol) encode() byte {
	b := byte(wp.Kind) & kindMask
	if wp.NoFin {
		b |= flagNoFin
	}
	if wp.H2StreamEnd {
		b |= flagH2StreamEnd
	}
	return b
}

func decodeWriteProtocol(b byte) WriteProtocol {
	return WriteProtocol{
		Kind:        Kind(b & kindMask),
		NoFin:       b&flagNoFin != 0,
		H2StreamEnd: b&flagH2StreamEnd != 0,
	}
}

// stashWriteProtocol returns the byte form to remember when an extension
// "ate input, emitted nothing" (spec.md §4.4, §9): masked to 0x3f, which
// drops H2_STREAM_END but — exactly as the original does — also drops the
// stored NO_FIN bit, because restoreWriteProtocol always forces both high
// bits back on regardless. This looks lossy in isolation; it is not, once
// paired with restore: a stashed write is, by construction, one that is
// about to be re-offered as a CONTINUATION that is itself still draining,
// so NO_FIN must always be true on the replay and H2_STREAM_END is
// meaningless mid-drain. Preserved exactly per spec.md §9's own warning.
func stashWriteProtocol(wp WriteProtocol) byte {
	return wp.encode() & 0x3f
}

// restoreWriteProtocol recovers a stashed write, forcing NO_FIN and
// H2_STREAM_END back on (0xc0 | stashed) per spec.md §9.
func restoreWriteProtocol(stashed byte) WriteProtocol {
	return decodeWriteProtocol(0xc0 | stashed)
}
