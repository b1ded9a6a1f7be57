package tide

import "fmt"

// Options configures one Protocol's size policy, following gorox's
// two-phase OnConfigure (validate) / OnPrepare (derive) component lifecycle
// (hemi/web.go, hemi/builtin/revisers/gzip/gzip.go).
type Options struct {
	// TXPacketSize, if non-zero, is the hard ceiling C3 applies to a single
	// issue_raw call (spec.md §4.3). Zero means "derive from RXBufferSize".
	TXPacketSize int

	// RXBufferSize is the fallback ceiling basis when TXPacketSize is zero.
	RXBufferSize int

	// ServBufSize is the per-thread scratch buffer size (pt_serv_buf_size
	// in spec.md §3), the other half of the fallback-ceiling max().
	ServBufSize int

	// LWSPre is the headroom every caller-supplied buffer must reserve
	// before payload byte 0 (spec.md §3 invariant 1). 16 covers the worst
	// case: WS 10-byte header + 4-byte mask, or H2 9-byte frame header.
	LWSPre int

	// PendingTimeoutSeconds is the PENDING_TIMEOUT_HTTP_CONTENT value for a
	// streaming file transaction (spec.md §5). It is carried for the host;
	// nothing in this package arms a timer from it.
	PendingTimeoutSeconds int

	derived bool
	cap     int
}

// DefaultOptions matches spec.md's glossary default: 16 bytes of headroom
// covers every framing combination named in §4.5/§4.6.
func DefaultOptions() Options {
	return Options{
		RXBufferSize:          16 * 1024,
		ServBufSize:           16 * 1024,
		LWSPre:                16,
		PendingTimeoutSeconds: 30,
	}
}

// OnConfigure validates the fields a caller set directly, mirroring
// gorox's ConfigureInt validators (hemi/builtin/revisers/gzip/gzip.go).
func (o *Options) OnConfigure() error {
	if o.LWSPre < 16 {
		return fmt.Errorf("tide: LWSPre must be >= 16, got %d", o.LWSPre)
	}
	if o.RXBufferSize <= 0 {
		return fmt.Errorf("tide: RXBufferSize must be > 0, got %d", o.RXBufferSize)
	}
	if o.ServBufSize <= 0 {
		return fmt.Errorf("tide: ServBufSize must be > 0, got %d", o.ServBufSize)
	}
	if o.TXPacketSize < 0 {
		return fmt.Errorf("tide: TXPacketSize must be >= 0, got %d", o.TXPacketSize)
	}
	return nil
}

// OnPrepare derives the effective per-call size ceiling (spec.md §4.3 step
// 4): tx_packet_size if set, else max(rx_buffer_size, pt_serv_buf_size),
// plus LWS_PRE + 4.
func (o *Options) OnPrepare() {
	base := o.TXPacketSize
	if base == 0 {
		base = o.RXBufferSize
		if o.ServBufSize > base {
			base = o.ServBufSize
		}
	}
	o.cap = base + o.LWSPre + 4
	o.derived = true
}

// Cap returns the derived per-call size ceiling. Exits the process via
// BugExitln if OnPrepare was never called — a programmer error, not a
// runtime condition.
func (o *Options) Cap() int {
	if !o.derived {
		BugExitln("tide: Options.Cap() called before OnPrepare()")
	}
	return o.cap
}
