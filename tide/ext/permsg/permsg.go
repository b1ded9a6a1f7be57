// Package permsg is a reference C4 extension: permessage-deflate
// (RFC 7692) applied to the TX side only, matching spec.md §1's scope (no
// RX/negotiation modeling — this package assumes the handshake already
// picked parameters and just drives the deflate stream).
//
// Grounded on hemi/builtin/revisers/gzip/gzip.go's OnCreate/OnConfigure/
// OnPrepare component lifecycle and BeforeSend/OnOutput/FinishEcho TX-side
// hook shape, generalized to the C4 Extender ABI (tide/ext.go). Uses
// github.com/klauspost/compress/flate rather than compress/flate: it's the
// drop-in the rest of the ecosystem reaches for once a hot path involves
// repeated small Write calls — see DESIGN.md.
package permsg

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/flate"

	"github.com/ripley-lyster/libwebsockets/tide"
)

// Deflater is a per-connection permessage-deflate TX extension. It is not
// safe for concurrent use across connections; construct one per Conn.
type Deflater struct {
	noContextTakeover bool
	level             int

	w   *flate.Writer
	buf bytes.Buffer
}

// New builds a Deflater. level follows compress/flate's scale (1..9, or
// flate.DefaultCompression); noContextTakeover matches the RFC 7692
// "client_no_context_takeover"/"server_no_context_takeover" parameters —
// when true, the deflate window resets after every message instead of
// carrying dictionary state forward.
func New(level int, noContextTakeover bool) (*Deflater, error) {
	d := &Deflater{level: level, noContextTakeover: noContextTakeover}
	w, err := flate.NewWriter(&d.buf, level)
	if err != nil {
		return nil, fmt.Errorf("permsg: %w", err)
	}
	d.w = w
	return d, nil
}

func (d *Deflater) Name() string { return "permessage-deflate" }

// OnPacketTXDoSend never claims the raw write: permessage-deflate only
// transforms the payload (PAYLOAD_TX), it never bypasses the socket
// (spec.md §4.4's two hooks are independent; this extension only implements
// one of them).
func (d *Deflater) OnPacketTXDoSend(c *tide.Conn, buf []byte) (n int, handled bool, err error) {
	return 0, false, nil
}

// OnPayloadTX deflates buf and returns the compressed bytes. Control frames
// must never reach here (the dispatcher skips the extension chain for
// them, spec.md §4.5); OnPayloadTX assumes buf is a data-frame payload.
//
// moreToCome is always false here: flate.Writer.Flush drains everything it
// can produce from the bytes handed to it so far in one call, so this
// extension never needs a second drain pass for the same input. A
// streaming compressor that buffers internally (unlike flate's sync-flush
// mode) would return true while it still had queued output — this is the
// hook other extensions use for that case (spec.md §4.4).
func (d *Deflater) OnPayloadTX(c *tide.Conn, buf []byte, wp tide.WriteProtocol) (out []byte, moreToCome bool, err error) {
	if len(buf) == 0 {
		return nil, false, nil
	}
	d.buf.Reset()
	if _, err := d.w.Write(buf); err != nil {
		return nil, false, fmt.Errorf("%w: permsg deflate: %v", tide.ErrExtensionFatal, err)
	}
	if err := d.w.Flush(); err != nil {
		return nil, false, fmt.Errorf("%w: permsg flush: %v", tide.ErrExtensionFatal, err)
	}
	if !wp.NoFin && d.noContextTakeover {
		d.w.Reset(&d.buf)
	}
	// RFC 7692: the trailing 00 00 ff ff of the sync flush is not sent.
	b := bytes.TrimSuffix(d.buf.Bytes(), []byte{0x00, 0x00, 0xff, 0xff})
	out = make([]byte, len(b))
	copy(out, b)
	return out, false, nil
}
