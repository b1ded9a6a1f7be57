package tide

import (
	"fmt"

	"github.com/ripley-lyster/libwebsockets/tide/h2frame"
	"github.com/ripley-lyster/libwebsockets/tide/wsframe"
)

// ChildWriteViaParent, when set on a parent Conn, is invoked for a child
// whose parentCarriesIO is true (spec.md §4.7 step 1's
// CHILD_WRITE_VIA_PARENT callback). Multiplexed-substream wiring (e.g. an
// HTTP/2 stream riding a shared connection) is out of scope beyond this
// seam — spec.md §1 lists protocol handler registration as an external
// collaborator.
type ChildWriteViaParent func(child *Conn, storage []byte, payloadStart, payloadLen int, wp WriteProtocol) (int, error)

// Write is the C7 public write entry point (spec.md §4.7, §6).
//
// storage must have at least Pre(len(payload), masked) bytes of writable
// headroom immediately before payloadStart — spec.md invariant 1's
// "LWS_PRE" contract, made explicit here as an offset pair instead of
// pointer arithmetic (spec.md §9's FramedBuf re-architecture note).
//
// The return value is the count of bytes of the ORIGINAL payload (not
// counting framing overhead) the library has taken custody of: negative on
// fatal error, 0 if silently dropped by the state filter, up to
// payloadLen otherwise. A return less than payloadLen only happens on the
// HTTP/2 flow-control clamp path (spec.md §8 scenario 4); the caller
// resubmits the remainder on the next writable event.
func (c *Conn) Write(storage []byte, payloadStart, payloadLen int, wp WriteProtocol) (int, error) {
	// 1. Parent delegation.
	if c.parentCarriesIO {
		if c.parent != nil && c.parent.childWriteViaParent != nil {
			return c.parent.childWriteViaParent(c, storage, payloadStart, payloadLen, wp)
		}
		return 0, nil
	}

	// 2. Bookkeeping. Access-log/vhost-stats bumps are out of scope
	// (spec.md §1); only the negative-length guard and API-call stat apply
	// here.
	if payloadLen < 0 || payloadStart < 0 || payloadStart+payloadLen > len(storage) {
		return -1, fmt.Errorf("%w: negative or out-of-range write length", ErrMisuse)
	}
	payload := storage[payloadStart : payloadStart+payloadLen]
	origLen := payloadLen

	// 3. Forced draining: override kind to CONTINUATION, preserve the
	// caller's high bits (spec.md §4.4).
	if c.ws.draining {
		c.pt.dequeueDraining(c)
		wp.Kind = KindContinuation
	}

	// 4. Keepalive bookkeeping.
	if c.restartKeepaliveTimer != nil {
		c.restartKeepaliveTimer()
	}

	// 5. HTTP fast path: no WS framing, straight to raw-or-H2 send.
	if wp.Kind.IsHTTP() {
		return c.writeSendRaw(storage, payloadStart, payload, wp, origLen)
	}

	// 6. State filter.
	if !c.wsSendable(wp) {
		return 0, nil
	}

	op, err := kindToOpcode(wp.Kind)
	if err != nil {
		return -1, err
	}

	// 7. Mid-frame shortcut: this frame's header already went out: only
	// mask-continue and issue the remaining bytes (spec.md §4.9).
	if c.ws.insideFrame {
		if c.IsClient() {
			c.ws.maskIdx = wsframe.MaskContinue(payload, c.ws.mask, c.ws.maskIdx)
		}
		n, err := c.issueFramed(payload, 0)
		if err != nil {
			return -1, err
		}
		return c.afterWSIssue(n, 0), nil
	}

	// 8. Extension TX pass (skipped for control frames, spec.md §4.5).
	clean := true
	if !op.IsControl() {
		out, draining, extErr := runPayloadTXChain(c, payload, wp)
		if extErr != nil {
			return -1, extErr
		}
		if len(out) == 0 && len(payload) > 0 {
			// Ate input, emitted nothing: the caller's bytes are
			// considered accepted; stashedWritePending/stashedWriteType
			// (set inside runPayloadTXChain) carry wp's semantics forward.
			return origLen, nil
		}
		if c.ws.stashedWritePending {
			// The extension has finally emitted something after an earlier
			// pass ate input and emitted nothing: recover the original
			// TEXT/BINARY kind (and its high bits) that pass stashed,
			// rather than sending this first real on-wire fragment as a
			// bare CONTINUATION (spec.md §4.4, §9;
			// original_source/lib/output.c:352-356). op must be
			// recomputed since wp.Kind just changed underneath it.
			c.ws.stashedWritePending = false
			wp = restoreWriteProtocol(c.ws.stashedWriteType)
			op, err = kindToOpcode(wp.Kind)
			if err != nil {
				return -1, err
			}
		}
		clean = samebuf(out, payload)
		payload = out
		if draining {
			wp.NoFin = true
		}
	}

	// 9/10. Construct header (C5) and mask, then 11. issue.
	if c.IsClient() {
		if err := c.refreshMaskIfNewFrame(); err != nil {
			return -1, fmt.Errorf("%w: mask generation: %v", ErrTransportFatal, err)
		}
	}
	masked := c.IsClient()
	fin := !wp.NoFin
	pre := wsframe.Pre(int64(len(payload)), masked)

	var framed []byte
	var pooled []byte
	if clean && payloadStart >= pre {
		// Normal path: frame in place in the caller's own headroom, no
		// extension copy, no pool allocation.
		out, newIdx, werr := wsframe.WriteHeader(storage, payloadStart, payload, fin, 0, op, masked, c.ws.mask, c.ws.maskIdx)
		if werr != nil {
			return -1, werr
		}
		framed, c.ws.maskIdx = out, newIdx
	} else {
		// Extension replaced the buffer (or the caller's headroom was too
		// small for the chosen header width): clean_buffer is false, so
		// the whole transformed frame must be buffered via C2 on short
		// write rather than aliasing the caller's now-stale buffer
		// (spec.md §4.4).
		pooled = getNK(pre + len(payload))
		copy(pooled[pre:], payload)
		out, newIdx, werr := wsframe.WriteHeader(pooled, pre, pooled[pre:pre+len(payload)], fin, 0, op, masked, c.ws.mask, c.ws.maskIdx)
		if werr != nil {
			putNK(pooled)
			return -1, werr
		}
		framed, c.ws.maskIdx = out, newIdx
	}

	n, err := c.issueFramed(framed, pre)
	if pooled != nil {
		putNK(pooled)
	}
	if err != nil {
		return -1, err
	}
	ret := c.afterWSIssue(n, pre)
	if ret == len(payload) {
		// The whole (possibly extension-transformed) frame was taken:
		// report it in the caller's units (spec.md §4.7 step 12).
		return origLen, nil
	}
	return ret, nil
}

// issueFramed wraps framed in an H2 DATA frame first when this connection
// is WebSocket-over-HTTP/2 (spec.md §4.6's "WS header prepended first...
// then the H2 DATA frame wraps the entire result"), then hands it to the
// extension-chain-aware raw issuer (C7 step 11).
func (c *Conn) issueFramed(framed []byte, pre int) (int, error) {
	if !c.mode.isHTTP2() {
		return issueRawExtAccess(c, framed)
	}
	// Flow control clamps framed as a whole; a clamp landing inside the WS
	// header rather than the payload would corrupt the frame. Only
	// reachable with a pathologically small tx_credit relative to
	// MaxPre+4, which a caller sizing credit sanely never hits — not
	// specially guarded here, same as SPEC_FULL.md §6's other
	// won't-happen-in-practice host-width cases.
	fr := c.h2Writer()
	res, err := fr.WriteData(framed, false, &c.h2.txCredit)
	if err != nil {
		return -1, err
	}
	if res.Written == 0 && len(framed) > 0 {
		return 0, nil // flow-control stall
	}
	return pre + res.Written, nil
}

// afterWSIssue applies spec.md §4.7 step 12: clears insideFrame once no
// residue remains, and returns n-pre (the original payload bytes actually
// consumed), clamped to 0 per SPEC_FULL.md §6's resolution of the
// "n-pre may be negative" open question.
func (c *Conn) afterWSIssue(n, pre int) int {
	c.ws.insideFrame = c.trunc.hasResidue()
	ret := n - pre
	if ret < 0 {
		ret = 0
	}
	return ret
}

// writeSendRaw is the "send-raw" target of step 5: plain HTTP/1.1 bytes go
// straight to the issuer; HTTP/2 bytes (body or header block) go through
// C6 first. No extension pass, no WS framing, matching spec.md §4.7 step 5.
func (c *Conn) writeSendRaw(storage []byte, payloadStart int, payload []byte, wp WriteProtocol, origLen int) (int, error) {
	if !c.mode.isHTTP2() {
		n, err := issueRawExtAccess(c, payload)
		if err != nil {
			return -1, err
		}
		return n, nil
	}

	fr := c.h2Writer()
	endStream := wp.Kind == KindHTTPFinal || wp.H2StreamEnd

	switch wp.Kind {
	case KindHTTPHeaders, KindHTTPHeadersContinuation:
		endHeaders := !wp.NoFin
		var err error
		if wp.Kind == KindHTTPHeaders {
			err = fr.WriteHeaders(payload, endHeaders, endStream)
		} else {
			err = fr.WriteContinuation(payload, endHeaders)
		}
		if err != nil {
			return -1, err
		}
		if endStream {
			c.h2.sentEndStream = true
		}
		return origLen, nil

	default: // KindHTTP, KindHTTPFinal
		if c.http.contentRemain > 0 {
			c.http.contentRemain -= int64(len(payload))
			if c.http.contentRemain <= 0 {
				c.http.contentRemain = 0
				endStream = true // spec.md §4.9 invariant 6.
			}
		}
		res, err := fr.WriteData(payload, endStream, &c.h2.txCredit)
		if err != nil {
			return -1, err
		}
		if res.EndStream {
			c.h2.sentEndStream = true
		}
		return res.Written, nil
	}
}

// h2Writer lazily builds this connection's H2 framer, sinking frames
// through issueRawExtAccess so they share the same C3 residue/stats path
// as every other write (spec.md §4.6).
func (c *Conn) h2Writer() *h2frame.Writer {
	if c.h2.fr == nil {
		c.h2.fr = h2frame.NewWriter(connH2Sink{c}, c.h2.mySID)
	}
	return c.h2.fr
}

type connH2Sink struct{ c *Conn }

func (s connH2Sink) Write(p []byte) (int, error) {
	n, err := issueRawExtAccess(s.c, p)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// wsSendable is spec.md §4.7 step 6: writes are accepted once the
// connection has completed the WS handshake, or (regardless of the exact
// close-handshake substate) if this write is itself a CLOSE frame.
func (c *Conn) wsSendable(wp WriteProtocol) bool {
	if c.state == StateWSEstablished {
		return true
	}
	return wp.Kind == KindClose
}

func kindToOpcode(k Kind) (wsframe.Opcode, error) {
	switch k {
	case KindContinuation:
		return wsframe.OpContinuation, nil
	case KindText:
		return wsframe.OpText, nil
	case KindBinary:
		return wsframe.OpBinary, nil
	case KindClose:
		return wsframe.OpClose, nil
	case KindPing:
		return wsframe.OpPing, nil
	case KindPong:
		return wsframe.OpPong, nil
	default:
		return 0, fmt.Errorf("%w: write kind %d has no WS opcode", ErrMisuse, k)
	}
}
