package tide

// Extender is the C4 extension-chain ABI, spec.md §4.4 and §6. Only the
// core-visible TX events are modeled: PACKET_TX_DO_SEND and PAYLOAD_TX.
// Read-side events are out of scope (spec.md §1).
//
// Grounded on hemi/web.go's Reviser interface (BeforeSend/OnOutput/
// FinishEcho) — gorox's TX-side stream transform — generalized to the
// spec's event pair. See DESIGN.md.
type Extender interface {
	Name() string

	// OnPacketTXDoSend lets an extension take over the actual wire write
	// (e.g. an alternative transport). Returning (n, true) with n > 0
	// means "I wrote n bytes myself, skip the socket"; (0, false) means
	// "not handled, fall through to the normal issuer"; an error means
	// fatal.
	OnPacketTXDoSend(c *Conn, buf []byte) (n int, handled bool, err error)

	// OnPayloadTX may replace buf with the extension's own buffer and/or
	// change its length. moreToCome reports whether the extension has
	// more output queued after this call and the connection should be
	// scheduled for another drain pass (spec.md §4.4).
	OnPayloadTX(c *Conn, buf []byte, wp WriteProtocol) (out []byte, moreToCome bool, err error)
}

// runPayloadTXChain runs buf through every extension's OnPayloadTX in
// order. Buffer-identity tracking is left to the caller (dispatch.go's
// Write compares its own before/after buffers via samebuf, spec.md §4.4);
// this function only handles the "ate input, emitted nothing" stash case
// (spec.md §4.4, §9): when an extension reports no output but consumed the
// call, the original write type is remembered via stashWriteProtocol/
// restoreWriteProtocol so FIN/opcode semantics survive to the next pass.
func runPayloadTXChain(c *Conn, buf []byte, wp WriteProtocol) (out []byte, draining bool, err error) {
	out = buf
	anyMore := false
	for _, ext := range c.extensions {
		next, more, extErr := ext.OnPayloadTX(c, out, wp)
		if extErr != nil {
			return nil, false, extErr
		}
		if len(next) == 0 && len(out) > 0 {
			// Ate input, emitted nothing: remember wp for the next pass.
			c.ws.stashedWritePending = true
			c.ws.stashedWriteType = stashWriteProtocol(wp)
		}
		out = next
		if more {
			anyMore = true
		}
	}
	if anyMore {
		c.pt.enqueueDraining(c)
	} else {
		c.pt.dequeueDraining(c)
	}
	return out, anyMore, nil
}

func samebuf(a, b []byte) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	return capAddr(a) == capAddr(b)
}

// issueRawExtAccess is the C7-described wrapper (spec.md §4.7 step 11):
// offer buf to the extension chain's PACKET_TX_DO_SEND first; if no
// extension claims it, fall through to the raw issuer (C3).
func issueRawExtAccess(c *Conn, buf []byte) (int, error) {
	for _, ext := range c.extensions {
		n, handled, err := ext.OnPacketTXDoSend(c, buf)
		if err != nil {
			return -1, err
		}
		if handled {
			return n, nil
		}
	}
	return issueRaw(c, buf)
}
