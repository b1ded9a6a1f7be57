package tide

import (
	"errors"
	"fmt"
)

// ErrCloseNow is returned by issueRaw to signal "the pending flush-before-
// close residue just finished draining, proceed to close the connection
// now" (spec.md §4.3 step 7, §4.9's close handshake). It is not a failure;
// callers must check for it explicitly before treating a negative result
// as ErrTransportFatal.
var ErrCloseNow = errors.New("tide: flush-before-close residue drained, close now")

// issueRaw is C3: it drives the transport, owns the partial-send buffer,
// enforces the size ceiling and updates stats, per spec.md §4.3. The
// extension PACKET_TX_DO_SEND offer happens in the caller (issueRawExtAccess
// in ext.go), not here — spec.md §4.7 step 11 describes that as a
// wrapper around C3, not part of C3 itself.
//
// Grounded step-for-step on original_source/lib/output.c's lws_issue_raw;
// see DESIGN.md.
func issueRaw(c *Conn, buf []byte) (int, error) {
	// 1. Re-entrancy guard (spec.md invariant 2, §8 P4).
	c.mu.Lock()
	pending := c.couldHavePending
	c.mu.Unlock()
	if pending {
		return -1, fmt.Errorf("%w: back-to-back write or write outside the writable callback", ErrMisuse)
	}

	// A connection already marked permanently unusable short-circuits
	// before any I/O.
	if c.SocketUnusable() {
		return -1, fmt.Errorf("%w: socket is permanently unusable", ErrTransportFatal)
	}

	if c.stats != nil {
		c.stats.APICalls.Inc()
	}

	// len == 0 fast path, from original_source (SPEC_FULL.md §5): a
	// zero-length write is an immediate no-op, not even offered to the
	// transport.
	if len(buf) == 0 {
		if c.stats != nil {
			c.stats.ZeroWrites.Inc()
		}
		return 0, nil
	}

	// 2. Flush-close shortcut.
	if c.state == StateFlushingSendBeforeClose && !c.trunc.hasResidue() {
		return len(buf), nil
	}

	// 3. Aliasing check: buf must be the retry of the stashed residue.
	hadResidue := c.trunc.hasResidue()
	if hadResidue && !c.trunc.bufferAliases(buf) {
		return -1, fmt.Errorf("%w: write with unrelated buffer while truncated send is pending", ErrMisuse)
	}

	// 4. Size ceiling.
	cap := c.opts.Cap()
	attempt := len(buf)
	if attempt > cap {
		attempt = cap
	}

	// 5. Attempt via C1.
	n, result, err := c.transport.Write(buf[:attempt])
	switch result {
	case Fatal:
		c.markUnusable()
		return -1, fmt.Errorf("%w: %v", ErrTransportFatal, err)
	case WouldBlock:
		n = 0
	}

	// 6. Mark pending-detection armed for this writable cycle.
	c.mu.Lock()
	c.couldHavePending = true
	c.mu.Unlock()

	if c.stats != nil {
		c.stats.BytesWritten.Add(float64(n))
	}

	// 7. Residue handling.
	if hadResidue {
		c.trunc.offset += n
		c.trunc.len -= n
		if !c.trunc.hasResidue() {
			total := len(buf)
			if c.state == StateFlushingSendBeforeClose {
				return -1, ErrCloseNow
			}
			c.armWritable()
			return total, nil
		}
		c.armWritable()
		return n, nil
	}

	if n == len(buf) {
		return n, nil
	}

	// New partial send: stash the residue and take custody of the full
	// request length (the caller sees "accepted" semantics).
	if c.stats != nil {
		c.stats.PartialEvents.Inc()
		c.stats.PartialBytes.Add(float64(n))
	}
	c.trunc.stash(buf[n:])
	c.armWritable()
	return len(buf), nil
}

// DrainResidue is the event loop's hook for C2's "redrive residue at
// higher priority" rule (spec.md §4.2, §4.8 step 1, §8 P5): call this on a
// writable event before offering any fresh payload to Write. done is true
// once trunc is empty again (including the degenerate "was already
// empty" case); err wraps ErrCloseNow when a flush-before-close residue
// has just finished draining — the caller should close the connection.
func (c *Conn) DrainResidue() (done bool, err error) {
	if !c.trunc.hasResidue() {
		return true, nil
	}
	residue := c.trunc.alloc[c.trunc.offset : c.trunc.offset+c.trunc.len]
	if _, err := issueRaw(c, residue); err != nil {
		return false, err
	}
	return !c.trunc.hasResidue(), nil
}

// armWritable requests the event loop call back when the transport has
// room again. Socket/event-loop wiring is out of scope (spec.md §1); this
// is the sanctioned seam a host application fills in.
func (c *Conn) armWritable() {
	if c.ArmWritable != nil {
		c.ArmWritable()
	}
}

// AfterWritableServiced must be called by the event loop once per writable
// callback, after the dispatcher has run, to reset the re-entrancy guard
// (spec.md invariant 2: "must be reset by the event loop after servicing
// writable").
func (c *Conn) AfterWritableServiced() {
	c.mu.Lock()
	c.couldHavePending = false
	c.mu.Unlock()
}
