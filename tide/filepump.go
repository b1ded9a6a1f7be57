package tide

import (
	"fmt"

	"github.com/ripley-lyster/libwebsockets/tide/fileprovider"
)

// chunkSlot is the headroom the pump reserves in front of each fragment
// for the chunked-encoding size line ("%x\r\n", up to 8 hex digits + CRLF),
// spec.md §4.8 step 7.
const chunkSlot = 10

// boundaryTrailerLen is the read-budget room reserved for the trailing
// multipart boundary "_lws\r\n" (6 bytes), spec.md §4.8 step 5.
const boundaryTrailerLen = 7

// interpreterSlack is the extra room an HTML-processing extension may grow
// a chunk by, spec.md §4.8 step 8 / GLOSSARY "chunk translation slack".
const interpreterSlack = 128

// StartFileServe initializes C8's httpState for a new file-serving
// transaction (spec.md §3's http substate). ranges is nil/empty for a
// plain whole-file response; multipartCT is only consulted when
// len(ranges) > 1 (spec.md §4.8 step 4 / §8 P10).
func (c *Conn) StartFileServe(f fileprovider.File, fileLen, contentLength int64, ranges []ByteRange, multipartCT string, chunked bool) {
	c.http.fopFD = f
	c.http.filePos = 0
	c.http.fileLen = fileLen
	c.http.contentLength = contentLength
	c.http.contentRemain = contentLength
	c.http.ranges = ranges
	c.http.rangeIdx = 0
	c.http.sendingChunked = chunked
	c.http.multipartCT = multipartCT
}

// FileInterpreter, when set, is spec.md §6's PROCESS_HTML callback: it may
// rewrite a chunk in place and grow it up to len(chunk)+interpreterSlack.
// HTML rewriting itself is out of scope (spec.md §1); this is the seam.
//
// It is passed to each PumpWritable call; nil means no interpreter pass.
type FileInterpreter func(conn *Conn, chunk []byte, final bool) ([]byte, error)

// FileCompletionHook fires once, exactly, when a file-serving transaction
// finishes (spec.md §8 P9). The return value mirrors HTTP_FILE_COMPLETION
// (spec.md §6): -1 drop the connection, 0 keep-alive / ready for the next
// transaction, 1 hang up just this HTTP/2 substream.
type FileCompletionHook func(conn *Conn) int

// PumpWritable is the C8 file-fragment pump (spec.md §4.8), invoked by the
// host event loop while the connection is writable and a file-serving
// transaction is active. It loops until the transport chokes (isChoked
// returns true) or the file completes.
//
// Grounded on original_source/lib/output.c's lws_serve_http_file_fragment
// (the exact clamp
// ordering — content-remain, tx_packet_size, H2 credit, range budget,
// then the boundary/chunk-overhead reductions — follows that function
// line for line); see DESIGN.md.
func (c *Conn) PumpWritable(servBuf []byte, interp FileInterpreter, onComplete FileCompletionHook, isChoked func() bool) (hangup int, err error) {
	for {
		// 1. Residue always drains first (spec.md §4.2, §8 P5).
		if c.trunc.hasResidue() {
			done, derr := c.DrainResidue()
			if derr != nil {
				return -1, derr
			}
			if !done {
				return 0, nil // still choked on the residue; re-armed inside DrainResidue->issueRaw.
			}
			// The pump drives its own fragments directly through C3; it
			// resets the re-entrancy guard between them itself rather than
			// relying on the event loop, since §4.8's loop is the library's
			// own doing, not the back-to-back application misuse invariant
			// 2 guards against.
			c.AfterWritableServiced()
			continue
		}

		// 2. File exhausted.
		if c.http.filePos >= c.http.fileLen && !c.rangingActive() {
			return c.completeFileServe(onComplete)
		}

		p := servBuf[chunkSlot:]
		boundaryLen := 0

		// 4. Ranges: enter the next range if we're not already inside one.
		if len(c.http.ranges) > 0 && !c.http.ranges[c.http.rangeIdx].inside {
			rg := &c.http.ranges[c.http.rangeIdx]
			if _, serr := c.http.fopFD.Seek(rg.Start, 0); serr != nil {
				c.http.fopFD.Close()
				return -1, fmt.Errorf("%w: range seek: %v", ErrFilePump, serr)
			}
			c.http.filePos = rg.Start
			if len(c.http.ranges) > 1 {
				hdr := []byte(fmt.Sprintf("_lws\r\nContent-Type: %s\r\nContent-Range: bytes %d-%d/%d\r\n\r\n",
					c.http.multipartCT, rg.Start, rg.Last, rg.Extent))
				boundaryLen = len(hdr)
				copy(p, hdr)
			}
			rg.budget = rg.Last - rg.Start + 1
			rg.inside = true
		}

		// 5. Read budget.
		poss := len(p) - boundaryLen
		if len(c.http.ranges) > 1 {
			poss -= boundaryTrailerLen // allow for the final trailing boundary.
		}
		if c.http.contentRemain > 0 && int64(poss) > c.http.contentRemain {
			poss = int(c.http.contentRemain)
		}
		if c.opts.TXPacketSize > 0 && poss > c.opts.TXPacketSize {
			poss = c.opts.TXPacketSize
		}
		if c.mode.isHTTP2() && int64(poss) > int64(c.h2.txCredit) {
			poss = int(c.h2.txCredit)
		}
		if len(c.http.ranges) > 0 {
			rg := &c.http.ranges[c.http.rangeIdx]
			if int64(poss) > rg.budget {
				poss = int(rg.budget)
			}
		}
		if c.http.sendingChunked {
			poss -= chunkSlot + interpreterSlack
		}
		if poss <= 0 {
			if isChoked() {
				c.armWritable()
				return 0, nil
			}
			continue
		}

		// 6. Read.
		data := p[boundaryLen : boundaryLen+poss]
		amount, rerr := c.http.fopFD.ReadAt(data, c.http.filePos)
		if rerr != nil && amount == 0 {
			c.http.fopFD.Close()
			return -1, fmt.Errorf("%w: read: %v", ErrFilePump, rerr)
		}
		n := boundaryLen + amount

		// 7. Chunk framing: "%x\r\n" into the slot immediately before p.
		if c.http.sendingChunked {
			sizeLine := []byte(fmt.Sprintf("%x\r\n", n))
			start := chunkSlot - len(sizeLine)
			copy(servBuf[start:chunkSlot], sizeLine)
			copy(p[n:n+2], "\r\n")
			p = servBuf[start:]
			n += len(sizeLine) + 2
		}

		// 8. Interpreter pass.
		if interp != nil {
			out, ierr := interp(c, p[:n], c.http.filePos+int64(amount) >= c.http.fileLen)
			if ierr != nil {
				c.http.fopFD.Close()
				return -1, fmt.Errorf("%w: interpreter: %v", ErrFilePump, ierr)
			}
			p, n = out, len(out)
		}

		// 9. Trailing multipart boundary on the final byte of the final range.
		isFinalRangePart := len(c.http.ranges) > 1 && c.http.rangeIdx == len(c.http.ranges)-1 &&
			c.http.ranges[c.http.rangeIdx].budget-int64(amount) == 0
		if isFinalRangePart {
			n += copy(p[n:], "_lws\r\n")
		}

		final := c.http.contentRemain > 0 && c.http.contentRemain-int64(amount) <= 0 && !c.rangingActiveAfter(amount)
		kind := KindHTTP
		if final {
			kind = KindHTTPFinal
		}

		// 10. Dispatch through the normal write pipeline. The chunk-size
		// line and boundary text are content, not framing headroom — p[:n]
		// is handed to Write at offset 0 (writeSendRaw's plain-HTTP path
		// needs no headroom of its own).
		_, werr := c.Write(p, 0, n, WriteProtocol{Kind: kind})
		c.AfterWritableServiced() // see the residue branch above: the pump owns its own guard reset.
		if werr != nil {
			c.http.fopFD.Close()
			return -1, fmt.Errorf("%w: %v", ErrFilePump, werr)
		}

		// 11. Advance by amount (file position), not n (framing bytes
		// aren't part of file position).
		c.http.filePos += int64(amount)
		if c.http.contentRemain > 0 {
			c.http.contentRemain -= int64(amount)
		}
		if len(c.http.ranges) > 0 {
			rg := &c.http.ranges[c.http.rangeIdx]
			rg.budget -= int64(amount)
			if rg.budget == 0 {
				rg.inside = false
				c.http.rangeIdx++
			}
		}

		if final {
			return c.completeFileServe(onComplete)
		}
		if isChoked() {
			c.armWritable()
			return 0, nil
		}
	}
}

func (c *Conn) rangingActive() bool {
	return len(c.http.ranges) > 0 && c.http.rangeIdx < len(c.http.ranges)
}

func (c *Conn) rangingActiveAfter(amount int) bool {
	if len(c.http.ranges) == 0 {
		return false
	}
	if c.http.rangeIdx >= len(c.http.ranges) {
		return false
	}
	rg := c.http.ranges[c.http.rangeIdx]
	return rg.budget-int64(amount) > 0 || c.http.rangeIdx < len(c.http.ranges)-1
}

func (c *Conn) completeFileServe(onComplete FileCompletionHook) (int, error) {
	c.http.fopFD.Close()
	c.http.fopFD = nil
	c.state = StateHTTP
	if onComplete != nil {
		return onComplete(c), nil
	}
	return 0, nil
}
