// Package h2frame implements the C6 HTTP/2 framer: wrapping a payload in
// DATA/HEADERS/CONTINUATION frames, tracking END_STREAM and flow-control
// credit, per spec.md §4.6 / §8 P6.
//
// Built on golang.org/x/net/http2's Framer rather than hand-encoding the
// 9-byte frame header, grounded on yandex-pandora's go.mod dependency on
// golang.org/x/net and the other_examples HTTP/2 forks (bradfitz-http2,
// dgrr-http2, gaby-http2) that all drive the same package. See DESIGN.md.
package h2frame

import (
	"fmt"
	"io"

	"golang.org/x/net/http2"
)

// Writer wraps an http2.Framer and the stream id it frames for. The
// stream's remaining flow-control credit is not held here: the caller owns
// it and passes it to WriteData.
type Writer struct {
	framer *http2.Framer
	sid    uint32
}

// NewWriter builds a Writer whose frames are written to dst — typically an
// adapter around issueRawExtAccess (see dispatch.go), so the frame bytes
// flow through the same C3 raw issuer as everything else.
func NewWriter(dst io.Writer, streamID uint32) *Writer {
	return &Writer{framer: http2.NewFramer(dst, nil), sid: streamID}
}

// WriteDataResult reports how a DATA write was clamped and whether
// END_STREAM went out with it.
type WriteDataResult struct {
	Written   int
	EndStream bool
}

// WriteData clamps payload to the available txCredit (spec.md §4.6: "If
// zero, return 0 (nothing written, wait). Otherwise clamp the payload to
// tx_credit"), writes one DATA frame, and decrements *txCredit by the
// amount actually framed.
//
// endStream is true when the caller selected HTTP_FINAL, passed
// H2_STREAM_END, or contentRemain reaches zero after this write (spec.md
// §4.6) — the caller computes that, WriteData just honors it, and only on
// the frame that consumes the last clamped byte (a credit-starved partial
// write can never legitimately claim END_STREAM).
func (w *Writer) WriteData(payload []byte, endStream bool, txCredit *int32) (WriteDataResult, error) {
	if *txCredit <= 0 && len(payload) > 0 {
		return WriteDataResult{}, nil // flow-control stall: caller retries on WINDOW_UPDATE.
	}
	n := len(payload)
	if int32(n) > *txCredit {
		n = int(*txCredit)
		endStream = false // can't claim finality on a credit-starved partial.
	}
	if err := w.framer.WriteData(w.sid, endStream, payload[:n]); err != nil {
		return WriteDataResult{}, fmt.Errorf("h2frame: WriteData: %w", err)
	}
	*txCredit -= int32(n)
	return WriteDataResult{Written: n, EndStream: endStream}, nil
}

// WriteHeaders writes a HEADERS frame. endHeaders is false when the caller
// passed NO_FIN (more CONTINUATION fragments follow); endStream mirrors
// HTTP_FINAL/H2_STREAM_END exactly as for DATA (spec.md §4.6).
func (w *Writer) WriteHeaders(blockFragment []byte, endHeaders, endStream bool) error {
	err := w.framer.WriteHeaders(http2.HeadersFrameParam{
		StreamID:      w.sid,
		BlockFragment: blockFragment,
		EndHeaders:    endHeaders,
		EndStream:     endStream,
	})
	if err != nil {
		return fmt.Errorf("h2frame: WriteHeaders: %w", err)
	}
	return nil
}

// WriteContinuation writes a CONTINUATION frame, the header-block overflow
// path (spec.md §4.6's HTTP_HEADERS_CONTINUATION kind).
func (w *Writer) WriteContinuation(blockFragment []byte, endHeaders bool) error {
	if err := w.framer.WriteContinuation(w.sid, endHeaders, blockFragment); err != nil {
		return fmt.Errorf("h2frame: WriteContinuation: %w", err)
	}
	return nil
}
