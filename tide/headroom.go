package tide

import "github.com/ripley-lyster/libwebsockets/tide/wsframe"

// MaxHeadroom is the largest headroom any single write through this
// package ever needs ahead of the payload — the WS contribution
// (wsframe.MaxPre). Callers building their own storage buffers per
// spec.md invariant 1 can use this instead of hand-deriving it.
//
// H2 framing needs no caller-side headroom: h2frame.Writer writes its own
// 9-byte frame header directly to the transport sink rather than in-place
// ahead of the payload (see DESIGN.md's C6 entry), so it adds nothing
// here.
func MaxHeadroom() int { return wsframe.MaxPre }
