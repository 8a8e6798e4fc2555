package runtime

import "a68core/internal/ast"

// CheckDynamicScope is spec.md §4.2's dynamic scope check: the runtime
// backstop that still runs even when the static checker (internal/
// scopecheck) accepted a program, because a routine's scope can depend
// on which branch of a conditional actually executed. destLevel is the
// lexical level of the name being assigned into; src is the reference
// about to be stored there. The rule: src must not denote a frame
// younger (deeper) than destLevel, since that frame is guaranteed to
// be torn down before destLevel's frame is.
//
// spec.md §9's design note translates the original's direct frame-
// pointer comparison ("is this address above or below that address on
// the stack") into a lexical-level comparison here, since this core's
// frames live in a preallocated arena addressed by index, not by a
// machine stack pointer — index order and level order coincide for
// frames opened by lexical nesting, but not for frames reached through
// a stale static link into a reused arena slot, so the comparison is
// defined purely in terms of Level, which is stable for a frame's
// entire lifetime.
func CheckDynamicScope(fs *FrameStack, destLevel int, src ast.Ref) bool {
	switch src.Segment {
	case ast.SegNil:
		return true
	case ast.SegFrame:
		idx := int(src.FrameID)
		if idx < 0 || idx >= fs.Depth() {
			return false
		}
		return fs.records[idx].Level <= destLevel
	case ast.SegStack:
		return true
	case ast.SegHeap:
		return true
	default:
		return true
	}
}

// CheckDynamicScopeProcedure applies the same rule to a procedure
// value's captured environ, spec.md's "assigning a PROC whose closure
// environment is younger than the destination".
func CheckDynamicScopeProcedure(fs *FrameStack, destLevel int, proc ast.Procedure) bool {
	if proc.Builtin != nil {
		return true
	}
	return CheckDynamicScope(fs, destLevel, proc.Environ)
}
