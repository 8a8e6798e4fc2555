package ast

// ModeTag identifies the shape of a Mode (spec.md §3: "Mode (type)").
type ModeTag int

const (
	ModeInt ModeTag = iota
	ModeReal
	ModeBool
	ModeChar
	ModeBits
	ModeBytes
	ModeString
	ModeFormat
	ModeFile
	ModeChannel
	ModeSema
	ModeComplex
	ModeRef
	ModeProc
	ModeStruct
	ModeUnion
	ModeRow
	ModeFlexRow
	ModeLong
	ModeLongLong
	ModeVoid
)

// Mode is the source language's type node. Modes form a DAG: REF/ROW/
// PROC/LONG all point at a sub-mode, STRUCT/UNION point at a list of
// field modes.
type Mode struct {
	Tag ModeTag

	// Dimension count for ROW/FLEX ROW modes.
	Dimensions int

	// SubMode is the referent for REF M, the element for ROW M /
	// FLEX ROW M, the widened mode for LONG M / LONG LONG M, and the
	// result mode for PROC (...) M.
	SubMode *Mode

	// Fields holds STRUCT/UNION member modes in declaration order.
	Fields []Field

	// Params holds PROC parameter modes in declaration order.
	Params []*Mode

	// Size is this mode's size in bytes (a logical size for the value
	// discipline, not a promise about memory layout — spec.md Non-goals
	// explicitly disclaim exact descriptor layout).
	Size int

	// Precomputed flags, filled in once by the mode table builder
	// (a collaborator) before the core ever sees the node.
	HasRows bool
	HasRef  bool
	HasFlex bool

	// SliceMode is this mode with one dimension trimmed away; nil for
	// non-ROW modes or 1-dimensional ones whose slice is the element.
	SliceMode *Mode
	// DeflexedMode is this mode with FLEX stripped (a ROW with bounds
	// that can no longer change); nil if this mode is not FLEX.
	DeflexedMode *Mode
	// NameMode is REF of this mode's SliceMode, cached for repeated
	// slicing-as-name coercions.
	NameMode *Mode

	// Equiv is the canonical representative of this mode's equivalence
	// class after mode equivalencing (a collaborator concern); nil
	// until the mode table resolves it.
	Equiv *Mode

	name string // for diagnostics only
}

// Field is one member of a STRUCT or UNION mode.
type Field struct {
	Name string
	Mode *Mode
}

func (m *Mode) String() string {
	if m == nil {
		return "<nil mode>"
	}
	if m.name != "" {
		return m.name
	}
	return modeTagNames[m.Tag]
}

var modeTagNames = map[ModeTag]string{
	ModeInt: "INT", ModeReal: "REAL", ModeBool: "BOOL", ModeChar: "CHAR",
	ModeBits: "BITS", ModeBytes: "BYTES", ModeString: "STRING",
	ModeFormat: "FORMAT", ModeFile: "FILE", ModeChannel: "CHANNEL",
	ModeSema: "SEMA", ModeComplex: "COMPLEX", ModeRef: "REF",
	ModeProc: "PROC", ModeStruct: "STRUCT", ModeUnion: "UNION",
	ModeRow: "ROW", ModeFlexRow: "FLEX ROW", ModeLong: "LONG",
	ModeLongLong: "LONG LONG", ModeVoid: "VOID",
}

// NewName builds a name for diagnostics, e.g. "REF [1:3] INT".
func NewName(m *Mode, name string) *Mode {
	m.name = name
	return m
}

// Is reports whether m's tag matches any of the given tags.
func (m *Mode) Is(tags ...ModeTag) bool {
	for _, t := range tags {
		if m.Tag == t {
			return true
		}
	}
	return false
}

// ElementMode returns the mode of one element of a ROW/FLEX ROW mode.
func (m *Mode) ElementMode() *Mode {
	if m.Dimensions <= 1 {
		return m.SubMode
	}
	return m.SliceMode
}
