package rows

import "fmt"

// ErrTransientStore is spec.md's exact diagnostic text for storing a
// transient row into a name that outlives its owning frame (quoted
// verbatim in spec.md Scenario 2 and in original_source/source/scope.c).
type ErrTransientStore struct {
	OwnerFrame uint64
	DestFrame  uint64
}

func (e *ErrTransientStore) Error() string { return "attempt to store transient name" }

// IsTransient reports whether d is transient: its outermost mode is
// REF FLEX ROW M, i.e. its bounds may still change (spec.md §4.4).
func IsTransient(d *Descriptor) bool { return d.Flex }

// CheckStore enforces spec.md §4.4's transient-row rule: storing a
// transient row into a name whose scope (destFrameLevel) outlives the
// transient's owning frame (ownerFrameLevel) is a runtime error. Levels
// compare the way spec.md's dynamic scope check does throughout: a
// larger level is younger, so a store is legal only if the owner's
// level is at least as old (<=) as the destination's level context —
// concretely, rejecting only when the destination is a strictly older
// (more primal) frame than the row's owner, since that destination
// will outlive the row.
func CheckStore(d *Descriptor, ownerFrameLevel, destFrameLevel int) error {
	if !IsTransient(d) {
		return nil
	}
	if destFrameLevel < ownerFrameLevel {
		return fmt.Errorf("attempt to store transient name")
	}
	return nil
}
