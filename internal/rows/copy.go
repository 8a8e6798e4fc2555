package rows

import (
	"fmt"

	"a68core/internal/ast"
	"a68core/internal/heap"
)

// ErrDifferentBounds is spec.md §7's "Different bounds" error: array
// assignment with a non-matching shape into a non-FLEX destination.
type ErrDifferentBounds struct {
	Dest, Src []Tuple
}

func (e *ErrDifferentBounds) Error() string { return "different bounds" }

// DeepCopy recursively duplicates a value of the given mode, following
// spec.md §4.4's mode-directed descent: STRUCT copies each field
// recursively, ROW/FLEX ROW/STRING copy header+element block, UNION
// copies the discriminator and recursively copies the active variant,
// and primitive modes are a raw value copy. The heap's garbage
// semaphore is raised for the duration, per spec.md: "a half-copied
// structure cannot be swept".
func DeepCopy(h *heap.Heap, mode *ast.Mode, src ast.Cell, ownerFrame uint64) (ast.Cell, error) {
	h.UpGarbageSema()
	defer h.DownGarbageSema()
	return deepCopy(h, mode, src, ownerFrame)
}

func deepCopy(h *heap.Heap, mode *ast.Mode, src ast.Cell, ownerFrame uint64) (ast.Cell, error) {
	if !src.IsInitialised() {
		return src, nil
	}
	switch mode.Tag {
	case ast.ModeStruct:
		ref, ok := src.V.(ast.Ref)
		if !ok {
			return ast.Cell{}, fmt.Errorf("expected struct ref")
		}
		b, err := h.Deref(ref)
		if err != nil {
			return ast.Cell{}, err
		}
		sv, ok := b.Payload.(*StructValue)
		if !ok {
			return ast.Cell{}, fmt.Errorf("corrupt struct block")
		}
		newFields := make([]ast.Cell, len(sv.Fields))
		for i, f := range mode.Fields {
			cp, err := deepCopy(h, f.Mode, sv.Fields[i], ownerFrame)
			if err != nil {
				return ast.Cell{}, err
			}
			newFields[i] = cp
		}
		newRef, err := h.Allocate(mode, len(newFields), &StructValue{Fields: newFields})
		if err != nil {
			return ast.Cell{}, err
		}
		return ast.Of(newRef), nil

	case ast.ModeUnion:
		ref, ok := src.V.(ast.Ref)
		if !ok {
			return ast.Cell{}, fmt.Errorf("expected union ref")
		}
		b, err := h.Deref(ref)
		if err != nil {
			return ast.Cell{}, err
		}
		uv, ok := b.Payload.(*UnionValue)
		if !ok {
			return ast.Cell{}, fmt.Errorf("corrupt union block")
		}
		payload, err := deepCopy(h, uv.ActiveMode, uv.Payload, ownerFrame)
		if err != nil {
			return ast.Cell{}, err
		}
		newRef, err := h.Allocate(mode, 0, &UnionValue{ActiveMode: uv.ActiveMode, Payload: payload})
		if err != nil {
			return ast.Cell{}, err
		}
		return ast.Of(newRef), nil

	case ast.ModeRow, ast.ModeFlexRow, ast.ModeString:
		ref, ok := src.V.(ast.Ref)
		if !ok {
			return ast.Cell{}, fmt.Errorf("expected row ref")
		}
		srcDesc, err := Load(h, ref)
		if err != nil {
			return ast.Cell{}, err
		}
		bounds := make([]Bound, srcDesc.Dims)
		for i, t := range srcDesc.Tuples {
			bounds[i] = Bound{Lower: t.Lower, Upper: t.Upper}
		}
		newRef, newDesc, err := New(h, srcDesc.ElemMode, srcDesc.Flex, bounds, ownerFrame)
		if err != nil {
			return ast.Cell{}, err
		}
		srcCells, err := Backing(h, srcDesc)
		if err != nil {
			return ast.Cell{}, err
		}
		dstCells, err := Backing(h, newDesc)
		if err != nil {
			return ast.Cell{}, err
		}
		size := GetRowSize(srcDesc.Tuples)
		for i := 0; i < size; i++ {
			cp, err := deepCopy(h, srcDesc.ElemMode, srcCells[srcDesc.SliceOffset+i], ownerFrame)
			if err != nil {
				return ast.Cell{}, err
			}
			dstCells[i] = cp
		}
		return ast.Of(newRef), nil

	default:
		return src, nil
	}
}

// DeepAssign assigns src into the existing destination named by
// destRef, following the same mode-directed descent as DeepCopy but
// reusing dest's storage when shapes allow. For FLEX destinations the
// element block is reallocated to match source's extent (spec.md
// §4.4); for non-FLEX destinations source's bounds must match dest's
// exactly or ErrDifferentBounds is raised.
func DeepAssign(h *heap.Heap, mode *ast.Mode, destRef ast.Ref, src ast.Cell, ownerFrame uint64) error {
	h.UpGarbageSema()
	defer h.DownGarbageSema()

	switch mode.Tag {
	case ast.ModeStruct:
		destB, err := h.Deref(destRef)
		if err != nil {
			return err
		}
		dv, ok := destB.Payload.(*StructValue)
		if !ok {
			return fmt.Errorf("corrupt struct block")
		}
		srcRef, ok := src.V.(ast.Ref)
		if !ok {
			return fmt.Errorf("expected struct ref")
		}
		srcB, err := h.Deref(srcRef)
		if err != nil {
			return err
		}
		sv, ok := srcB.Payload.(*StructValue)
		if !ok {
			return fmt.Errorf("corrupt struct block")
		}
		for i, f := range mode.Fields {
			if err := assignField(h, f.Mode, &dv.Fields[i], sv.Fields[i], ownerFrame); err != nil {
				return err
			}
		}
		return nil

	case ast.ModeUnion:
		destB, err := h.Deref(destRef)
		if err != nil {
			return err
		}
		dv, ok := destB.Payload.(*UnionValue)
		if !ok {
			return fmt.Errorf("corrupt union block")
		}
		srcRef, ok := src.V.(ast.Ref)
		if !ok {
			return fmt.Errorf("expected union ref")
		}
		srcB, err := h.Deref(srcRef)
		if err != nil {
			return err
		}
		sv, ok := srcB.Payload.(*UnionValue)
		if !ok {
			return fmt.Errorf("corrupt union block")
		}
		dv.ActiveMode = sv.ActiveMode
		cp, err := deepCopy(h, sv.ActiveMode, sv.Payload, ownerFrame)
		if err != nil {
			return err
		}
		dv.Payload = cp
		return nil

	case ast.ModeRow, ast.ModeFlexRow, ast.ModeString:
		destDesc, err := Load(h, destRef)
		if err != nil {
			return err
		}
		srcRef, ok := src.V.(ast.Ref)
		if !ok {
			return fmt.Errorf("expected row ref")
		}
		srcDesc, err := Load(h, srcRef)
		if err != nil {
			return err
		}
		if destDesc.Flex {
			bounds := make([]Bound, srcDesc.Dims)
			for i, t := range srcDesc.Tuples {
				bounds[i] = Bound{Lower: t.Lower, Upper: t.Upper}
			}
			newBackingSize := GetRowSize(srcDesc.Tuples)
			newCells := make([]ast.Cell, newBackingSize)
			backingRef, err := h.Allocate(&ast.Mode{Tag: ast.ModeRow, SubMode: srcDesc.ElemMode, Dimensions: 1}, newBackingSize, newCells)
			if err != nil {
				return err
			}
			destDesc.Tuples = boundsToTuples(bounds)
			destDesc.SliceOffset = 0
			destDesc.Backing = backingRef
		} else {
			if !sameShape(destDesc.Tuples, srcDesc.Tuples) {
				return &ErrDifferentBounds{Dest: destDesc.Tuples, Src: srcDesc.Tuples}
			}
		}
		dstCells, err := Backing(h, destDesc)
		if err != nil {
			return err
		}
		srcCells, err := Backing(h, srcDesc)
		if err != nil {
			return err
		}
		size := GetRowSize(srcDesc.Tuples)
		for i := 0; i < size; i++ {
			cp, err := deepCopy(h, srcDesc.ElemMode, srcCells[srcDesc.SliceOffset+i], ownerFrame)
			if err != nil {
				return err
			}
			dstCells[destDesc.SliceOffset+i] = cp
		}
		return nil

	default:
		destB, err := h.Deref(destRef)
		_ = destB
		_ = err
		return fmt.Errorf("DeepAssign called on non-stowed mode %s; use a plain cell store", mode)
	}
}

func assignField(h *heap.Heap, mode *ast.Mode, dest *ast.Cell, src ast.Cell, ownerFrame uint64) error {
	switch mode.Tag {
	case ast.ModeStruct, ast.ModeUnion, ast.ModeRow, ast.ModeFlexRow, ast.ModeString:
		if destRef, ok := dest.V.(ast.Ref); ok && !destRef.IsNil() {
			return DeepAssign(h, mode, destRef, src, ownerFrame)
		}
		cp, err := deepCopy(h, mode, src, ownerFrame)
		if err != nil {
			return err
		}
		*dest = cp
		return nil
	default:
		*dest = src
		return nil
	}
}

func boundsToTuples(bounds []Bound) []Tuple {
	tuples := make([]Tuple, len(bounds))
	span := 1
	for i := len(bounds) - 1; i >= 0; i-- {
		b := bounds[i]
		tuples[i] = Tuple{Lower: b.Lower, Upper: b.Upper, Span: span, Shift: b.Lower}
		span *= tuples[i].Count()
	}
	return tuples
}

func sameShape(a, b []Tuple) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Lower != b[i].Lower || a[i].Upper != b[i].Upper {
			return false
		}
	}
	return true
}
