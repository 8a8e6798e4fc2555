package rows

// Iterator walks every multi-index of a descriptor in row-major order,
// maintaining a per-tuple cursor (spec.md §4.4: "maintain a k cursor
// per tuple in iteration order; increment from the innermost, wrapping
// to the lower bound on carry"). Kept as a value distinct from
// Descriptor itself (spec.md §9 design note: "Separate data... from
// iteration state; the iterator is a distinct object to enable
// parallel walks over the same descriptor").
type Iterator struct {
	tuples []Tuple
	cursor []int
	done   bool
	size   int
}

// NewIterator starts a fresh walk over d, positioned before the first
// index.
func NewIterator(d *Descriptor) *Iterator {
	cursor := make([]int, d.Dims)
	for i, t := range d.Tuples {
		cursor[i] = t.Lower
	}
	size := GetRowSize(d.Tuples)
	return &Iterator{tuples: d.Tuples, cursor: cursor, done: size == 0, size: size}
}

// Next returns the current multi-index and advances the cursor,
// wrapping the innermost dimension first and carrying outward. ok is
// false once every index has been produced.
func (it *Iterator) Next() (index []int, ok bool) {
	if it.done {
		return nil, false
	}
	index = make([]int, len(it.cursor))
	copy(index, it.cursor)

	for k := len(it.cursor) - 1; k >= 0; k-- {
		it.cursor[k]++
		if it.cursor[k] <= it.tuples[k].Upper {
			return index, true
		}
		it.cursor[k] = it.tuples[k].Lower
		if k == 0 {
			it.done = true
		}
	}
	return index, true
}
