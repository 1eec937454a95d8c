package containers

import "golang.org/x/exp/constraints"

// SlotTable hands out the lowest free index of a fixed capacity table.
// Acquire is a linear scan; the tables this backs are small.
type SlotTable[I constraints.Unsigned, T any] struct {
	owners []T
	used   []bool
	count  int
}

func NewSlotTable[I constraints.Unsigned, T any](capacity int) *SlotTable[I, T] {
	return &SlotTable[I, T]{
		owners: make([]T, capacity),
		used:   make([]bool, capacity),
	}
}

// Acquire stores owner in the first free slot. ok is false when the table is full.
func (st *SlotTable[I, T]) Acquire(owner T) (id I, ok bool) {
	for i := range st.used {
		// Existing free spot. Take it.
		if !st.used[i] {
			st.used[i] = true
			st.owners[i] = owner
			st.count++
			return I(i), true
		}
	}
	return 0, false
}

// Release frees the slot. It returns false if id is out of range or already free.
func (st *SlotTable[I, T]) Release(id I) bool {
	if uint64(id) >= uint64(len(st.used)) || !st.used[id] {
		return false
	}
	var zero T
	st.owners[id] = zero
	st.used[id] = false
	st.count--
	return true
}

func (st *SlotTable[I, T]) Get(id I) (T, bool) {
	if uint64(id) >= uint64(len(st.used)) || !st.used[id] {
		var zero T
		return zero, false
	}
	return st.owners[id], true
}

// Each visits every used slot in index order.
func (st *SlotTable[I, T]) Each(fn func(id I, owner T)) {
	for i := range st.used {
		if st.used[i] {
			fn(I(i), st.owners[i])
		}
	}
}

func (st *SlotTable[I, T]) Len() int {
	return st.count
}

func (st *SlotTable[I, T]) Cap() int {
	return len(st.used)
}
