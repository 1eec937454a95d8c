package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueue(t *testing.T) {
	rq := NewRingQueue[string](2)
	assert.True(t, rq.IsEmpty())

	_, err := rq.Dequeue()
	assert.ErrorIs(t, err, ErrQueueEmpty)

	require.NoError(t, rq.Enqueue("a"))
	require.NoError(t, rq.Enqueue("b"))
	assert.True(t, rq.IsFull())
	assert.ErrorIs(t, rq.Enqueue("c"), ErrQueueFull)
	assert.True(t, Contains(rq, "b"))
	assert.False(t, Contains(rq, "c"))

	v, err := rq.Peek()
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, _ = rq.Dequeue()
	assert.Equal(t, "a", v)
	require.NoError(t, rq.Enqueue("c"))
	v, _ = rq.Dequeue()
	assert.Equal(t, "b", v)
	v, _ = rq.Dequeue()
	assert.Equal(t, "c", v)
	assert.Equal(t, 0, rq.Len())
}

func TestSlotTableLowestFree(t *testing.T) {
	st := NewSlotTable[uint16, string](3)

	for i, name := range []string{"a", "b", "c"} {
		id, ok := st.Acquire(name)
		require.True(t, ok)
		assert.Equal(t, uint16(i), id)
	}
	_, ok := st.Acquire("d")
	assert.False(t, ok)

	assert.True(t, st.Release(1))
	assert.False(t, st.Release(1))
	assert.False(t, st.Release(7))

	id, ok := st.Acquire("e")
	require.True(t, ok)
	assert.Equal(t, uint16(1), id)

	owner, ok := st.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "e", owner)

	var seen []string
	st.Each(func(_ uint16, o string) { seen = append(seen, o) })
	assert.Equal(t, []string{"a", "e", "c"}, seen)
	assert.Equal(t, 3, st.Len())
	assert.Equal(t, 3, st.Cap())
}
