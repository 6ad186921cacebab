package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowEvictsOldest(t *testing.T) {
	w := newWindow[int](5)
	for i := 0; i < 6; i++ {
		w.Push(i)
	}
	assert.Equal(t, 5, w.Len())
	assert.Equal(t, []int{1, 2, 3, 4, 5}, w.All(), "oldest entry evicted, order preserved")
}

func TestWindowReadsAreCopies(t *testing.T) {
	w := newWindow[int](3)
	w.Push(1)
	w.Push(2)
	all := w.All()
	all[0] = 99
	assert.Equal(t, []int{1, 2}, w.All())
}

func TestWindowRecentAndLast(t *testing.T) {
	w := newWindow[int](10)
	_, ok := w.Last()
	assert.False(t, ok)

	for i := 1; i <= 4; i++ {
		w.Push(i)
	}
	assert.Equal(t, []int{3, 4}, w.Recent(2))
	assert.Equal(t, []int{1, 2, 3, 4}, w.Recent(99))
	last, ok := w.Last()
	assert.True(t, ok)
	assert.Equal(t, 4, last)
}
