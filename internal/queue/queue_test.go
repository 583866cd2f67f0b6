package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Vehicle string
	Seq     int
}

func TestQueue_PushAndDrain(t *testing.T) {
	q := New[sample]()
	assert.True(t, q.Empty())

	q.Push(sample{"v1", 1}, sample{"v2", 1})
	q.Push(sample{"v1", 2})
	assert.False(t, q.Empty())
	assert.Equal(t, 3, q.Len())

	items := q.GetAndEmpty()
	assert.Equal(t, []sample{{"v1", 1}, {"v2", 1}, {"v1", 2}}, items)
	assert.True(t, q.Empty())
	assert.Empty(t, q.GetAndEmpty())
}

func TestQueue_DrainedSliceIsNotReused(t *testing.T) {
	q := New[int]()
	q.Push(1, 2)
	items := q.GetAndEmpty()

	q.Push(3)
	assert.Equal(t, []int{1, 2}, items)
}

func TestBounded_DropsOldest(t *testing.T) {
	q := NewBounded[int](3)
	q.Push(1, 2)
	q.Push(3, 4, 5)

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 2, q.Dropped())
	assert.Equal(t, []int{3, 4, 5}, q.GetAndEmpty())
}

func TestBounded_NonPositiveCapacityIsUnbounded(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		q := NewBounded[int](capacity)
		q.Push(make([]int, 100)...)
		assert.Equal(t, 100, q.Len())
		assert.Zero(t, q.Dropped())
	}
}

func TestPushFront_KeepsOrder(t *testing.T) {
	q := New[int]()
	q.Push(4, 5)
	q.PushFront(1, 2, 3)
	q.PushFront()

	assert.Equal(t, []int{1, 2, 3, 4, 5}, q.GetAndEmpty())
}

func TestPushFront_BoundedDropsOldest(t *testing.T) {
	q := NewBounded[int](3)
	q.Push(4, 5)
	q.PushFront(1, 2, 3)

	assert.Equal(t, 2, q.Dropped())
	assert.Equal(t, []int{3, 4, 5}, q.GetAndEmpty())
}

func TestQueue_ConcurrentPushAndDrain(t *testing.T) {
	q := New[int]()
	const writers, perWriter = 8, 250

	var wg sync.WaitGroup
	var mu sync.Mutex
	drained := 0
	for w := 0; w < writers; w++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				q.Push(i)
			}
		}()
		go func() {
			defer wg.Done()
			n := len(q.GetAndEmpty())
			mu.Lock()
			drained += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, writers*perWriter, drained+q.Len())
}
