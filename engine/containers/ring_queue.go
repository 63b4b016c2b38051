package containers

import "errors"

var ErrQueueFull = errors.New("queue is full")
var ErrQueueEmpty = errors.New("queue is empty")

type RingQueue[T any] struct {
	data       []T
	size       int
	readIndex  int
	writeIndex int
	count      int
}

// Create a new RingQueue
func NewRingQueue[T any](size int) *RingQueue[T] {
	return &RingQueue[T]{
		data: make([]T, size),
		size: size,
	}
}

// Enqueue adds an element to the queue
func (rq *RingQueue[T]) Enqueue(value T) error {
	if rq.IsFull() {
		return ErrQueueFull
	}

	rq.data[rq.writeIndex] = value
	rq.writeIndex = (rq.writeIndex + 1) % rq.size
	rq.count++
	return nil
}

// Dequeue removes and returns the front element in the queue
func (rq *RingQueue[T]) Dequeue() (T, error) {
	var zero T
	if rq.IsEmpty() {
		return zero, ErrQueueEmpty
	}

	value := rq.data[rq.readIndex]
	rq.data[rq.readIndex] = zero
	rq.readIndex = (rq.readIndex + 1) % rq.size
	rq.count--
	return value, nil
}

// Peek returns the front element without removing it
func (rq *RingQueue[T]) Peek() (T, error) {
	var zero T
	if rq.IsEmpty() {
		return zero, ErrQueueEmpty
	}
	return rq.data[rq.readIndex], nil
}

// At returns the i-th element counted from the front, without removing it.
// The caller must guarantee 0 <= i < Len().
func (rq *RingQueue[T]) At(i int) T {
	return rq.data[(rq.readIndex+i)%rq.size]
}

// Erase removes the i-th element counted from the front, preserving the
// order of the remaining elements.
func (rq *RingQueue[T]) Erase(i int) {
	var zero T
	for j := i; j < rq.count-1; j++ {
		rq.data[(rq.readIndex+j)%rq.size] = rq.data[(rq.readIndex+j+1)%rq.size]
	}
	rq.writeIndex = (rq.writeIndex - 1 + rq.size) % rq.size
	rq.data[rq.writeIndex] = zero
	rq.count--
}

// OffsetCapacity grows the backing storage by extra slots. Elements keep
// their FIFO order. The queue never shrinks.
func (rq *RingQueue[T]) OffsetCapacity(extra int) {
	data := make([]T, rq.size+extra)
	for i := 0; i < rq.count; i++ {
		data[i] = rq.data[(rq.readIndex+i)%rq.size]
	}
	rq.data = data
	rq.size += extra
	rq.readIndex = 0
	rq.writeIndex = rq.count % rq.size
}

// Swap exchanges the contents of the two queues.
func (rq *RingQueue[T]) Swap(other *RingQueue[T]) {
	*rq, *other = *other, *rq
}

// Clear removes all elements. Capacity is kept.
func (rq *RingQueue[T]) Clear() {
	var zero T
	for i := 0; i < rq.size; i++ {
		rq.data[i] = zero
	}
	rq.readIndex = 0
	rq.writeIndex = 0
	rq.count = 0
}

// Len returns the number of queued elements
func (rq *RingQueue[T]) Len() int {
	return rq.count
}

// IsEmpty checks if the queue is empty
func (rq *RingQueue[T]) IsEmpty() bool {
	return rq.count == 0
}

// IsFull checks if the queue is full
func (rq *RingQueue[T]) IsFull() bool {
	return rq.count == rq.size
}
