package frame

import "sync"

// RingBuffer is a fixed-capacity frame history ordered oldest to
// newest. Inserting into a full buffer evicts the single oldest entry.
// A single mutex guards every operation; critical sections only touch
// index bookkeeping, which is cheap enough for the expected frame
// rates.
type RingBuffer struct {
	mu       sync.Mutex
	frames   []*Frame
	capacity int
	head     int // index of the oldest entry
	size     int
}

// NewRingBuffer creates a ring buffer holding at most capacity frames.
// Capacity values below one are coerced to one.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{
		frames:   make([]*Frame, capacity),
		capacity: capacity,
	}
}

// Add inserts a frame, evicting the oldest entry if the buffer is
// full. The buffer takes ownership of the frame; callers must not
// mutate it afterwards.
func (rb *RingBuffer) Add(f *Frame) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	tail := (rb.head + rb.size) % rb.capacity
	rb.frames[tail] = f
	if rb.size < rb.capacity {
		rb.size++
	} else {
		rb.head = (rb.head + 1) % rb.capacity
	}
}

// Get returns the frame at index, where 0 is the oldest retained
// entry. It returns nil when the index is out of range.
func (rb *RingBuffer) Get(index int) *Frame {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if index < 0 || index >= rb.size {
		return nil
	}
	return rb.frames[(rb.head+index)%rb.capacity]
}

// Latest returns the newest frame, or nil if the buffer is empty.
func (rb *RingBuffer) Latest() *Frame {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.size == 0 {
		return nil
	}
	return rb.frames[(rb.head+rb.size-1)%rb.capacity]
}

// ByNumber returns the retained frame with the given sequence number,
// or nil if it is not present. The scan runs newest to oldest since
// lookups skew heavily towards recent frames.
func (rb *RingBuffer) ByNumber(number int64) *Frame {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for i := rb.size - 1; i >= 0; i-- {
		f := rb.frames[(rb.head+i)%rb.capacity]
		if f != nil && f.Number == number {
			return f
		}
	}
	return nil
}

// Len returns the number of frames currently retained.
func (rb *RingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.size
}

// Cap returns the configured capacity.
func (rb *RingBuffer) Cap() int {
	return rb.capacity
}

// FillPercent returns how full the buffer is, in percent.
func (rb *RingBuffer) FillPercent() float64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return float64(rb.size) / float64(rb.capacity) * 100.0
}

// Clear discards all retained frames.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for i := range rb.frames {
		rb.frames[i] = nil
	}
	rb.head = 0
	rb.size = 0
}

// Numbers returns the sequence numbers of all retained frames, oldest
// first.
func (rb *RingBuffer) Numbers() []int64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	out := make([]int64, 0, rb.size)
	for i := 0; i < rb.size; i++ {
		out = append(out, rb.frames[(rb.head+i)%rb.capacity].Number)
	}
	return out
}

// Range returns the minimum and maximum retained sequence numbers. The
// third return value is false when the buffer is empty.
func (rb *RingBuffer) Range() (minNum, maxNum int64, ok bool) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.size == 0 {
		return 0, 0, false
	}
	oldest := rb.frames[rb.head]
	newest := rb.frames[(rb.head+rb.size-1)%rb.capacity]
	return oldest.Number, newest.Number, true
}
