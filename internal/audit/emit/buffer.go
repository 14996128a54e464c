package emit

import "sync"

// ringBuffer is a bounded, thread-safe buffer for pending audit records.
// When full, the oldest records are dropped to make room for new ones: the
// pipeline sheds observability, never request latency.
type ringBuffer struct {
	mu       sync.Mutex
	records  []Record
	head     int // next write position
	tail     int // next read position
	count    int
	capacity int

	dropped int64
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity <= 0 {
		capacity = 10000
	}
	return &ringBuffer{
		records:  make([]Record, capacity),
		capacity: capacity,
	}
}

// Enqueue adds a record, dropping the oldest if necessary.
// Returns true when an old record was dropped to make room.
func (b *ringBuffer) Enqueue(record Record) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	droppedOne := false
	if b.count >= b.capacity {
		b.tail = (b.tail + 1) % b.capacity
		b.count--
		b.dropped++
		droppedOne = true
	}

	b.records[b.head] = record
	b.head = (b.head + 1) % b.capacity
	b.count++
	return droppedOne
}

// DequeueBatch removes up to n records from the buffer.
func (b *ringBuffer) DequeueBatch(n int) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	result := make([]Record, n)
	for i := 0; i < n; i++ {
		result[i] = b.records[b.tail]
		b.tail = (b.tail + 1) % b.capacity
	}
	b.count -= n
	return result
}

// Len returns the current number of buffered records.
func (b *ringBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Dropped returns the total number of dropped records.
func (b *ringBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
