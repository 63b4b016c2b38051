package jobs

// The pool grows by this many slots whenever an allocation finds it full.
// It never shrinks.
const poolGrowChunk = 64

// A fixed-budget object pool of job records. Slots are addressed by index;
// freed indices are recycled LIFO. All calls happen with the scheduler lock
// held (or in single-threaded mode).
type jobPool struct {
	items []jobItem
	free  []uint32
}

func (p *jobPool) full() bool {
	return len(p.free) == 0
}

func (p *jobPool) offsetCapacity(extra int) {
	base := len(p.items)
	items := make([]jobItem, base+extra)
	copy(items, p.items)
	p.items = items
	for i := base + extra - 1; i >= base; i-- {
		p.free = append(p.free, uint32(i))
	}
}

// alloc pops a free slot index. The caller must have grown the pool if it
// was full; allocation failure is a fatal condition, not a recoverable one.
func (p *jobPool) alloc() uint32 {
	n := len(p.free)
	index := p.free[n-1]
	p.free = p.free[:n-1]
	return index
}

func (p *jobPool) release(index uint32) {
	p.free = append(p.free, index)
}

// get returns the record at index, or nil when the index is out of range.
// Callers must still compare the record's generation against the handle's.
func (p *jobPool) get(index uint32) *jobItem {
	if int(index) >= len(p.items) {
		return nil
	}
	return &p.items[index]
}
