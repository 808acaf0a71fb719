// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringq

import (
	"math/bits"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Ring is a lock-free bounded ring buffer of slot indices.
//
// Based on the single-width-CAS variant of the SCQ (Scalable Circular
// Queue) algorithm by Nikolaev (DISC 2019). A Ring with order k holds up
// to 2^k indices in 2^(k+1) physical cells; the doubled cell space lets
// every cell carry a cycle tag next to its index, which disambiguates
// reuses of the same cell across wrap-arounds (ABA safety).
//
// Each cell is a single atomic word, either the empty sentinel or an
// encoded (cycle, index) pair. Head and tail are independent monotonic
// counters on separate cache lines; wrap-around is implicit in the
// counter arithmetic. A signed threshold counter short-circuits Dequeue
// on rings believed drained (see Dequeue).
//
// Ring moves indices, not payloads. Pair one Ring of free slot indices
// with one Ring of ready slot indices to build a queue of values (this
// is what New does), or use a filled Ring standalone as the free list
// of an index-addressed pool:
//
//	pool := make([][]byte, 1<<10)
//	free := ringq.NewRing(10)
//	free.Fill() // all 1024 indices start available
//
//	idx, err := free.Dequeue() // allocate
//	...
//	free.Enqueue(idx) // release
type Ring struct {
	_         pad
	head      atomix.Uint64 // Consumer position (FAA)
	_         pad
	tail      atomix.Uint64 // Producer position (FAA)
	_         pad
	threshold atomix.Int64 // Fast-empty heuristic for Dequeue
	_         pad
	cells     []atomix.Uint64
	order     uint
	half      uint64 // 1<<order, logical capacity
	full      uint64 // 1<<(order+1), physical cells
}

const (
	// Conservative 128-byte cache-line assumption for SMP targets;
	// remapping and padding only mitigate contention, they are not
	// required for correctness.
	cachelineShift = 7

	// Smallest order at which one cache line holds a full stride of
	// cells. Below it cacheRemap degrades to the identity mapping.
	ringMinOrder = cachelineShift - 1 - bits.UintSize/32

	// maxOrder bounds cell and payload allocation to int range on all
	// supported platforms.
	maxOrder = 30

	// emptyCell marks a cell that carries no index. As a cycle tag it
	// reads as one generation before cycle zero, so freshly created
	// cells are immediately installable.
	emptyCell = ^uint64(0)

	// deqRetryBudget bounds how long Dequeue polls a cell whose
	// enqueuer is still in flight before forcing it to resolved-empty.
	// Tunable; trades emptiness precision for bounded spin time.
	deqRetryBudget = 3000
)

// NewRing creates an empty Ring with capacity 1<<order.
// Panics if order is outside [0, 30].
func NewRing(order int) *Ring {
	if order < 0 || order > maxOrder {
		panic("ringq: order must be in [0, 30]")
	}

	r := &Ring{
		cells: make([]atomix.Uint64, uint64(1)<<(order+1)),
		order: uint(order),
		half:  uint64(1) << order,
		full:  uint64(1) << (order + 1),
	}

	for i := range r.cells {
		r.cells[i].StoreRelaxed(emptyCell)
	}
	r.threshold.StoreRelaxed(-1)

	return r
}

// Fill populates the ring with every index in [0, Cap()), overwriting any
// current content. Not safe for concurrent use; call before sharing the
// ring between goroutines.
func (r *Ring) Fill() {
	for n := uint64(0); n < r.half; n++ {
		r.cells[cacheRemap(n, r.full, r.order+1)].StoreRelaxed(
			cacheRemap(r.full+n, r.half, r.order))
	}
	for n := r.half; n < r.full; n++ {
		r.cells[cacheRemap(n, r.full, r.order+1)].StoreRelaxed(emptyCell)
	}
	r.head.StoreRelaxed(0)
	r.tail.StoreRelaxed(r.half)
	r.threshold.StoreRelaxed(int64(r.half + r.full - 1))
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return int(r.half)
}

// Enqueue adds an index to the ring.
//
// Enqueue always succeeds, so the caller must keep the number of
// outstanding indices at or below Cap(). The free/ready pairing in New
// guarantees this by construction: an index can only re-enter a ring
// after leaving the other one. Violating the bound corrupts the ring.
//
// idx must be below Cap().
func (r *Ring) Enqueue(idx uint64) {
	half, full := r.half, r.full
	eidx := idx ^ (full - 1)

	sw := spin.Wait{}
	for {
		tail := r.tail.AddAcqRel(1) - 1
		tcycle := (tail << 1) | (2*full - 1)
		tidx := cacheRemap(tail, full, r.order+1)
		entry := r.cells[tidx].LoadAcquire()

		for {
			ecycle := entry | (2*full - 1)
			// The cell is reusable when its cycle is behind ours and
			// it is either empty at that cycle, or empty one
			// generation back with head not yet past our position.
			busy := int64(ecycle-tcycle) >= 0 ||
				(entry != ecycle &&
					(entry != ecycle^full || int64(r.head.LoadAcquire()-tail) > 0))
			if busy {
				break // claim a new tail position
			}
			if r.cells[tidx].CompareAndSwapAcqRel(entry, tcycle^eidx) {
				// Restore the steady-state threshold if dequeuers
				// have been draining it down.
				thr := int64(half + full - 1)
				if r.threshold.LoadRelaxed() != thr {
					r.threshold.StoreRelaxed(thr)
				}
				return
			}
			entry = r.cells[tidx].LoadAcquire()
		}
		sw.Once()
	}
}

// Dequeue removes and returns an index from the ring.
// Returns (0, ErrWouldBlock) if the ring is, or is believed to be, empty.
//
// The emptiness report is a heuristic, not a linearizable check: under
// contention Dequeue may return ErrWouldBlock while a concurrent Enqueue
// is in flight. Treat it as "try again later", never as a fixed state.
func (r *Ring) Dequeue() (uint64, error) {
	if r.threshold.LoadRelaxed() < 0 {
		return 0, ErrWouldBlock
	}

	full := r.full
	sw := spin.Wait{}
	for {
		head := r.head.AddAcqRel(1) - 1
		hcycle := (head << 1) | (2*full - 1)
		hidx := cacheRemap(head, full, r.order+1)
		attempt := 0

	poll:
		for {
			entry := r.cells[hidx].LoadAcquire()
			for {
				ecycle := entry | (2*full - 1)
				if ecycle == hcycle {
					// Consume: set the index bits, keep the cycle.
					r.consume(hidx, full-1)
					return entry & (full - 1), nil
				}

				var next uint64
				if entry|full != ecycle {
					// Stale occupied cell: clear its safe bit so a
					// lagging enqueuer will not reuse it.
					next = entry &^ full
					if entry == next {
						break
					}
				} else {
					// Empty cell whose enqueuer may be in flight:
					// poll up to the retry budget, then force it to
					// resolved-empty rather than spin unboundedly.
					attempt++
					if attempt <= deqRetryBudget {
						continue poll
					}
					next = hcycle ^ (^entry & full)
				}

				if int64(ecycle-hcycle) >= 0 {
					break
				}
				if r.cells[hidx].CompareAndSwapAcqRel(entry, next) {
					break
				}
				entry = r.cells[hidx].LoadAcquire()
			}

			// Nothing ready at this position. If tail has not moved
			// past us the ring has drained: reconcile tail and report
			// empty. Otherwise burn threshold and try a new position.
			tail := r.tail.LoadAcquire()
			if int64(tail-(head+1)) <= 0 {
				r.catchup(tail, head+1)
				r.threshold.AddAcqRel(-1)
				return 0, ErrWouldBlock
			}
			if r.threshold.AddAcqRel(-1) <= 0 {
				return 0, ErrWouldBlock
			}
			break poll
		}
		sw.Once()
	}
}

// consume marks the cell at hidx empty by OR-ing the index bits into it.
func (r *Ring) consume(hidx, bits uint64) {
	c := &r.cells[hidx]
	for {
		entry := c.LoadRelaxed()
		if c.CompareAndSwapAcqRel(entry, entry|bits) {
			return
		}
	}
}

// catchup advances tail up to an observed head position after Dequeue
// detected a drained ring.
func (r *Ring) catchup(tail, head uint64) {
	for !r.tail.CompareAndSwapAcqRel(tail, head) {
		tail = r.tail.LoadRelaxed()
		head = r.head.LoadAcquire()
		if int64(tail-head) >= 0 {
			break
		}
	}
}

// cacheRemap maps a logical ring position to a physical cell position,
// interleaving low sequence bits as the cache-line stride and high bits
// as the cache-line index. Consecutive positions land on different cache
// lines, so FAA-claimed neighbors do not bounce the same line between
// cores. Any bijection preserves correctness; rings smaller than one
// cache-line stride use the identity mapping.
func cacheRemap(pos, limit uint64, order uint) uint64 {
	if order <= ringMinOrder {
		return pos & (limit - 1)
	}
	return ((pos & (limit - 1)) >> (order - ringMinOrder)) |
		((pos << ringMinOrder) & (limit - 1))
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte
