// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringq

// ringQueue is a bounded MPMC queue of values built from two index rings
// and a payload array. The free ring holds indices of writable payload
// slots, the ready ring holds indices of slots carrying a value. Send
// moves an index free→ready around a payload write, Recv moves it
// ready→free around a payload read.
//
// The payload array is accessed without a lock. This is sound because an
// index lives in at most one ring at a time and both rings together with
// the in-flight Send/Recv calls always hold each of the 1<<order indices
// exactly once: a slot is written only after its index left the free
// ring and read only after its index left the ready ring, so no two
// goroutines ever touch the same slot concurrently and no slot is read
// before its write completed. The release CAS installing an index in
// Enqueue, paired with the acquire load that observes it in Dequeue,
// orders the payload access on both sides.
type ringQueue[T any] struct {
	free  *Ring
	ready *Ring
	data  []T
}

func (q *ringQueue[T]) send(msg T) error {
	idx, err := q.free.Dequeue()
	if err != nil {
		return ErrWouldBlock
	}
	q.data[idx] = msg
	// We hold exactly one free slot index, so by the index conservation
	// bound this enqueue cannot fail.
	q.ready.Enqueue(idx)
	return nil
}

func (q *ringQueue[T]) recv() (T, error) {
	var zero T
	idx, err := q.ready.Dequeue()
	if err != nil {
		return zero, ErrWouldBlock
	}
	msg := q.data[idx]
	q.data[idx] = zero // release referenced objects to the GC
	q.free.Enqueue(idx)
	return msg, nil
}

// Sender is the producer handle of a queue created by New.
//
// Sender is a cheap value: copy it or Clone it to give additional
// producer goroutines their own handle to the same queue. The queue
// stays alive as long as any handle does.
type Sender[T any] struct {
	q *ringQueue[T]
}

// Send adds msg to the queue (non-blocking).
// Returns ErrWouldBlock if the queue is full.
//
// Safe for concurrent use from any number of goroutines.
func (s Sender[T]) Send(msg T) error {
	return s.q.send(msg)
}

// Clone returns a new handle sharing the same underlying queue.
func (s Sender[T]) Clone() Sender[T] {
	return Sender[T]{q: s.q}
}

// Cap returns the queue capacity.
func (s Sender[T]) Cap() int {
	return len(s.q.data)
}

// Receiver is the consumer handle of a queue created by New.
//
// Receiver is a cheap value: copy it or Clone it to give additional
// consumer goroutines their own handle to the same queue. The queue
// stays alive as long as any handle does.
type Receiver[T any] struct {
	q *ringQueue[T]
}

// Recv removes and returns a value from the queue (non-blocking).
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
//
// An empty report is a heuristic under contention: a concurrent Send may
// be in flight. Retry rather than treating it as a permanent state.
//
// Safe for concurrent use from any number of goroutines.
func (r Receiver[T]) Recv() (T, error) {
	return r.q.recv()
}

// Clone returns a new handle sharing the same underlying queue.
func (r Receiver[T]) Clone() Receiver[T] {
	return Receiver[T]{q: r.q}
}

// Cap returns the queue capacity.
func (r Receiver[T]) Cap() int {
	return len(r.q.data)
}

// New creates a bounded MPMC queue with capacity 1<<order and returns a
// producer and a consumer handle sharing it. The payload array starts
// zero-valued, the free ring starts holding every slot index and the
// ready ring starts empty.
//
// Panics if order is outside [0, 30].
//
// Example:
//
//	tx, rx := ringq.New[Event](10) // capacity 1024
//
//	// producers
//	go func(tx ringq.Sender[Event]) { ... }(tx.Clone())
//
//	// consumers
//	go func(rx ringq.Receiver[Event]) { ... }(rx.Clone())
func New[T any](order int) (Sender[T], Receiver[T]) {
	q := &ringQueue[T]{
		free:  NewRing(order),
		ready: NewRing(order),
		data:  make([]T, uint64(1)<<order),
	}
	q.free.Fill()
	return Sender[T]{q: q}, Receiver[T]{q: q}
}
