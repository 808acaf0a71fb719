// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ringq provides a bounded lock-free MPMC message queue built
// from two cooperating index rings and a fixed payload array.
//
// The queue implements the single-width-CAS variant of the SCQ (Scalable
// Circular Queue) algorithm by Nikolaev (DISC 2019). A queue of capacity
// 2^order owns two [Ring] instances over the same index space: a free
// ring of writable payload slots and a ready ring of slots holding a
// value. Send moves an index free→ready around a payload write, Recv
// moves it ready→free around a payload read. Because an index lives in
// at most one ring at a time, the payload array needs no lock.
//
// # Quick Start
//
//	tx, rx := ringq.New[Event](10) // capacity 1024
//
//	// Send (non-blocking)
//	if err := tx.Send(ev); ringq.IsWouldBlock(err) {
//	    // Queue is full - handle backpressure
//	}
//
//	// Recv (non-blocking)
//	ev, err := rx.Recv()
//	if ringq.IsWouldBlock(err) {
//	    // Queue is empty - try again later
//	}
//
// # Handles
//
// [Sender] and [Receiver] are cheap shared views over one queue. Copy or
// Clone them freely to give every producer and consumer goroutine its
// own handle; all handles observe the same queue, and the queue is
// reclaimed when the last handle becomes unreachable.
//
//	tx, rx := ringq.New[Task](8)
//
//	for range numProducers {
//	    go func(tx ringq.Sender[Task]) {
//	        backoff := iox.Backoff{}
//	        for task := range tasks {
//	            for tx.Send(task) != nil {
//	                backoff.Wait()
//	            }
//	            backoff.Reset()
//	        }
//	    }(tx.Clone())
//	}
//
//	for range numConsumers {
//	    go func(rx ringq.Receiver[Task]) {
//	        backoff := iox.Backoff{}
//	        for {
//	            task, err := rx.Recv()
//	            if err != nil {
//	                backoff.Wait()
//	                continue
//	            }
//	            backoff.Reset()
//	            task.Execute()
//	        }
//	    }(rx.Clone())
//	}
//
// # Standalone Ring
//
// [Ring] is exported for index-addressed pools: a filled ring is a
// lock-free free list over [0, Cap()).
//
//	pool := make([][]byte, 1<<10)
//	free := ringq.NewRing(10)
//	free.Fill()
//
//	idx, err := free.Dequeue() // allocate a slot
//	buf := pool[idx]
//	...
//	free.Enqueue(idx) // release it
//
// Ring.Enqueue is infallible but bounded by contract: the caller must
// keep the number of outstanding indices at or below Cap(). The
// free/ready pairing inside the queue guarantees this by construction.
//
// # Ordering Guarantees
//
// Send/Recv never block and never park the caller; full and empty are
// reported, not waited upon. No global FIFO order is promised across
// concurrent producers or consumers. The hard guarantees are safety
// properties: no value is lost, no value is delivered twice, and a
// payload slot is never read before its write completed.
//
// An empty report from Recv is a heuristic under contention: the ring's
// threshold counter may conservatively report empty while a concurrent
// Send is in flight. Treat ErrWouldBlock as "try again later", never as
// a permanent state. Layer blocking or timeouts outside the queue with
// an external wait primitive if needed.
//
// # Capacity
//
// Capacity is fixed at construction as 1<<order. The rings keep twice
// that many physical cells so every cell can carry a cycle tag next to
// its index (ABA safety across wrap-arounds). Orders outside [0, 30]
// panic at construction time.
//
// Length is intentionally not provided because accurate counts in
// lock-free algorithms require expensive cross-core synchronization.
// Track counts in application logic when needed.
//
// # Error Handling
//
// Operations return [ErrWouldBlock] when they cannot proceed. This error
// is sourced from [code.hybscloud.com/iox] for ecosystem consistency.
//
//	backoff := iox.Backoff{}
//	for {
//	    err := tx.Send(msg)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if !ringq.IsWouldBlock(err) {
//	        return err // Unexpected error
//	    }
//	    backoff.Wait()
//	}
//
// # Race Detection
//
// Go's race detector is not designed for lock-free algorithm
// verification. It tracks explicit synchronization primitives (mutex,
// channels, WaitGroup) but cannot observe happens-before relationships
// established through atomic memory orderings (acquire-release
// semantics). The queue protects its payload array through cycle-tagged
// cells with acquire-release semantics; the algorithm is correct, but
// the race detector may report false positives because it cannot track
// synchronization provided by atomic operations on separate variables.
//
// Tests incompatible with race detection are excluded via //go:build
// !race or skip themselves when RaceEnabled is set.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause
// instructions.
package ringq
