// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !race

// Worker-pool composition test: the queue feeds consumers running on a
// goroutine pool, the pattern documented in doc.go. Excluded from race
// detection like the other concurrent queue tests (see doc.go).

package ringq_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/ringq"
	"github.com/panjf2000/ants/v2"
)

// TestWorkerPoolRoundTrip submits jobs through a Sender and drains them
// with consumers scheduled on an ants pool. Every job must be executed
// exactly once.
func TestWorkerPoolRoundTrip(t *testing.T) {
	const (
		numWorkers = 4
		numJobs    = 2000
		order      = 5
		timeout    = 10 * time.Second
	)

	pool, err := ants.NewPool(numWorkers)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Release()

	tx, rx := ringq.New[int](order)
	seen := make([]atomix.Int32, numJobs)

	var wg sync.WaitGroup
	var consumed atomix.Int64
	var timedOut atomix.Bool
	deadline := time.Now().Add(timeout)

	for range numWorkers {
		wg.Add(1)
		rx := rx.Clone()
		if err := pool.Submit(func() {
			defer wg.Done()
			backoff := iox.Backoff{}
			for consumed.Load() < numJobs {
				if time.Now().After(deadline) {
					timedOut.Store(true)
					return
				}
				v, err := rx.Recv()
				if err != nil {
					backoff.Wait()
					continue
				}
				backoff.Reset()
				seen[v].Add(1)
				consumed.Add(1)
			}
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	backoff := iox.Backoff{}
	for i := range numJobs {
		for tx.Send(i) != nil {
			if time.Now().After(deadline) {
				t.Fatal("timed out submitting jobs")
			}
			backoff.Wait()
		}
		backoff.Reset()
	}

	wg.Wait()

	if timedOut.Load() {
		t.Fatalf("timed out: consumed=%d", consumed.Load())
	}
	if consumed.Load() != numJobs {
		t.Fatalf("consumed: got %d, want %d", consumed.Load(), numJobs)
	}
	for i := range seen {
		if n := seen[i].Load(); n != 1 {
			t.Fatalf("job %d executed %d times, want 1", i, n)
		}
	}
}
