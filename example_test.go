// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !race

// This file contains examples that use atomix concurrency primitives.
// These trigger false positives with Go's race detector because atomix
// atomic operations appear as regular memory accesses to the detector.
// The examples are correct; they're excluded from race testing.

package ringq_test

import (
	"fmt"
	"sync"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/ringq"
)

// ExampleNew demonstrates a basic bounded queue used as a pipeline stage.
func ExampleNew() {
	// Capacity 1<<3 = 8
	tx, rx := ringq.New[int](3)

	// Producer sends 5 values
	for i := 1; i <= 5; i++ {
		tx.Send(i * 10)
	}

	// Consumer receives values
	for range 5 {
		v, _ := rx.Recv()
		fmt.Println(v)
	}

	// Output:
	// 10
	// 20
	// 30
	// 40
	// 50
}

// ExampleSender_Clone demonstrates multiple producers sharing one queue
// through cloned handles.
func ExampleSender_Clone() {
	tx, rx := ringq.New[string](4)

	var wg sync.WaitGroup
	for p := range 3 {
		wg.Add(1)
		go func(id int, tx ringq.Sender[string]) {
			defer wg.Done()
			backoff := iox.Backoff{}
			msg := fmt.Sprintf("msg from producer %d", id)
			for tx.Send(msg) != nil {
				backoff.Wait()
			}
		}(p, tx.Clone())
	}

	// Wait for producers then consume
	wg.Wait()

	for {
		msg, err := rx.Recv()
		if err != nil {
			break
		}
		fmt.Println(msg)
	}

	// Unordered output:
	// msg from producer 0
	// msg from producer 1
	// msg from producer 2
}

// ExampleNewRing demonstrates a standalone Ring as the free list of an
// index-addressed buffer pool.
func ExampleNewRing() {
	pool := make([][]byte, 4)
	for i := range pool {
		pool[i] = make([]byte, 64)
	}

	free := ringq.NewRing(2)
	free.Fill() // all 4 indices start available

	// Allocate a slot
	idx, _ := free.Dequeue()
	buf := pool[idx]
	n := copy(buf, "hello")
	fmt.Println(string(buf[:n]))

	// Release it
	free.Enqueue(idx)

	// Output:
	// hello
}
