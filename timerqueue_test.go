// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

import (
	"sync"
	"testing"
)

func TestTimerQueueInsertOrdersByDeadline(t *testing.T) {
	var tq timerQueue
	w1, w2, w3 := &Workspace{}, &Workspace{}, &Workspace{}

	tq.insert(30, w3, false)
	tq.insert(10, w1, false)
	tq.insert(20, w2, false)

	var order []int64
	for n := tq.head; n != nil; n = n.next {
		order = append(order, n.time)
	}
	want := []int64{10, 20, 30}
	if len(order) != len(want) {
		t.Fatalf("queue length = %d, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order[%d] = %d, want %d", i, order[i], want[i])
		}
	}
	if tq.tail.time != 30 {
		t.Fatalf("tail.time = %d, want 30", tq.tail.time)
	}
}

func TestTimerQueueUnlinkMiddle(t *testing.T) {
	var tq timerQueue
	n1 := tq.insert(1, &Workspace{}, false)
	n2 := tq.insert(2, &Workspace{}, false)
	n3 := tq.insert(3, &Workspace{}, false)

	tq.unlink(n2)

	if n1.next != n3 || n3.prev != n1 {
		t.Fatal("unlinking the middle node should splice its neighbours together")
	}
	if tq.head != n1 || tq.tail != n3 {
		t.Fatal("head/tail should be unaffected by unlinking a middle node")
	}
}

func TestTimerQueueExpiredHead(t *testing.T) {
	var tq timerQueue
	w := &Workspace{}
	tq.insert(100, w, false)

	if n, expired := tq.expiredHead(50); n == nil || expired {
		t.Fatal("a deadline in the future should not report expired")
	}
	if n, expired := tq.expiredHead(100); n == nil || !expired {
		t.Fatal("a deadline exactly at now should report expired")
	}
	if n, expired := tq.expiredHead(200); n == nil || !expired {
		t.Fatal("a deadline in the past should report expired")
	}
}

func TestTimerQueueExpiredHeadResolvedRegardlessOfDeadline(t *testing.T) {
	var tq timerQueue
	n := tq.insert(1<<62, &Workspace{}, true)
	n.cancel()

	got, expired := tq.expiredHead(0)
	if got != n || !expired {
		t.Fatal("a resolved (nil wptr) node should report expired regardless of its deadline")
	}
}

func TestTimerQueueHeadDeadline(t *testing.T) {
	var tq timerQueue
	if _, ok := tq.headDeadline(); ok {
		t.Fatal("empty queue should report no deadline")
	}
	tq.insert(50, &Workspace{}, false)
	tq.insert(10, &Workspace{}, false)
	d, ok := tq.headDeadline()
	if !ok || d != 10 {
		t.Fatalf("headDeadline() = (%d, %v), want (10, true)", d, ok)
	}
}

func TestTQNCancelRace(t *testing.T) {
	var tq timerQueue
	w := &Workspace{}
	n := tq.insert(10, w, true)

	won, prev := n.cancel()
	if !won || prev != w {
		t.Fatalf("first cancel: (%v, %p), want (true, %p)", won, prev, w)
	}

	won2, prev2 := n.cancel()
	if won2 || prev2 != nil {
		t.Fatal("second cancel on an already-resolved node should lose the race")
	}
}

// TestTQNCancelConcurrentRace pits the owning scheduler's natural timer
// expiry against a peer scheduler's guard cleanup, both racing to cancel
// the same node at once (the hazard a plain read-then-write on wptr used
// to allow): exactly one caller may observe won == true.
func TestTQNCancelConcurrentRace(t *testing.T) {
	for trial := 0; trial < 200; trial++ {
		var tq timerQueue
		w := &Workspace{}
		n := tq.insert(10, w, true)

		var wg sync.WaitGroup
		results := make(chan bool, 2)
		wg.Add(2)
		for i := 0; i < 2; i++ {
			go func() {
				defer wg.Done()
				won, prev := n.cancel()
				if won && prev != w {
					t.Error("a winning cancel should return the registered workspace")
				}
				results <- won
			}()
		}
		wg.Wait()
		close(results)

		wins := 0
		for won := range results {
			if won {
				wins++
			}
		}
		if wins != 1 {
			t.Fatalf("trial %d: %d concurrent cancellers won, want exactly 1", trial, wins)
		}
	}
}

func TestTimerQueueCleanTimerQueueReclaimsResolvedNodes(t *testing.T) {
	var tq timerQueue
	n1 := tq.insert(1, &Workspace{}, true)
	tq.insert(2, &Workspace{}, false)
	n1.cancel()

	tq.cleanTimerQueue()

	if tq.isEmpty() {
		t.Fatal("cleanTimerQueue should only remove resolved nodes, not every node")
	}
	for n := tq.head; n != nil; n = n.next {
		if n == n1 {
			t.Fatal("cleanTimerQueue should have unlinked the resolved node")
		}
	}
	if tq.free != n1 {
		t.Fatal("the resolved node should have been returned to the free-list")
	}
}

func TestTimerQueueAllocateReusesFreedNodes(t *testing.T) {
	var tq timerQueue
	n := tq.allocate()
	tq.release(n)
	n2 := tq.allocate()
	if n2 != n {
		t.Fatal("allocate should reuse a released node before growing")
	}
}
