// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// tqn is a timer-queue node: a process (or an ALT's timeout guard)
// parked until a deadline. The original lays TQN and Batch out as
// overlapping C unions sharing one allocation pool; Go's GC removes the
// motivation for that trick (see DESIGN.md), so tqn gets its own
// scheduler-local free-list instead.
type tqn struct {
	time  int64 // deadline, nanoseconds, comparable against clock.NowNanos
	next  *tqn
	prev  *tqn
	isAlt bool
	// wptr is *Workspace packed into an atomix.Uintptr: 0 once
	// resolved/cancelled. Plain field access would race for an ALT node,
	// since a channel partner on another scheduler can call cancel
	// concurrently with this node's own owner expiring it.
	wptr atomix.Uintptr
}

// timerQueue is a doubly linked list ordered ascending by deadline,
// private to its owning scheduler; only the owner walks or inserts into
// it. Peers may only cancel an ALT node, and only via an atomic CAS
// null-swap on wptr (see (*tqn).cancel).
type timerQueue struct {
	head, tail *tqn
	free       *tqn
}

func (tq *timerQueue) allocate() *tqn {
	if n := tq.free; n != nil {
		tq.free = n.next
		*n = tqn{}
		return n
	}
	return &tqn{}
}

func (tq *timerQueue) release(n *tqn) {
	n.wptr.StoreRelease(0)
	n.next = tq.free
	n.prev = nil
	tq.free = n
}

func (tq *timerQueue) isEmpty() bool {
	return tq.head == nil
}

// insert walks from head to find the ordered position for deadline and
// links a freshly allocated (or recycled) node there. Returns
// the node so the caller can register it as an ALT guard.
func (tq *timerQueue) insert(deadline int64, w *Workspace, isAlt bool) *tqn {
	n := tq.allocate()
	n.time = deadline
	n.wptr.StoreRelease(workspaceToUintptr(w))
	n.isAlt = isAlt

	var prev *tqn
	cur := tq.head
	for cur != nil && cur.time <= deadline {
		prev = cur
		cur = cur.next
	}
	n.prev = prev
	n.next = cur
	if prev != nil {
		prev.next = n
	} else {
		tq.head = n
	}
	if cur != nil {
		cur.prev = n
	} else {
		tq.tail = n
	}
	return n
}

func (tq *timerQueue) unlink(n *tqn) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		tq.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		tq.tail = n.prev
	}
}

// cancel is the only operation a non-owning scheduler may perform on a
// timer queue: CAS nil into the node's wptr. A true return means this
// caller won the race and is responsible (through triggerAltGuard) for
// resuming the process; the owning scheduler later reclaims the node
// during a walk or cleanTimerQueue, observing wptr already nil. Losing
// the CAS (someone else cleared it first) always means the race was
// lost, so there is nothing to retry.
func (n *tqn) cancel() (won bool, prev *Workspace) {
	sw := spin.Wait{}
	for {
		p := n.wptr.LoadAcquire()
		if p == 0 {
			return false, nil
		}
		if n.wptr.CompareAndSwapAcqRel(p, 0) {
			return true, uintptrToWorkspace(p)
		}
		sw.Once()
	}
}

// expiredHead reports the current head's deadline and whether it has
// passed now, or whether it is already resolved (null wptr) and can be
// reclaimed regardless of deadline.
func (tq *timerQueue) expiredHead(now int64) (n *tqn, expired bool) {
	n = tq.head
	if n == nil {
		return nil, false
	}
	if n.wptr.LoadAcquire() == 0 {
		return n, true
	}
	return n, n.time <= now
}

// headDeadline returns the earliest pending deadline and whether one
// exists, for arming the interval timer.
func (tq *timerQueue) headDeadline() (int64, bool) {
	if tq.head == nil {
		return 0, false
	}
	return tq.head.time, true
}

// cleanTimerQueue releases any already-resolved (null-wptr) nodes,
// typically those an ALT winner cancelled out from under the queue,
// returning them to the free-list for reuse.
func (tq *timerQueue) cleanTimerQueue() {
	n := tq.head
	for n != nil {
		next := n.next
		if n.wptr.LoadAcquire() == 0 {
			tq.unlink(n)
			tq.release(n)
		}
		n = next
	}
}
