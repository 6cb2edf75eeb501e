// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

import (
	"testing"
	"time"
)

// newTestScheduler registers a fresh scheduler at the lowest sidx (from 1)
// that no currently registered scheduler holds, and arranges for every
// global bit-set it touches to be cleared again on cleanup.
func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	sidx := -1
	for i := 1; i < maxSchedulers; i++ {
		if !global.enabled.Test(i) {
			sidx = i
			break
		}
	}
	if sidx < 0 {
		t.Fatal("newTestScheduler: every scheduler index is in use")
	}
	s, err := NewScheduler(sidx, 1)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	t.Cleanup(func() {
		global.unregister(sidx)
		global.idle.Clear(sidx)
		global.sleeping.Clear(sidx)
	})
	return s
}

func TestSchedulerEnqueueFastPath(t *testing.T) {
	s := newTestScheduler(t)
	s.cbch = &Batch{}
	w := &Workspace{Priofinity: s.priofinity}

	s.enqueue(w)

	if got := s.cbch.Count(); got != 1 {
		t.Fatalf("a same-priofinity enqueue with a live cbch should join it directly, Count() = %d, want 1", got)
	}
}

func TestSchedulerEnqueueFarHigherPriority(t *testing.T) {
	s := newTestScheduler(t)
	s.cbch = &Batch{}
	s.priofinity = NewPriofinity(5, 0)
	s.dispatches = 10
	w := &Workspace{Priofinity: NewPriofinity(1, 0)}

	s.enqueue(w)

	if !s.rq[1].hasQueuedBatches() && (s.rq[1].pending == nil || s.rq[1].pending.IsEmpty()) {
		t.Fatal("a higher-priority far enqueue should land in that priority's run-queue")
	}
	if s.dispatches != 0 {
		t.Fatal("a strictly higher-priority arrival should force dispatches to 0 so Run reschedules promptly")
	}
}

func TestSchedulerPickBatchLowestPriorityFirst(t *testing.T) {
	s := newTestScheduler(t)
	low := &Batch{priofinity: NewPriofinity(10, 0)}
	low.PushTail(&Workspace{})
	high := &Batch{priofinity: NewPriofinity(2, 0)}
	high.PushTail(&Workspace{})

	s.rq[10].publish(low)
	s.rqstate.set(10)
	s.rq[2].publish(high)
	s.rqstate.set(2)

	got := s.pickBatch()
	if got != high {
		t.Fatal("pickBatch should prefer the lowest-numbered (highest-urgency) non-empty priority")
	}
	if s.rqstate.isEmpty() {
		t.Fatal("priority 10's bit should remain set: its batch is still queued")
	}
}

func TestSchedulerPickBatchClearsEmptiedRqstate(t *testing.T) {
	s := newTestScheduler(t)
	b := &Batch{priofinity: NewPriofinity(4, 0)}
	b.PushTail(&Workspace{})
	s.rq[4].publish(b)
	s.rqstate.set(4)

	s.pickBatch()

	if !s.rqstate.isEmpty() {
		t.Fatal("popping the only batch at a priority should clear its rqstate bit")
	}
}

func TestSchedulerPushCurrentBatchRepublishes(t *testing.T) {
	s := newTestScheduler(t)
	b := &Batch{priofinity: NewPriofinity(7, 0)}
	b.PushTail(&Workspace{})
	s.cbch = b

	s.pushCurrentBatch()

	if s.cbch != nil {
		t.Fatal("pushCurrentBatch should clear cbch")
	}
	got := s.rq[7].popBatch()
	if got != b {
		t.Fatal("pushCurrentBatch should republish the non-empty current batch onto its priority's run-queue")
	}
}

func TestSchedulerPushCurrentBatchSkipsEmpty(t *testing.T) {
	s := newTestScheduler(t)
	s.cbch = &Batch{priofinity: NewPriofinity(3, 0)}

	s.pushCurrentBatch()

	if s.rq[3].hasQueuedBatches() {
		t.Fatal("pushCurrentBatch should not republish an empty batch")
	}
}

func TestSchedulerEndOfBatchSplitsLargeRemainder(t *testing.T) {
	s := newTestScheduler(t)
	b := &Batch{priofinity: NewPriofinity(6, 0)}
	for i := 0; i < 4; i++ {
		b.PushTail(&Workspace{})
	}
	s.cbch = b

	s.endOfBatch()

	if s.cbch != nil {
		t.Fatal("endOfBatch should clear a batch it does not resurrect: either to nil (empty) or via pushCurrentBatch")
	}
	if s.mwstate.LoadAcquire() == 0 && !s.rq[6].hasQueuedBatches() {
		t.Fatal("splitting a 4-process batch should publish a head batch somewhere stealable or queued")
	}
}

func TestSchedulerEndOfBatchReleasesEmptyBatch(t *testing.T) {
	s := newTestScheduler(t)
	s.cbch = &Batch{}

	s.endOfBatch()

	if s.cbch != nil {
		t.Fatal("an empty cbch should be released, not republished")
	}
}

func TestSchedulerEndOfBatchResurrectsRepopulatedEmptiedBatch(t *testing.T) {
	s := newTestScheduler(t)
	b := &Batch{priofinity: NewPriofinity(5, 0)}
	b.SetEmptied()
	b.PushTail(&Workspace{}) // drainSync landed fresh work on it via the fast path
	s.cbch = b

	s.endOfBatch()

	if s.cbch != b {
		t.Fatal("an emptied batch repopulated with no higher-priority work pending should be resurrected in place")
	}
}

func TestSchedulerEndOfBatchDoesNotResurrectWhenHigherPriorityWaits(t *testing.T) {
	s := newTestScheduler(t)
	b := &Batch{priofinity: NewPriofinity(5, 0)}
	b.SetEmptied()
	b.PushTail(&Workspace{})
	s.cbch = b

	urgent := &Batch{priofinity: NewPriofinity(1, 0)}
	urgent.PushTail(&Workspace{})
	s.rq[1].publish(urgent)
	s.rqstate.set(1)

	s.endOfBatch()

	if s.cbch == b {
		t.Fatal("an emptied batch should not be resurrected while higher-priority work is queued")
	}
}

func TestSchedulerPushBatchAdjustsDispatches(t *testing.T) {
	s := newTestScheduler(t)
	s.priofinity = NewPriofinity(10, 0)
	s.dispatches = 50
	b := &Batch{priofinity: NewPriofinity(2, 0)}

	s.pushBatch(b)

	if s.dispatches != 0 {
		t.Fatal("absorbing a higher-priority batch via bmail should force an immediate reschedule")
	}
	if s.rq[2].popBatch() != b {
		t.Fatal("pushBatch should publish the batch at its own embedded priority")
	}
}

func TestSchedulerDrainBmailPmail(t *testing.T) {
	s := newTestScheduler(t)
	b := &Batch{priofinity: NewPriofinity(1, 0)}
	b.PushTail(&Workspace{})
	if err := s.bmail.send(b); err != nil {
		t.Fatalf("bmail.send: %v", err)
	}
	s.drainBmail()
	if s.rq[1].popBatch() != b {
		t.Fatal("drainBmail should have pushed the received batch onto the run-queue")
	}

	w := &Workspace{Priofinity: NewPriofinity(9, 0)}
	if err := s.pmail.send(w); err != nil {
		t.Fatalf("pmail.send: %v", err)
	}
	s.drainPmail()
	if s.rq[9].pending == nil || s.rq[9].pending.Count() != 1 {
		t.Fatal("drainPmail should have enqueued the received workspace")
	}
}

func TestSchedulerSendToPeerRoutesThroughPmail(t *testing.T) {
	local := newTestScheduler(t)
	peer := newTestScheduler(t)

	w := &Workspace{Priofinity: NewPriofinity(0, 1 << uint(peer.sidx))}
	local.sendToPeer(w)

	got, err := peer.pmail.recv()
	if err != nil {
		t.Fatalf("peer.pmail.recv: %v", err)
	}
	if got != w {
		t.Fatal("sendToPeer should route w into the affinity-selected peer's pmail")
	}
}

func TestSchedulerMigrateSomeWorkStealsFromPeer(t *testing.T) {
	local := newTestScheduler(t)
	peer := newTestScheduler(t)

	b := &Batch{priofinity: NewPriofinity(0, 0)}
	b.PushTail(&Workspace{})
	peer.publishToWindow(b)

	got := local.migrateSomeWork()
	if got != b {
		t.Fatal("migrateSomeWork should steal the batch published to a peer's migration window")
	}
}

func TestSchedulerMigrateSomeWorkNoPeers(t *testing.T) {
	s := newTestScheduler(t)
	if got := s.migrateSomeWork(); got != nil {
		t.Fatal("migrateSomeWork with no other enabled schedulers should return nil")
	}
}

func TestSchedulerAllTimerQueuesEmpty(t *testing.T) {
	s := newTestScheduler(t)
	if !s.allTimerQueuesEmpty() {
		t.Fatal("a scheduler with no pending timers should report all timer queues empty")
	}
	s.timers.insert(1, &Workspace{}, false)
	if s.allTimerQueuesEmpty() {
		t.Fatal("a pending timer should be observed by allTimerQueuesEmpty")
	}
}

func TestSchedulerQuiescent(t *testing.T) {
	s := newTestScheduler(t)
	if !s.quiescent() {
		t.Fatal("a fresh scheduler should be quiescent")
	}

	s.cbch = &Batch{}
	if s.quiescent() {
		t.Fatal("a non-nil cbch should not be quiescent")
	}
	s.cbch = nil

	s.rqstate.set(3)
	if s.quiescent() {
		t.Fatal("a set rqstate bit should not be quiescent")
	}
	s.rqstate.clear(3)

	s.timers.insert(1, &Workspace{}, false)
	if s.quiescent() {
		t.Fatal("a pending timer should not be quiescent")
	}
}

func TestSchedulerRunReturnsOnShutdownOnceQuiescent(t *testing.T) {
	defer func() { global.shutdown.StoreRelease(false) }()

	s := newTestScheduler(t)
	processRan := false
	w := &Workspace{}
	w.IPtr = func(w *Workspace) {
		processRan = true
		Shutdown()
	}
	s.enqueue(w)

	done := make(chan struct{})
	go func() {
		s.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run should have returned once the scheduler went quiescent after Shutdown")
	}

	if !processRan {
		t.Fatal("the seeded process should have run before shutdown took effect")
	}
	if global.enabled.Test(s.sidx) {
		t.Fatal("Run returning on shutdown should have unregistered the scheduler")
	}
}

func TestSchedulerRunDetectsDeadlock(t *testing.T) {
	originalExit := exit
	defer func() { exit = originalExit }()
	exitCode := -1
	exit = func(code int) {
		exitCode = code
		panic("slick-test-deadlock-exit")
	}

	s := newTestScheduler(t)
	processRan := false
	w := &Workspace{}
	w.IPtr = func(w *Workspace) {
		processRan = true // terminates without re-enqueuing: the batch runs dry
	}
	s.enqueue(w)

	func() {
		defer func() {
			r := recover()
			if r != "slick-test-deadlock-exit" {
				t.Fatalf("Run() panic = %v, want the deadlock exit sentinel", r)
			}
		}()
		s.Run()
		t.Fatal("Run should never return normally")
	}()

	if !processRan {
		t.Fatal("the seeded process should have run exactly once before the pool went quiescent")
	}
	if exitCode != 1 {
		t.Fatalf("exit code = %d, want 1", exitCode)
	}
}
