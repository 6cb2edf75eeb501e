// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

import (
	"math/rand"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/slick/internal/clock"
	"code.hybscloud.com/slick/internal/wakepipe"
	"code.hybscloud.com/spin"
)

// sync bits, ORed into a scheduler's sync word by producers (mail
// senders, the SIGALRM handler, a peer's wake call).
const (
	syncTime     uint64 = 1 << 0
	syncBmail    uint64 = 1 << 1
	syncPmail    uint64 = 1 << 2
	syncTQ       uint64 = 1 << 3
	syncShutdown uint64 = 1 << 4
)

// loopState mirrors four scheduler states.
type loopState int

const (
	running loopState = iota
	dispatching
	paused
	sleepingState
)

// idleSpinRevolution is how many idle_cpu PAUSE spins make up one
// "revolution" before the laundry sweep/trim runs again.
const idleSpinRevolution = 16

// Scheduler is the per-thread structure. Its fields are grouped in the
// same order as the C runtime's record layout, with no padding between
// the groups: thread identity
// and spin calibration; hot local dispatch state; per-priority
// run-queues; shared hot atomics (sync, mwstate, mailboxes); per-priority
// migration windows.
type Scheduler struct {
	// --- identity / calibration ---
	sidx int
	spin int64 // calibrated idle_cpu spin count, see calibrateSpin
	pipe *wakepipe.Pipe

	// --- hot local state ---
	cbch       *Batch
	dispatches int
	priofinity Priofinity
	loop       int64
	rqstate    rqstateBits
	pool       batchPool
	timers     timerQueue
	state      loopState

	// --- per-priority run-queues ---
	rq [numPriorities]runQueue

	// --- shared hot atomics ---
	sync    atomix.Uint64
	mwstate atomix.Uint64 // bitmap of priorities with a non-empty migration window
	bmail   *mailbox[*Batch]
	pmail   *mailbox[*Workspace]

	// --- per-priority migration windows ---
	windows [numPriorities]migrationWindow
}

// NewScheduler constructs and registers a scheduler at index sidx. cpus is
// the detected CPU count, used for spin calibration.
func NewScheduler(sidx int, cpus int) (*Scheduler, error) {
	p, err := wakepipe.New()
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		sidx:  sidx,
		pipe:  p,
		bmail: newMailbox[*Batch](mailboxCapacity),
		pmail: newMailbox[*Workspace](mailboxCapacity),
	}
	s.calibrateSpin(cpus)
	global.register(sidx, s)
	return s, nil
}

// calibrateSpin times 10000 idle_cpu spins and derives a spin count
// targeting 16µs of busy-wait before a thread parks, or the
// SLICKSCHEDULERSPIN microsecond target when that is set. Single-CPU
// machines skip spinning.
func (s *Scheduler) calibrateSpin(cpus int) {
	if cpus < 2 {
		s.spin = 0
		return
	}
	const probes = 10000
	start := clock.NowNanos()
	sw := spin.Wait{}
	for i := 0; i < probes; i++ {
		sw.Once()
	}
	elapsed := clock.NowNanos() - start
	if elapsed <= 0 {
		elapsed = 1
	}
	const targetUs = 16
	s.spin = targetUs * 1000 * probes / elapsed
	if override, ok := spinOverrideFromEnv(); ok {
		s.spin = override * probes / elapsed
	}
	if s.spin < 0 {
		s.spin = 0
	}
}

// Ldtimer returns the current monotonic time in nanoseconds.
func (s *Scheduler) Ldtimer() int64 { return clock.NowNanos() }

// ------------------------------------------------------------------
// Enqueue / dispatch
// ------------------------------------------------------------------

// enqueue is the fast local path: a workspace destined
// for this scheduler's own priofinity joins the current batch directly.
// Anything else routes through enqueueFar.
func (s *Scheduler) enqueue(w *Workspace) {
	if w.Priofinity == s.priofinity && s.cbch != nil {
		s.cbch.PushTail(w)
		return
	}
	s.enqueueFar(w)
}

// enqueueFar implements three branches: no affinity,
// affinity including this scheduler, and affinity excluding it (which
// routes the workspace to a peer's pmail instead of a local queue).
func (s *Scheduler) enqueueFar(w *Workspace) {
	aff := w.Priofinity.Affinity()
	if aff != 0 && !w.Priofinity.AllowsScheduler(s.sidx) {
		s.sendToPeer(w)
		return
	}

	pr := w.Priofinity.Priority()
	rq := &s.rq[pr]
	// appendLocal itself publishes the outgoing pending batch first if its
	// priofinity doesn't match w's.
	rq.appendLocal(&s.pool, w)
	s.rqstate.set(pr)

	if int(pr) < int(s.priofinity.Priority()) {
		// Higher priority (lower number) than what's running: force an
		// early reschedule at the next dispatch check.
		s.dispatches = 0
	}
}

// sendToPeer picks a random enabled scheduler allowed by w's affinity
// mask and routes w through that peer's pmail — the only path a
// workspace whose affinity excludes this scheduler can take.
func (s *Scheduler) sendToPeer(w *Workspace) {
	target := s.pickAffineTarget(w.Priofinity)
	if target == nil {
		fatal("slick: affinity mask excludes all enabled threads")
		return
	}
	if err := target.pmail.send(w); err != nil {
		fatal("slick: pmail saturated on scheduler %d: %v", target.sidx, err)
		return
	}
	target.wake(syncPmail)
}

// pickAffineTarget chooses a uniformly random enabled scheduler allowed
// by pf's affinity mask. Returns nil if none qualify (fatal condition).
func (s *Scheduler) pickAffineTarget(pf Priofinity) *Scheduler {
	aff := pf.Affinity()
	var candidates []*Scheduler
	global.forEachEnabled(func(sidx int, sched *Scheduler) {
		if aff == 0 || pf.AllowsScheduler(sidx) {
			candidates = append(candidates, sched)
		}
	})
	if len(candidates) == 0 {
		return nil
	}
	return candidates[rand.Intn(len(candidates))]
}

// deschedule parks w (already linked into a channel word or timer queue)
// and hands control back to the dispatch loop to find the next process.
// In this Go rendering there is no C-stack to longjmp back into: the
// calling Entry simply returns, and Run resumes the loop.
func (s *Scheduler) deschedule(w *Workspace) {
	// w is already owned by whatever structure called deschedule
	// (channel word, TQN); nothing further to do here but return control.
}

// pickBatch implements batch selection: lowest-numbered
// non-empty rqstate bit, pull its head batch (publishing the pending batch
// first when nothing else is queued at that priority), and if that batch
// carries a stale migration-window stamp, clear it now that it's back in
// local hands.
func (s *Scheduler) pickBatch() *Batch {
	for {
		pr := s.rqstate.lowestSet()
		if pr < 0 {
			return nil
		}
		rq := &s.rq[pr]
		if !rq.hasQueuedBatches() {
			rq.publishPending(&s.pool)
		}
		if !rq.hasQueuedBatches() {
			s.rqstate.clear(uint8(pr))
			continue
		}
		b := rq.popBatch()
		if !rq.hasQueuedBatches() && (rq.pending == nil || rq.pending.IsEmpty()) {
			s.rqstate.clear(uint8(pr))
		}
		if idx := b.windowIndex(); idx != 0 {
			b.markClean()
		}
		return b
	}
}

// pushCurrentBatch saves cbch back onto its priority's run-queue (used at
// end-of-batch when dispatches run out but work remains).
func (s *Scheduler) pushCurrentBatch() {
	if s.cbch == nil || s.cbch.IsEmpty() {
		return
	}
	pr := s.cbch.priofinity.Priority()
	s.rq[pr].publish(s.cbch)
	s.rqstate.set(pr)
	s.cbch = nil
}

// endOfBatch runs the split-and-publish rule: split off a new batch when
// ≥2 processes remain past the dispatch budget, else keep the whole
// remainder as one.
//
// A batch that ran dry mid-dispatch carries the sticky EMPTIED flag. If
// drainSync delivered fresh work onto it in the meantime (the same-priofinity
// fast path in enqueue can do this) and nothing more urgent is waiting, it's
// resurrected in place rather than cycled through pushCurrentBatch/pickBatch.
func (s *Scheduler) endOfBatch() {
	if s.cbch == nil {
		return
	}
	if s.cbch.IsEmptied() && s.cbch.Count() > 0 {
		if pr := s.rqstate.lowestSet(); pr < 0 || uint8(pr) >= s.cbch.priofinity.Priority() {
			return
		}
	}
	if s.cbch.IsEmpty() {
		s.pool.releaseClean(s.cbch)
		s.cbch = nil
		return
	}
	if s.cbch.Count() >= 2 {
		head := s.cbch.Split(&s.pool, s.cbch.Count()/2)
		s.publishToWindow(head)
	}
	s.pushCurrentBatch()
}

// publishToWindow exposes b to the migration window for its priority,
// unless it carries affinity (affine batches stay local-only).
func (s *Scheduler) publishToWindow(b *Batch) {
	if b.priofinity.Affinity() != 0 {
		s.rq[b.priofinity.Priority()].publish(b)
		s.rqstate.set(b.priofinity.Priority())
		return
	}
	pr := b.priofinity.Priority()
	s.windows[pr].publish(b)
	s.markWindowNonEmpty(pr)
}

func (s *Scheduler) markWindowNonEmpty(pr uint8) {
	sw := spin.Wait{}
	for {
		old := s.mwstate.LoadAcquire()
		if old&(1<<pr) != 0 {
			return
		}
		if s.mwstate.CompareAndSwapAcqRel(old, old|(1<<pr)) {
			return
		}
		sw.Once()
	}
}

// ------------------------------------------------------------------
// Migration (work stealing)
// ------------------------------------------------------------------

// migrateSomeWork walks active peers (enabled minus sleeping), skips
// ones with an empty mwstate, and tries the newest non-empty window on
// each, highest priority first.
func (s *Scheduler) migrateSomeWork() *Batch {
	var peers []*Scheduler
	eLo, eHi := global.enabled.Load()
	sLo, sHi := global.sleeping.Load()
	activeLo, activeHi := eLo&^sLo, eHi&^sHi
	for i := 0; i < 64; i++ {
		if activeLo&(1<<uint(i)) != 0 {
			if p := global.schedulerAt(i); p != nil && p != s {
				peers = append(peers, p)
			}
		}
	}
	for i := 0; i < 64; i++ {
		if activeHi&(1<<uint(i)) != 0 {
			if p := global.schedulerAt(64 + i); p != nil && p != s {
				peers = append(peers, p)
			}
		}
	}
	if len(peers) == 0 {
		return nil
	}
	offset := s.sidx % 4
	for pi := 0; pi < len(peers); pi++ {
		peer := peers[(pi+offset)%len(peers)]
		mws := peer.mwstate.LoadAcquire()
		if mws == 0 {
			continue
		}
		for pr := 0; pr < numPriorities; pr++ {
			if mws&(1<<uint(pr)) == 0 {
				continue
			}
			if b, ok := peer.windows[pr].steal(); ok {
				if peer.windows[pr].isEmpty() {
					s.clearPeerWindowBit(peer, uint8(pr))
				}
				return b
			}
		}
	}
	return nil
}

func (s *Scheduler) clearPeerWindowBit(peer *Scheduler, pr uint8) {
	sw := spin.Wait{}
	for {
		old := peer.mwstate.LoadAcquire()
		if old&(1<<pr) == 0 {
			return
		}
		if peer.windows[pr].isEmpty() && peer.mwstate.CompareAndSwapAcqRel(old, old&^(1<<pr)) {
			return
		}
		sw.Once()
	}
}

// ------------------------------------------------------------------
// Sync / mail draining
// ------------------------------------------------------------------

// drainSync consumes the scheduler's sync word and services whatever
// bits it announces.
func (s *Scheduler) drainSync() {
	bits := s.sync.LoadAcquire()
	if bits == 0 {
		return
	}
	if !s.sync.CompareAndSwapAcqRel(bits, 0) {
		// A concurrent OR raced us; re-read next iteration rather than
		// risk dropping a freshly-set bit.
		return
	}
	if bits&syncTime != 0 {
		s.checkTimerQueue()
	}
	if bits&syncBmail != 0 {
		s.drainBmail()
	}
	if bits&syncPmail != 0 {
		s.drainPmail()
	}
	if bits&syncTQ != 0 {
		s.timers.cleanTimerQueue()
		s.checkTimerQueue()
	}
}

func (s *Scheduler) drainBmail() {
	for {
		b, err := s.bmail.recv()
		if err != nil {
			return
		}
		s.pushBatch(b)
	}
}

func (s *Scheduler) drainPmail() {
	for {
		w, err := s.pmail.recv()
		if err != nil {
			return
		}
		s.enqueue(w)
	}
}

// pushBatch absorbs a whole batch received via bmail, preserving its
// embedded priofinity.
func (s *Scheduler) pushBatch(b *Batch) {
	pr := b.priofinity.Priority()
	s.rq[pr].publish(b)
	s.rqstate.set(pr)
	if pr < s.priofinity.Priority() {
		s.dispatches = 0
	}
}

// ------------------------------------------------------------------
// Timer queue integration
// ------------------------------------------------------------------

// checkTimerQueue walks the timer queue, resuming every node whose
// deadline has passed or whose ALT guard already lost the race.
func (s *Scheduler) checkTimerQueue() {
	now := clock.NowNanos()
	for {
		n, expired := s.timers.expiredHead(now)
		if n == nil || !expired {
			break
		}
		s.timers.unlink(n)
		if n.wptr.LoadAcquire() == 0 {
			s.timers.release(n)
			continue
		}
		if !n.isAlt {
			w := uintptrToWorkspace(n.wptr.LoadAcquire())
			w.Timef = now
			s.timers.release(n)
			s.enqueue(w)
			continue
		}
		n.time = now
		won, w := n.cancel()
		s.timers.release(n)
		if won && w != nil {
			if triggerAltGuard(w) {
				s.enqueue(w)
			}
		}
	}
	if deadline, ok := s.timers.headDeadline(); ok {
		armTimer(deadline - now)
	}
}

// ------------------------------------------------------------------
// Wake / sleep
// ------------------------------------------------------------------

// wake ORs bit into the target's sync word, clears its sleeping flag,
// and — only if the target was actually sleeping — writes its wake
// pipe.
func (s *Scheduler) wake(bit uint64) {
	wasSleeping := global.sleeping.Test(s.sidx)
	sw := spin.Wait{}
	for {
		old := s.sync.LoadAcquire()
		if s.sync.CompareAndSwapAcqRel(old, old|bit) {
			break
		}
		sw.Once()
	}
	global.sleeping.Clear(s.sidx)
	if wasSleeping {
		_ = s.pipe.Wake()
	}
}

// safePause blocks on the wake pipe until a peer sets sync non-zero.
func (s *Scheduler) safePause() {
	s.state = paused
	_ = s.pipe.Wait()
	s.state = dispatching
}

// Run is the scheduler's main loop. It returns once Shutdown has been
// called and this scheduler has gone quiescent (empty run-queues, mail,
// and timer queue); short of that it runs until a fatal condition (e.g.
// deadlock) calls exit.
func (s *Scheduler) Run() {
	s.state = dispatching
	idleSpins := int64(0)
	for {
		s.drainSync()

		if s.cbch == nil || s.dispatches <= 0 {
			s.endOfBatch()
			if s.cbch == nil {
				s.cbch = s.pickBatch()
			}
			if s.cbch != nil {
				s.priofinity = s.cbch.priofinity
				s.dispatches = calculateDispatches(s.cbch.Count())
			}
		}

		if s.cbch == nil {
			if b := s.migrateSomeWork(); b != nil {
				s.cbch = b
				s.priofinity = b.priofinity
				s.dispatches = calculateDispatches(b.Count())
			}
		}

		if s.cbch == nil {
			if global.shutdown.LoadAcquire() && s.quiescent() {
				global.unregister(s.sidx)
				return
			}
			idleSpins++
			if idleSpins%idleSpinRevolution == 0 {
				s.pool.sweep()
				s.pool.trim(32)
			}
			if s.loop > 0 {
				s.loop--
				idleCPU()
				continue
			}
			global.sleeping.Set(s.sidx)
			if !s.timers.isEmpty() {
				s.safePause()
			} else {
				global.idle.Set(s.sidx)
				if global.deadlocked() && s.allTimerQueuesEmpty() {
					fatal("slick: deadlocked, no processes left")
				}
				s.safePause()
			}
			global.idle.Clear(s.sidx)
			global.sleeping.Clear(s.sidx)
			idleSpins = 0
			s.loop = s.spin
			continue
		}

		w := s.cbch.PopHead()
		if w == nil {
			s.cbch.SetEmptied()
			s.dispatches = 0
			continue
		}
		s.dispatches--
		s.state = running
		w.IPtr(w)
		s.state = dispatching
	}
}

// allTimerQueuesEmpty confirms no enabled scheduler (including s) has a
// pending timer, the second half of deadlock test.
func (s *Scheduler) allTimerQueuesEmpty() bool {
	empty := true
	global.forEachEnabled(func(_ int, sched *Scheduler) {
		if !sched.timers.isEmpty() {
			empty = false
		}
	})
	return empty
}

// quiescent reports whether s has no work of any kind left: no current
// or queued batch, no pending cross-thread mail, no outstanding timer.
// Consulted by Run's idle path once Shutdown has been requested.
func (s *Scheduler) quiescent() bool {
	return s.cbch == nil && s.rqstate.isEmpty() &&
		s.bmail.isEmpty() && s.pmail.isEmpty() && s.timers.isEmpty()
}
