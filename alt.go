// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

import (
	"code.hybscloud.com/slick/internal/clock"
	"code.hybscloud.com/spin"
)

// ALT state bits packed into Workspace.tstate: the low 61 bits count
// outstanding unresolved guards, the top 3 bits track the state machine
// (enabling, parked-waiting, not-yet-ready).
const (
	altGuardCountMask uint64 = 0x1FFFFFFFFFFFFFFF // low 61 bits: outstanding guard count
	altNotReady       uint64 = 1 << 61
	altWaiting        uint64 = 1 << 62
	altEnabling       uint64 = 1 << 63
)

// timeNotSet marks TLink unset for a timed ALT with no timer guard
// registered yet.
var timeNotSet = &tqn{time: -1}

// beginAlt initialises w for a guarded choice over guardCount guards.
// hasTimer sets TLink to the "not yet registered" sentinel so a later
// timer guard can tell it hasn't raced a cancel yet.
func beginAlt(w *Workspace, guardCount int, hasTimer bool) {
	w.setTState(altEnabling | altNotReady | uint64(guardCount))
	if hasTimer {
		w.TLink = timeNotSet
	}
}

// RegisterAltTimerGuard implements a timed ALT's timer-guard registration
// step: insert a TQN tagged as an ALT guard into sched's timer queue at
// deadline and record it in w.TLink, the timer-side counterpart of
// RegisterAltGuard's channel-word swap. A timer guard is never already
// satisfied at registration time (expiry is always discovered later by
// checkTimerQueue), so there is no partnerWasWaiting return.
func RegisterAltTimerGuard(sched *Scheduler, w *Workspace, deadline int64) {
	n := sched.timers.insert(deadline, w, true)
	w.TLink = n
	if sched.timers.head == n {
		armTimer(deadline - clock.NowNanos())
	}
}

// DeregisterAltTimerGuard implements the ALT winner's cleanup step for a
// timer guard: cancel the TQN so the owning scheduler's next walk or
// cleanTimerQueue finds it already resolved and reclaims it, the timer
// counterpart of DeregisterAltGuard's channel-word clear. Safe to call on
// an ALT that never registered a timer guard (TLink still timeNotSet) or
// one whose guard already fired.
func DeregisterAltTimerGuard(w *Workspace) {
	if w.TLink == nil || w.TLink == timeNotSet {
		return
	}
	w.TLink.cancel()
}

// triggerAltGuard resolves one outstanding guard on an ALTing workspace: a
// partner arriving on a channel, or an expiring timer, calls this when it
// discovers an ALT-tagged workspace. Returns true if the ALTer should be
// woken/enqueued now — either it was already parked waiting, or this was
// the last outstanding guard.
func triggerAltGuard(w *Workspace) bool {
	sw := spin.Wait{}
	for {
		s := w.TState()
		ns := (s - 1) &^ (altNotReady | altWaiting)
		if w.tstate.CompareAndSwapAcqRel(s, ns) {
			return s&altWaiting != 0 || ns&altGuardCountMask == 0
		}
		sw.Once()
	}
}
