// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

// Startp initialises other as a child of w and
// entry, enqueues it, and gives the child a fair chance by reducing this
// process's remaining dispatch budget — if it hits zero, w re-enqueues
// itself at the front of the current batch and reschedules.
func (s *Scheduler) Startp(w, other *Workspace, entry Entry) {
	other.Temp = w
	other.IPtr = entry
	other.Priofinity = w.Priofinity
	s.enqueue(other)

	s.dispatches--
	if s.dispatches <= 0 {
		if s.cbch != nil {
			s.cbch.PushHead(w)
		}
		s.reschedule()
	}
}

// Endp decrements other's par-count; if it reaches zero,
// restores other's saved priofinity and successor IP and enqueues it.
// Always reschedules (this par-branch is done). The decrement is atomic:
// sibling branches can each call Endp on the same parent from different
// schedulers, and only the branch that observes the count hit zero may
// re-admit it.
func (s *Scheduler) Endp(w, other *Workspace) {
	if other.Count.AddAcqRel(-1) == 0 {
		other.Priofinity = other.SavedPri
		other.IPtr = other.IPtrSucc
		s.enqueue(other)
	}
	s.reschedule()
}

// Runp simply enqueues other (no budget or reschedule
// side effects — the caller keeps running).
func (s *Scheduler) Runp(other *Workspace) {
	s.enqueue(other)
}

// Stopp saves w's resumption point and priority, then
// reschedules. w is not enqueued anywhere — it is the caller's
// responsibility (typically a channel or ALT operation already in
// progress) to re-admit w later.
func (s *Scheduler) Stopp(w *Workspace, resumeAt Entry) {
	w.IPtr = resumeAt
	w.SavedPri = w.Priofinity
	s.reschedule()
}

// Pause enqueues w at the tail of the current batch
// regardless of priority ordering (keeps FIFO fairness for a process that
// voluntarily yields), then reschedules.
func (s *Scheduler) Pause(w *Workspace) {
	if s.cbch != nil {
		s.cbch.PushTail(w)
	} else {
		s.enqueue(w)
	}
	s.reschedule()
}

// reschedule forces dispatches to zero so Run's next iteration picks a
// new batch instead of continuing the current one. There is no C-stack
// longjmp equivalent here: Entry functions are expected to return after
// calling a lifecycle op, handing control back to Run's loop.
func (s *Scheduler) reschedule() {
	s.dispatches = 0
}

// Alt initialises w for an untimed guarded choice over guardCount guards.
func (s *Scheduler) Alt(w *Workspace, guardCount int) {
	beginAlt(w, guardCount, false)
}

// Talt initialises w for a timed guarded choice: same as Alt, but also
// marks the timer link unset until a later RegisterAltTimerGuard call
// actually places a deadline in the timer queue for one of its guards.
func (s *Scheduler) Talt(w *Workspace, guardCount int) {
	beginAlt(w, guardCount, true)
}
