// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

import "code.hybscloud.com/atomix"

// Entry is the compiled process's entry point. The host's code generator
// hands the scheduler one of these per process instead of a raw machine
// address — the idiomatic substitute, in a language with no inline
// assembly tail-jump, for a generated function that manages its own
// stack frame. The scheduler never inspects an Entry's implementation;
// it only calls it with the workspace it belongs to.
type Entry func(w *Workspace)

// Workspace is a process's private memory, addressed by the negative and
// small-positive offsets the C runtime's slick_types.h defines.
// Unlike the C runtime, which overlays these fields onto a
// raw uint64 array at negative indices from a W pointer, Go gives each
// field a name; Offset-style accessors are kept only where host-generated
// code literally needs the numeric layout (none yet — host codegen is
// out of scope).
//
// A Workspace is owned by exactly one batch, channel slot, or TQN at any
// instant; it is never shared, and the scheduler
// that owns it is the only thread permitted to read or write its fields,
// except for the handful of atomically-published fields called out below.
type Workspace struct {
	// IPtr is the instruction pointer: where execution resumes when this
	// workspace is next dispatched. W[-1] in the C layout.
	IPtr Entry
	// Link chains workspaces within a batch or run-queue. W[-2].
	Link *Workspace
	// Priofinity packs priority and affinity mask. W[-3].
	Priofinity Priofinity
	// Pointer is the I/O staging slot: a channel buffer address while
	// blocked on chanin/chanout, or the ALT state pointer while ALTing.
	// W[-4].
	Pointer any
	// tstate holds the ALT finite-state-machine word (LState / LTState in
	// the C layout) while this workspace is ALTing; see alt.go. It is an
	// atomix.Uint64 rather than a plain field because a partner racing to
	// resolve one of several outstanding guards may run on a different
	// scheduler than the ALTer's owner, so CAS access must be genuinely
	// atomic, not just serialised by single ownership.
	tstate atomix.Uint64
	// TLink points at this workspace's timer-queue node while a timed ALT
	// or explicit timer wait is outstanding. Nil once resolved.
	TLink *tqn
	// Timef is the clock reading at which the timer queue last found this
	// workspace's deadline expired (LTimef in the C layout).
	Timef int64

	// Temp is the scratch slot (LTemp / W[0]): holds the parent workspace
	// across startp, and parks the value for chanoutv64's buffer alias.
	Temp any
	// Count is the outstanding par-branch count (LCount / W[1]), live only
	// on a PAR parent's workspace. Atomic because sibling branches can
	// finish (and race to call Endp) on different schedulers at once; a
	// plain decrement could lose an update and either re-admit the
	// parent early or leave it stuck forever.
	Count atomix.Int64
	// SavedPri is the priofinity to restore when the last par branch
	// completes (LSavedPri / W[2]).
	SavedPri Priofinity
	// IPtrSucc is the instruction pointer to resume at once the last par
	// branch completes (LIPtrSucc / W[0], aliases Temp's slot in the C
	// packed layout but is given its own field here).
	IPtrSucc Entry
}

// TState reads the current ALT state word.
func (w *Workspace) TState() uint64 { return w.tstate.LoadAcquire() }

// setTState stores an ALT state word without a CAS; used only by the
// owning scheduler when initialising a fresh ALT (beginAlt) where no
// concurrent reader can yet observe w.
func (w *Workspace) setTState(v uint64) { w.tstate.StoreRelease(v) }

// Priofinity is the packed (priority, affinity mask) value carried by
// every process: low 5 bits priority
// (0 highest, 31 lowest), high 59 bits affinity mask (bit i set ⇒ may run
// on scheduler i; zero mask ⇒ any scheduler).
type Priofinity uint64

const (
	priorityBits = 5
	priorityMask = 1<<priorityBits - 1
	// MaxPriority is the lowest-urgency priority level (32 levels, 0..31).
	MaxPriority = priorityMask
	// MinPriority is the highest-urgency priority level.
	MinPriority = 0
)

// NewPriofinity packs a priority and affinity mask into a Priofinity.
// A zero affinity mask means "any scheduler".
func NewPriofinity(priority uint8, affinity uint64) Priofinity {
	if priority > MaxPriority {
		priority = MaxPriority
	}
	return Priofinity(uint64(priority) | affinity<<priorityBits)
}

// Priority returns the unpacked priority (0 = highest).
func (p Priofinity) Priority() uint8 {
	return uint8(p & priorityMask)
}

// Affinity returns the unpacked affinity bit-mask. Zero means unconstrained.
func (p Priofinity) Affinity() uint64 {
	return uint64(p) >> priorityBits
}

// AllowsScheduler reports whether a process with this Priofinity may run
// on scheduler index idx.
func (p Priofinity) AllowsScheduler(idx int) bool {
	aff := p.Affinity()
	if aff == 0 {
		return true
	}
	if idx < 0 || idx >= 64-priorityBits {
		return false
	}
	return aff&(1<<uint(idx)) != 0
}
