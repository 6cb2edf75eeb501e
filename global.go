// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

import "code.hybscloud.com/atomix"

// maxSchedulers bounds the thread-index bit-sets at 128 bits: three
// 128-bit bit-sets over thread indices.
const maxSchedulers = 128

// globalState is the process-wide registry: three thread bit-sets plus
// the scheduler pointer table. There is exactly one instance, reached
// through the package-level global var.
type globalState struct {
	enabled  bitset128
	idle     bitset128
	sleeping bitset128

	registry [maxSchedulers]atomix.Uintptr // *Scheduler, stored as uintptr
	count    atomix.Uint64                 // not updated by register/unregister; stays zero

	// shutdown is set by Shutdown; every scheduler's Run loop consults it
	// on its idle path and returns once it also reports quiescent.
	shutdown atomix.Bool

	cpuCount int
	verbose  int
}

var global globalState

// register publishes sched into the registry at the caller-chosen slot
// sidx and marks sidx enabled, so peers (migration stealing, signal
// fan-out) can reach it.
func (g *globalState) register(sidx int, sched *Scheduler) {
	g.registry[sidx].StoreRelease(uintptrFromScheduler(sched))
	g.enabled.Set(sidx)
}

func (g *globalState) unregister(sidx int) {
	g.enabled.Clear(sidx)
	g.registry[sidx].StoreRelease(0)
}

func (g *globalState) schedulerAt(sidx int) *Scheduler {
	p := g.registry[sidx].LoadAcquire()
	return schedulerFromUintptr(p)
}

// deadlocked reports the quiescence test: every enabled
// thread is simultaneously idle and sleeping, i.e. enabled == idle ∩
// sleeping. Callers must additionally confirm every scheduler's timer
// queue is empty before treating this as a true deadlock.
func (g *globalState) deadlocked() bool {
	eLo, eHi := g.enabled.Load()
	iLo, iHi := g.idle.And(&g.sleeping)
	return eLo == iLo && eHi == iHi
}

// forEachEnabled invokes fn for every currently enabled scheduler index.
func (g *globalState) forEachEnabled(fn func(sidx int, sched *Scheduler)) {
	lo, hi := g.enabled.Load()
	for i := 0; i < 64; i++ {
		if lo&(1<<uint(i)) != 0 {
			if s := g.schedulerAt(i); s != nil {
				fn(i, s)
			}
		}
	}
	for i := 0; i < 64; i++ {
		if hi&(1<<uint(i)) != 0 {
			if s := g.schedulerAt(64 + i); s != nil {
				fn(64+i, s)
			}
		}
	}
}
