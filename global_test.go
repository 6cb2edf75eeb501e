// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

import "testing"

func TestGlobalStateRegisterUnregister(t *testing.T) {
	var g globalState
	s := &Scheduler{sidx: 7}

	g.register(7, s)
	if g.schedulerAt(7) != s {
		t.Fatal("schedulerAt should return the just-registered scheduler")
	}

	g.unregister(7)
	if g.schedulerAt(7) != nil {
		t.Fatal("unregister should clear the registry slot")
	}
	if g.enabled.Test(7) {
		t.Fatal("unregister should clear the enabled bit")
	}
}

func TestGlobalStateDeadlockedRequiresEveryEnabledThreadIdleAndSleeping(t *testing.T) {
	var g globalState
	s0, s1 := &Scheduler{sidx: 0}, &Scheduler{sidx: 1}
	g.register(0, s0)
	g.register(1, s1)

	if g.deadlocked() {
		t.Fatal("no thread is idle or sleeping yet: should not report deadlocked")
	}

	g.idle.Set(0)
	g.sleeping.Set(0)
	if g.deadlocked() {
		t.Fatal("only one of two enabled threads is idle+sleeping: should not report deadlocked")
	}

	g.idle.Set(1)
	g.sleeping.Set(1)
	if !g.deadlocked() {
		t.Fatal("every enabled thread idle and sleeping should report deadlocked")
	}
}

func TestGlobalStateForEachEnabled(t *testing.T) {
	var g globalState
	s0, s1, s2 := &Scheduler{sidx: 0}, &Scheduler{sidx: 1}, &Scheduler{sidx: 65}
	g.register(0, s0)
	g.register(1, s1)
	g.register(65, s2)

	seen := map[int]*Scheduler{}
	g.forEachEnabled(func(sidx int, sched *Scheduler) {
		seen[sidx] = sched
	})

	if len(seen) != 3 || seen[0] != s0 || seen[1] != s1 || seen[65] != s2 {
		t.Fatalf("forEachEnabled visited %v, want exactly sidx 0, 1, 65", seen)
	}
}
