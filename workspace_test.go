// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

import "testing"

func TestPriofinityRoundTrip(t *testing.T) {
	tests := []struct {
		priority uint8
		affinity uint64
	}{
		{0, 0},
		{MaxPriority, 0},
		{5, 0b1010},
		{MinPriority, 1<<59 - 1},
	}
	for _, tt := range tests {
		pf := NewPriofinity(tt.priority, tt.affinity)
		if got := pf.Priority(); got != tt.priority {
			t.Fatalf("Priority() = %d, want %d", got, tt.priority)
		}
		if got := pf.Affinity(); got != tt.affinity {
			t.Fatalf("Affinity() = %#x, want %#x", got, tt.affinity)
		}
	}
}

func TestPriofinityClampsPriority(t *testing.T) {
	pf := NewPriofinity(MaxPriority+1, 0)
	if got := pf.Priority(); got != MaxPriority {
		t.Fatalf("Priority() = %d, want MaxPriority clamp of %d", got, MaxPriority)
	}
}

func TestPriofinityAllowsSchedulerZeroMaskIsUnconstrained(t *testing.T) {
	pf := NewPriofinity(0, 0)
	for _, idx := range []int{0, 1, 58} {
		if !pf.AllowsScheduler(idx) {
			t.Fatalf("AllowsScheduler(%d) = false, want true for a zero affinity mask", idx)
		}
	}
}

func TestPriofinityAllowsSchedulerMask(t *testing.T) {
	pf := NewPriofinity(0, 1<<3)
	if !pf.AllowsScheduler(3) {
		t.Fatal("AllowsScheduler(3) should be true: bit 3 is set in the mask")
	}
	if pf.AllowsScheduler(4) {
		t.Fatal("AllowsScheduler(4) should be false: bit 4 is not set in the mask")
	}
}

func TestPriofinityAllowsSchedulerOutOfRange(t *testing.T) {
	pf := NewPriofinity(0, 1)
	if pf.AllowsScheduler(-1) {
		t.Fatal("AllowsScheduler(-1) should be false")
	}
	if pf.AllowsScheduler(64) {
		t.Fatal("AllowsScheduler(64) should be false: beyond the affinity field's width")
	}
}

func TestWorkspaceTStateRoundTrip(t *testing.T) {
	w := &Workspace{}
	w.setTState(42)
	if got := w.TState(); got != 42 {
		t.Fatalf("TState() = %d, want 42", got)
	}
}
