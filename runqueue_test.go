// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

import "testing"

func TestCalculateDispatches(t *testing.T) {
	tests := []struct {
		size uint64
		want int
	}{
		{0, 0},
		{1, batchPPD},
		{2, 2 * batchPPD},
		{batchMDMask, batchMDMask},
		{1000, batchMDMask},
	}
	for _, tt := range tests {
		if got := calculateDispatches(tt.size); got != tt.want {
			t.Fatalf("calculateDispatches(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func TestRunQueuePublishPopFIFO(t *testing.T) {
	var rq runQueue
	b1 := &Batch{}
	b2 := &Batch{}

	if rq.hasQueuedBatches() {
		t.Fatal("fresh run-queue should have no queued batches")
	}

	rq.publish(b1)
	rq.publish(b2)

	if !rq.hasQueuedBatches() {
		t.Fatal("run-queue should report queued batches after publish")
	}
	if got := rq.popBatch(); got != b1 {
		t.Fatalf("popBatch() = %p, want b1 %p", got, b1)
	}
	if got := rq.popBatch(); got != b2 {
		t.Fatalf("popBatch() = %p, want b2 %p", got, b2)
	}
	if got := rq.popBatch(); got != nil {
		t.Fatalf("popBatch() on drained queue = %p, want nil", got)
	}
	if rq.hasQueuedBatches() {
		t.Fatal("drained run-queue should report no queued batches")
	}
}

func TestRunQueueAppendLocalSamePriofinity(t *testing.T) {
	var pool batchPool
	var rq runQueue
	pf := NewPriofinity(1, 0)
	w1 := &Workspace{Priofinity: pf}
	w2 := &Workspace{Priofinity: pf}

	rq.appendLocal(&pool, w1)
	rq.appendLocal(&pool, w2)

	if rq.hasQueuedBatches() {
		t.Fatal("appendLocal should only grow the pending batch, not publish it")
	}
	if got := rq.pending.Count(); got != 2 {
		t.Fatalf("pending.Count() = %d, want 2", got)
	}
}

func TestRunQueueAppendLocalPublishesOnPriofinityChange(t *testing.T) {
	var pool batchPool
	var rq runQueue
	w1 := &Workspace{Priofinity: NewPriofinity(1, 0)}
	w2 := &Workspace{Priofinity: NewPriofinity(2, 0)}

	rq.appendLocal(&pool, w1)
	rq.appendLocal(&pool, w2)

	if !rq.hasQueuedBatches() {
		t.Fatal("a priofinity change should publish the previous pending batch")
	}
	published := rq.popBatch()
	if got := published.Count(); got != 1 {
		t.Fatalf("published batch Count() = %d, want 1", got)
	}
	if rq.pending.priofinity != w2.Priofinity {
		t.Fatal("the fresh pending batch should carry the new workspace's priofinity")
	}
}

func TestRunQueuePublishPending(t *testing.T) {
	var pool batchPool
	var rq runQueue
	w := &Workspace{Priofinity: NewPriofinity(4, 0)}
	rq.appendLocal(&pool, w)

	rq.publishPending(&pool)

	if !rq.hasQueuedBatches() {
		t.Fatal("publishPending should publish a non-empty pending batch")
	}
	if rq.pending == nil || !rq.pending.IsEmpty() {
		t.Fatal("publishPending should replace pending with a fresh empty batch")
	}
}

func TestRunQueuePublishPendingNoopOnEmpty(t *testing.T) {
	var pool batchPool
	var rq runQueue
	rq.ensurePending(&pool, 0)
	before := rq.pending

	rq.publishPending(&pool)

	if rq.hasQueuedBatches() {
		t.Fatal("publishPending should not publish an empty pending batch")
	}
	if rq.pending != before {
		t.Fatal("publishPending should leave an already-empty pending batch untouched")
	}
}
