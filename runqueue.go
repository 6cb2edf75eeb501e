// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

const (
	// batchPPD is processes-per-dispatch: the dispatch budget scales
	// linearly with batch size so large batches get proportionally more
	// uninterrupted cycles.
	batchPPD = 4
	// batchMDMask caps the dispatch budget so no single batch can
	// monopolise a scheduler indefinitely.
	batchMDMask = 127
	// numPriorities is the number of priority levels addressable by a
	// 5-bit Priofinity field.
	numPriorities = 32
)

// calculateDispatches computes the dispatch budget for a batch of the
// given size: batchPPD * size, capped at batchMDMask.
// size is unsigned throughout, so the arithmetic below stays in uint64
// until the final cast rather than risk a signed overflow.
func calculateDispatches(size uint64) int {
	d := size * batchPPD
	if d > batchMDMask {
		d = batchMDMask
	}
	return int(d)
}

// runQueue is one priority level's worth of scheduling state: a FIFO of
// already-full batches, plus a pending batch still being
// filled by local enqueues at this priority.
type runQueue struct {
	headBatch  *Batch
	tailBatch  *Batch
	pending    *Batch
	priofinity Priofinity
}

// publish appends b to the tail of this priority's batch FIFO, making it
// visible to the owning scheduler's pickBatch.
func (rq *runQueue) publish(b *Batch) {
	b.nb = nil
	if rq.headBatch == nil {
		rq.headBatch = b
		rq.tailBatch = b
	} else {
		rq.tailBatch.nb = b
		rq.tailBatch = b
	}
}

// popBatch removes and returns the head batch, or nil if none is queued
// (the pending batch is not considered "queued" until published).
func (rq *runQueue) popBatch() *Batch {
	b := rq.headBatch
	if b == nil {
		return nil
	}
	if b == rq.tailBatch {
		rq.headBatch = nil
		rq.tailBatch = nil
	} else {
		rq.headBatch = b.nb
	}
	b.nb = nil
	return b
}

// hasQueuedBatches reports whether any fully published batch is waiting,
// independent of the pending batch's contents.
func (rq *runQueue) hasQueuedBatches() bool { return rq.headBatch != nil }

// ensurePending lazily allocates the pending batch from pool, stamping it
// with priofinity, satisfying the invariant that pending is non-nil during
// normal operation.
func (rq *runQueue) ensurePending(pool *batchPool, priofinity Priofinity) {
	if rq.pending == nil {
		rq.pending = pool.allocate()
		rq.pending.priofinity = priofinity
		rq.priofinity = priofinity
	}
}

// appendLocal appends w to the pending batch for this priority. If the
// pending batch carries a different priofinity than w, the old pending
// batch is published first and a fresh one started.
func (rq *runQueue) appendLocal(pool *batchPool, w *Workspace) {
	rq.ensurePending(pool, w.Priofinity)
	if rq.pending.priofinity != w.Priofinity {
		rq.publish(rq.pending)
		rq.pending = pool.allocate()
		rq.pending.priofinity = w.Priofinity
		rq.priofinity = w.Priofinity
	}
	rq.pending.PushTail(w)
}

// publishPending publishes the pending batch (if non-empty) and replaces
// it with a fresh one at the same priority.
func (rq *runQueue) publishPending(pool *batchPool) {
	if rq.pending != nil && !rq.pending.IsEmpty() {
		rq.publish(rq.pending)
		rq.pending = pool.allocate()
		rq.pending.priofinity = rq.priofinity
	}
}
