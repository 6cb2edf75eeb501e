// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

import (
	"code.hybscloud.com/atomix"
)

const (
	// batchEmptied marks a batch that ran dry mid-dispatch but is still
	// the scheduler's cbch — resurrected rather than freed so a process
	// that Pauses back onto it finds it intact. Sticky until explicitly
	// reinitialised.
	batchEmptied = uint64(1) << 62
	// batchDirty marks a batch a foreign scheduler may still hold a
	// pointer to (via a migration-window slot it has just stolen, or a
	// bmail entry in flight); the owner must not reuse it until the
	// foreign holder clears the bit.
	batchDirty = uint64(1) << 63
	// batchWindowMask extracts the migration-window slot index (1..15;
	// 0 means "not published") from a batch's state word.
	batchWindowMask = uint64(0xFF)
)

// batchFreedSentinel is written into nb by allocate on the batch it hands
// out, so a traversal that follows a just-allocated batch's nb before it
// is linked anywhere is detectable: a linked nb is either nil or a batch
// allocated from the pool, never this address.
var batchFreedSentinel = &Batch{}

// Batch is a FIFO list of workspaces plus bookkeeping: the unit of
// cross-thread transfer. Fields mirror the C runtime's layout
// (fptr/bptr/size/nb/state/priofinity) field-for-field; Go's GC makes the
// "128-byte aligned record" framing of a packed C record moot, but the padding
// below still keeps hot atomic fields off a cache line shared with
// scheduler-local bookkeeping.
type Batch struct {
	fptr *Workspace // head of the workspace chain
	bptr *Workspace // tail of the workspace chain
	// size packs the chain length in its low bits and batchEmptied in
	// bit 62. It is scheduler-local while the batch is not published (no
	// atomic needed); once published to a migration window or bmail it is
	// treated as read-only by foreign holders.
	size uint64
	nb   *Batch // next batch in a free-list, laundry-list, or run-queue
	_    pad
	// state is the only field touched by both owner and foreign holders
	// concurrently: bit 63 is DIRTY, the low 8 bits are the migration
	// window slot index (0 = unpublished).
	state      atomix.Uint64
	priofinity Priofinity
}

// Count returns the number of workspaces chained in this batch.
func (b *Batch) Count() uint64 { return b.size &^ batchEmptied }

// IsEmptied reports whether the sticky EMPTIED flag is set.
func (b *Batch) IsEmptied() bool { return b.size&batchEmptied != 0 }

// SetEmptied sets the sticky EMPTIED flag without touching the count.
func (b *Batch) SetEmptied() { b.size |= batchEmptied }

// IsEmpty reports whether the batch holds no workspaces (fptr == nil).
func (b *Batch) IsEmpty() bool { return b.fptr == nil }

// reinit clears a batch back to its pool-fresh state: fptr=nil, size=0,
// state=0. Only valid for batches the caller exclusively owns.
func (b *Batch) reinit() {
	b.fptr = nil
	b.bptr = nil
	b.size = 0
	b.nb = nil
	b.state.StoreRelaxed(0)
	b.priofinity = 0
}

// PushTail appends w to the batch, growing size by one.
func (b *Batch) PushTail(w *Workspace) {
	w.Link = nil
	if b.fptr == nil {
		b.fptr = w
		b.bptr = w
	} else {
		b.bptr.Link = w
		b.bptr = w
	}
	b.size = (b.size &^ batchEmptied) + 1 | (b.size & batchEmptied)
}

// PushHead prepends w to the batch (used by startp's "re-enqueue self at
// front" rule).
func (b *Batch) PushHead(w *Workspace) {
	w.Link = b.fptr
	if b.fptr == nil {
		b.bptr = w
	}
	b.fptr = w
	b.size = (b.size &^ batchEmptied) + 1 | (b.size & batchEmptied)
}

// PopHead removes and returns the head workspace, or nil if empty.
func (b *Batch) PopHead() *Workspace {
	w := b.fptr
	if w == nil {
		return nil
	}
	if w == b.bptr {
		b.fptr = nil
		b.bptr = nil
	} else {
		b.fptr = w.Link
	}
	w.Link = nil
	cnt := b.Count()
	b.size = (cnt-1)&^batchEmptied | (b.size & batchEmptied)
	return w
}

// Split removes the head n workspaces into a freshly allocated batch,
// leaving the remainder in b. Used by the end-of-batch split rule: if
// the current batch still has two or more processes left to run, split
// off the head into a new batch rather than carrying the whole thing
// forward undivided.
func (b *Batch) Split(pool *batchPool, n uint64) *Batch {
	head := pool.allocate()
	head.priofinity = b.priofinity
	for i := uint64(0); i < n && b.fptr != nil; i++ {
		head.PushTail(b.PopHead())
	}
	return head
}

// markWindow stamps the batch DIRTY with the given migration-window slot
// index (1..15).
func (b *Batch) markWindow(idx uint8) {
	b.state.StoreRelease(batchDirty | uint64(idx))
}

// windowIndex returns the currently stamped migration-window slot index,
// or 0 if unpublished.
func (b *Batch) windowIndex() uint8 {
	return uint8(b.state.LoadAcquire() & batchWindowMask)
}

// isDirty reports whether a foreign scheduler may still hold this batch.
func (b *Batch) isDirty() bool {
	return b.state.LoadAcquire()&batchDirty != 0
}

// markClean clears DIRTY (and the window index) once a foreign holder is
// done with the batch.
func (b *Batch) markClean() {
	b.state.StoreRelease(0)
}

// batchPool is a scheduler's free-list and laundry-list of Batch records.
// Unlike the mailbox/migration-window structures, the pool
// is never touched concurrently by more than one thread: a batch only ever
// moves between free/laundry/in-use under its owning scheduler's control,
// while foreign schedulers merely flip the DIRTY bit on a batch they were
// handed. So the lists themselves are plain singly linked stacks threaded
// through Batch.nb, not lock-free structures.
type batchPool struct {
	free      *Batch
	freeCount int
	laundry   *Batch
}

// allocate pops a batch off the free-list, allocating a fresh chunk of 16
// and sweeping the laundry list if the free-list is empty.
func (p *batchPool) allocate() *Batch {
	if p.free == nil {
		p.sweep()
	}
	if p.free == nil {
		p.grow(16)
	}
	b := p.free
	p.free = b.nb
	p.freeCount--
	b.nb = batchFreedSentinel
	return b
}

// grow allocates n fresh, reinitialised batches onto the free-list.
func (p *batchPool) grow(n int) {
	for i := 0; i < n; i++ {
		b := &Batch{}
		b.nb = p.free
		p.free = b
		p.freeCount++
	}
}

// releaseClean reinitialises b and pushes it onto the free-list. Only
// valid when the caller knows no foreign scheduler holds a reference.
func (p *batchPool) releaseClean(b *Batch) {
	b.reinit()
	b.nb = p.free
	p.free = b
	p.freeCount++
}

// releaseDirty pushes b onto the laundry-list without reinitialising it:
// a foreign scheduler may still hold a pointer (DIRTY set, or a non-zero
// migration-window index) that must be cleared before reuse.
func (p *batchPool) releaseDirty(b *Batch) {
	b.nb = p.laundry
	p.laundry = b
}

// sweep walks the laundry-list, reclaiming any batch whose DIRTY bit has
// been cleared by a foreign holder.
func (p *batchPool) sweep() {
	var kept *Batch
	b := p.laundry
	for b != nil {
		next := b.nb
		if b.isDirty() {
			b.nb = kept
			kept = b
		} else {
			b.reinit()
			b.nb = p.free
			p.free = b
			p.freeCount++
		}
		b = next
	}
	p.laundry = kept
}

// trim caps the free-list at max entries, discarding the rest so a burst
// of short-lived batches does not pin memory indefinitely.
func (p *batchPool) trim(max int) {
	if p.freeCount <= max {
		return
	}
	b := p.free
	for i := 1; i < max && b != nil; i++ {
		b = b.nb
	}
	if b != nil {
		b.nb = nil
	}
	p.freeCount = max
}
