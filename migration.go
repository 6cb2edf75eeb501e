// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

import (
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

const migrationWindowSlots = 16

// migrationWindow is a per-priority, per-scheduler publish ring exposing
// up to 15 recent non-affine batches to foreign schedulers for stealing.
// data[0] is reserved for the packed state word (head
// index in the low 8 bits, occupied-slot bitmap in bits 8..23); data[1..15]
// hold published batch pointers, so the 16-element array advertises up to
// 15 live batches.
//
// The owning scheduler is the sole publisher; any enabled peer may steal.
// This is the one place in the runtime where a plain pointer crosses
// threads without going through a mailbox, so every slot is an
// atomix.Uint64 holding the bit pattern of a *Batch.
type migrationWindow struct {
	data [migrationWindowSlots]atomix.Uint64
}

func batchToWord(b *Batch) uint64 { return uint64(uintptr(unsafe.Pointer(b))) }
func wordToBatch(w uint64) *Batch {
	if w == 0 {
		return nil
	}
	return (*Batch)(unsafe.Pointer(uintptr(w)))
}

// nextHead advances the publish head with wrap: (h+1) | ((h+1)>>4) & 15.
// This sequence visits 1..15 and never 0, which is exactly what's needed
// to keep slot 0 reserved for the state word.
func nextHead(h uint64) uint64 {
	n := h + 1
	return (n | (n >> 4)) & 15
}

// publish makes b visible to thieves at a fresh slot, stamping it DIRTY
// with the chosen window index. If the slot's previous occupant was never
// stolen, its DIRTY bit is cleared: it stays reachable through the local
// run-queue, so it no longer needs migration-window protection.
func (mw *migrationWindow) publish(b *Batch) {
	sw := spin.Wait{}
	for {
		old := mw.data[0].LoadAcquire()
		head := old & 0xFF
		bitmap := old >> 8
		newHead := nextHead(head)

		prevWord := mw.data[newHead].SwapAcqRel(batchToWord(b))
		newBitmap := bitmap | (uint64(1) << newHead)
		newState := newHead | newBitmap<<8
		if !mw.data[0].CompareAndSwapAcqRel(old, newState) {
			// Lost the race for the state word; undo our slot write isn't
			// safe to retry blindly, but since we are the sole publisher
			// for this window, this CAS cannot actually fail under the
			// single-producer invariant except by spurious retry, so loop.
			sw.Once()
			continue
		}
		b.markWindow(uint8(newHead))
		if prev := wordToBatch(prevWord); prev != nil && prev != b {
			prev.markClean()
		}
		return
	}
}

// steal attempts to take the newest published batch from mw. It returns
// (nil, false) if the window currently looks empty or the race was lost;
// the caller (scheduler.migrateSomeWork) moves on to the next candidate
// peer rather than retrying the same window.
func (mw *migrationWindow) steal() (*Batch, bool) {
	old := mw.data[0].LoadAcquire()
	head := old & 0xFF
	bitmap := old >> 8
	if bitmap == 0 {
		return nil, false
	}

	// Scan back from head so the newest published slot is tried first —
	// a BSR on a rotated bitmap would pick the same slot in one
	// instruction; this just loops instead.
	idx := uint64(0)
	found := false
	for i := uint64(0); i < migrationWindowSlots; i++ {
		candidate := (head + migrationWindowSlots - i) & 15
		if candidate == 0 {
			continue
		}
		if bitmap&(1<<candidate) != 0 {
			idx = candidate
			found = true
			break
		}
	}
	if !found {
		return nil, false
	}

	newBitmap := bitmap &^ (uint64(1) << idx)
	newState := head | newBitmap<<8
	if !mw.data[0].CompareAndSwapAcqRel(old, newState) {
		return nil, false
	}

	word := mw.data[idx].LoadAcquire()
	if word == 0 {
		return nil, false
	}
	if !mw.data[idx].CompareAndSwapAcqRel(word, 0) {
		return nil, false
	}
	return wordToBatch(word), true
}

// isEmpty reports whether the window currently advertises no batches.
// Used to build a scheduler's mwstate bitmap (which priorities currently
// have something stealable) without walking all 32 windows on every idle
// spin.
func (mw *migrationWindow) isEmpty() bool {
	return mw.data[0].LoadAcquire()>>8 == 0
}
