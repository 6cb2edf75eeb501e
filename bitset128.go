// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

import (
	"math/bits"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// bitset128 is a 128-bit atomic bit-set over thread indices, built from two
// atomix.Uint64 words rather than a single atomix.Uint128: the set/clear
// operations here are read-modify-write on one word at a time (bit i lives
// entirely in lo or entirely in hi), so there is no need for the wider
// primitive's single-CAS guarantee that a 128-bit cycle+value pair would
// need. There is no pick-a-random-bit operation here: pickAffineTarget
// (scheduler.go) chooses among enabled schedulers with math/rand.
type bitset128 struct {
	lo atomix.Uint64
	hi atomix.Uint64
}

// Set atomically sets bit i (0..127).
func (b *bitset128) Set(i int) {
	w, bit := b.word(i)
	sw := spin.Wait{}
	for {
		old := w.LoadAcquire()
		if old&bit != 0 {
			return
		}
		if w.CompareAndSwapAcqRel(old, old|bit) {
			return
		}
		sw.Once()
	}
}

// Clear atomically clears bit i (0..127).
func (b *bitset128) Clear(i int) {
	w, bit := b.word(i)
	sw := spin.Wait{}
	for {
		old := w.LoadAcquire()
		if old&bit == 0 {
			return
		}
		if w.CompareAndSwapAcqRel(old, old&^bit) {
			return
		}
		sw.Once()
	}
}

// Test reports whether bit i is set.
func (b *bitset128) Test(i int) bool {
	w, bit := b.word(i)
	return w.LoadAcquire()&bit != 0
}

func (b *bitset128) word(i int) (*atomix.Uint64, uint64) {
	if i < 64 {
		return &b.lo, 1 << uint(i)
	}
	return &b.hi, 1 << uint(i-64)
}

// Load returns a point-in-time snapshot of both words. The two loads are
// not linearised against each other — callers that need a single
// consistent snapshot (deadlock detection) must tolerate the same
// staleness a scheduler with a movable-memory GC would: a bit that changes between the
// two loads is observed in at most one of them.
func (b *bitset128) Load() (lo, hi uint64) {
	return b.lo.LoadAcquire(), b.hi.LoadAcquire()
}

// Equal reports whether this bit-set and other currently hold the same
// value. The deadlock check (globalState.deadlocked) compares enabled
// against idle & sleeping word by word itself rather than calling Equal.
func (b *bitset128) Equal(other bitsetView) bool {
	lo, hi := b.Load()
	olo, ohi := other.Load()
	return lo == olo && hi == ohi
}

// Subset reports whether this bit-set is a subset of other.
func (b *bitset128) Subset(other bitsetView) bool {
	lo, hi := b.Load()
	olo, ohi := other.Load()
	return lo&^olo == 0 && hi&^ohi == 0
}

// And returns a snapshot of this bit-set ANDed with other.
func (b *bitset128) And(other bitsetView) (lo, hi uint64) {
	alo, ahi := b.Load()
	blo, bhi := other.Load()
	return alo & blo, ahi & bhi
}

// bitsetView is the read side of bitset128, used so Equal/Subset/And can
// accept either a live bitset128 or a plain (lo, hi) pair captured earlier.
type bitsetView interface {
	Load() (lo, hi uint64)
}

// staticBits is a bitsetView over an already-captured (lo, hi) pair.
type staticBits struct{ lo, hi uint64 }

func (s staticBits) Load() (uint64, uint64) { return s.lo, s.hi }

// IsEmpty reports whether no bit is set across both words.
func (b *bitset128) IsEmpty() bool {
	lo, hi := b.Load()
	return lo == 0 && hi == 0
}

// FindFirstSet returns the index of the lowest set bit, or -1 if empty.
func (b *bitset128) FindFirstSet() int {
	lo, hi := b.Load()
	if lo != 0 {
		return bits.TrailingZeros64(lo)
	}
	if hi != 0 {
		return 64 + bits.TrailingZeros64(hi)
	}
	return -1
}

// FindLastSet returns the index of the highest set bit, or -1 if empty.
func (b *bitset128) FindLastSet() int {
	_, hi := b.Load()
	if hi != 0 {
		return 64 + 63 - bits.LeadingZeros64(hi)
	}
	lo, _ := b.Load()
	if lo != 0 {
		return 63 - bits.LeadingZeros64(lo)
	}
	return -1
}

// rqstateBits is the 32-bit flavour of the same idea: one bit per priority
// level, tracking which of a scheduler's run-queues are non-empty. It is
// scheduler-local (only the owning scheduler ever writes it), so plain
// uint32 arithmetic is enough — no atomics needed.
type rqstateBits uint32

func (r *rqstateBits) set(priority uint8)   { *r |= 1 << priority }
func (r *rqstateBits) clear(priority uint8) { *r &^= 1 << priority }
func (r rqstateBits) isEmpty() bool         { return r == 0 }

// lowestSet returns the lowest-numbered non-empty priority, or -1.
func (r rqstateBits) lowestSet() int {
	if r == 0 {
		return -1
	}
	return bits.TrailingZeros32(uint32(r))
}
