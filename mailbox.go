// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// mailbox is the lock-free MPSC queue backing pmail (single workspaces)
// and bmail (whole batches). It adapts an FAA-based SCQ algorithm,
// generalised from a dedicated exported MPSC[T] type to an internal
// primitive shared by both
// mail kinds, and bounded rather than unbounded: this models a
// Michael-Scott-lite linked queue, but a scheduler only ever has as many
// in-flight cross-thread enqueues as there are peer schedulers, so a
// generously sized ring (see mailboxCapacity) gives the same observable
// behaviour without a per-node allocation on every cross-thread send.
type mailbox[T any] struct {
	_    pad
	head atomix.Uint64 // consumer index; only the owner advances this
	_    pad
	tail atomix.Uint64 // producer index (FAA, multiple producers)
	_    pad
	buffer   []mailboxSlot[T]
	capacity uint64
	size     uint64
	mask     uint64
}

type mailboxSlot[T any] struct {
	cycle atomix.Uint64
	data  T
	_     padShort
}

// mailboxCapacity bounds pmail/bmail. 4096 in-flight cross-thread sends
// per scheduler comfortably exceeds any realistic peer count (schedulers
// are capped at maxSchedulers) times outstanding sends per peer.
const mailboxCapacity = 4096

func newMailbox[T any](capacity int) *mailbox[T] {
	n := uint64(roundToPow2(capacity))
	size := n * 2
	m := &mailbox[T]{
		buffer:   make([]mailboxSlot[T], size),
		capacity: n,
		size:     size,
		mask:     size - 1,
	}
	for i := uint64(0); i < size; i++ {
		m.buffer[i].cycle.StoreRelaxed(i / n)
	}
	return m
}

// send enqueues elem (multiple producers safe). Returns ErrWouldBlock if
// the mailbox is saturated — in practice this only fires under a
// programming error (a peer spinning sends without ever letting the
// owner drain), since mailboxCapacity is sized generously.
func (m *mailbox[T]) send(elem T) error {
	sw := spin.Wait{}
	for {
		tail := m.tail.LoadAcquire()
		head := m.head.LoadRelaxed()
		if tail >= head+m.capacity {
			return ErrWouldBlock
		}

		myTail := m.tail.AddAcqRel(1) - 1
		slot := &m.buffer[myTail&m.mask]
		expectedCycle := myTail / m.capacity
		slotCycle := slot.cycle.LoadAcquire()

		if slotCycle == expectedCycle {
			slot.data = elem
			slot.cycle.StoreRelease(expectedCycle + 1)
			return nil
		}
		if int64(slotCycle) < int64(expectedCycle) {
			return ErrWouldBlock
		}
		sw.Once()
	}
}

// isEmpty reports whether the mailbox currently holds no elements. Racy
// against a concurrent send (the usual producer/consumer caveat), fine
// for its one caller: a quiescence check that will simply re-observe a
// late arrival on its next idle pass.
func (m *mailbox[T]) isEmpty() bool {
	return m.tail.LoadAcquire() <= m.head.LoadRelaxed()
}

// recv dequeues one element (single consumer: the owning scheduler only).
// Returns (zero, ErrWouldBlock) if empty.
func (m *mailbox[T]) recv() (T, error) {
	head := m.head.LoadRelaxed()
	cycle := head / m.capacity
	slot := &m.buffer[head&m.mask]
	slotCycle := slot.cycle.LoadAcquire()

	if slotCycle != cycle+1 {
		var zero T
		return zero, ErrWouldBlock
	}

	elem := slot.data
	var zero T
	slot.data = zero
	nextEnqCycle := (head + m.size) / m.capacity
	slot.cycle.StoreRelease(nextEnqCycle)
	m.head.StoreRelaxed(head + 1)
	return elem, nil
}
