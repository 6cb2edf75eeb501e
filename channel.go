// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// direction selects which way channel_io copies bytes
type direction int

const (
	input direction = iota
	output
)

// Chan is the rendezvous channel word shared between two parties: idle
// (nil), a waiting workspace, or that workspace tagged as an ALT guard.
// atomix.Uintptr backs the word so both sides can swap/CAS it as one
// atomic unit; chanVal values are boxed through a side table keyed by
// pointer identity isn't needed because the tag travels in the pointer's
// low bit via chanEncode/chanDecode, matching the C runtime's `W|1`.
type Chan struct {
	word atomix.Uintptr
}

// chanEncode/chanDecode implement the C runtime's pointer-tagging trick
// on top of Go pointers: the allocator never returns an odd *Workspace
// address, so the low bit is free to carry the ALT flag.
func chanEncode(w *Workspace, alt bool) uintptr {
	p := workspaceToUintptr(w)
	if alt {
		p |= 1
	}
	return p
}

func chanDecode(p uintptr) (w *Workspace, alt bool) {
	alt = p&1 != 0
	return uintptrToWorkspace(p &^ 1), alt
}

// channelIO implements channel_io: the shared protocol
// both chanin and chanout reduce to. buf is the caller's local buffer and
// its length is the byte count; dir says which way bytes flow relative to
// buf. sched is the calling scheduler, needed to deschedule when no
// partner has arrived yet.
func channelIO(sched *Scheduler, w *Workspace, c *Chan, buf []byte, dir direction) {
	for {
		prior := c.word.LoadAcquire()

		if prior == 0 || prior&1 != 0 {
			w.Pointer = buf
			w.Priofinity = sched.priofinity
			new := chanEncode(w, false)
			if !c.word.CompareAndSwapAcqRel(prior, new) {
				continue
			}
			if prior == 0 {
				sched.deschedule(w)
				return
			}
			// prior had the ALT bit set: we raced an ALTer registering
			// this very guard. Wake it, then deschedule as the first
			// party (its resumed scan will find us already parked).
			other, _ := chanDecode(prior)
			triggerAltGuard(other)
			sched.deschedule(w)
			return
		}

		// A partner is already parked: complete the rendezvous now.
		partner, _ := chanDecode(prior)
		copyPayload(dir, buf, partner)
		if !c.word.CompareAndSwapAcqRel(prior, 0) {
			continue
		}
		sched.enqueue(partner)
		return
	}
}

// copyPayload moves bytes between the calling process's buffer and its
// partner's staged I/O pointer, in the direction dir names.
func copyPayload(dir direction, buf []byte, partner *Workspace) {
	other, ok := partner.Pointer.([]byte)
	if !ok {
		return
	}
	n := len(buf)
	if len(other) < n {
		n = len(other)
	}
	switch dir {
	case output:
		copy(other[:n], buf[:n])
	case input:
		copy(buf[:n], other[:n])
	}
}

// Chanin receives len(buf) bytes from c into buf (chanin).
func Chanin(sched *Scheduler, w *Workspace, c *Chan, buf []byte) {
	channelIO(sched, w, c, buf, input)
}

// Chanout sends len(buf) bytes from buf over c (chanout).
func Chanout(sched *Scheduler, w *Workspace, c *Chan, buf []byte) {
	channelIO(sched, w, c, buf, output)
}

// ChanoutV64 is the specialised fast path for an 8-byte send: if the
// channel is idle or ALTy it parks value in w.Temp and falls back to the
// general path; otherwise it writes directly to the waiting partner and
// completes the rendezvous without a second round trip.
func ChanoutV64(sched *Scheduler, w *Workspace, c *Chan, value uint64) {
	prior := c.word.LoadAcquire()
	if prior == 0 || prior&1 != 0 {
		var buf [8]byte
		putUint64(buf[:], value)
		w.Temp = value
		channelIO(sched, w, c, buf[:], output)
		return
	}
	partner, _ := chanDecode(prior)
	if ptr, ok := partner.Pointer.([]byte); ok && len(ptr) >= 8 {
		putUint64(ptr, value)
	} else {
		partner.Temp = value
	}
	if !c.word.CompareAndSwapAcqRel(prior, 0) {
		// Lost the race entirely to a concurrent clear; the partner
		// must have already been satisfied by someone else's swap.
		return
	}
	sched.enqueue(partner)
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
}

// RegisterAltGuard implements one guard's registration step: CAS w|1
// into c. Returns true if a partner was already parked
// there (in which case the caller must call triggerAltGuard on that
// partner and count this guard as immediately ready), false if the
// channel was idle and the guard is now simply waiting.
func RegisterAltGuard(c *Chan, w *Workspace) (partnerWasWaiting bool, partner *Workspace) {
	sw := spin.Wait{}
	for {
		prior := c.word.LoadAcquire()
		if prior != 0 && prior&1 != 0 {
			// Another ALT guard already occupies this word; extremely rare
			// for a point-to-point channel, treat as not-yet-ready and
			// retry — the occupant will resolve via its own partner.
			sw.Once()
			continue
		}
		tagged := chanEncode(w, true)
		if !c.word.CompareAndSwapAcqRel(prior, tagged) {
			sw.Once()
			continue
		}
		if prior == 0 {
			return false, nil
		}
		p, _ := chanDecode(prior)
		return true, p
	}
}

// DeregisterAltGuard implements the ALT winner's cleanup step: CAS this
// guard's tagged pointer back to idle, so a late partner sees nil rather
// than a channel word pointing at a workspace that has already resumed
// elsewhere.
func DeregisterAltGuard(c *Chan, w *Workspace) {
	tagged := chanEncode(w, true)
	c.word.CompareAndSwapAcqRel(tagged, 0)
}
