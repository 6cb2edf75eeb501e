// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

import "unsafe"

// ptrSize is the size of a pointer in bytes.
const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// pad is cache line padding to prevent false sharing between hot fields
// that are written from different threads (the producer-local/consumer-local
// split called for in the scheduler's struct layout).
type pad [64]byte

// padShort is padding to fill a cache line after an 8-byte field.
type padShort [64 - 8]byte

// roundToPow2 rounds n up to the next power of 2. Used to size mailbox
// buffers.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// oneIfZ64 returns 1 if v is zero, else 0. Named after the C runtime's
// one_if_z64 helper. calculateDispatches does not call it: that function
// clamps its budget with a branch.
func oneIfZ64(v uint64) uint64 {
	if v == 0 {
		return 1
	}
	return 0
}

// workspaceToUintptr/uintptrToWorkspace and their Scheduler counterparts
// below round-trip a live Go pointer through a plain uintptr so it can
// ride inside an atomix.Uintptr channel word or registry slot, mirroring
// how the C runtime packs a raw C pointer into one machine word. This is
// only safe because Go's current allocator never moves heap objects
// while a goroutine holds an unsafe.Pointer derived from one, and because
// every Workspace/Scheduler that can appear here is independently kept
// alive by the batch, run-queue, or registry that owns it — the uintptr
// round-trip is never the sole reference. See DESIGN.md.
func workspaceToUintptr(w *Workspace) uintptr {
	return uintptr(unsafe.Pointer(w))
}

func uintptrToWorkspace(p uintptr) *Workspace {
	return (*Workspace)(unsafe.Pointer(p)) //nolint:govet
}

func uintptrFromScheduler(s *Scheduler) uintptr {
	return uintptr(unsafe.Pointer(s))
}

func schedulerFromUintptr(p uintptr) *Scheduler {
	if p == 0 {
		return nil
	}
	return (*Scheduler)(unsafe.Pointer(p)) //nolint:govet
}
