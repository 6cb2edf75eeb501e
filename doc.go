// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package slick is a user-space multi-core run-time for extremely
// lightweight cooperatively-scheduled processes communicating by
// synchronous rendezvous channels — a CSP/occam-style concurrency
// substrate embedded as a library.
//
// A fixed pool of OS threads, one per Scheduler, each run an independent
// dispatch loop over local run-queues of process batches. Work crosses
// threads in two ways: affine sends through a peer's pmail, and excess
// local batches published to per-priority migration windows for
// work-stealing peers. Each scheduler also drains a bmail queue of whole
// batches, though nothing in this package sends on it. A private
// timer queue per scheduler, woken by a shared SIGALRM/interval-timer
// arrangement, supports timed waits and ALT (guarded choice) timeouts.
//
// Use ParseArgs and Startup to bring a pool of schedulers up from a
// single initial process entry point; from inside a running process, use
// the Scheduler methods (Startp, Endp, Runp, Stopp, Pause, Alt, Talt) and
// the package-level channel operations (Chanin, Chanout, ChanoutV64) as
// the host ABI a compiled program's generated code would call.
package slick
