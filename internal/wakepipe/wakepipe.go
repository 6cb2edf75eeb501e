// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package wakepipe provides the one-byte signalling pipe each scheduler
// blocks on while PAUSED/SLEEPING. A real
// pipe (rather than a Go channel) is used deliberately: the scheduler's
// sleep path and its SIGALRM handler both need to wake a specific
// OS-thread-bound scheduler from outside the Go scheduler's own
// goroutine-parking machinery, and a pipe fd is what a C
// runtime, and every POSIX self-pipe trick, relies on for that.
package wakepipe

import (
	"os"

	"code.hybscloud.com/iox"
)

// Pipe is a scheduler's private wakeup channel: one byte written to In is
// eventually readable from Out, waking whatever is blocked in Wait.
//
// r and w are only populated by the portable (non-Unix-syscall) build;
// the syscall-backed build tracks its descriptors in fds alone.
type Pipe struct {
	fds    [2]int
	r, w   *os.File
	closed bool
}

// New creates the pipe. On Unix builds its write end is set non-blocking,
// matching the C runtime's fcntl(fds[1], F_SETFL, O_NONBLOCK), so a wake()
// that races multiple concurrent writers never itself blocks; the portable
// build uses os.Pipe as returned, without that setting.
func New() (*Pipe, error) {
	return newPipe()
}

// Wake writes a single byte to the pipe, non-blocking. Multiple
// concurrent Wake calls before a single Wait may coalesce into fewer
// bytes than writes — that's fine, Wait only cares that at least one byte
// arrived.
func (p *Pipe) Wake() error {
	return p.wake()
}

// Wait blocks until at least one byte is available, then drains it.
// Returns iox.ErrWouldBlock if the pipe was closed out from under the
// wait (shutdown).
func (p *Pipe) Wait() error {
	return p.wait()
}

// Close releases the pipe's file descriptors.
func (p *Pipe) Close() error {
	return p.close()
}

var errClosed = iox.ErrWouldBlock
