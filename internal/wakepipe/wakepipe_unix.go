// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package wakepipe

import (
	"errors"

	"golang.org/x/sys/unix"
)

func newPipe() (*Pipe, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return nil, err
	}
	if err := unix.SetNonblock(fds[1], true); err != nil {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
		return nil, err
	}
	return &Pipe{fds: fds}, nil
}

func (p *Pipe) wake() error {
	var b [1]byte
	_, err := unix.Write(p.fds[1], b[:])
	if errors.Is(err, unix.EAGAIN) {
		// A byte is already pending, so the reader will wake regardless.
		return nil
	}
	return err
}

func (p *Pipe) wait() error {
	var b [1]byte
	for {
		n, err := unix.Read(p.fds[0], b[:])
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if p.closed {
				return errClosed
			}
			return err
		}
		if n > 0 {
			return nil
		}
	}
}

func (p *Pipe) close() error {
	p.closed = true
	err0 := unix.Close(p.fds[0])
	err1 := unix.Close(p.fds[1])
	if err0 != nil {
		return err0
	}
	return err1
}

// FD returns the read end, for poll/epoll integration by callers that
// need to multiplex a scheduler's wake pipe alongside other descriptors.
func (p *Pipe) FD() int {
	return p.fds[0]
}
