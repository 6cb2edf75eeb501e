// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package wakepipe

import "os"

func newPipe() (*Pipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	return &Pipe{fds: [2]int{int(r.Fd()), int(w.Fd())}, r: r, w: w}, nil
}

func (p *Pipe) wake() error {
	_, err := p.w.Write([]byte{0})
	return err
}

func (p *Pipe) wait() error {
	var b [1]byte
	for {
		n, err := p.r.Read(b[:])
		if err != nil {
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
	err0 := p.r.Close()
	err1 := p.w.Close()
	if err0 != nil {
		return err0
	}
	return err1
}

func (p *Pipe) FD() int {
	return p.fds[0]
}
