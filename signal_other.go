// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !unix

package slick

import (
	"sync"
	"time"
)

// armTimer on non-POSIX platforms falls back to time.AfterFunc rather
// than SIGALRM/setitimer, which is a POSIX-only primitive out of bounds
// for this package. The observable behaviour — every
// enabled scheduler gets SYNC_TIME and a wake no later than deltaNanos
// from now — is preserved.
var (
	timerMu sync.Mutex
	timer   *time.Timer
)

func armTimer(deltaNanos int64) {
	if deltaNanos < 0 {
		deltaNanos = 0
	}
	d := time.Duration(deltaNanos)

	timerMu.Lock()
	defer timerMu.Unlock()
	if timer != nil {
		timer.Stop()
	}
	timer = time.AfterFunc(d, func() {
		global.forEachEnabled(func(_ int, sched *Scheduler) {
			sched.wake(syncTime)
		})
	})
}
