// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build unix

package slick

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// ITIMER_REAL is process-wide, not per-thread, so every scheduler's timer
// queue arms the same underlying interval timer; armedUntil tracks the
// soonest deadline currently programmed so a later, less urgent insert
// doesn't push the timer out. signalOnce starts the SIGALRM listener the
// first time any scheduler arms a timer.
var (
	timerMu    sync.Mutex
	armedUntil int64 = -1
	signalOnce sync.Once
)

// armTimer (re)arms the process's real-time interval timer so SIGALRM
// fires no later than deltaNanos from now A negative
// or zero delta arms for immediate expiry; a delta already covered by a
// more urgent pending arm is a no-op.
func armTimer(deltaNanos int64) {
	signalOnce.Do(startSignalListener)

	if deltaNanos < 0 {
		deltaNanos = 0
	}
	now := clockNowForTimer()
	deadline := now + deltaNanos

	timerMu.Lock()
	defer timerMu.Unlock()
	if armedUntil >= 0 && armedUntil <= deadline {
		return
	}
	armedUntil = deadline

	it := unix.Itimerval{
		Value: unix.NsecToTimeval(deltaNanos),
	}
	if err := unix.Setitimer(unix.ITIMER_REAL, &it, nil); err != nil {
		warning("slick: setitimer failed: %v", err)
	}
}

// clockNowForTimer avoids importing internal/clock here to keep this
// file's concerns to signal/itimer plumbing only; CLOCK_MONOTONIC_COARSE
// and the scheduler timer queues already share internal/clock, so this is
// a second, independent read purely to compute a relative delta.
func clockNowForTimer() int64 {
	var ts unix.Timespec
	_ = unix.ClockGettime(unix.CLOCK_MONOTONIC_COARSE, &ts)
	return unix.TimespecToNsec(ts)
}

// startSignalListener installs the SIGALRM handler: on fire, set the
// syncTime bit on every enabled scheduler and wake it.
func startSignalListener() {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGALRM)
	go func() {
		for range ch {
			timerMu.Lock()
			armedUntil = -1
			timerMu.Unlock()
			global.forEachEnabled(func(_ int, sched *Scheduler) {
				sched.wake(syncTime)
			})
		}
	}()
}
