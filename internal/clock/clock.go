// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package clock provides the scheduler's time source: nanoseconds since
// boot from CLOCK_MONOTONIC_COARSE on platforms that expose it.
// CLOCK_MONOTONIC_COARSE trades a little
// precision (one jiffy, typically ~1-4ms) for a read that never enters
// the kernel on platforms with a VDSO mapping for it, which matters here
// because ldtimer is called on every channel/ALT suspension point.
package clock

// NowNanos returns the current monotonic time in nanoseconds, suitable
// for comparison against timer-queue deadlines. It is not wall-clock
// time and has no meaning across process restarts.
func NowNanos() int64 {
	return nowNanos()
}
