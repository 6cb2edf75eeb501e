// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package clock

import "time"

// nowNanos falls back to the runtime's monotonic clock reading on
// platforms without CLOCK_MONOTONIC_COARSE. time.Now() on every supported
// Go platform carries a monotonic component; Sub arithmetic against a
// fixed epoch recovers a comparable nanosecond counter.
var epoch = time.Now()

func nowNanos() int64 {
	return int64(time.Since(epoch))
}
