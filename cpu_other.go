// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package slick

import "runtime"

// detectCPUs falls back to the Go runtime's own GOMAXPROCS-independent
// CPU count on platforms without /proc/cpuinfo or sched_getaffinity.
func detectCPUs() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}
