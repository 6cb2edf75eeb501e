// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package slick

import (
	"bufio"
	"os"
	"regexp"

	"golang.org/x/sys/unix"
)

// detectCPUs tries sched_getaffinity (the Go/Linux analogue of
// sysconf(_SC_NPROCESSORS_ONLN) restricted to this process's allowed
// set), then falls back to a /proc/cpuinfo line count.
func detectCPUs() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err == nil {
		if n := set.Count(); n > 0 {
			return n
		}
	}
	if n := countProcCPUInfo(); n > 0 {
		return n
	}
	return 1
}

var procLineRe = regexp.MustCompile(`^processor\s*:\s*\d+`)

func countProcCPUInfo() int {
	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return 0
	}
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if procLineRe.MatchString(sc.Text()) {
			n++
		}
	}
	return n
}
