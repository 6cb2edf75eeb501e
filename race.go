// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package slick

// RaceEnabled is true when the race detector is active. It lets a
// concurrent test skip itself where the race detector cannot follow
// cross-thread hand-off through migration windows and mailboxes; no test
// in this package consults it at present.
const RaceEnabled = true
