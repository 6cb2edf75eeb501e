// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cpupause

import "code.hybscloud.com/spin"

// Once issues one PAUSE/YIELD-equivalent hint, backing off via the same
// primitive every CAS retry loop in this module already uses. A
// dedicated per-architecture assembly PAUSE (as the lock-free queue
// package's internal/asm does for its SPSC fast path) would shave a few
// cycles here, but idle_cpu is called orders of magnitude less often
// than a CAS retry, so the extra build-tag surface isn't worth it; see
// DESIGN.md.
func Once() {
	sw := spin.Wait{}
	sw.Once()
}
