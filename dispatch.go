// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

import "code.hybscloud.com/slick/internal/cpupause"

// idleCPU issues a single PAUSE-equivalent hint once per idle-spin
// iteration before a scheduler commits to parking.
func idleCPU() {
	cpupause.Once()
}
