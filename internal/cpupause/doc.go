// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cpupause provides the idle-loop PAUSE-hint spin a scheduler
// issues before it commits to parking on its wake pipe. See Once's doc
// comment for why this stays one portable implementation rather than a
// per-architecture assembly split.
package cpupause
