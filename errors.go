// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

import (
	"fmt"
	"os"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates a non-blocking operation (mailbox enqueue/dequeue)
// could not proceed immediately.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency with
// the rest of the code.hybscloud.com stack.
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err indicates the operation would block.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// ErrDeadlock describes the state in which every enabled scheduler is
// simultaneously idle and sleeping with no pending timers: the process pool
// is quiescent and can never make progress again. Run does not return this
// value; it reports the condition through fatal with the same text.
var ErrDeadlock = fmt.Errorf("slick: deadlocked, no processes left")

// exit is the process-termination hook used by fatal. Tests override it to
// observe fatal conditions without killing the test binary.
var exit = os.Exit

// fatal reports an unrecoverable scheduler error and terminates the process.
// Mirrors the C runtime's slick_fatal: these are programming errors
// or resource exhaustion, never meant to be recovered from mid-run.
func fatal(format string, args ...any) {
	logger.Error().Msg("slick: fatal: " + fmt.Sprintf(format, args...))
	exit(1)
}

// warning reports a recoverable problem (malformed flag, oversubscribed
// thread count, unparsable env var) and continues with a default.
func warning(format string, args ...any) {
	logger.Warn().Msg("slick: warning: " + fmt.Sprintf(format, args...))
}

// message logs benign, verbose-mode-only progress information.
func message(format string, args ...any) {
	logger.Info().Msg("slick: " + fmt.Sprintf(format, args...))
}
