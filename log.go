// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

import (
	"os"

	"github.com/rs/zerolog"
)

// logger is the package-level diagnostics sink. Verbose mode
// only asks for one-line, "slick: "-prefixed diagnostics on stderr; a
// console-writer zerolog.Logger gives that shape while still letting an
// embedding host redirect or structure the output via SetLogger.
var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true, TimeFormat: "15:04:05.000"}).
	With().Timestamp().Logger().
	Level(zerolog.WarnLevel)

// SetLogger replaces the package-wide diagnostics logger. Hosts embedding
// slick into a larger service can use this to route fatal/warning/message
// output through their own structured logging pipeline.
func SetLogger(l zerolog.Logger) {
	logger = l
}

// SetVerbose raises or lowers the log level that benign progress messages
// are emitted at. level counts repetitions of --rt-verbose (0 disables
// informational output, 1 enables message(), 2+ also enables debug-level
// scheduler tracing).
func SetVerbose(level int) {
	switch {
	case level <= 0:
		logger = logger.Level(zerolog.WarnLevel)
	case level == 1:
		logger = logger.Level(zerolog.InfoLevel)
	default:
		logger = logger.Level(zerolog.DebugLevel)
	}
}
