// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSetVerboseLevels(t *testing.T) {
	defer func() { logger = logger.Level(zerolog.WarnLevel) }()

	tests := []struct {
		level int
		want  zerolog.Level
	}{
		{0, zerolog.WarnLevel},
		{-1, zerolog.WarnLevel},
		{1, zerolog.InfoLevel},
		{2, zerolog.DebugLevel},
		{5, zerolog.DebugLevel},
	}
	for _, tt := range tests {
		SetVerbose(tt.level)
		if got := logger.GetLevel(); got != tt.want {
			t.Fatalf("SetVerbose(%d): level = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestSetLoggerReplacesPackageLogger(t *testing.T) {
	original := logger
	defer func() { logger = original }()

	replacement := zerolog.Nop()
	SetLogger(replacement)
	if logger.GetLevel() != replacement.GetLevel() {
		t.Fatal("SetLogger should replace the package-level logger")
	}
}
