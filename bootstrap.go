// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slick

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

// Config is the resolved bootstrap configuration: CLI flags and
// environment variables merged.
type Config struct {
	NThreads int
	NCPUs    int
	SpinUs   int
	Verbose  int
	Help     bool
}

// ParseArgs parses --rt-verbose[=N], --rt-nthreads=N, --rt-help, falls
// back to SLICKRTNTHREADS/SLICKRTNCPUS/SLICKSCHEDULERSPIN, and finally
// to CPU auto-detection (detectCPUs). Malformed values are reported as
// a recoverable warning and defaulted, never fatal.
func ParseArgs(args []string) *Config {
	fs := pflag.NewFlagSet("slick", pflag.ContinueOnError)
	fs.Usage = func() {}
	nthreads := fs.Int("rt-nthreads", 0, "number of scheduler threads")
	verbose := fs.CountP("rt-verbose", "v", "increase runtime diagnostic verbosity")
	help := fs.Bool("rt-help", false, "print runtime flag usage and exit")

	if err := fs.Parse(args); err != nil {
		warning("slick: malformed command line flags: %v", err)
	}

	cfg := &Config{
		NThreads: *nthreads,
		Verbose:  *verbose,
		Help:     *help,
	}

	if cfg.NThreads == 0 {
		cfg.NThreads = envInt("SLICKRTNTHREADS", 0)
	}
	cfg.NCPUs = envInt("SLICKRTNCPUS", 0)
	cfg.SpinUs = envInt("SLICKSCHEDULERSPIN", -1)

	detected := detectCPUs()
	if cfg.NCPUs <= 0 || cfg.NCPUs > 128 {
		if cfg.NCPUs != 0 {
			warning("slick: SLICKRTNCPUS out of range, using detected count")
		}
		cfg.NCPUs = detected
	}
	if cfg.NThreads <= 0 || cfg.NThreads > 128 {
		if cfg.NThreads != 0 {
			warning("slick: thread count out of range, using CPU count")
		}
		cfg.NThreads = cfg.NCPUs
	}
	return cfg
}

func envInt(name string, def int) int {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		warning("slick: %s=%q is not an integer, ignoring", name, v)
		return def
	}
	return n
}

// spinOverrideFromEnv reads SLICKSCHEDULERSPIN directly (a microsecond
// busy-wait target) and returns it in nanoseconds, consulted by
// calibrateSpin.
func spinOverrideFromEnv() (int64, bool) {
	v, ok := os.LookupEnv("SLICKSCHEDULERSPIN")
	if !ok {
		return 0, false
	}
	us, err := strconv.Atoi(v)
	if err != nil || us < 0 {
		warning("slick: SLICKSCHEDULERSPIN=%q is not a valid microsecond count, ignoring", v)
		return 0, false
	}
	return int64(us) * 1000, true
}

// Startup installs the
// fatal-signal handlers, spawns cfg.NThreads scheduler threads (thread
// index 0 seeded with the initial process entry), and blocks until every
// scheduler's Run loop returns — either because Shutdown was called and
// every scheduler went quiescent, or because a fatal condition called
// os.Exit.
func Startup(cfg *Config, initial Entry) error {
	if cfg.Help {
		return fmt.Errorf("slick: --rt-help")
	}
	SetVerbose(cfg.Verbose)
	installFatalSignalHandlers()

	schedulers := make([]*Scheduler, cfg.NThreads)
	for i := range schedulers {
		s, err := NewScheduler(i, cfg.NCPUs)
		if err != nil {
			return fmt.Errorf("slick: scheduler %d: %w", i, err)
		}
		schedulers[i] = s
	}

	if initial != nil {
		seed := &Workspace{IPtr: initial}
		schedulers[0].enqueue(seed)
	}

	g, _ := errgroup.WithContext(context.Background())
	for _, s := range schedulers {
		s := s
		g.Go(func() error {
			s.Run()
			return nil
		})
	}
	return g.Wait()
}

// Shutdown requests a clean exit: every enabled scheduler's Run loop
// returns once it next goes idle with empty run-queues, mail, and timer
// queue. It does not wait for that to happen — callers that need to
// block until every thread has actually returned should do so via
// Startup's errgroup (or their own WaitGroup around Run).
func Shutdown() {
	global.shutdown.StoreRelease(true)
	global.forEachEnabled(func(_ int, sched *Scheduler) {
		sched.wake(syncShutdown)
	})
}

// installFatalSignalHandlers wires SIGILL/SIGBUS/SIGFPE to fatal. SIGSEGV is
// deliberately left to the Go runtime's own fatal crash handler: Go
// itself raises SIGSEGV for nil/out-of-bounds memory errors and already
// produces a diagnostic dump richer than this package could generate
// from a forwarded signal.
func installFatalSignalHandlers() {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGILL, syscall.SIGBUS, syscall.SIGFPE)
	go func() {
		sig := <-ch
		switch sig {
		case syscall.SIGFPE:
			fatal("slick: floating-point exception")
		default:
			fatal("slick: fatal signal: %v", sig)
		}
	}()
}
