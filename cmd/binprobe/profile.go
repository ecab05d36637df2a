package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand" //nolint:gosec // intentional use for reproducible benchmarks
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/felixge/fgprof"
	"github.com/spf13/cobra"

	"github.com/meigma/binfile"
)

const localTarget = "local"

type profileConfig struct {
	mode       string
	iterations int
	duration   time.Duration
	readSize   int64
	dataSize   int64
	seed       int64
	cpuProfile string
	memProfile string
	fgProfile  string
}

type profileStats struct {
	ops        int
	bytes      int64
	downloaded int64
	cached     int
	elapsed    time.Duration
}

func newProfileCmd(a *app) *cobra.Command {
	var pc profileConfig
	cmd := &cobra.Command{
		Use:   "profile <location|local>",
		Short: "Measure read patterns against a source",
		Long: "Issue repeated reads against a source and report throughput and bytes downloaded.\n" +
			"The location \"local\" serves generated data from an in-process HTTP server.\n" +
			"Modes: random, sequential, prefetch.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if pc.readSize <= 0 {
				return errors.New("read-size must be positive")
			}
			location := args[0]
			if location == localTarget {
				url, stop := serveLocal(pc.dataSize, pc.seed)
				defer stop()
				location = url
			}

			t, err := a.openTarget(cmd.Context(), location)
			if err != nil {
				return err
			}
			defer t.close() //nolint:errcheck // read-only target

			stop, err := startProfiles(pc)
			if err != nil {
				return err
			}
			stats, runErr := runProfile(cmd.Context(), t, pc)
			if err := stop(); err != nil && runErr == nil {
				runErr = err
			}
			if runErr != nil {
				return runErr
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"mode=%s ops=%d bytes=%d downloaded=%d cached_blocks=%d elapsed=%s throughput=%.2f MB/s\n",
				pc.mode, stats.ops, stats.bytes, stats.downloaded, stats.cached,
				stats.elapsed.Round(time.Microsecond),
				float64(stats.bytes)/(1024*1024)/max(stats.elapsed.Seconds(), 1e-9),
			)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&pc.mode, "mode", "random", "read pattern: random, sequential or prefetch")
	flags.IntVar(&pc.iterations, "iterations", 0, "number of reads (0 runs for --duration)")
	flags.DurationVar(&pc.duration, "duration", 5*time.Second, "how long to run when iterations is 0")
	flags.Int64Var(&pc.readSize, "read-size", 64, "bytes per read")
	flags.Int64Var(&pc.dataSize, "data-size", 8<<20, "size of generated data for the local target")
	flags.Int64Var(&pc.seed, "seed", 1, "random seed")
	flags.StringVar(&pc.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	flags.StringVar(&pc.memProfile, "memprofile", "", "write heap profile to file")
	flags.StringVar(&pc.fgProfile, "fgprofile", "", "write fgprof (wall clock) profile to file")
	return cmd
}

// serveLocal starts an HTTP server over generated data and returns its URL.
func serveLocal(size, seed int64) (string, func()) {
	data := make([]byte, size)
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // intentional for reproducible benchmarks
	_, _ = rng.Read(data)
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.ServeContent(w, r, "data", time.Time{}, bytes.NewReader(data))
	}))
	return server.URL, server.Close
}

// runProfile performs reads until the iteration or time budget is spent.
func runProfile(ctx context.Context, t *target, pc profileConfig) (profileStats, error) {
	size := t.src.Len()
	readSize := min(pc.readSize, size)
	span := size - readSize + 1
	rng := rand.New(rand.NewSource(pc.seed)) //nolint:gosec // intentional for reproducible benchmarks

	var stats profileStats
	start := time.Now()
	shouldContinue := func() bool {
		if ctx.Err() != nil {
			return false
		}
		if pc.iterations > 0 {
			return stats.ops < pc.iterations
		}
		return time.Since(start) < pc.duration
	}

	switch pc.mode {
	case "random":
		for shouldContinue() {
			if err := readOnce(t.src, rng.Int63n(span), readSize, &stats); err != nil {
				return stats, err
			}
		}

	case "sequential":
		var off int64
		for shouldContinue() {
			if err := readOnce(t.src, off, readSize, &stats); err != nil {
				return stats, err
			}
			off += readSize
			if off >= span {
				off = 0
			}
		}

	case "prefetch":
		if t.remote == nil {
			return stats, errors.New("prefetch mode needs a remote location")
		}
		bs := t.remote.BlockSize()
		var ranges []binfile.Range
		for off := int64(0); off < size; off += bs * 16 {
			ranges = append(ranges, binfile.Range{Start: off, End: min(off+bs*16, size) - 1})
		}
		if err := t.remote.LoadRanges(ctx, ranges...); err != nil {
			return stats, err
		}
		for shouldContinue() {
			if err := readOnce(t.src, rng.Int63n(span), readSize, &stats); err != nil {
				return stats, err
			}
		}

	default:
		return stats, fmt.Errorf("unknown mode %q", pc.mode)
	}

	stats.elapsed = time.Since(start)
	stats.downloaded = t.downloaded()
	if t.remote != nil {
		stats.cached = t.remote.CachedBlocks()
	}
	return stats, nil
}

func readOnce(src binfile.ByteSource, off, n int64, stats *profileStats) error {
	b, err := binfile.BytesAt(src, off, n)
	if err != nil {
		return err
	}
	stats.bytes += int64(len(b))
	stats.ops++
	return nil
}

// startProfiles starts the requested profilers and returns a func that
// stops them and writes the heap profile.
func startProfiles(pc profileConfig) (func() error, error) {
	var stops []func() error

	if pc.fgProfile != "" {
		f, err := os.Create(pc.fgProfile)
		if err != nil {
			return nil, err
		}
		stopFG := fgprof.Start(f, fgprof.FormatPprof)
		stops = append(stops, func() error {
			return errors.Join(stopFG(), f.Close())
		})
	}

	if pc.cpuProfile != "" {
		f, err := os.Create(pc.cpuProfile)
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			for _, stop := range stops {
				_ = stop()
			}
			return nil, err
		}
		stops = append(stops, func() error {
			pprof.StopCPUProfile()
			return f.Close()
		})
	}

	if pc.memProfile != "" {
		stops = append(stops, func() error {
			runtime.GC()
			f, err := os.Create(pc.memProfile)
			if err != nil {
				return err
			}
			return errors.Join(pprof.WriteHeapProfile(f), f.Close())
		})
	}

	return func() error {
		var errs []error
		for i := len(stops) - 1; i >= 0; i-- {
			errs = append(errs, stops[i]())
		}
		return errors.Join(errs...)
	}, nil
}
