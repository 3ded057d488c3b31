package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/slabkit/pkg/schema"
	"github.com/joshuapare/slabkit/slab"
	"github.com/joshuapare/slabkit/slab/pool"
)

var (
	simOps             int
	simSeed            uint64
	simFlushEvery      int
	simSweep           bool
	simCompact         string
	simBackgroundFlush time.Duration
	simRelease         bool
)

func init() {
	cmd := newSimulateCmd()
	cmd.Flags().IntVar(&simOps, "ops", 10000, "Number of random operations")
	cmd.Flags().Uint64Var(&simSeed, "seed", 1, "Random seed")
	cmd.Flags().IntVar(&simFlushEvery, "flush-every", 100, "Flush after every N operations (0 = only at the end)")
	cmd.Flags().BoolVar(&simSweep, "sweep", false, "Sweep unreachable objects after the workload")
	cmd.Flags().StringVar(&simCompact, "compact", "", "Compact the pool of this type after the workload")
	cmd.Flags().DurationVar(&simBackgroundFlush, "background-flush", 0, "Run a background flusher with this interval")
	cmd.Flags().BoolVar(&simRelease, "release", false, "Drop every held object before the final flush")
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate <schema.yaml>",
		Short: "Run a random workload against a registry",
		Long: `The simulate command builds a registry for a schema and runs a seeded
random mix of allocations, stores, clears and drops against it. Objects the
workload holds are rooted as globals. Afterwards it flushes, optionally sweeps
and compacts, and prints per-pool statistics.

Example:
  slabctl simulate graph.yaml --ops 50000 --seed 7
  slabctl simulate graph.yaml --sweep --compact Node
  slabctl simulate graph.yaml --background-flush 5ms --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context(), args)
		},
	}
}

// SimReport is everything simulate prints.
type SimReport struct {
	Schema     string              `json:"schema"`
	Seed       uint64              `json:"seed"`
	Ops        OpCounts            `json:"ops"`
	Elapsed    string              `json:"elapsed"`
	Flush      slab.FlushReport    `json:"flush"`
	Background *slab.FlusherStats  `json:"background,omitempty"`
	Sweep      *slab.SweepReport   `json:"sweep,omitempty"`
	Compact    *slab.CompactReport `json:"compact,omitempty"`
	Pools      []pool.Stats        `json:"pools"`
	Queue      int                 `json:"queue_peak"`
	ZCT        int                 `json:"zct"`
	FirstError string              `json:"first_error,omitempty"`
}

func runSimulate(ctx context.Context, args []string) error {
	rep, err := simulate(ctx, args[0])
	if err != nil {
		return err
	}
	if jsonOut {
		if err := printJSON(rep); err != nil {
			return err
		}
	} else {
		printSimReport(rep)
	}
	if rep.Ops.Errors > 0 {
		return fmt.Errorf("%d operations failed, first: %s", rep.Ops.Errors, rep.FirstError)
	}
	return nil
}

func simulate(ctx context.Context, path string) (*SimReport, error) {
	g, err := schema.LoadGraph(path)
	if err != nil {
		return nil, err
	}
	cfg, err := slab.LoadConfig()
	if err != nil {
		return nil, err
	}
	r, err := slab.New(g, cfg)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	rep := &SimReport{Schema: path, Seed: simSeed}
	w := newWorkload(r, simSeed, simFlushEvery)
	start := time.Now()

	if simBackgroundFlush > 0 {
		printVerbose("Background flusher every %s\n", simBackgroundFlush)
		f := r.NewFlusher(slab.FlusherOptions{Interval: simBackgroundFlush, Partial: true})
		runCtx, cancel := context.WithCancel(ctx)
		grp, gctx := errgroup.WithContext(runCtx)
		grp.Go(func() error {
			if err := f.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		grp.Go(func() error {
			defer cancel()
			return w.run(simOps)
		})
		if err := grp.Wait(); err != nil {
			cancel()
			return nil, err
		}
		st := f.Stats()
		rep.Background = &st
	} else if err := w.run(simOps); err != nil {
		return nil, err
	}

	if simRelease {
		w.release()
	}
	rep.Flush, err = r.Flush(false)
	if err != nil {
		w.fail("final flush", err)
	}
	if simSweep {
		sw, err := r.Sweep()
		if err != nil {
			w.fail("sweep", err)
		}
		rep.Sweep = &sw
	}
	if simCompact != "" {
		t, ok := g.Lookup(simCompact)
		if !ok {
			return nil, fmt.Errorf("unknown type %q", simCompact)
		}
		cr, err := r.Compact(t.ID)
		if err != nil {
			return nil, err
		}
		rep.Compact = &cr
	}

	rep.Elapsed = time.Since(start).Round(time.Microsecond).String()
	rep.Ops = w.ops
	if w.firstErr != nil {
		rep.FirstError = w.firstErr.Error()
	}
	st := r.Stats()
	rep.Pools = st.Pools
	rep.Queue = st.Queue.Peak
	rep.ZCT = st.ZCT
	return rep, nil
}

func printSimReport(rep *SimReport) {
	printInfo("Workload on %s (seed %d, %s)\n", rep.Schema, rep.Seed, rep.Elapsed)
	printInfo("  allocs %s, stores %s, clears %s, drops %s, flushes %s, skipped %s\n",
		formatNumber(rep.Ops.Allocs), formatNumber(rep.Ops.Stores), formatNumber(rep.Ops.Clears),
		formatNumber(rep.Ops.Drops), formatNumber(rep.Ops.Flushes), formatNumber(rep.Ops.Skipped))
	if rep.Ops.Errors > 0 {
		printInfo("  errors %s\n", formatNumber(rep.Ops.Errors))
	}
	if rep.Background != nil {
		printInfo("  background: %s flushes, %s freed, %d failed\n",
			formatNumber(rep.Background.Flushes), formatNumber(rep.Background.Freed), rep.Background.Failed)
	}

	printInfo("\nFinal flush: %d batches, %s deltas, %s freed, %d rooted, %d underflows\n",
		rep.Flush.Batches, formatNumber(rep.Flush.Drained), formatNumber(rep.Flush.Freed),
		rep.Flush.Rooted, rep.Flush.Underflows)
	printInfo("Queue peak: %s, ZCT backlog: %s\n", formatNumber(rep.Queue), formatNumber(rep.ZCT))

	if rep.Sweep != nil {
		printInfo("\nSweep: %s marked from %d roots, %s reclaimed (%d cycles, %d orphans)\n",
			formatNumber(rep.Sweep.Marked), rep.Sweep.Roots, formatNumber(len(rep.Sweep.Reclaimed)),
			rep.Sweep.Cycles, rep.Sweep.Orphans)
		for _, rc := range rep.Sweep.Reclaimed {
			printVerbose("  %s %s count=%d\n", rc.Type, rc.Ref, rc.Count)
		}
	}
	if rep.Compact != nil {
		printInfo("\nCompact %s: %d moved, %d refs rewritten, %d roots, free run %d -> %d\n",
			rep.Compact.Type, len(rep.Compact.Moves), rep.Compact.Rewritten, rep.Compact.RootsRewired,
			rep.Compact.FreeRunBefore, rep.Compact.FreeRunAfter)
	}

	printInfo("\n%-12s %-9s %8s %8s %8s %6s %10s\n", "TYPE", "MODE", "LIVE", "FREE", "CAP", "CHUNKS", "BYTES")
	for _, p := range rep.Pools {
		bytes := int64(p.Capacity+min(p.Chunks, 1)) * int64(p.SlotSize)
		printInfo("%-12s %-9s %8s %8s %8s %6d %10s\n",
			p.Type, p.Mode, formatNumber(p.Live), formatNumber(p.Free), formatNumber(p.Capacity),
			p.Chunks, formatBytes(bytes))
	}
}
