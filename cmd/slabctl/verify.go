package main

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/joshuapare/slabkit/pkg/schema"
	"github.com/joshuapare/slabkit/slab"
	"github.com/joshuapare/slabkit/slab/verify"
)

var (
	verifyOps  int
	verifySeed uint64
)

func init() {
	cmd := newVerifyCmd()
	cmd.Flags().IntVar(&verifyOps, "ops", 2000, "Number of random operations before verifying")
	cmd.Flags().Uint64Var(&verifySeed, "seed", 1, "Random seed")
	rootCmd.AddCommand(cmd)
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <schema.yaml>",
		Short: "Run a short workload and check every pool's invariants",
		Long: `The verify command runs a seeded workload, drops everything it holds,
flushes and sweeps, and then checks the slot headers, freelist, occupancy,
counts and dummy slot of every pool. It exits non-zero on any violation.

Example:
  slabctl verify graph.yaml
  slabctl verify graph.yaml --ops 20000 --seed 3 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(args)
		},
	}
}

// PoolCheck is the verification result of one pool.
type PoolCheck struct {
	Type       string   `json:"type"`
	Live       int      `json:"live"`
	Free       int      `json:"free"`
	OK         bool     `json:"ok"`
	Violations []string `json:"violations,omitempty"`
}

// VerifyResult is everything verify prints.
type VerifyResult struct {
	Schema string      `json:"schema"`
	Ops    OpCounts    `json:"ops"`
	Pools  []PoolCheck `json:"pools"`
	Leaked int         `json:"leaked"`
}

func runVerify(args []string) error {
	res, err := verifySchema(args[0])
	if err != nil {
		return err
	}

	failed := res.Ops.Errors > 0
	for _, p := range res.Pools {
		failed = failed || !p.OK
	}

	if jsonOut {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		printInfo("Verified %s after %s operations\n", res.Schema, formatNumber(res.Ops.Allocs+res.Ops.Stores+res.Ops.Clears+res.Ops.Drops))
		for _, p := range res.Pools {
			status := "OK"
			if !p.OK {
				status = "FAILED"
			}
			printInfo("  %-12s %-6s live=%d free=%d\n", p.Type, status, p.Live, p.Free)
			for _, v := range p.Violations {
				printInfo("    - %s\n", v)
			}
		}
		if res.Leaked > 0 {
			printInfo("  %d objects still live after release\n", res.Leaked)
		}
	}

	if failed {
		return errors.New("verification failed")
	}
	return nil
}

func verifySchema(path string) (*VerifyResult, error) {
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

	w := newWorkload(r, verifySeed, 50)
	if err := w.run(verifyOps); err != nil {
		return nil, err
	}
	w.release()
	w.flush()
	if _, err := r.Sweep(); err != nil {
		w.fail("sweep", err)
	}

	res := &VerifyResult{Schema: path, Ops: w.ops}
	for _, t := range g.Types() {
		p, ok := r.Pool(t.ID)
		if !ok {
			continue
		}
		pc := PoolCheck{Type: t.Name, Live: p.Live(), Free: p.Free(), OK: true}
		if err := verify.AllInvariants(p); err != nil {
			pc.OK = false
			pc.Violations = violations(err)
		}
		res.Leaked += pc.Live
		res.Pools = append(res.Pools, pc)
	}
	if res.Leaked > 0 {
		printVerbose("Live objects remain after releasing every root\n")
	}
	return res, nil
}

func violations(err error) []string {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		out := make([]string, len(merr.Errors))
		for i, e := range merr.Errors {
			out[i] = e.Error()
		}
		return out
	}
	return []string{fmt.Sprint(err)}
}
