package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/slabkit/pkg/schema"
	"github.com/joshuapare/slabkit/pkg/types"
	"github.com/joshuapare/slabkit/slab/typegraph"
)

func init() {
	rootCmd.AddCommand(newClosureCmd())
}

func newClosureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "closure <schema.yaml> <type>",
		Short: "Show which types compaction of a type must scan",
		Long: `The closure command prints the pooled types that can reference the given
type, directly or through other objects. Compacting the type's pool scans
exactly these pools.

Example:
  slabctl closure graph.yaml Node`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClosure(args)
		},
	}
}

// ClosureInfo is the printed closure of one type.
type ClosureInfo struct {
	Type      string   `json:"type"`
	Direct    []string `json:"direct"`
	Closure   []string `json:"closure"`
	SelfCycle bool     `json:"self_cycle"`
}

func runClosure(args []string) error {
	g, err := schema.LoadGraph(args[0])
	if err != nil {
		return err
	}
	t, ok := g.Lookup(args[1])
	if !ok {
		return fmt.Errorf("unknown type %q", args[1])
	}
	if !t.Pooled() {
		return fmt.Errorf("%s is a value type and is never compacted", t.Name)
	}

	info := ClosureInfo{
		Type:      t.Name,
		Direct:    typeNames(g, g.DirectReferrers(t.ID)),
		Closure:   typeNames(g, g.Closure(t.ID)),
		SelfCycle: g.InClosure(t.ID, t.ID),
	}
	if jsonOut {
		return printJSON(info)
	}

	printInfo("Closure of %s:\n", info.Type)
	printInfo("  direct referrers: %s\n", listOrNone(info.Direct))
	printInfo("  scanned pools:    %s\n", listOrNone(info.Closure))
	if info.SelfCycle {
		printInfo("  %s can reach itself\n", info.Type)
	}
	return nil
}

func typeNames(g *typegraph.Graph, ids []types.TypeID) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if t, ok := g.Type(id); ok {
			names = append(names, t.Name)
		}
	}
	return names
}

func listOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}
