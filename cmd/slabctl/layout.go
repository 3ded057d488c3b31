package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/slabkit/internal/format"
	"github.com/joshuapare/slabkit/pkg/schema"
	"github.com/joshuapare/slabkit/slab/typegraph"
)

func init() {
	rootCmd.AddCommand(newLayoutCmd())
}

func newLayoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layout <schema.yaml>",
		Short: "Show the memory layout of every declared type",
		Long: `The layout command lays out a schema and prints, per type, its mode,
payload size, slot size and the reference slots a pool scans.

Example:
  slabctl layout graph.yaml
  slabctl layout graph.yaml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(args)
		},
	}
}

// TypeLayout is the printed layout of one type.
type TypeLayout struct {
	ID       uint16        `json:"id"`
	Name     string        `json:"name"`
	Mode     string        `json:"mode"`
	Payload  int           `json:"payload"`
	SlotSize int           `json:"slot_size,omitempty"`
	Align    int           `json:"align"`
	Fields   []FieldLayout `json:"fields"`
	Refs     []RefLayout   `json:"refs,omitempty"`
}

// FieldLayout is one laid-out field.
type FieldLayout struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Offset int    `json:"offset"`
	Size   int    `json:"size"`
	Target string `json:"target,omitempty"`
}

// RefLayout is one flattened reference slot.
type RefLayout struct {
	Path   string `json:"path"`
	Offset int    `json:"offset"`
	Target string `json:"target"`
}

func runLayout(args []string) error {
	printVerbose("Loading schema: %s\n", args[0])
	g, err := schema.LoadGraph(args[0])
	if err != nil {
		return err
	}
	layouts := describeGraph(g)

	if jsonOut {
		return printJSON(layouts)
	}

	for _, l := range layouts {
		printInfo("%s (id %d, %s)\n", l.Name, l.ID, l.Mode)
		if l.SlotSize > 0 {
			printInfo("  payload %s, slot %s, align %d\n", formatBytes(int64(l.Payload)), formatBytes(int64(l.SlotSize)), l.Align)
		} else {
			printInfo("  size %s, align %d (not pooled)\n", formatBytes(int64(l.Payload)), l.Align)
		}
		for _, f := range l.Fields {
			target := ""
			if f.Target != "" {
				target = " -> " + f.Target
			}
			printInfo("  +%-4d %-12s %-6s %d%s\n", f.Offset, f.Name, f.Kind, f.Size, target)
		}
		if len(l.Refs) > 0 {
			paths := make([]string, len(l.Refs))
			for i, r := range l.Refs {
				paths[i] = fmt.Sprintf("%s@%d", r.Path, r.Offset)
			}
			printInfo("  refs: %s\n", strings.Join(paths, ", "))
		}
		printInfo("\n")
	}
	return nil
}

func describeGraph(g *typegraph.Graph) []TypeLayout {
	out := make([]TypeLayout, 0, g.Len())
	for _, t := range g.Types() {
		l := TypeLayout{
			ID:      uint16(t.ID),
			Name:    t.Name,
			Mode:    t.Mode.String(),
			Payload: t.Size,
			Align:   t.Align,
		}
		if t.Pooled() {
			l.SlotSize = format.SlotSize(t.Size)
		}
		for _, f := range t.Fields {
			fl := FieldLayout{Name: f.Name, Kind: f.Kind.String(), Offset: f.Offset, Size: f.Size}
			if f.Target != nil {
				fl.Target = f.Target.Name
			}
			l.Fields = append(l.Fields, fl)
		}
		for _, rs := range t.Refs {
			target, _ := g.Type(rs.Target)
			l.Refs = append(l.Refs, RefLayout{Path: rs.Path, Offset: rs.Offset, Target: target.Name})
		}
		out = append(out, l)
	}
	return out
}
