package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult represents a parsed benchmark result.
type BenchmarkResult struct {
	Package     string
	Name        string // without the Benchmark prefix and -procs suffix
	Iterations  int
	NsPerOp     float64
	BytesPerOp  int64
	AllocsPerOp int64
}

// ComparisonResult represents one benchmark measured in the baseline and current runs.
type ComparisonResult struct {
	Package      string
	Name         string
	BaseNs       float64
	CurNs        float64
	Speedup      float64 // base / current; above 1 means faster now
	BaseAllocs   int64
	CurAllocs    int64
	CurBytes     int64
	CurrentOnly  bool
	BaselineOnly bool
}

var (
	inputFile = flag.String(
		"input",
		"",
		"Input file with benchmark output (stdin if not specified)",
	)
	baselineFile = flag.String("baseline", "", "Earlier benchmark output to compare against")
	outputFile   = flag.String("output", "", "Output markdown file (stdout if not specified)")
	quiet        = flag.Bool("quiet", false, "Suppress progress output")
)

var (
	// BenchmarkPool_Churn/Small-8    10000    12450 ns/op    4096 B/op    8 allocs/op
	benchmarkRegex = regexp.MustCompile(
		`^Benchmark(\S+?)(?:-\d+)?\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+(\d+)\s+B/op)?(?:\s+(\d+)\s+allocs/op)?`,
	)
	pkgRegex = regexp.MustCompile(`^pkg:\s+(\S+)`)
)

func main() {
	flag.Parse()

	current, err := readResults(*inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading benchmarks: %v\n", err)
		os.Exit(1)
	}
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d benchmark results\n", len(current))
	}

	var baseline []BenchmarkResult
	if *baselineFile != "" {
		baseline, err = readResults(*baselineFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading baseline: %v\n", err)
			os.Exit(1)
		}
		if !*quiet {
			fmt.Fprintf(os.Stderr, "Parsed %d baseline results\n", len(baseline))
		}
	}

	comparisons := generateComparisons(baseline, current)
	report := generateMarkdownReport(comparisons, baseline != nil)

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(report), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		if !*quiet {
			fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
		}
		return
	}
	fmt.Fprint(os.Stdout, report)
}

// readResults parses a file, or stdin for an empty path.
func readResults(path string) ([]BenchmarkResult, error) {
	if path == "" {
		return parseBenchmarks(bufio.NewScanner(os.Stdin)), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseBenchmarks(bufio.NewScanner(f)), nil
}

func parseBenchmarks(scanner *bufio.Scanner) []BenchmarkResult {
	var results []BenchmarkResult
	pkg := ""

	for scanner.Scan() {
		line := scanner.Text()

		// Accept `go test -json` output too
		var testEvent map[string]any
		if err := json.Unmarshal([]byte(line), &testEvent); err == nil {
			if output, ok := testEvent["Output"].(string); ok {
				line = output
			}
			if p, ok := testEvent["Package"].(string); ok {
				pkg = p
			}
		}
		line = strings.TrimSpace(line)

		if m := pkgRegex.FindStringSubmatch(line); m != nil {
			pkg = m[1]
			continue
		}
		matches := benchmarkRegex.FindStringSubmatch(line)
		if matches == nil {
			continue
		}

		iterations, _ := strconv.Atoi(matches[2])
		nsPerOp, _ := strconv.ParseFloat(matches[3], 64)
		var bytesPerOp, allocsPerOp int64
		if matches[4] != "" {
			bytesPerOp, _ = strconv.ParseInt(matches[4], 10, 64)
		}
		if matches[5] != "" {
			allocsPerOp, _ = strconv.ParseInt(matches[5], 10, 64)
		}

		results = append(results, BenchmarkResult{
			Package:     shortPackage(pkg),
			Name:        matches[1],
			Iterations:  iterations,
			NsPerOp:     nsPerOp,
			BytesPerOp:  bytesPerOp,
			AllocsPerOp: allocsPerOp,
		})
	}

	return results
}

// shortPackage trims the module path from an import path.
func shortPackage(pkg string) string {
	const module = "github.com/joshuapare/slabkit/"
	return strings.TrimPrefix(pkg, module)
}

func generateComparisons(baseline, current []BenchmarkResult) []ComparisonResult {
	type key struct {
		pkg  string
		name string
	}

	// Repeated runs (-count) keep the fastest sample
	fastest := func(results []BenchmarkResult) map[key]BenchmarkResult {
		out := make(map[key]BenchmarkResult)
		for _, r := range results {
			k := key{r.Package, r.Name}
			if prev, ok := out[k]; !ok || r.NsPerOp < prev.NsPerOp {
				out[k] = r
			}
		}
		return out
	}
	base := fastest(baseline)
	cur := fastest(current)

	var comparisons []ComparisonResult
	for k, c := range cur {
		comp := ComparisonResult{
			Package:   k.pkg,
			Name:      k.name,
			CurNs:     c.NsPerOp,
			CurAllocs: c.AllocsPerOp,
			CurBytes:  c.BytesPerOp,
		}
		if b, ok := base[k]; ok {
			comp.BaseNs = b.NsPerOp
			comp.BaseAllocs = b.AllocsPerOp
			if c.NsPerOp > 0 {
				comp.Speedup = b.NsPerOp / c.NsPerOp
			}
		} else {
			comp.CurrentOnly = true
		}
		comparisons = append(comparisons, comp)
	}
	for k, b := range base {
		if _, ok := cur[k]; !ok {
			comparisons = append(comparisons, ComparisonResult{
				Package:      k.pkg,
				Name:         k.name,
				BaseNs:       b.NsPerOp,
				BaseAllocs:   b.AllocsPerOp,
				BaselineOnly: true,
			})
		}
	}

	sort.Slice(comparisons, func(i, j int) bool {
		if comparisons[i].Package != comparisons[j].Package {
			return comparisons[i].Package < comparisons[j].Package
		}
		return comparisons[i].Name < comparisons[j].Name
	})

	return comparisons
}

func generateMarkdownReport(comparisons []ComparisonResult, withBaseline bool) string {
	var sb strings.Builder

	sb.WriteString("# Benchmark Report\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	if withBaseline {
		faster, slower, total, compared := 0, 0, 0.0, 0
		for _, c := range comparisons {
			if c.CurrentOnly || c.BaselineOnly {
				continue
			}
			compared++
			total += c.Speedup
			switch {
			case c.Speedup > 1.05:
				faster++
			case c.Speedup < 0.95:
				slower++
			}
		}
		sb.WriteString("## Summary\n\n")
		fmt.Fprintf(&sb, "- **Benchmarks compared**: %d\n", compared)
		fmt.Fprintf(&sb, "- **Faster by more than 5%%**: %d\n", faster)
		fmt.Fprintf(&sb, "- **Slower by more than 5%%**: %d\n", slower)
		if compared > 0 {
			fmt.Fprintf(&sb, "- **Mean speedup**: %.2fx\n", total/float64(compared))
		}
		sb.WriteString("\n")
	}

	pkg := ""
	for _, c := range comparisons {
		if c.Package != pkg {
			pkg = c.Package
			fmt.Fprintf(&sb, "## %s\n\n", pkg)
			if withBaseline {
				sb.WriteString("| Benchmark | Baseline | Current | Speedup | Allocs |\n")
				sb.WriteString("|-----------|----------|---------|---------|--------|\n")
			} else {
				sb.WriteString("| Benchmark | Time | Bytes | Allocs |\n")
				sb.WriteString("|-----------|------|-------|--------|\n")
			}
		}

		if !withBaseline {
			fmt.Fprintf(&sb, "| %s | %s | %d B | %d |\n", c.Name, formatNs(c.CurNs), c.CurBytes, c.CurAllocs)
			continue
		}
		switch {
		case c.CurrentOnly:
			fmt.Fprintf(&sb, "| %s | - | %s | new | %d |\n", c.Name, formatNs(c.CurNs), c.CurAllocs)
		case c.BaselineOnly:
			fmt.Fprintf(&sb, "| %s | %s | - | removed | %d |\n", c.Name, formatNs(c.BaseNs), c.BaseAllocs)
		default:
			fmt.Fprintf(&sb, "| %s | %s | %s | %.2fx | %d -> %d |\n",
				c.Name, formatNs(c.BaseNs), formatNs(c.CurNs), c.Speedup, c.BaseAllocs, c.CurAllocs)
		}
	}

	return sb.String()
}

func formatNs(ns float64) string {
	switch {
	case ns >= 1e9:
		return fmt.Sprintf("%.2f s", ns/1e9)
	case ns >= 1e6:
		return fmt.Sprintf("%.2f ms", ns/1e6)
	case ns >= 1e3:
		return fmt.Sprintf("%.2f µs", ns/1e3)
	default:
		return fmt.Sprintf("%.1f ns", ns)
	}
}
