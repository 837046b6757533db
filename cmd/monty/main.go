// monty is a small CLI wrapping the Engine API: it runs a script file
// and prints its result, then a table of the resource tracker's final
// stats.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rodaine/table"

	monty "github.com/zond/monty"
)

func main() {
	var (
		maxAllocations    int64
		maxDurationSecs   float64
		maxMemory         int64
		gcInterval        int64
		maxRecursionDepth int64
		logFile           string
		quiet             bool
	)

	flag.Int64Var(&maxAllocations, "max-allocations", 0, "Cap on cumulative allocations (0: unlimited).")
	flag.Float64Var(&maxDurationSecs, "max-duration-secs", 0, "Wall-clock budget in seconds (0: unlimited).")
	flag.Int64Var(&maxMemory, "max-memory", 0, "Peak live byte budget (0: unlimited).")
	flag.Int64Var(&gcInterval, "gc-interval", 0, "Instructions between opportunistic sweeps (0: default).")
	flag.Int64Var(&maxRecursionDepth, "max-recursion-depth", 0, "Per-task recursion depth cap (0: unlimited).")
	flag.StringVar(&logFile, "logfile", "", "Path to a rotating diagnostic log (default: none).")
	flag.BoolVar(&quiet, "quiet", false, "Suppress the result line, print only the stats table.")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <script.monty>\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(1)
	}

	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}

	eng := monty.New(path, string(src))
	if logFile != "" {
		eng = eng.WithDiagnosticLog(logFile, 10, 3)
	}

	rl := monty.ResourceLimits{}
	if maxAllocations > 0 {
		rl = rl.WithMaxAllocations(maxAllocations)
	}
	if maxDurationSecs > 0 {
		rl = rl.WithMaxDurationSecs(maxDurationSecs)
	}
	if maxMemory > 0 {
		rl = rl.WithMaxMemory(maxMemory)
	}
	if gcInterval > 0 {
		rl = rl.WithGCInterval(gcInterval)
	}
	if maxRecursionDepth > 0 {
		rl = rl.WithMaxRecursionDepth(maxRecursionDepth)
	}

	tracker, result, runErr := monty.RunWithTracker(eng, nil, rl)

	if !quiet {
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		} else {
			fmt.Printf("result: %#v\n", result)
		}
	}

	t := table.New("Stat", "Value").WithWriter(os.Stdout)
	for _, s := range tracker.Report() {
		t.AddRow(s.Name, s.Value)
	}
	t.Print()

	if runErr != nil {
		os.Exit(1)
	}
}
