// Package main - test-runner
// Executable to run the headless soak scenarios.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/MRamiBalles/idlekernel/test"
)

func main() {
	opts := test.DefaultSoakOptions()
	flag.IntVar(&opts.Ticks, "ticks", opts.Ticks, "Ticks per scenario")
	flag.IntVar(&opts.Rounds, "rounds", opts.Rounds, "Command rounds per scenario")
	flag.Int64Var(&opts.Seed, "seed", time.Now().UnixNano(), "Random seed")
	flag.IntVar(&opts.DetailLimit, "detail-limit", opts.DetailLimit, "Individually tracked field limit")
	flag.BoolVar(&opts.Verbose, "v", false, "Log engine output")
	flag.Parse()

	fmt.Println("🌾 IDLE KERNEL - SOAK TEST SUITE")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("   Seed: %d  Ticks: %d  Rounds: %d\n", opts.Seed, opts.Ticks, opts.Rounds)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	results := test.NewSoakTest(opts).RunAll(ctx)

	passed := 0
	failed := 0
	for _, r := range results {
		if r.Passed {
			passed++
			fmt.Printf("   ✅ %-20s %v\n", r.ScenarioName, r.Duration.Round(time.Millisecond))
		} else {
			failed++
			fmt.Printf("   ❌ %-20s %s\n", r.ScenarioName, r.Reason)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("📊 SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("   Passed: %d\n", passed)
	fmt.Printf("   Failed: %d\n", failed)

	if failed > 0 || ctx.Err() != nil {
		os.Exit(1)
	}
}
