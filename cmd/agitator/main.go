// Package main - agitator
// Load generator: many concurrent websocket clients spamming farm, speed and
// merge commands against a running idle-server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

type options struct {
	url      string
	clients  int
	interval time.Duration
	duration time.Duration
	out      string
}

type counters struct {
	sent, received, replies atomic.Int64
	rejected, rateLimited   atomic.Int64
	errors                  atomic.Int64

	mu  sync.Mutex
	rtt []time.Duration
}

func (c *counters) observe(d time.Duration) {
	c.mu.Lock()
	c.rtt = append(c.rtt, d)
	c.mu.Unlock()
}

// Report is written to the -out file.
type Report struct {
	Sent        int64   `json:"messages_sent"`
	Received    int64   `json:"messages_received"`
	Replies     int64   `json:"replies"`
	Rejected    int64   `json:"rejected"`
	RateLimited int64   `json:"rate_limited"`
	Errors      int64   `json:"errors"`
	Throughput  float64 `json:"throughput_per_sec"`
	P50Ms       float64 `json:"p50_ms"`
	P99Ms       float64 `json:"p99_ms"`
	MaxMs       float64 `json:"max_ms"`
	Clients     int     `json:"clients"`
	Interval    string  `json:"interval"`
	Duration    string  `json:"duration"`
}

// serverFrame is the subset of a hub frame the agitator inspects.
type serverFrame struct {
	Type  string `json:"type"`
	Reply *struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	} `json:"reply"`
}

func main() {
	var opts options
	flag.StringVar(&opts.url, "url", "ws://localhost:8080/ws", "WebSocket server URL")
	flag.IntVar(&opts.clients, "clients", 50, "Number of concurrent clients")
	flag.DurationVar(&opts.interval, "interval", 100*time.Millisecond, "Command interval per client")
	flag.DurationVar(&opts.duration, "duration", 60*time.Second, "Test duration")
	flag.StringVar(&opts.out, "out", "agitator_results.json", "Results file")
	flag.Parse()

	log.Printf("agitator: %d clients -> %s every %v for %v", opts.clients, opts.url, opts.interval, opts.duration)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, opts.duration)
	defer cancel()

	c := &counters{rtt: make([]time.Duration, 0, 10000)}
	start := time.Now()
	swarm(ctx, opts, c)

	r := summarize(c, opts, time.Since(start))
	printReport(r)
	if err := writeReport(opts.out, r); err != nil {
		log.Printf("agitator: write %s: %v", opts.out, err)
		os.Exit(1)
	}
}

func swarm(ctx context.Context, opts options, c *counters) {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < opts.clients; i++ {
		id := i
		g.Go(func() error {
			agitate(gctx, id, opts, c)
			return nil
		})
		time.Sleep(10 * time.Millisecond)
	}

	progress := time.NewTicker(5 * time.Second)
	defer progress.Stop()
	done := make(chan struct{})
	go func() {
		g.Wait()
		close(done)
	}()
	for {
		select {
		case <-done:
			return
		case <-progress.C:
			log.Printf("sent=%s recv=%s rejected=%s errors=%s",
				humanize.Comma(c.sent.Load()), humanize.Comma(c.received.Load()),
				humanize.Comma(c.rejected.Load()), humanize.Comma(c.errors.Load()))
		}
	}
}

// agitate runs one client until ctx ends. Replies come back in command order,
// so a FIFO of send times yields round-trip latency.
func agitate(ctx context.Context, id int, opts options, c *counters) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, opts.url, nil)
	if err != nil {
		log.Printf("client %d: dial: %v", id, err)
		c.errors.Add(1)
		return
	}
	defer conn.Close()

	inflight := make(chan time.Time, 1024)
	go func() {
		for {
			var f serverFrame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			c.received.Add(1)
			if f.Type != "reply" || f.Reply == nil {
				continue
			}
			c.replies.Add(1)
			if !f.Reply.OK {
				c.rejected.Add(1)
				if f.Reply.Error == "rate limit exceeded" {
					c.rateLimited.Add(1)
				}
			}
			select {
			case t := <-inflight:
				c.observe(time.Since(t))
			default:
			}
		}
	}()

	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))
	tick := time.NewTicker(opts.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		if err := conn.WriteJSON(randomCommand(rng)); err != nil {
			c.errors.Add(1)
			return
		}
		c.sent.Add(1)
		select {
		case inflight <- time.Now():
		default:
		}
	}
}

type command map[string]interface{}

// Weighted toward farm commands. Merge ids are unknown here; the server
// rejects them after taking the engine lock.
var commandMix = []struct {
	weight int
	build  func(*rand.Rand) command
}{
	{2, func(r *rand.Rand) command { return command{"type": "buy_land", "quantity": pick(r, 1, 10, 100, -1)} }},
	{2, func(r *rand.Rand) command { return command{"type": "plow", "quantity": pick(r, 1, 10, 100, -1)} }},
	{1, func(r *rand.Rand) command { return command{"type": "clear", "quantity": pick(r, 1, 10, 100, -1)} }},
	{1, func(r *rand.Rand) command {
		crops := []string{"rice", "wheat", "beans", "ginseng"}
		return command{"type": "select_crop", "crop": crops[r.Intn(len(crops))]}
	}},
	{1, func(r *rand.Rand) command { return command{"type": "resume", "divider": pick(r, 40, 10, 5, 2, 1)} }},
	{1, func(*rand.Rand) command { return command{"type": "toggle"} }},
	{1, func(*rand.Rand) command { return command{"type": "merge", "a": "agitator-a", "b": "agitator-b"} }},
	{1, func(*rand.Rand) command { return command{"type": "reset_fields"} }},
}

func pick(r *rand.Rand, vals ...int) int {
	return vals[r.Intn(len(vals))]
}

func randomCommand(r *rand.Rand) command {
	total := 0
	for _, m := range commandMix {
		total += m.weight
	}
	n := r.Intn(total)
	for _, m := range commandMix {
		if n < m.weight {
			return m.build(r)
		}
		n -= m.weight
	}
	return command{"type": "toggle"}
}

func summarize(c *counters, opts options, elapsed time.Duration) Report {
	r := Report{
		Sent:        c.sent.Load(),
		Received:    c.received.Load(),
		Replies:     c.replies.Load(),
		Rejected:    c.rejected.Load(),
		RateLimited: c.rateLimited.Load(),
		Errors:      c.errors.Load(),
		Clients:     opts.clients,
		Interval:    opts.interval.String(),
		Duration:    elapsed.Round(time.Millisecond).String(),
	}
	if s := elapsed.Seconds(); s > 0 {
		r.Throughput = float64(r.Sent) / s
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if n := len(c.rtt); n > 0 {
		sort.Slice(c.rtt, func(i, j int) bool { return c.rtt[i] < c.rtt[j] })
		ms := func(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
		r.P50Ms = ms(c.rtt[n/2])
		r.P99Ms = ms(c.rtt[n*99/100])
		r.MaxMs = ms(c.rtt[n-1])
	}
	return r
}

func printReport(r Report) {
	fmt.Printf("sent       %s\n", humanize.Comma(r.Sent))
	fmt.Printf("received   %s\n", humanize.Comma(r.Received))
	fmt.Printf("replies    %s\n", humanize.Comma(r.Replies))
	fmt.Printf("rejected   %s (rate limited %s)\n", humanize.Comma(r.Rejected), humanize.Comma(r.RateLimited))
	fmt.Printf("errors     %s\n", humanize.Comma(r.Errors))
	fmt.Printf("throughput %.1f cmd/s\n", r.Throughput)
	fmt.Printf("rtt        p50 %.2fms  p99 %.2fms  max %.2fms\n", r.P50Ms, r.P99Ms, r.MaxMs)

	switch {
	case r.Errors == 0 && r.Replies >= r.Sent*9/10:
		fmt.Println("PASS")
	case float64(r.Errors)/float64(r.Sent+1) < 0.05:
		fmt.Println("WARN: some errors")
	default:
		fmt.Println("FAIL: high error rate")
	}
}

func writeReport(path string, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
