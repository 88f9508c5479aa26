package pipeline

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

// Profiler keeps the last and accumulated duration of named stages plus a
// set of counters. Stages are listed in first-seen order.
type Profiler struct {
	Last   map[string]time.Duration
	Total  map[string]time.Duration
	Counts map[string]int
	Order  []string
	Runs   int

	started map[string]time.Time
}

func NewProfiler() *Profiler {
	return &Profiler{
		Last:    make(map[string]time.Duration),
		Total:   make(map[string]time.Duration),
		Counts:  make(map[string]int),
		started: make(map[string]time.Time),
	}
}

func (p *Profiler) BeginScope(name string) {
	p.started[name] = time.Now()
	if !slices.Contains(p.Order, name) {
		p.Order = append(p.Order, name)
	}
}

func (p *Profiler) EndScope(name string) {
	start, ok := p.started[name]
	if !ok {
		return
	}
	d := time.Since(start)
	p.Last[name] = d
	p.Total[name] += d
	delete(p.started, name)
}

func (p *Profiler) SetCount(name string, count int) {
	p.Counts[name] = count
}

// EndRun marks the end of one pipeline run for averaging.
func (p *Profiler) EndRun() {
	p.Runs++
}

func (p *Profiler) Average(name string) time.Duration {
	if p.Runs == 0 {
		return 0
	}
	return p.Total[name] / time.Duration(p.Runs)
}

// Reset clears timings and the run count but keeps stage order.
func (p *Profiler) Reset() {
	clear(p.Last)
	clear(p.Total)
	clear(p.started)
	p.Runs = 0
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func (p *Profiler) GetStatsString() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Timings (CPU, %d runs):\n", p.Runs)
	for _, name := range p.Order {
		fmt.Fprintf(&sb, "  %-10s: last %.2f ms, avg %.2f ms\n", name, ms(p.Last[name]), ms(p.Average(name)))
	}

	sb.WriteString("\nStats:\n")
	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %-10s: %d\n", k, p.Counts[k])
	}

	return sb.String()
}
