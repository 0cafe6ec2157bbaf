package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"
)

type outcome int

const (
	outcomeOK outcome = iota
	// outcomeRejected covers the 4xx answers a busy clinic produces on its
	// own: room taken, empty stage, lock held.
	outcomeRejected
	outcomeFailed
)

func classify(status int, err error, want int) outcome {
	switch {
	case err != nil:
		return outcomeFailed
	case status == want:
		return outcomeOK
	case status >= 400 && status < 500:
		return outcomeRejected
	default:
		return outcomeFailed
	}
}

// opStats collects results for one kind of request.
type opStats struct {
	mu        sync.Mutex
	counts    [3]int
	statuses  map[int]int
	latencies []time.Duration
}

func (o *opStats) record(latency time.Duration, status int, result outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts[result]++
	if o.statuses == nil {
		o.statuses = make(map[int]int)
	}
	o.statuses[status]++
	o.latencies = append(o.latencies, latency)
}

type latencySummary struct {
	avg, p50, p95, p99, max time.Duration
}

func (o *opStats) summary() (total int, counts [3]int, lat latencySummary) {
	o.mu.Lock()
	sorted := append([]time.Duration(nil), o.latencies...)
	counts = o.counts
	o.mu.Unlock()

	total = len(sorted)
	if total == 0 {
		return 0, counts, lat
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	lat = latencySummary{
		avg: sum / time.Duration(total),
		p50: sorted[percentileIndex(total, 50)],
		p95: sorted[percentileIndex(total, 95)],
		p99: sorted[percentileIndex(total, 99)],
		max: sorted[total-1],
	}
	return total, counts, lat
}

func (o *opStats) statusLine() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	codes := make([]int, 0, len(o.statuses))
	for code := range o.statuses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	parts := make([]string, len(codes))
	for i, code := range codes {
		label := fmt.Sprint(code)
		if code == 0 {
			label = "net"
		}
		parts[i] = fmt.Sprintf("%s:%d", label, o.statuses[code])
	}
	return strings.Join(parts, " ")
}

func percentileIndex(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type metrics struct {
	checkIn       opStats
	autoAssign    opStats
	finish        opStats
	callNext      opStats
	book          opStats
	appointmentIn opStats
	readQueue     opStats
	readEta       opStats
}

type reportRow struct {
	name  string
	stats *opStats
}

func (m *metrics) rows() []reportRow {
	return []reportRow{
		{"check-in", &m.checkIn},
		{"auto-assign", &m.autoAssign},
		{"finish room", &m.finish},
		{"stage call-next", &m.callNext},
		{"book appointment", &m.book},
		{"appointment check-in", &m.appointmentIn},
		{"read queue", &m.readQueue},
		{"read eta", &m.readEta},
	}
}

func ms(d time.Duration) string {
	return d.Round(100 * time.Microsecond).String()
}

func writeReport(out io.Writer, cfg SimConfig, m *metrics, events map[string]int) {
	fmt.Fprintf(out, "\nsimulation: %s, %d workers, %d displays\n\n", cfg.Duration, cfg.Workers, cfg.Displays)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "operation\ttotal\tok\trejected\tfailed\tavg\tp50\tp95\tp99\tmax\t")
	for _, row := range m.rows() {
		total, counts, lat := row.stats.summary()
		if total == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\t%s\t%s\t%s\t%s\t\n",
			row.name, total, counts[outcomeOK], counts[outcomeRejected], counts[outcomeFailed],
			ms(lat.avg), ms(lat.p50), ms(lat.p95), ms(lat.p99), ms(lat.max))
	}
	_ = tw.Flush()

	fmt.Fprintln(out)
	for _, row := range m.rows() {
		if line := row.stats.statusLine(); line != "" {
			fmt.Fprintf(out, "  %-22s %s\n", row.name, line)
		}
	}

	if len(events) > 0 {
		topics := make([]string, 0, len(events))
		for topic := range events {
			topics = append(topics, topic)
		}
		sort.Strings(topics)
		fmt.Fprintln(out, "\nwebsocket events received:")
		for _, topic := range topics {
			fmt.Fprintf(out, "  %-22s %d\n", topic, events[topic])
		}
	}
}
