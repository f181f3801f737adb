package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type commandKey struct {
	command string
	outcome string
}

type latencyKey struct {
	command string
}

type histogram struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type collector struct {
	mu       sync.Mutex
	commands map[commandKey]uint64
	failures map[string]uint64
	latency  map[latencyKey]*histogram
}

var commandCollector = &collector{
	commands: make(map[commandKey]uint64),
	failures: make(map[string]uint64),
	latency:  make(map[latencyKey]*histogram),
}

// ObserveCommand records metrics about a processed bot command.
func ObserveCommand(command string, failed bool, duration time.Duration) {
	commandCollector.observe(command, failed, duration)
}

func (c *collector) observe(command string, failed bool, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	outcome := "ok"
	if failed {
		outcome = "error"
		c.failures[command]++
	}
	c.commands[commandKey{command: command, outcome: outcome}]++

	latKey := latencyKey{command: command}
	hist := c.latency[latKey]
	if hist == nil {
		hist = newHistogram()
		c.latency[latKey] = hist
	}
	hist.observe(duration.Seconds())
}

func newHistogram() *histogram {
	buckets := []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) observe(value float64) {
	h.count++
	h.sum += value
	for idx, bound := range h.buckets {
		if value <= bound {
			for i := idx; i < len(h.counts); i++ {
				h.counts[i]++
			}
			break
		}
	}
}

// Handler exposes the metrics in Prometheus text exposition format.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = fmt.Fprint(w, commandCollector.render())
	})
}

func (c *collector) render() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	type commandMetric struct {
		commandKey
		value uint64
	}
	type failureMetric struct {
		command string
		value   uint64
	}
	type latencyMetric struct {
		latencyKey
		buckets []float64
		counts  []uint64
		sum     float64
		count   uint64
	}

	cmds := make([]commandMetric, 0, len(c.commands))
	for key, value := range c.commands {
		cmds = append(cmds, commandMetric{commandKey: key, value: value})
	}
	fails := make([]failureMetric, 0, len(c.failures))
	for key, value := range c.failures {
		fails = append(fails, failureMetric{command: key, value: value})
	}
	lats := make([]latencyMetric, 0, len(c.latency))
	for key, hist := range c.latency {
		lats = append(lats, latencyMetric{
			latencyKey: key,
			buckets:    append([]float64(nil), hist.buckets...),
			counts:     append([]uint64(nil), hist.counts...),
			sum:        hist.sum,
			count:      hist.count,
		})
	}

	sort.Slice(cmds, func(i, j int) bool {
		if cmds[i].command == cmds[j].command {
			return cmds[i].outcome < cmds[j].outcome
		}
		return cmds[i].command < cmds[j].command
	})
	sort.Slice(fails, func(i, j int) bool {
		return fails[i].command < fails[j].command
	})
	sort.Slice(lats, func(i, j int) bool {
		return lats[i].command < lats[j].command
	})

	var builder strings.Builder
	builder.Grow(1024)

	builder.WriteString("# HELP solswap_commands_total Total number of bot commands processed.\n")
	builder.WriteString("# TYPE solswap_commands_total counter\n")
	for _, metric := range cmds {
		builder.WriteString(fmt.Sprintf("solswap_commands_total{command=\"%s\",outcome=\"%s\"} %d\n",
			escape(metric.command), escape(metric.outcome), metric.value))
	}

	builder.WriteString("# HELP solswap_command_errors_total Total number of bot commands that failed.\n")
	builder.WriteString("# TYPE solswap_command_errors_total counter\n")
	for _, metric := range fails {
		builder.WriteString(fmt.Sprintf("solswap_command_errors_total{command=\"%s\"} %d\n",
			escape(metric.command), metric.value))
	}

	builder.WriteString("# HELP solswap_command_duration_seconds Bot command duration in seconds.\n")
	builder.WriteString("# TYPE solswap_command_duration_seconds histogram\n")
	for _, metric := range lats {
		for idx, bound := range metric.buckets {
			builder.WriteString(fmt.Sprintf("solswap_command_duration_seconds_bucket{command=\"%s\",le=\"%s\"} %d\n",
				escape(metric.command), formatFloat(bound), metric.counts[idx]))
		}
		builder.WriteString(fmt.Sprintf("solswap_command_duration_seconds_bucket{command=\"%s\",le=\"+Inf\"} %d\n",
			escape(metric.command), metric.count))
		builder.WriteString(fmt.Sprintf("solswap_command_duration_seconds_sum{command=\"%s\"} %s\n",
			escape(metric.command), formatFloat(metric.sum)))
		builder.WriteString(fmt.Sprintf("solswap_command_duration_seconds_count{command=\"%s\"} %d\n",
			escape(metric.command), metric.count))
	}

	return builder.String()
}

func escape(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	value = strings.ReplaceAll(value, "\n", "")
	return value
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
