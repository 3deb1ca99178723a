package metrics

import (
	"sort"
	"time"

	"github.com/kiosk404/echobot/pkg/logger"
)

// Reporter logs sink snapshots.
type Reporter struct {
	sink *Sink
	last map[string]int64
}

func NewReporter(sink *Sink) *Reporter {
	return &Reporter{sink: sink, last: make(map[string]int64)}
}

// Report logs every counter that changed since the previous report plus
// the dispatch latency summary. It is not safe for concurrent use.
func (r *Reporter) Report() {
	snap := r.sink.Snapshot()
	keys := make([]string, 0, len(snap.Counters))
	for k := range snap.Counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	changed := 0
	for _, k := range keys {
		v := snap.Counters[k]
		if v == r.last[k] {
			continue
		}
		logger.Info("[Metrics] %s = %d (+%d)", k, v, v-r.last[k])
		r.last[k] = v
		changed++
	}
	if d, ok := snap.Durations[DispatchDuration]; ok && changed > 0 {
		logger.Info("[Metrics] dispatch latency mean=%s p99=%s over %d events",
			d.Mean().Round(time.Microsecond), d.P99.Round(time.Microsecond), d.Count)
	}
	if changed == 0 {
		logger.Debug("[Metrics] no activity (uptime %s)", snap.Uptime.Round(time.Second))
	}
}
